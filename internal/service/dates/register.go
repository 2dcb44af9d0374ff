package dates

import "github.com/gorilla/mux"

// Register mounts the date lifecycle routes.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/api/dates/accept", s.handleAccept).Methods("POST")
	r.HandleFunc("/api/dates/reschedule", s.handleReschedule).Methods("POST")
	r.HandleFunc("/api/dates/request", s.handleRequestNew).Methods("POST")
	r.HandleFunc("/api/dates/active", s.handleActive).Methods("POST")
}
