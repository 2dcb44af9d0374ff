package safety

import "github.com/gorilla/mux"

// Register mounts the safety routes.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/api/safety/block", s.handleBlock).Methods("POST")
	r.HandleFunc("/api/safety/unblock", s.handleUnblock).Methods("POST")
	r.HandleFunc("/api/safety/report", s.handleReport).Methods("POST")
	r.HandleFunc("/api/safety/unmatch", s.handleUnmatch).Methods("POST")
}
