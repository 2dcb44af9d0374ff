package feedback

import "github.com/gorilla/mux"

// Register mounts the feedback route.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/api/feedback/submit", s.handleSubmit).Methods("POST")
}
