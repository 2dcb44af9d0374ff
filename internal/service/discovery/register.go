package discovery

import "github.com/gorilla/mux"

// Register mounts the discovery route.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/api/discovery/feed", s.handleFeed).Methods("POST")
}
