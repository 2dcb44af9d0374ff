package profile

import "github.com/gorilla/mux"

// Register mounts the profile touch-up routes.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/api/profile/heartbeat", s.handleHeartbeat).Methods("POST")
	r.HandleFunc("/api/profile/location", s.handleLocation).Methods("POST")
	r.HandleFunc("/api/profile/boost", s.handleBoost).Methods("POST")
}
