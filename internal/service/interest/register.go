package interest

import "github.com/gorilla/mux"

// Register mounts the interest ledger routes.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/api/interest/express", s.handleExpress).Methods("POST")
	r.HandleFunc("/api/interest/pass", s.handlePass).Methods("POST")
	r.HandleFunc("/api/interest/undo", s.handleUndo).Methods("POST")
	r.HandleFunc("/api/interest/admirers", s.handleAdmirers).Methods("GET")
	r.HandleFunc("/api/interest/admirers/count", s.handleAdmirerCount).Methods("GET")
}
