package chat

import "github.com/gorilla/mux"

// Register mounts the chat routes.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/api/chat/send", s.handleSend).Methods("POST")
	r.HandleFunc("/api/chat/messages", s.handleMessages).Methods("GET")
}
