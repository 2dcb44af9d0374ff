package server

import "github.com/gorilla/mux"

// Registrar is the common interface all HTTP service registrars implement.
type Registrar interface {
	Register(r *mux.Router)
}
