package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/verityapp/verity-server/internal/config"
	"github.com/verityapp/verity-server/internal/metrics"
)

// StartHTTPServer boots the API server and registers all provided services.
func StartHTTPServer(cfg *config.Config, registrars ...Registrar) error {
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	router := NewRouter(registrars...)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	return http.Serve(lis, corsHandler)
}

// NewRouter assembles the router with health, metrics and all service
// routes. Split out from StartHTTPServer so tests can exercise the full
// routing table without binding a port.
func NewRouter(registrars ...Registrar) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods("GET")

	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	for _, reg := range registrars {
		reg.Register(router)
	}

	return router
}
