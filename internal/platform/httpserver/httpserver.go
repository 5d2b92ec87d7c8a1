package httpserver

import (
	"net/http"
	"time"
)

// New builds the ops HTTP server. Probes and scrapes are small, so every
// phase of a request is bounded.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
