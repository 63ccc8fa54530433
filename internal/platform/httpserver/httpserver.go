package httpserver

import (
	"net/http"
	"time"

	"biblioteca/internal/platform/config"
)

// writeGrace lets the chi timeout middleware answer 503 before the
// connection-level write deadline cuts the response.
const writeGrace = 5 * time.Second

// New builds the API server. The write deadline follows the per-request
// timeout so audited transactions are never cut off mid-response.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + writeGrace,
		IdleTimeout:       60 * time.Second,
	}
}
