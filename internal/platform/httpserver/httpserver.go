// Package httpserver builds the process's HTTP listener.
package httpserver

import (
	"context"
	"net/http"
	"time"
)

// New builds the server. Deliberately no write timeout: a join request parks
// until its pending approval resolves, which can take the full approval
// window.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Shutdown drains in-flight requests, bounded by timeout.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
