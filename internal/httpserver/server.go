// Package httpserver is the thin, out-of-scope HTTP consumer the cache
// and job runner are built for. It mirrors lwan's own layering
// (original_source/lwan/main.c's lwan_url_map prefix table, main.c itself,
// and common/lwan-mod-helloworld.c) using github.com/go-chi/chi/v5 for
// URL-map dispatch instead of lwan's hand-rolled prefix matcher. None of
// the cache's design is shaped by this package; it only calls the public
// GetAndRef/Unref/taskbridge surface like any other caller would.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lattice-run/ttlcache/internal/status"
)

// Server wraps net/http.Server with a chi router for URL-map dispatch.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	status     status.Channel
}

// New builds a Server listening on addr. Routes are registered by the
// caller via Mount/Handle before calling Serve.
func New(addr string, ch status.Channel) *Server {
	if ch == nil {
		ch = status.Noop()
	}

	r := chi.NewRouter()

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		router: r,
		status: ch,
	}
}

// Router exposes the chi router so callers can register the URL map
// (Mount/Handle/Get/...) before Serve is called.
func (s *Server) Router() chi.Router {
	return s.router
}

// Serve blocks, serving HTTP until the server errors or Shutdown is
// called. http.ErrServerClosed is treated as a clean shutdown, not an
// error.
func (s *Server) Serve() error {
	s.status.Infof("httpserver: listening on %s", s.httpServer.Addr)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, waiting up to the context's
// deadline for in-flight requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
