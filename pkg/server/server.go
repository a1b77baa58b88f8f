package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
)

// Server wraps a chi router (chi.Mux)
type Server struct {
	name string
	cors *cors.Cors
	mux  *chi.Mux

	maxParallelProcesses int
	timeout              time.Duration
}

func (s *Server) configMux() *chi.Mux {
	s.mux.Use(
		render.SetContentType(render.ContentTypeJSON), // Set content-Type headers as application/json
		s.cors.Handler, // Set Access-Control-Allow-Origin header
		middleware.RequestID,
		middleware.Compress(5), // Compress results, mostly gzipping assets and json
		middleware.Recoverer,   // Recover from panics without crashing server
		middleware.StripSlashes,
		middleware.RealIP,
		// websocket streams outlive the request timeout and must not hold a throttle slot
		exceptUpgrades(middleware.Timeout(s.timeout)),
		exceptUpgrades(middleware.Throttle(s.maxParallelProcesses)),
	)
	return s.mux
}

// exceptUpgrades applies mw to every request except websocket handshakes
func exceptUpgrades(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		bounded := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if websocket.IsWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			bounded.ServeHTTP(w, r)
		})
	}
}

// NewServer creates a router with routes setup. timeout and
// maxParallelProcesses bound plain HTTP requests only.
func NewServer(name string,
	cors *cors.Cors,
	maxParallelProcesses int,
	timeout time.Duration,
) *Server {
	s := &Server{
		name:                 name,
		cors:                 cors,
		maxParallelProcesses: maxParallelProcesses,
		timeout:              timeout,
	}
	s.mux = chi.NewRouter()
	s.configMux()
	return s
}

// Mux returns the chi router
func (s *Server) Mux() *chi.Mux {
	return s.mux
}
