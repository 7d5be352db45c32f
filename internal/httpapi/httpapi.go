// Package httpapi exposes the world over JSON-in/JSON-out HTTP, using a
// plain http.ServeMux + middleware-chain style (ownworld.go's
// middlewareSecurity/middlewareCORS) rather than a router framework.
package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"clawcity/internal/action"
	"clawcity/internal/config"
	"clawcity/internal/store"
)

// Server owns the route table and the dependencies every handler needs.
// One Server per process, threaded explicitly like the rest of ClawCity.
type Server struct {
	Store      *store.Store
	Dispatcher *action.Dispatcher
	Config     config.Config
	Logger     *log.Logger
}

func New(s *store.Store, d *action.Dispatcher, cfg config.Config, logger *log.Logger) *Server {
	return &Server{Store: s, Dispatcher: d, Config: cfg, Logger: logger}
}

// Handler builds the full mux wrapped in the middleware chain: CORS,
// then per-IP rate limiting, then routing.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/agent/register", s.handleRegister)
	mux.HandleFunc("/agent/state", s.auth(s.handleState))
	mux.HandleFunc("/agent/act", s.auth(s.handleAct))
	mux.HandleFunc("/agent/events", s.auth(s.handleEvents))
	mux.HandleFunc("/agent/guide", s.handleGuide)

	handler := s.middlewareIPRateLimit(mux)
	handler = middlewareCORS(handler)
	return handler
}

// NewHTTPServer builds the net/http.Server main() spins up, matching
// the server-construction shape in main.go.
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.Config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type contextKey string

const agentIDKey contextKey = "agentId"

func agentIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(agentIDKey).(int64)
	return id, ok
}
