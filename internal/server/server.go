package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/signaling"
)

var ErrServerClosed = http.ErrServerClosed

// Config holds the HTTP-facing settings.
type Config struct {
	Addr string

	// AllowedOrigins lists browser origins allowed to call the API and open a
	// websocket. "*" allows any origin.
	AllowedOrigins []string
}

// Server exposes the hub over HTTP: the websocket endpoint plus a small
// control surface for creating and inspecting rooms.
type Server struct {
	log     *slog.Logger
	cfg     Config
	hub     *signaling.Hub
	started time.Time

	mux *http.ServeMux
	srv *http.Server
}

func New(cfg Config, hub *signaling.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:     logger,
		cfg:     cfg,
		hub:     hub,
		started: time.Now(),
		mux:     http.NewServeMux(),
	}

	s.registerRoutes()

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoverMiddleware(s.log),
		requestIDMiddleware(),
		requestLoggerMiddleware(s.log),
		corsMiddleware(s.cfg.AllowedOrigins),
	)
}

func (s *Server) Serve(l net.Listener) error {
	return s.srv.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
