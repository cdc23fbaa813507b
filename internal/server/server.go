package server

import (
	"context"
	"net"
	"net/http"
	"time"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config carries the dependencies the HTTP handlers need.
type Config struct {
	Addr     string // e.g. ":8080"
	Build    BuildInfo
	Session  SessionConfig
	Service  *RoomService
	Registry *Registry
	Store    BlobStore
	Audit    *AuditLog
}

type Server struct {
	httpServer *http.Server
}

// New builds the HTTP server: routes, middleware, and rate limiting on the
// two endpoints that accept the room password.
func New(cfg Config) *Server {
	mux := http.NewServeMux()

	limiter := newRateLimiter(30, time.Minute)

	mux.Handle("/api/rooms", limiter.middleware(cfg.createRoomHandler()))
	mux.Handle("/api/join", limiter.middleware(cfg.joinRoomHandler()))
	mux.Handle("/api/upload", cfg.uploadHandler())
	mux.Handle("/api/files", cfg.listFilesHandler())
	mux.Handle("/api/download", cfg.downloadHandler())

	mux.HandleFunc("/healthz", cfg.handleLive)
	mux.HandleFunc("/readyz", cfg.handleReady)
	mux.Handle("/metrics", metricsHandler(cfg.Registry))

	// Wrap middleware: requestID -> logging -> security headers -> mux
	var handler http.Handler = mux
	handler = securityHeadersMiddleware(handler)
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s}
}

// Handler exposes the fully wired handler chain, mostly for tests that want
// to serve it from an httptest server instead of a real listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
