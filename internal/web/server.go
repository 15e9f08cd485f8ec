package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/recruitsite/recruit/internal/log"
)

// Server wraps the Handler with an http.Server for lifecycle management.
type Server struct {
	handler  *Handler
	server   *http.Server
	listener net.Listener
	port     int // Actual port after binding (useful when using :0)
}

// ServerConfig configures the site server.
type ServerConfig struct {
	// Addr is the address to listen on (e.g., ":8080" or "localhost:0").
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Handler      HandlerConfig
}

// NewServer creates the handler and binds the listener.
// If Addr uses port 0 the OS assigns a port; use Port to read it.
func NewServer(cfg ServerConfig) (*Server, error) {
	handler, err := NewHandler(cfg.Handler)
	if err != nil {
		return nil, err
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	port := 0
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	return &Server{
		handler:  handler,
		listener: listener,
		port:     port,
		server: &http.Server{
			Handler:           handler.Routes(),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
	}, nil
}

// Start serves requests. It blocks until the server is stopped or fails and
// returns nil after a graceful stop.
func (s *Server) Start() error {
	log.Info(log.CatHTTP, "Starting site server", "addr", s.listener.Addr().String(), "port", s.port)
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server. It also releases the listener of a
// server that was never started, and may be called more than once.
func (s *Server) Stop(ctx context.Context) error {
	log.Info(log.CatHTTP, "Stopping site server")
	err := s.server.Shutdown(ctx)
	if closeErr := s.listener.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		err = errors.Join(err, closeErr)
	}
	return err
}

// Port returns the actual port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the server's site handler.
func (s *Server) Handler() *Handler {
	return s.handler
}
