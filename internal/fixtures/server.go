// Package fixtures serves static fixture pages for tests to point at.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/bobmcallan/moontest/internal/common"
)

// Server is a static file server over an explicit root directory.
type Server struct {
	root   string
	addr   string
	logger *common.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	done     chan struct{}
}

// New creates a server for root on host:port. Port 0 picks a free port.
func New(root, host string, port int, logger *common.Logger) *Server {
	return &Server{
		root:   root,
		addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		logger: logger,
	}
}

// Start binds the listener and serves in the background. It returns once
// the server accepts connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("fixture server already started on %s", s.listener.Addr())
	}

	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("fixture root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("fixture root %s is not a directory", s.root)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:      http.FileServer(http.Dir(s.root)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.done = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("fixture server failed")
		}
	}(s.server, s.done)

	s.logger.Info().
		Str("root", s.root).
		Str("url", "http://"+ln.Addr().String()).
		Msg("fixture server started")
	return nil
}

// URL returns the base URL, empty before Start.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String()
}

// Shutdown stops the server and waits for the serve loop to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.listener, s.server, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("fixture server shutdown failed: %w", err)
	}
	<-done

	s.logger.Info().Msg("fixture server stopped")
	return nil
}
