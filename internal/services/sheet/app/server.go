// Package server wires the reference remote store: SQLite dataset storage,
// admin authentication and the contract handler.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/louisbranch/fairscore/internal/platform/timeouts"
	"github.com/louisbranch/fairscore/internal/services/sheet/api/httpapi"
	"github.com/louisbranch/fairscore/internal/services/sheet/auth"
	sheetsqlite "github.com/louisbranch/fairscore/internal/services/sheet/storage/sqlite"
)

// Config holds sheet server settings.
type Config struct {
	Addr              string
	DBPath            string
	AdminPassword     string
	AdminPasswordHash string
	TokenSecret       string
	TokenTTL          time.Duration
}

// Server hosts the remote store contract over HTTP.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *sheetsqlite.Store
	closeOnce  sync.Once
}

// New opens storage and the listener.
func New(ctx context.Context, cfg Config) (*Server, error) {
	authenticator, err := auth.New(auth.Config{
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
		TokenSecret:  cfg.TokenSecret,
		TokenTTL:     cfg.TokenTTL,
	})
	if err != nil {
		return nil, err
	}
	st, err := sheetsqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	handler, err := httpapi.NewHandler(st, authenticator)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store: st,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a sheet server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	srv, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve runs the HTTP server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("sheet server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP: %w", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		if s.httpServer != nil {
			_ = s.httpServer.Close()
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
		if s.store != nil {
			if err := s.store.Close(); err != nil {
				log.Printf("close sheet store: %v", err)
			}
		}
	})
}
