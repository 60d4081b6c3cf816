// Package server wires the fair service runtime: the JSON API over HTTP, the
// gRPC health endpoint and the background backlog retry loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/fairscore/internal/fair/lifecycle"
	"github.com/louisbranch/fairscore/internal/fair/remote"
	"github.com/louisbranch/fairscore/internal/fair/remotesync"
	"github.com/louisbranch/fairscore/internal/fair/seed"
	"github.com/louisbranch/fairscore/internal/fair/store"
	platformgrpc "github.com/louisbranch/fairscore/internal/platform/grpc"
	"github.com/louisbranch/fairscore/internal/platform/session"
	"github.com/louisbranch/fairscore/internal/platform/timeouts"
	"github.com/louisbranch/fairscore/internal/services/fair/api/httpapi"
	backlogsqlite "github.com/louisbranch/fairscore/internal/services/fair/storage/sqlite"
)

// SyncHealthService is the gRPC health service name reflecting whether the
// remote store has caught up with local results.
const SyncHealthService = "fairscore.sync"

// DefaultRetryInterval spaces backlog retry attempts.
const DefaultRetryInterval = time.Minute

// Config holds fair server settings.
type Config struct {
	HTTPAddr            string
	GRPCAddr            string
	RemoteURL           string
	RemoteAdminPassword string
	AdminPasscode       string
	SessionSecret       string
	SeedPath            string
	BacklogDBPath       string
	RetryInterval       time.Duration
}

// Server hosts the fair HTTP API and gRPC health endpoint.
type Server struct {
	httpListener net.Listener
	grpcListener net.Listener
	httpServer   *http.Server
	grpcServer   *grpc.Server
	health       *health.Server
	coordinator  *remotesync.Coordinator
	backlog      *backlogsqlite.Store
	retryEvery   time.Duration
	closeOnce    sync.Once
}

// New builds a server: seeds the store, loads remote data when a remote is
// configured and opens both listeners.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	snap, err := initialSnapshot(cfg)
	if err != nil {
		return nil, err
	}
	st := store.New(snap)

	backlog, err := backlogsqlite.Open(ctx, cfg.BacklogDBPath)
	if err != nil {
		return nil, err
	}
	client := remote.NewClient(remote.Config{BaseURL: st.Settings().RemoteURL})
	coordinator := remotesync.New(st, client,
		remotesync.WithBacklog(backlog),
		remotesync.WithPasswordSource(remotesync.StaticPassword(cfg.RemoteAdminPassword)),
	)
	if client.Configured() {
		if coordinator.LoadFromRemote(ctx) {
			log.Printf("loaded dataset from remote %s", client.BaseURL())
		}
	}

	sessions, err := session.NewIssuer(session.Config{Secret: cfg.SessionSecret, Issuer: "fairscore-fair"})
	if err != nil {
		_ = backlog.Close()
		return nil, err
	}
	handler, err := httpapi.NewHandler(httpapi.Config{
		Store:    st,
		Engine:   lifecycle.New(st, coordinator, coordinator),
		Sync:     coordinator,
		Remote:   client,
		Sessions: sessions,
		Location: time.Local,
	})
	if err != nil {
		_ = backlog.Close()
		return nil, err
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = backlog.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = httpListener.Close()
		_ = backlog.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}

	grpcServer, healthServer := platformgrpc.NewHealthServer()

	retryEvery := cfg.RetryInterval
	if retryEvery <= 0 {
		retryEvery = DefaultRetryInterval
	}
	s := &Server{
		httpListener: httpListener,
		grpcListener: grpcListener,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		grpcServer:  grpcServer,
		health:      healthServer,
		coordinator: coordinator,
		backlog:     backlog,
		retryEvery:  retryEvery,
	}
	s.updateSyncHealth(ctx)
	return s, nil
}

func initialSnapshot(cfg Config) (store.Snapshot, error) {
	file, err := seed.Load(cfg.SeedPath)
	if err != nil {
		return store.Snapshot{}, err
	}
	snap, err := file.Snapshot()
	if err != nil {
		return store.Snapshot{}, err
	}
	if pass := strings.TrimSpace(cfg.AdminPasscode); pass != "" {
		snap.Settings.AdminPass = pass
	}
	if url := strings.TrimSpace(cfg.RemoteURL); url != "" {
		snap.Settings.RemoteURL = url
	}
	return snap, nil
}

// HTTPAddr returns the HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the gRPC listener address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a fair server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	srv, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve runs both servers and the retry loop until ctx is canceled or a
// server fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("fair HTTP listening at %v", s.httpListener.Addr())
	log.Printf("fair gRPC health listening at %v", s.grpcListener.Addr())

	serveErr := make(chan error, 2)
	go func() {
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("serve HTTP: %w", err)
			return
		}
		serveErr <- nil
	}()
	go func() {
		if err := s.grpcServer.Serve(s.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- fmt.Errorf("serve gRPC: %w", err)
			return
		}
		serveErr <- nil
	}()

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	go s.retryLoop(loopCtx)

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	stopLoop()
	s.shutdown()
	return err
}

func (s *Server) shutdown() {
	s.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown HTTP: %v", err)
	}
	s.grpcServer.GracefulStop()
	s.coordinator.Wait()
}

// retryLoop re-pushes backlogged results and refreshes sync health.
func (s *Server) retryLoop(ctx context.Context) {
	ticker := time.NewTicker(s.retryEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pending, err := s.coordinator.Pending(ctx); err == nil && pending > 0 {
				report, err := s.coordinator.RetryBacklog(ctx)
				if err != nil {
					log.Printf("backlog retry: %v", err)
				} else if report.Pushed > 0 {
					log.Printf("backlog retry pushed=%d remaining=%d", report.Pushed, report.Remaining)
				}
			}
			s.updateSyncHealth(ctx)
		}
	}
}

func (s *Server) updateSyncHealth(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if s.coordinator.Status(ctx).Pending > 0 {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(SyncHealthService, status)
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		if s.health != nil {
			s.health.Shutdown()
		}
		if s.grpcServer != nil {
			s.grpcServer.Stop()
		}
		if s.httpServer != nil {
			_ = s.httpServer.Close()
		}
		if s.httpListener != nil {
			_ = s.httpListener.Close()
		}
		if s.grpcListener != nil {
			_ = s.grpcListener.Close()
		}
		if s.coordinator != nil {
			s.coordinator.Wait()
		}
		if s.backlog != nil {
			if err := s.backlog.Close(); err != nil {
				log.Printf("close backlog store: %v", err)
			}
		}
	})
}
