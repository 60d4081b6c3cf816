package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/louisbranch/fairscore/internal/fair/remote"
	"github.com/louisbranch/fairscore/internal/platform/timeouts"
	"github.com/louisbranch/fairscore/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "fairscore-standings"
	serverVersion = "0.1.0"
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP serves MCP over streamable HTTP.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP server.
type Config struct {
	RemoteURL string
	Transport TransportKind
	// HTTPAddr defaults to localhost:8096 for the HTTP transport.
	HTTPAddr string
}

// Server hosts the standings tools.
type Server struct {
	mcpServer *mcp.Server
}

type registrationModule struct {
	name     string
	register func(*mcp.Server)
}

func registrationModules(source domain.DatasetSource) []registrationModule {
	return []registrationModule{
		{name: "standings-tools", register: func(s *mcp.Server) {
			mcp.AddTool(s, domain.RankProjectsTool(), domain.RankProjectsHandler(source))
			mcp.AddTool(s, domain.ProjectDetailTool(), domain.ProjectDetailHandler(source))
		}},
		{name: "progress-tools", register: func(s *mcp.Server) {
			mcp.AddTool(s, domain.EvaluatorProgressTool(), domain.EvaluatorProgressHandler(source))
			mcp.AddTool(s, domain.DashboardTool(), domain.DashboardHandler(source))
		}},
	}
}

// New creates an MCP server whose tools read from source.
func New(source domain.DatasetSource) (*Server, error) {
	if source == nil {
		return nil, errors.New("dataset source is required")
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	for _, module := range registrationModules(source) {
		module.register(mcpServer)
	}
	return &Server{mcpServer: mcpServer}, nil
}

// Run is the service entrypoint and blocks until ctx ends or the client
// disconnects.
func Run(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.RemoteURL) == "" {
		return errors.New("remote url is required")
	}
	server, err := New(remote.NewClient(remote.Config{BaseURL: cfg.RemoteURL}))
	if err != nil {
		return err
	}

	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}
	switch cfg.Transport {
	case TransportStdio:
		return server.Serve(ctx, &mcp.StdioTransport{})
	case TransportHTTP:
		addr := cfg.HTTPAddr
		if addr == "" {
			addr = "localhost:8096"
		}
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return server.ServeHTTP(ctx, lis)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// Serve runs the MCP session on transport.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return errors.New("MCP server is not configured")
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// Handler returns the streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// ServeHTTP serves streamable HTTP on lis until ctx ends.
func (s *Server) ServeHTTP(ctx context.Context, lis net.Listener) error {
	if s == nil || s.mcpServer == nil {
		return errors.New("MCP server is not configured")
	}
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("MCP HTTP listening at %s", lis.Addr())
		serveErr <- httpServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown MCP HTTP: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve MCP HTTP: %w", err)
	}
}
