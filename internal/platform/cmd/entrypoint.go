// Package cmd holds the startup plumbing shared by every fairscore process:
// env+flag parsing and telemetry around the run loop.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"runtime/debug"
	"strings"

	"github.com/louisbranch/fairscore/internal/platform/config"
	"github.com/louisbranch/fairscore/internal/platform/otel"
	"github.com/louisbranch/fairscore/internal/platform/timeouts"
)

// Service identifiers used for telemetry resource names and log prefixes.
const (
	ServiceFair  = "fair"
	ServiceSheet = "sheet"
	ServiceMCP   = "mcp"
)

// LogPrefix returns the log prefix for a service, e.g. "[FAIR] ".
func LogPrefix(service string) string {
	service = strings.TrimSpace(service)
	if service == "" {
		return ""
	}
	return "[" + strings.ToUpper(service) + "] "
}

// ParseConfig loads environment defaults into cfg. Flags registered
// afterwards default to the environment values.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry installs tracing for service, then executes run. A panic
// in run is logged with its stack and returned as an error.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) (err error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if run == nil {
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	shutdown, err := otel.Setup(ctx, "fairscore-"+service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if shutdownErr := shutdown(shutdownCtx); shutdownErr != nil {
			log.Printf("%s otel shutdown: %v", service, shutdownErr)
		}
	}()
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Printf("%s panic: %v\n%s", service, recovered, debug.Stack())
			err = fmt.Errorf("%s panic: %v", service, recovered)
		}
	}()
	return run(ctx)
}
