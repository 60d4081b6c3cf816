// Package fair parses fair command flags and starts the evaluation service.
package fair

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/fairscore/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/fairscore/internal/platform/grpc"
	server "github.com/louisbranch/fairscore/internal/services/fair/app"
)

// Config holds fair command configuration.
type Config struct {
	Port                int           `env:"FAIRSCORE_FAIR_PORT"             envDefault:"8090"`
	GRPCPort            int           `env:"FAIRSCORE_FAIR_GRPC_PORT"        envDefault:"8091"`
	RemoteURL           string        `env:"FAIRSCORE_REMOTE_URL"`
	RemoteAdminPassword string        `env:"FAIRSCORE_REMOTE_ADMIN_PASSWORD"`
	AdminPasscode       string        `env:"FAIRSCORE_ADMIN_PASSCODE"`
	SessionSecret       string        `env:"FAIRSCORE_SESSION_SECRET"`
	SeedPath            string        `env:"FAIRSCORE_SEED_PATH"`
	BacklogDBPath       string        `env:"FAIRSCORE_BACKLOG_DB_PATH"       envDefault:"data/backlog.db"`
	RetryInterval       time.Duration `env:"FAIRSCORE_SYNC_RETRY_INTERVAL"   envDefault:"1m"`
	// Probe checks a running instance instead of starting one.
	Probe bool
}

// probeTimeout bounds a health probe.
const probeTimeout = 5 * time.Second

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP API port")
	fs.IntVar(&cfg.GRPCPort, "grpc-port", cfg.GRPCPort, "gRPC health port")
	fs.StringVar(&cfg.RemoteURL, "remote-url", cfg.RemoteURL, "remote store endpoint")
	fs.StringVar(&cfg.AdminPasscode, "admin-passcode", cfg.AdminPasscode, "local admin passcode (overrides the stored setting)")
	fs.StringVar(&cfg.SeedPath, "seed", cfg.SeedPath, "YAML seed file for the in-memory defaults")
	fs.StringVar(&cfg.BacklogDBPath, "backlog-db", cfg.BacklogDBPath, "SQLite path of the push backlog")
	fs.DurationVar(&cfg.RetryInterval, "retry-interval", cfg.RetryInterval, "push backlog retry interval")
	fs.BoolVar(&cfg.Probe, "probe", false, "check the local gRPC health endpoint and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the evaluation service, or probes a running one.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Probe {
		return Probe(ctx, fmt.Sprintf("localhost:%d", cfg.GRPCPort))
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceFair, func(ctx context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:            fmt.Sprintf(":%d", cfg.Port),
			GRPCAddr:            fmt.Sprintf(":%d", cfg.GRPCPort),
			RemoteURL:           cfg.RemoteURL,
			RemoteAdminPassword: cfg.RemoteAdminPassword,
			AdminPasscode:       cfg.AdminPasscode,
			SessionSecret:       cfg.SessionSecret,
			SeedPath:            cfg.SeedPath,
			BacklogDBPath:       cfg.BacklogDBPath,
			RetryInterval:       cfg.RetryInterval,
		}); err != nil {
			return fmt.Errorf("serve fair: %w", err)
		}
		return nil
	})
}

// Probe fails unless the gRPC health endpoint at addr reports SERVING.
func Probe(ctx context.Context, addr string) error {
	conn, err := platformgrpc.Dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := platformgrpc.WaitForHealth(ctx, conn, "", nil); err != nil {
		return fmt.Errorf("probe %s: %w", addr, err)
	}
	return nil
}
