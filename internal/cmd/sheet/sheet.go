// Package sheet parses sheet command flags and starts the reference remote store.
package sheet

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/fairscore/internal/platform/cmd"
	server "github.com/louisbranch/fairscore/internal/services/sheet/app"
)

// Config holds sheet command configuration.
type Config struct {
	Port              int           `env:"FAIRSCORE_SHEET_PORT"                envDefault:"8095"`
	DBPath            string        `env:"FAIRSCORE_SHEET_DB_PATH"             envDefault:"data/sheet.db"`
	AdminPassword     string        `env:"FAIRSCORE_SHEET_ADMIN_PASSWORD"`
	AdminPasswordHash string        `env:"FAIRSCORE_SHEET_ADMIN_PASSWORD_HASH"`
	TokenSecret       string        `env:"FAIRSCORE_SHEET_TOKEN_SECRET"`
	TokenTTL          time.Duration `env:"FAIRSCORE_SHEET_TOKEN_TTL"           envDefault:"12h"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite dataset path")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "admin token lifetime")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the remote store.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSheet, func(ctx context.Context) error {
		if err := server.Run(ctx, server.Config{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			DBPath:            cfg.DBPath,
			AdminPassword:     cfg.AdminPassword,
			AdminPasswordHash: cfg.AdminPasswordHash,
			TokenSecret:       cfg.TokenSecret,
			TokenTTL:          cfg.TokenTTL,
		}); err != nil {
			return fmt.Errorf("serve sheet: %w", err)
		}
		return nil
	})
}
