package mcp

import (
	"context"
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("expected stdio transport, got %q", cfg.Transport)
	}
	if cfg.HTTPAddr != "localhost:8096" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("FAIRSCORE_REMOTE_URL", "http://env-remote")
	t.Setenv("FAIRSCORE_MCP_TRANSPORT", "http")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "127.0.0.1:9999"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.RemoteURL != "http://env-remote" {
		t.Fatalf("expected env remote url, got %q", cfg.RemoteURL)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected env transport, got %q", cfg.Transport)
	}
	if cfg.HTTPAddr != "127.0.0.1:9999" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
}

func TestRunRequiresRemoteURL(t *testing.T) {
	if err := Run(context.Background(), Config{Transport: "stdio"}); err == nil {
		t.Fatal("expected error without remote url")
	}
}
