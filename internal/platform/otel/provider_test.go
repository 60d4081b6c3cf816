package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/fairscore/internal/platform/otel"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		enabled  string
		ratio    string
		active   bool
		wantErr  bool
	}{
		{name: "no endpoint", enabled: "true", ratio: "1"},
		{name: "disabled", endpoint: "http://localhost:4318", enabled: "FALSE", ratio: "1"},
		{name: "active", endpoint: "http://localhost:4318", enabled: "true", ratio: "0.25", active: true},
		{name: "ratio too high", endpoint: "http://localhost:4318", enabled: "true", ratio: "1.5", wantErr: true},
		{name: "ratio not a number", enabled: "true", ratio: "half", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(otel.EnvEndpoint, tt.endpoint)
			t.Setenv(otel.EnvEnabled, tt.enabled)
			t.Setenv(otel.EnvSampleRatio, tt.ratio)

			cfg, err := otel.LoadConfig()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Active() != tt.active {
				t.Fatalf("active = %v, want %v", cfg.Active(), tt.active)
			}
		})
	}
}

func TestSetupNoopWhenInactive(t *testing.T) {
	t.Setenv(otel.EnvEndpoint, "")
	t.Setenv(otel.EnvEnabled, "true")
	t.Setenv(otel.EnvSampleRatio, "1")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInstallCreatesProvider(t *testing.T) {
	// Non-routable address so no export happens.
	shutdown, err := otel.Install(context.Background(), "test-service", otel.Config{
		Endpoint:    "http://192.0.2.1:4318",
		Enabled:     true,
		SampleRatio: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
