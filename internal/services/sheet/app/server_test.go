package server

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/fairscore/internal/fair/remote"
)

func TestServerServesContract(t *testing.T) {
	srv, err := New(context.Background(), Config{
		Addr:          "127.0.0.1:0",
		DBPath:        filepath.Join(t.TempDir(), "sheet.db"),
		AdminPassword: "pw",
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(runCtx)
	}()
	t.Cleanup(func() {
		runCancel()
		select {
		case serveErr := <-serveDone:
			if serveErr != nil {
				t.Fatalf("serve: %v", serveErr)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for server shutdown")
		}
	})

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	client := remote.NewClient(remote.Config{BaseURL: "http://" + srv.Addr()})
	data, err := client.GetData(context.Background())
	if err != nil {
		t.Fatalf("get data: %v", err)
	}
	if len(data.Projects) != 0 {
		t.Fatalf("projects = %+v", data.Projects)
	}
	if _, err := client.AdminLogin(context.Background(), "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestNewRequiresPassword(t *testing.T) {
	_, err := New(context.Background(), Config{Addr: "127.0.0.1:0", DBPath: filepath.Join(t.TempDir(), "sheet.db")})
	if err == nil {
		t.Fatal("expected password error")
	}
}
