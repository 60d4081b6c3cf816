package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/fairscore/internal/fair/remote"
	"github.com/louisbranch/fairscore/internal/fair/remotesync"
	"github.com/louisbranch/fairscore/internal/fair/store"
	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
	"github.com/louisbranch/fairscore/internal/services/sheet/auth"
	sheetsqlite "github.com/louisbranch/fairscore/internal/services/sheet/storage/sqlite"
)

func newSheet(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sheetsqlite.Open(context.Background(), filepath.Join(t.TempDir(), "sheet.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	authenticator, err := auth.New(auth.Config{Password: "sheet-pw", TokenSecret: "k"})
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	h, err := NewHandler(st, authenticator)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func postRaw(t *testing.T, url, body string) (int, remote.Response) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out remote.Response
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestNewHandlerRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewHandler(nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnknownActionAndType(t *testing.T) {
	t.Parallel()

	srv := newSheet(t)
	resp, err := http.Get(srv.URL + "/?action=dropTables")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	status, out := postRaw(t, srv.URL, `{"type":"explode"}`)
	if status != http.StatusBadRequest || out.OK || out.Error != "unknown type" {
		t.Fatalf("status = %d, out = %+v", status, out)
	}
	status, _ = postRaw(t, srv.URL, `{nope`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
}

func TestLogicalFailuresUseOK200(t *testing.T) {
	t.Parallel()

	srv := newSheet(t)
	status, out := postRaw(t, srv.URL, `{"type":"adminLogin","password":"wrong"}`)
	if status != http.StatusOK || out.OK || out.Error == "" {
		t.Fatalf("login: status = %d, out = %+v", status, out)
	}
	status, out = postRaw(t, srv.URL, `{"type":"bulk","token":"forged","data":{}}`)
	if status != http.StatusOK || out.OK || out.Error != remote.ErrInvalidToken {
		t.Fatalf("bulk: status = %d, out = %+v", status, out)
	}
	status, out = postRaw(t, srv.URL, `{"type":"result","data":{"projectId":"PRJ-0001"}}`)
	if status != http.StatusOK || out.OK {
		t.Fatalf("result: status = %d, out = %+v", status, out)
	}
}

func TestClientContractRoundTrip(t *testing.T) {
	t.Parallel()

	srv := newSheet(t)
	ctx := context.Background()
	client := remote.NewClient(remote.Config{BaseURL: srv.URL})

	if _, err := client.AdminLogin(ctx, "wrong"); apperrors.CodeOf(err) != apperrors.CodeAuthInvalidCredentials {
		t.Fatalf("bad login err = %v", err)
	}
	token, err := client.AdminLogin(ctx, "sheet-pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	snap := store.Snapshot{
		Settings:   store.DefaultSettings(),
		Projects:   []store.Project{{ID: "PRJ-0001", Title: "Volcano"}},
		Evaluators: []store.Evaluator{{ID: "EVAL-0001", Name: "Ada", Email: "ada@example.com", Code: "123456"}},
		Results:    []store.Result{{ID: "RES-0001", ProjectID: "PRJ-0001", EvaluatorID: "EVAL-0001", Total: 30, Scores: map[string]int{"problem": 5}}},
	}
	if err := client.PushBulk(ctx, token, snap); err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if err := client.PushBulk(ctx, "forged", snap); apperrors.CodeOf(err) != apperrors.CodeAuthTokenInvalid {
		t.Fatalf("forged bulk err = %v", err)
	}
	if err := client.PushResult(ctx, store.Result{ID: "RES-0002", ProjectID: "PRJ-0001", EvaluatorID: "EVAL-0002", Total: 50}); err != nil {
		t.Fatalf("push result: %v", err)
	}

	data, err := client.GetData(ctx)
	if err != nil {
		t.Fatalf("get data: %v", err)
	}
	got, err := data.Snapshot(store.Settings{})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got.Settings.EventTitle != store.DefaultSettings().EventTitle {
		t.Fatalf("settings = %+v", got.Settings)
	}
	if len(got.Results) != 2 || got.Results[0].Scores["problem"] != 5 || got.Evaluators[0].Code != "123456" {
		t.Fatalf("snapshot = %+v", got)
	}
}

func TestCoordinatorAgainstSheet(t *testing.T) {
	t.Parallel()

	srv := newSheet(t)
	ctx := context.Background()
	client := remote.NewClient(remote.Config{BaseURL: srv.URL})

	local := store.New(store.Snapshot{Settings: store.DefaultSettings()},
		store.WithClock(func() time.Time { return time.UnixMilli(42_000) }))
	_ = local.Update(func(tx *store.Tx) error {
		_, err := tx.CreateProject(store.ProjectInput{Title: "Volcano"})
		return err
	})
	coordinator := remotesync.New(local, client, remotesync.WithPasswordSource(remotesync.StaticPassword("sheet-pw")))
	if err := coordinator.BulkSync(ctx); err != nil {
		t.Fatalf("bulk sync: %v", err)
	}

	fresh := store.New(store.Snapshot{Settings: store.DefaultSettings()})
	if !remotesync.New(fresh, client).LoadFromRemote(ctx) {
		t.Fatal("expected load from sheet")
	}
	if projects := fresh.Snapshot().Projects; len(projects) != 1 || projects[0].Title != "Volcano" {
		t.Fatalf("projects = %+v", projects)
	}
}
