// Package remotesync reconciles the in-memory store with the remote system of
// record: admin-authorized bulk pushes, best-effort result pushes and the
// initial load.
package remotesync

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/fairscore/internal/fair/remote"
	"github.com/louisbranch/fairscore/internal/fair/store"
	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
	"github.com/louisbranch/fairscore/internal/platform/timeouts"
)

// Remote is the remote store boundary.
type Remote interface {
	Configured() bool
	GetData(ctx context.Context) (remote.Dataset, error)
	AdminLogin(ctx context.Context, password string) (string, error)
	PushBulk(ctx context.Context, token string, snap store.Snapshot) error
	PushResult(ctx context.Context, result store.Result) error
}

// PasswordSource supplies the remote admin password when no session token is held.
type PasswordSource func(ctx context.Context) (string, error)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBacklog sets where failed result pushes are kept.
func WithBacklog(b Backlog) Option {
	return func(c *Coordinator) {
		if b != nil {
			c.backlog = b
		}
	}
}

// WithPasswordSource sets the non-interactive login password source.
func WithPasswordSource(src PasswordSource) Option {
	return func(c *Coordinator) { c.password = src }
}

// StaticPassword returns a PasswordSource for a fixed password. An empty
// password yields no source.
func StaticPassword(password string) PasswordSource {
	password = strings.TrimSpace(password)
	if password == "" {
		return nil
	}
	return func(context.Context) (string, error) { return password, nil }
}

// Coordinator holds the admin session token in memory only.
type Coordinator struct {
	store    *store.Store
	remote   Remote
	backlog  Backlog
	password PasswordSource

	tokenMu sync.Mutex
	token   string

	bulkMu   sync.Mutex
	inflight sync.WaitGroup
}

// New creates a coordinator.
func New(st *store.Store, rem Remote, opts ...Option) *Coordinator {
	c := &Coordinator{store: st, remote: rem, backlog: NewMemoryBacklog()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticated reports whether an admin token is held.
func (c *Coordinator) Authenticated() bool {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	return c.token != ""
}

// Login exchanges password for an admin token and keeps it.
func (c *Coordinator) Login(ctx context.Context, password string) error {
	if !c.remote.Configured() {
		return apperrors.New(apperrors.CodeRemoteNotConfigured, "remote url not configured")
	}
	if strings.TrimSpace(password) == "" {
		return apperrors.New(apperrors.CodeAuthInvalidCredentials, "admin password is required")
	}
	token, err := c.remote.AdminLogin(ctx, password)
	if err != nil {
		return err
	}
	c.setToken(token)
	return nil
}

// Logout drops the held token.
func (c *Coordinator) Logout() {
	c.setToken("")
}

func (c *Coordinator) setToken(token string) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.token = token
}

func (c *Coordinator) ensureToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	token := c.token
	c.tokenMu.Unlock()
	if token != "" {
		return token, nil
	}
	if c.password == nil {
		return "", apperrors.New(apperrors.CodeAuthTokenMissing, "admin login required before sync")
	}
	password, err := c.password(ctx)
	if err != nil {
		return "", fmt.Errorf("admin password: %w", err)
	}
	if err := c.Login(ctx, password); err != nil {
		return "", err
	}
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	return c.token, nil
}

// BulkSync pushes the whole dataset. On success it records the sync time and
// drops the backlog entries queued before the snapshot was taken, which the
// snapshot supersedes. On failure local state is left untouched; a rejected
// token is forgotten.
func (c *Coordinator) BulkSync(ctx context.Context) error {
	c.bulkMu.Lock()
	defer c.bulkMu.Unlock()

	if !c.remote.Configured() {
		return apperrors.New(apperrors.CodeRemoteNotConfigured, "remote url not configured")
	}
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}
	// Listed before the snapshot: every listed version is already in it.
	superseded, err := c.backlog.List(ctx)
	if err != nil {
		return fmt.Errorf("list backlog: %w", err)
	}
	snap := c.store.Snapshot()
	if err := c.remote.PushBulk(ctx, token, snap); err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeAuthTokenInvalid {
			c.Logout()
		}
		return err
	}
	c.store.MarkSynced(c.store.Now())
	for _, entry := range superseded {
		if err := c.backlog.Remove(ctx, entry.Result.ID, entry.Version); err != nil {
			log.Printf("drop synced backlog result=%s: %v", entry.Result.ID, err)
		}
	}
	return nil
}

// PushResult sends result in the background. Failures are logged and kept in
// the backlog; the local result stays authoritative.
func (c *Coordinator) PushResult(ctx context.Context, result store.Result) {
	if !c.remote.Configured() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		pushCtx, cancel := context.WithTimeout(ctx, timeouts.RemoteRequest)
		defer cancel()
		if err := c.remote.PushResult(pushCtx, result); err != nil {
			log.Printf("result push failed result=%s err=%v", result.ID, err)
			if err := c.backlog.Put(ctx, result); err != nil {
				log.Printf("backlog result=%s: %v", result.ID, err)
			}
		}
	}()
}

// Wait blocks until in-flight result pushes finish.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

// RetryReport summarizes a backlog retry.
type RetryReport struct {
	Attempted int `json:"attempted"`
	Pushed    int `json:"pushed"`
	Remaining int `json:"remaining"`
}

// RetryBacklog re-pushes every pending result and drops the ones that succeed,
// unless a newer version was queued while the push was in flight.
func (c *Coordinator) RetryBacklog(ctx context.Context) (RetryReport, error) {
	if !c.remote.Configured() {
		return RetryReport{}, apperrors.New(apperrors.CodeRemoteNotConfigured, "remote url not configured")
	}
	pending, err := c.backlog.List(ctx)
	if err != nil {
		return RetryReport{}, fmt.Errorf("list backlog: %w", err)
	}
	report := RetryReport{Attempted: len(pending)}
	for _, entry := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result := entry.Result
		if err := c.remote.PushResult(ctx, result); err != nil {
			log.Printf("backlog retry failed result=%s err=%v", result.ID, err)
			continue
		}
		if err := c.backlog.Remove(ctx, result.ID, entry.Version); err != nil {
			return report, fmt.Errorf("remove backlog result %s: %w", result.ID, err)
		}
		report.Pushed++
	}
	report.Remaining = report.Attempted - report.Pushed
	return report, nil
}

// Pending returns the number of results waiting in the backlog.
func (c *Coordinator) Pending(ctx context.Context) (int, error) {
	pending, err := c.backlog.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// LoadFromRemote replaces the local dataset with the remote one, merging
// remote settings over local settings. Any failure keeps the local data and
// is only logged.
func (c *Coordinator) LoadFromRemote(ctx context.Context) bool {
	if !c.remote.Configured() {
		return false
	}
	data, err := c.remote.GetData(ctx)
	if err != nil {
		log.Printf("remote load failed, keeping local data: %v", err)
		return false
	}
	snap, err := data.Snapshot(c.store.Settings())
	if err != nil {
		log.Printf("remote load failed, keeping local data: %v", err)
		return false
	}
	c.store.Replace(snap)
	c.store.MarkSynced(c.store.Now())
	return true
}

// Status is the coordinator state reported to admins and health checks.
type Status struct {
	Configured    bool      `json:"configured"`
	Authenticated bool      `json:"authenticated"`
	LastSync      time.Time `json:"lastSync,omitzero"`
	Pending       int       `json:"pending"`
}

// Status reports the current coordinator state.
func (c *Coordinator) Status(ctx context.Context) Status {
	pending, err := c.Pending(ctx)
	if err != nil {
		log.Printf("count backlog: %v", err)
	}
	return Status{
		Configured:    c.remote.Configured(),
		Authenticated: c.Authenticated(),
		LastSync:      c.store.LastSync(),
		Pending:       pending,
	}
}
