// Package sqlite persists the fair service's result push backlog in SQLite so
// failed pushes survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/fairscore/internal/fair/remotesync"
	"github.com/louisbranch/fairscore/internal/fair/store"
	"github.com/louisbranch/fairscore/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/fairscore/internal/services/fair/storage/sqlite/migrations"
)

// Store is a SQLite-backed remotesync.Backlog.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ remotesync.Backlog = (*Store)(nil)

// Open opens the backlog database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("open backlog store: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Put implements remotesync.Backlog. A re-queued result keeps its position
// and moves to the next version.
func (s *Store) Put(ctx context.Context, result store.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resultID := strings.TrimSpace(result.ID)
	if resultID == "" {
		return fmt.Errorf("result id is required")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result %s: %w", resultID, err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO push_backlog (result_id, payload, queued_at, seq)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM push_backlog))
		 ON CONFLICT(result_id) DO UPDATE SET payload = excluded.payload, queued_at = excluded.queued_at,
		   version = push_backlog.version + 1`,
		resultID, string(payload), s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put backlog result %s: %w", resultID, err)
	}
	return nil
}

// List implements remotesync.Backlog in queue order.
func (s *Store) List(ctx context.Context) ([]remotesync.Entry, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT result_id, payload, version FROM push_backlog ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list backlog: %w", err)
	}
	defer rows.Close()

	var out []remotesync.Entry
	for rows.Next() {
		var (
			resultID, payload string
			version           int64
		)
		if err := rows.Scan(&resultID, &payload, &version); err != nil {
			return nil, fmt.Errorf("scan backlog row: %w", err)
		}
		var result store.Result
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("decode backlog result %s: %w", resultID, err)
		}
		out = append(out, remotesync.Entry{Result: result, Version: version})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backlog: %w", err)
	}
	return out, nil
}

// Remove implements remotesync.Backlog.
func (s *Store) Remove(ctx context.Context, resultID string, version int64) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM push_backlog WHERE result_id = ? AND version = ?`,
		strings.TrimSpace(resultID), version,
	); err != nil {
		return fmt.Errorf("remove backlog result %s: %w", resultID, err)
	}
	return nil
}
