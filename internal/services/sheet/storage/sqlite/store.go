// Package sqlite stores the reference remote's dataset in SQLite: one
// document row per collection and one row per result.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/fairscore/internal/fair/remote"
	"github.com/louisbranch/fairscore/internal/fair/store"
	"github.com/louisbranch/fairscore/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/fairscore/internal/services/sheet/storage/sqlite/migrations"
)

// Document names.
const (
	docSettings       = "settings"
	docEvaluators     = "evaluators"
	docProjects       = "projects"
	docPanels         = "panels"
	docEvaluatorState = "evaluatorState"
)

// Store persists the dataset in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens the dataset database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("open sheet store: %w", err)
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

// Dataset returns the stored dataset. Missing collections are empty and
// missing settings are omitted.
func (s *Store) Dataset(ctx context.Context) (remote.Dataset, error) {
	data := remote.Dataset{
		Evaluators:     []store.Evaluator{},
		Projects:       []store.Project{},
		Panels:         []store.Panel{},
		Results:        []store.Result{},
		EvaluatorState: map[string]store.EvaluatorState{},
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name, payload FROM documents`)
	if err != nil {
		return remote.Dataset{}, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, payload string
		if err := rows.Scan(&name, &payload); err != nil {
			return remote.Dataset{}, fmt.Errorf("scan document: %w", err)
		}
		var target any
		switch name {
		case docSettings:
			data.Settings = json.RawMessage(payload)
			continue
		case docEvaluators:
			target = &data.Evaluators
		case docProjects:
			target = &data.Projects
		case docPanels:
			target = &data.Panels
		case docEvaluatorState:
			target = &data.EvaluatorState
		default:
			continue
		}
		if err := json.Unmarshal([]byte(payload), target); err != nil {
			return remote.Dataset{}, fmt.Errorf("decode document %s: %w", name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return remote.Dataset{}, fmt.Errorf("iterate documents: %w", err)
	}

	results, err := s.results(ctx)
	if err != nil {
		return remote.Dataset{}, err
	}
	data.Results = results
	return data, nil
}

func (s *Store) results(ctx context.Context) ([]store.Result, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, payload FROM results ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()
	out := []store.Result{}
	for rows.Next() {
		var resultID, payload string
		if err := rows.Scan(&resultID, &payload); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var r store.Result
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode result %s: %w", resultID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// ReplaceDataset overwrites every collection and all results in one
// transaction.
func (s *Store) ReplaceDataset(ctx context.Context, data remote.Dataset) error {
	docs := map[string]any{
		docEvaluators:     nonNil(data.Evaluators),
		docProjects:       nonNil(data.Projects),
		docPanels:         nonNil(data.Panels),
		docEvaluatorState: data.EvaluatorState,
	}
	if data.EvaluatorState == nil {
		docs[docEvaluatorState] = map[string]store.EvaluatorState{}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC().UnixMilli()
	if len(data.Settings) > 0 && string(data.Settings) != "null" {
		if !json.Valid(data.Settings) {
			return errors.New("settings are not valid JSON")
		}
		if err := putDocument(ctx, tx, docSettings, string(data.Settings), now); err != nil {
			return err
		}
	}
	for name, value := range docs {
		payload, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := putDocument(ctx, tx, name, string(payload), now); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM results`); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	for _, r := range data.Results {
		if err := upsertResult(ctx, tx, r, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// UpsertResult inserts or replaces one result by id.
func (s *Store) UpsertResult(ctx context.Context, r store.Result) error {
	return upsertResult(ctx, s.sqlDB, r, s.now().UTC().UnixMilli())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putDocument(ctx context.Context, db execer, name, payload string, now int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO documents (name, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		name, payload, now,
	)
	if err != nil {
		return fmt.Errorf("put document %s: %w", name, err)
	}
	return nil
}

func upsertResult(ctx context.Context, db execer, r store.Result, now int64) error {
	resultID := strings.TrimSpace(r.ID)
	if resultID == "" {
		return errors.New("result id is required")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", resultID, err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO results (id, project_id, evaluator_id, payload, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   project_id = excluded.project_id,
		   evaluator_id = excluded.evaluator_id,
		   payload = excluded.payload,
		   updated_at = excluded.updated_at`,
		resultID, r.ProjectID, r.EvaluatorID, string(payload), now,
	)
	if err != nil {
		return fmt.Errorf("upsert result %s: %w", resultID, err)
	}
	return nil
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
