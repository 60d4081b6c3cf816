// Package lifecycle moves an evaluator's results through draft, submission
// and evaluator-wide finalization.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"maps"
	"strconv"
	"strings"

	"github.com/louisbranch/fairscore/internal/fair/assignment"
	"github.com/louisbranch/fairscore/internal/fair/store"
	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
	"github.com/louisbranch/fairscore/internal/platform/id"
)

// ResultPusher delivers a committed result to the remote store without
// blocking the caller.
type ResultPusher interface {
	PushResult(ctx context.Context, result store.Result)
}

// BulkSyncer pushes the whole dataset to the remote store.
type BulkSyncer interface {
	BulkSync(ctx context.Context) error
}

// Engine applies lifecycle transitions to a store.
type Engine struct {
	store  *store.Store
	pusher ResultPusher
	syncer BulkSyncer
}

// New creates an engine. pusher and syncer may be nil when no remote store
// is configured.
func New(st *store.Store, pusher ResultPusher, syncer BulkSyncer) *Engine {
	return &Engine{store: st, pusher: pusher, syncer: syncer}
}

// ScoreInput is one evaluator's scores for one project.
type ScoreInput struct {
	EvaluatorID string
	ProjectID   string
	Scores      map[string]int
	Remark      string
}

func (in ScoreInput) normalize() ScoreInput {
	in.EvaluatorID = strings.TrimSpace(in.EvaluatorID)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.Remark = strings.TrimSpace(in.Remark)
	in.Scores = maps.Clone(in.Scores)
	if in.Scores == nil {
		in.Scores = map[string]int{}
	}
	return in
}

// SaveDraft stores possibly incomplete scores. A submitted result saved as a
// draft is reopened. Drafts are never pushed.
func (e *Engine) SaveDraft(ctx context.Context, in ScoreInput) (store.Result, error) {
	if err := ctx.Err(); err != nil {
		return store.Result{}, err
	}
	in = in.normalize()
	var saved store.Result
	err := e.store.Update(func(tx *store.Tx) error {
		if err := checkWritable(tx, in); err != nil {
			return err
		}
		if err := ValidateScores(in.Scores); err != nil {
			return err
		}
		saved = upsert(tx, in, true)
		return nil
	})
	if err != nil {
		return store.Result{}, err
	}
	return saved, nil
}

// Preview validates a complete score set and returns the result Submit would
// store, without storing it.
func (e *Engine) Preview(ctx context.Context, in ScoreInput) (store.Result, error) {
	if err := ctx.Err(); err != nil {
		return store.Result{}, err
	}
	in = in.normalize()
	var preview store.Result
	err := e.store.View(func(tx *store.Tx) error {
		if err := checkWritable(tx, in); err != nil {
			return err
		}
		if err := ValidateComplete(in.Scores); err != nil {
			return err
		}
		preview = upsert(tx, in, false)
		return nil
	})
	return preview, err
}

// Submit stores a complete score set and hands it to the pusher. A failed
// push never rolls back the stored result.
func (e *Engine) Submit(ctx context.Context, in ScoreInput) (store.Result, error) {
	if err := ctx.Err(); err != nil {
		return store.Result{}, err
	}
	in = in.normalize()
	var saved store.Result
	err := e.store.Update(func(tx *store.Tx) error {
		if err := checkWritable(tx, in); err != nil {
			return err
		}
		if err := ValidateComplete(in.Scores); err != nil {
			return err
		}
		saved = upsert(tx, in, false)
		return nil
	})
	if err != nil {
		return store.Result{}, err
	}
	if e.pusher != nil {
		e.pusher.PushResult(ctx, saved)
	}
	return saved, nil
}

func checkWritable(tx *store.Tx, in ScoreInput) error {
	if tx.EvaluatorState(in.EvaluatorID).FinalizedAll {
		return apperrors.WithMetadata(apperrors.CodeEvaluatorFinalized,
			"evaluator already finalized",
			map[string]string{"EvaluatorID": in.EvaluatorID})
	}
	if prior, ok := tx.ResultFor(in.ProjectID, in.EvaluatorID); ok && prior.FinalizedByEvaluator {
		return apperrors.WithMetadata(apperrors.CodeEvaluatorFinalized,
			fmt.Sprintf("result %s is finalized", prior.ID),
			map[string]string{"EvaluatorID": in.EvaluatorID, "ProjectID": in.ProjectID})
	}
	if !assignment.IsAssigned(tx.Panels(), in.EvaluatorID, in.ProjectID) {
		return apperrors.WithMetadata(apperrors.CodeAssignmentMissing,
			fmt.Sprintf("project %s is not assigned to evaluator %s", in.ProjectID, in.EvaluatorID),
			map[string]string{"EvaluatorID": in.EvaluatorID, "ProjectID": in.ProjectID})
	}
	return nil
}

// upsert writes the result for (project, evaluator), reusing the id of a
// prior record. The caller has checked the assignment.
func upsert(tx *store.Tx, in ScoreInput, draft bool) store.Result {
	result, ok := tx.ResultFor(in.ProjectID, in.EvaluatorID)
	if !ok {
		result = store.Result{
			ID:          tx.NextID(id.KindResult),
			ProjectID:   in.ProjectID,
			EvaluatorID: in.EvaluatorID,
		}
	}
	if panel, found := assignment.PanelFor(tx.Panels(), in.ProjectID, in.EvaluatorID); found {
		result.PanelID = panel.ID
	}
	result.Scores = in.Scores
	result.Remark = in.Remark
	result.Total = ComputeTotal(in.Scores)
	result.TS = tx.Now().UnixMilli()
	result.Draft = draft
	result.FinalizedByEvaluator = false
	tx.PutResult(result)
	return result
}

// FinalizeOutcome describes a FinalizeAll call.
type FinalizeOutcome struct {
	// Finalized is the number of results locked by this call.
	Finalized int `json:"finalized"`
	// AlreadyFinalized is set when the call was a no-op.
	AlreadyFinalized bool `json:"alreadyFinalized"`
	// Synced reports whether the follow-up bulk sync succeeded.
	Synced bool `json:"synced"`
}

// FinalizeAll locks every result of the evaluator and then runs a bulk sync.
// It is refused while any of those results is still a draft. Calling it again
// is a no-op. A sync failure is returned alongside the outcome; the local
// finalization stands either way.
func (e *Engine) FinalizeAll(ctx context.Context, evaluatorID string) (FinalizeOutcome, error) {
	if err := ctx.Err(); err != nil {
		return FinalizeOutcome{}, err
	}
	evaluatorID = strings.TrimSpace(evaluatorID)
	var outcome FinalizeOutcome
	err := e.store.Update(func(tx *store.Tx) error {
		if tx.EvaluatorState(evaluatorID).FinalizedAll {
			outcome.AlreadyFinalized = true
			return nil
		}
		results := tx.ResultsByEvaluator(evaluatorID)
		if len(results) == 0 {
			return apperrors.WithMetadata(apperrors.CodeNothingToFinalize,
				"evaluator has no results to finalize",
				map[string]string{"EvaluatorID": evaluatorID})
		}
		drafts := 0
		for _, r := range results {
			if r.Draft {
				drafts++
			}
		}
		if drafts > 0 {
			return apperrors.WithMetadata(apperrors.CodeDraftsPending,
				fmt.Sprintf("evaluator has %d draft results", drafts),
				map[string]string{"EvaluatorID": evaluatorID, "Count": strconv.Itoa(drafts)})
		}
		for _, r := range results {
			r.FinalizedByEvaluator = true
			tx.PutResult(r)
		}
		tx.SetEvaluatorState(evaluatorID, store.EvaluatorState{FinalizedAll: true})
		outcome.Finalized = len(results)
		return nil
	})
	if err != nil {
		return FinalizeOutcome{}, err
	}
	if outcome.AlreadyFinalized || e.syncer == nil {
		return outcome, nil
	}
	if err := e.syncer.BulkSync(ctx); err != nil {
		log.Printf("finalize sync failed evaluator=%s err=%v", evaluatorID, err)
		return outcome, err
	}
	outcome.Synced = true
	return outcome, nil
}
