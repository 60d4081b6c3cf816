package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/fairscore/internal/fair/assignment"
	"github.com/louisbranch/fairscore/internal/fair/store"
	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
)

type fakePusher struct {
	mu     sync.Mutex
	pushed []store.Result
}

func (f *fakePusher) PushResult(_ context.Context, r store.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, r)
}

func (f *fakePusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

type fakeSyncer struct {
	calls int
	err   error
}

func (f *fakeSyncer) BulkSync(context.Context) error {
	f.calls++
	return f.err
}

var fullScores = map[string]int{"problem": 8, "originality": 7, "description": 9, "method": 6, "impact": 8, "presentation": 9}

// newFixture builds EVAL-0001..0003 on PNL-0001 with PRJ-0001 and PRJ-0002.
func newFixture(t *testing.T) (*store.Store, *fakePusher, *fakeSyncer, *Engine) {
	t.Helper()
	st := store.New(store.Snapshot{Settings: store.DefaultSettings()},
		store.WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) }))
	err := st.Update(func(tx *store.Tx) error {
		for _, email := range []string{"a@t", "b@t", "c@t"} {
			if _, err := tx.CreateEvaluator(store.EvaluatorInput{Name: email, Email: email}); err != nil {
				return err
			}
		}
		for _, title := range []string{"Solar", "Wind", "Unassigned"} {
			if _, err := tx.CreateProject(store.ProjectInput{Title: title}); err != nil {
				return err
			}
		}
		_, err := tx.CreatePanel(store.PanelInput{
			EvaluatorIDs: []string{"EVAL-0001", "EVAL-0002", "EVAL-0003"},
			ProjectIDs:   []string{"PRJ-0001", "PRJ-0002"},
		})
		return err
	})
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	pusher := &fakePusher{}
	syncer := &fakeSyncer{}
	return st, pusher, syncer, New(st, pusher, syncer)
}

func TestSubmitScenario(t *testing.T) {
	t.Parallel()

	st, pusher, _, engine := newFixture(t)
	res, err := engine.Submit(context.Background(), ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: fullScores, Remark: " nice "})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Total != 47 {
		t.Fatalf("total = %d, want 47", res.Total)
	}
	if res.ID != "RES-0001" || res.PanelID != "PNL-0001" || res.Remark != "nice" || res.Draft || res.FinalizedByEvaluator {
		t.Fatalf("result = %+v", res)
	}
	if res.TS != 1_700_000_000_000 {
		t.Fatalf("ts = %d", res.TS)
	}
	if pusher.count() != 1 {
		t.Fatalf("pushes = %d, want 1", pusher.count())
	}

	snap := st.Snapshot()
	progress := assignment.ProgressFor(snap.Panels, snap.Results, "EVAL-0001")
	if progress.Completed != 1 || progress.Total != 2 || progress.Percent != 50 {
		t.Fatalf("progress = %+v", progress)
	}
}

func TestSubmitOverwritesExistingResult(t *testing.T) {
	t.Parallel()

	st, _, _, engine := newFixture(t)
	ctx := context.Background()
	in := ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: fullScores}
	if _, err := engine.Submit(ctx, in); err != nil {
		t.Fatalf("submit: %v", err)
	}
	in.Scores = map[string]int{"problem": 1, "originality": 1, "description": 1, "method": 1, "impact": 1, "presentation": 1}
	res, err := engine.Submit(ctx, in)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if res.ID != "RES-0001" || res.Total != 6 {
		t.Fatalf("result = %+v", res)
	}
	if n := len(st.Snapshot().Results); n != 1 {
		t.Fatalf("results = %d, want 1", n)
	}
}

func TestSubmitRequiresCompleteScores(t *testing.T) {
	t.Parallel()

	st, pusher, _, engine := newFixture(t)
	_, err := engine.Submit(context.Background(), ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: map[string]int{"problem": 5}})
	if apperrors.CodeOf(err) != apperrors.CodeScoreIncomplete {
		t.Fatalf("code = %q", apperrors.CodeOf(err))
	}
	domainErr, _ := apperrors.As(err)
	if domainErr.Metadata["Criterion"] != "originality" {
		t.Fatalf("criterion = %q", domainErr.Metadata["Criterion"])
	}
	if len(st.Snapshot().Results) != 0 || pusher.count() != 0 {
		t.Fatal("failed submit must not change state or push")
	}
}

func TestSubmitRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	_, _, _, engine := newFixture(t)
	scores := map[string]int{"problem": 8, "originality": 7, "description": 9, "method": 11, "impact": 8, "presentation": 9}
	_, err := engine.Submit(context.Background(), ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: scores})
	if apperrors.CodeOf(err) != apperrors.CodeScoreOutOfRange {
		t.Fatalf("code = %q", apperrors.CodeOf(err))
	}
	if !apperrors.IsValidation(err) {
		t.Fatal("expected validation class")
	}
}

func TestSubmitUnassignedProject(t *testing.T) {
	t.Parallel()

	_, _, _, engine := newFixture(t)
	_, err := engine.Submit(context.Background(), ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0003", Scores: fullScores})
	if apperrors.CodeOf(err) != apperrors.CodeAssignmentMissing {
		t.Fatalf("code = %q", apperrors.CodeOf(err))
	}
	if !apperrors.IsLifecycle(err) {
		t.Fatal("expected lifecycle class")
	}
}

func TestSaveDraftAllowsPartialScoresAndDoesNotPush(t *testing.T) {
	t.Parallel()

	_, pusher, _, engine := newFixture(t)
	res, err := engine.SaveDraft(context.Background(), ScoreInput{EvaluatorID: "EVAL-0002", ProjectID: "PRJ-0002", Scores: map[string]int{"problem": 4, "method": 3}})
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if !res.Draft || res.Total != 7 {
		t.Fatalf("draft = %+v", res)
	}
	if pusher.count() != 0 {
		t.Fatal("drafts must not be pushed")
	}
}

func TestSaveDraftReopensSubmittedResult(t *testing.T) {
	t.Parallel()

	st, _, _, engine := newFixture(t)
	ctx := context.Background()
	in := ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: fullScores}
	if _, err := engine.Submit(ctx, in); err != nil {
		t.Fatalf("submit: %v", err)
	}
	in.Scores = map[string]int{"problem": 2}
	res, err := engine.SaveDraft(ctx, in)
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if res.ID != "RES-0001" || !res.Draft {
		t.Fatalf("result = %+v", res)
	}
	if got := st.Snapshot().Results; len(got) != 1 || got[0].Submitted() {
		t.Fatalf("results = %+v", got)
	}
}

func TestSaveDraftRejectsUnknownCriterion(t *testing.T) {
	t.Parallel()

	_, _, _, engine := newFixture(t)
	_, err := engine.SaveDraft(context.Background(), ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: map[string]int{"luck": 3}})
	if apperrors.CodeOf(err) != apperrors.CodeScoreUnknownCriterion {
		t.Fatalf("code = %q", apperrors.CodeOf(err))
	}
}

func TestPreviewDoesNotStore(t *testing.T) {
	t.Parallel()

	st, pusher, _, engine := newFixture(t)
	res, err := engine.Preview(context.Background(), ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: fullScores})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if res.Total != 47 {
		t.Fatalf("total = %d", res.Total)
	}
	if len(st.Snapshot().Results) != 0 || pusher.count() != 0 {
		t.Fatal("preview must not store or push")
	}
}

func TestFinalizeAllLocksResultsAndSyncs(t *testing.T) {
	t.Parallel()

	st, _, syncer, engine := newFixture(t)
	ctx := context.Background()
	if _, err := engine.Submit(ctx, ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: fullScores}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := engine.Submit(ctx, ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0002", Scores: fullScores}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	outcome, err := engine.FinalizeAll(ctx, "EVAL-0001")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if outcome.Finalized != 2 || !outcome.Synced || outcome.AlreadyFinalized {
		t.Fatalf("outcome = %+v", outcome)
	}
	if syncer.calls != 1 {
		t.Fatalf("sync calls = %d", syncer.calls)
	}
	snap := st.Snapshot()
	for _, r := range snap.Results {
		if !r.FinalizedByEvaluator {
			t.Fatalf("result not finalized: %+v", r)
		}
	}
	if !snap.EvaluatorState["EVAL-0001"].FinalizedAll {
		t.Fatal("expected evaluator state finalized")
	}
}

func TestFinalizeAllIsIdempotent(t *testing.T) {
	t.Parallel()

	st, _, syncer, engine := newFixture(t)
	ctx := context.Background()
	if _, err := engine.Submit(ctx, ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: fullScores}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := engine.FinalizeAll(ctx, "EVAL-0001"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	first := st.Snapshot()

	outcome, err := engine.FinalizeAll(ctx, "EVAL-0001")
	if err != nil {
		t.Fatalf("second finalize: %v", err)
	}
	if !outcome.AlreadyFinalized || outcome.Finalized != 0 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if syncer.calls != 1 {
		t.Fatalf("no-op finalize must not sync again, calls = %d", syncer.calls)
	}
	second := st.Snapshot()
	if len(first.Results) != len(second.Results) || first.EvaluatorState["EVAL-0001"] != second.EvaluatorState["EVAL-0001"] {
		t.Fatal("second finalize changed state")
	}
	for i := range first.Results {
		if first.Results[i].FinalizedByEvaluator != second.Results[i].FinalizedByEvaluator || first.Results[i].TS != second.Results[i].TS {
			t.Fatalf("result %d changed", i)
		}
	}
}

func TestFinalizeAllRequiresResults(t *testing.T) {
	t.Parallel()

	st, _, syncer, engine := newFixture(t)
	_, err := engine.FinalizeAll(context.Background(), "EVAL-0003")
	if apperrors.CodeOf(err) != apperrors.CodeNothingToFinalize {
		t.Fatalf("code = %q", apperrors.CodeOf(err))
	}
	if st.Snapshot().EvaluatorState["EVAL-0003"].FinalizedAll || syncer.calls != 0 {
		t.Fatal("failed finalize must not change state or sync")
	}
}

func TestFinalizeAllRefusesWhileDraftsPending(t *testing.T) {
	t.Parallel()

	st, _, syncer, engine := newFixture(t)
	ctx := context.Background()
	if _, err := engine.Submit(ctx, ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: fullScores}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := engine.SaveDraft(ctx, ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0002", Scores: map[string]int{"problem": 1}}); err != nil {
		t.Fatalf("draft: %v", err)
	}

	_, err := engine.FinalizeAll(ctx, "EVAL-0001")
	if apperrors.CodeOf(err) != apperrors.CodeDraftsPending || !apperrors.IsLifecycle(err) {
		t.Fatalf("err = %v", err)
	}
	snap := st.Snapshot()
	if snap.EvaluatorState["EVAL-0001"].FinalizedAll || syncer.calls != 0 {
		t.Fatal("refused finalize must not change state or sync")
	}
	for _, r := range snap.Results {
		if r.FinalizedByEvaluator {
			t.Fatalf("result locked: %+v", r)
		}
	}

	if _, err := engine.Submit(ctx, ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0002", Scores: fullScores}); err != nil {
		t.Fatalf("submit draft: %v", err)
	}
	outcome, err := engine.FinalizeAll(ctx, "EVAL-0001")
	if err != nil || outcome.Finalized != 2 {
		t.Fatalf("finalize = %+v, %v", outcome, err)
	}
}

func TestWritesRejectedForFinalizedResultWithoutState(t *testing.T) {
	t.Parallel()

	st, pusher, _, engine := newFixture(t)
	err := st.Update(func(tx *store.Tx) error {
		tx.PutResult(store.Result{
			ID: "RES-0001", PanelID: "PNL-0001", ProjectID: "PRJ-0001", EvaluatorID: "EVAL-0001",
			Scores: fullScores, Total: 47, FinalizedByEvaluator: true,
		})
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx := context.Background()
	in := ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: map[string]int{"problem": 1}}
	if _, err := engine.SaveDraft(ctx, in); apperrors.CodeOf(err) != apperrors.CodeEvaluatorFinalized {
		t.Fatalf("draft err = %v", err)
	}
	in.Scores = fullScores
	if _, err := engine.Submit(ctx, in); apperrors.CodeOf(err) != apperrors.CodeEvaluatorFinalized {
		t.Fatalf("submit err = %v", err)
	}
	r := st.Snapshot().Results[0]
	if !r.FinalizedByEvaluator || r.Total != 47 || r.Draft || pusher.count() != 0 {
		t.Fatalf("finalized result changed: %+v", r)
	}

	other := ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0002", Scores: fullScores}
	if _, err := engine.Submit(ctx, other); err != nil {
		t.Fatalf("unrelated result should stay writable: %v", err)
	}
}

func TestFinalizeAllSurfacesSyncFailureButKeepsLocalState(t *testing.T) {
	t.Parallel()

	st, _, syncer, engine := newFixture(t)
	ctx := context.Background()
	syncer.err = apperrors.New(apperrors.CodeRemoteUnavailable, "remote down")
	if _, err := engine.Submit(ctx, ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: fullScores}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	outcome, err := engine.FinalizeAll(ctx, "EVAL-0001")
	if !apperrors.IsRemote(err) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if outcome.Finalized != 1 || outcome.Synced {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !st.Snapshot().EvaluatorState["EVAL-0001"].FinalizedAll {
		t.Fatal("local finalization must stand after sync failure")
	}
}

func TestWritesAfterFinalizeFail(t *testing.T) {
	t.Parallel()

	_, _, _, engine := newFixture(t)
	ctx := context.Background()
	in := ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: fullScores}
	if _, err := engine.Submit(ctx, in); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := engine.FinalizeAll(ctx, "EVAL-0001"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if _, err := engine.SaveDraft(ctx, in); apperrors.CodeOf(err) != apperrors.CodeEvaluatorFinalized {
		t.Fatalf("save draft code = %q", apperrors.CodeOf(err))
	}
	in.ProjectID = "PRJ-0002"
	_, err := engine.Submit(ctx, in)
	if apperrors.CodeOf(err) != apperrors.CodeEvaluatorFinalized || !apperrors.IsLifecycle(err) {
		t.Fatalf("submit err = %v", err)
	}
}

func TestNilCollaborators(t *testing.T) {
	t.Parallel()

	st, _, _, _ := newFixture(t)
	engine := New(st, nil, nil)
	ctx := context.Background()
	if _, err := engine.Submit(ctx, ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: fullScores}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	outcome, err := engine.FinalizeAll(ctx, "EVAL-0001")
	if err != nil || outcome.Synced {
		t.Fatalf("outcome = %+v err = %v", outcome, err)
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	_, _, _, engine := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Submit(ctx, ScoreInput{EvaluatorID: "EVAL-0001", ProjectID: "PRJ-0001", Scores: fullScores})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
