package httpapi

import (
	"context"
	"net/http"

	"github.com/louisbranch/fairscore/internal/fair/assignment"
	"github.com/louisbranch/fairscore/internal/fair/lifecycle"
	"github.com/louisbranch/fairscore/internal/fair/store"
	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
	"github.com/louisbranch/fairscore/internal/platform/httpx"
	"github.com/louisbranch/fairscore/internal/platform/requestctx"
)

func (h *handler) registerEvaluator(mux *http.ServeMux) {
	evaluator := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, h.requireRole(requestctx.RoleEvaluator, fn))
	}

	evaluator("GET /api/evaluator/me", h.me)
	evaluator("PUT /api/evaluator/me", h.updateProfile)
	evaluator("GET /api/evaluator/assignments", h.assignments)
	evaluator("GET /api/evaluator/results/{projectId}", h.ownResult)
	evaluator("POST /api/evaluator/draft", h.saveDraft)
	evaluator("POST /api/evaluator/preview", h.preview)
	evaluator("POST /api/evaluator/submit", h.submit)
	evaluator("POST /api/evaluator/finalize", h.finalize)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	evaluatorID := requestctx.EvaluatorIDFromContext(r.Context())
	var evaluator store.Evaluator
	_ = h.store.View(func(tx *store.Tx) error {
		evaluator, _ = tx.Evaluator(evaluatorID)
		return nil
	})
	writeOK(w, evaluator)
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	evaluatorID := requestctx.EvaluatorIDFromContext(r.Context())
	decodeAndMutate(h, w, r, http.StatusOK, func(tx *store.Tx, in store.ProfileInput) (any, error) {
		return tx.UpdateProfile(evaluatorID, in)
	})
}

type assignmentItem struct {
	assignment.Assigned
	Status string `json:"status"`
	Total  *int   `json:"total,omitempty"`
}

type assignmentsResponse struct {
	Projects  []assignmentItem    `json:"projects"`
	Progress  assignment.Progress `json:"progress"`
	Finalized bool                `json:"finalized"`
}

// Assignment statuses shown on the evaluator's list.
const (
	statusPending   = "pending"
	statusDraft     = "draft"
	statusSubmitted = "submitted"
	statusFinalized = "finalized"
)

func (h *handler) assignments(w http.ResponseWriter, r *http.Request) {
	evaluatorID := requestctx.EvaluatorIDFromContext(r.Context())
	var resp assignmentsResponse
	_ = h.store.View(func(tx *store.Tx) error {
		snap := tx.Snapshot()
		assigned := assignment.Projects(snap.Panels, snap.Projects, evaluatorID)
		resp.Projects = make([]assignmentItem, 0, len(assigned))
		for _, a := range assigned {
			item := assignmentItem{Assigned: a, Status: statusPending}
			if result, ok := tx.ResultFor(a.Project.ID, evaluatorID); ok {
				total := result.Total
				item.Total = &total
				switch {
				case result.FinalizedByEvaluator:
					item.Status = statusFinalized
				case result.Draft:
					item.Status = statusDraft
				default:
					item.Status = statusSubmitted
				}
			}
			resp.Projects = append(resp.Projects, item)
		}
		resp.Progress = assignment.ProgressFor(snap.Panels, snap.Results, evaluatorID)
		resp.Finalized = tx.EvaluatorState(evaluatorID).FinalizedAll
		return nil
	})
	writeOK(w, resp)
}

func (h *handler) ownResult(w http.ResponseWriter, r *http.Request) {
	evaluatorID := requestctx.EvaluatorIDFromContext(r.Context())
	projectID := r.PathValue("projectId")
	var (
		result store.Result
		ok     bool
	)
	_ = h.store.View(func(tx *store.Tx) error {
		result, ok = tx.ResultFor(projectID, evaluatorID)
		return nil
	})
	if !ok {
		httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeNotFound, "result not found",
			map[string]string{"Kind": "result", "ID": projectID}))
		return
	}
	writeOK(w, result)
}

// scoreRequest accepts numbers so non-integer scores are reported as a
// validation error rather than a decode failure.
type scoreRequest struct {
	ProjectID string             `json:"projectId"`
	Scores    map[string]float64 `json:"scores"`
	Remark    string             `json:"remark"`
}

func (h *handler) decodeScores(r *http.Request) (lifecycle.ScoreInput, error) {
	var req scoreRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return lifecycle.ScoreInput{}, err
	}
	scores, err := lifecycle.ScoresFromNumbers(req.Scores)
	if err != nil {
		return lifecycle.ScoreInput{}, err
	}
	return lifecycle.ScoreInput{
		EvaluatorID: requestctx.EvaluatorIDFromContext(r.Context()),
		ProjectID:   req.ProjectID,
		Scores:      scores,
		Remark:      req.Remark,
	}, nil
}

func (h *handler) saveDraft(w http.ResponseWriter, r *http.Request) {
	h.score(w, r, h.engine.SaveDraft)
}

func (h *handler) preview(w http.ResponseWriter, r *http.Request) {
	h.score(w, r, h.engine.Preview)
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	h.score(w, r, h.engine.Submit)
}

func (h *handler) score(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, in lifecycle.ScoreInput) (store.Result, error)) {
	in, err := h.decodeScores(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	result, err := op(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, result)
}

type finalizeRequest struct {
	Confirm bool `json:"confirm"`
}

type finalizeResponse struct {
	lifecycle.FinalizeOutcome
	SyncError *httpx.ErrorBody `json:"syncError,omitempty"`
}

// finalize locks every result of the caller. A failed follow-up sync does
// not undo the lock; it is reported next to the outcome.
func (h *handler) finalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if !req.Confirm {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeFinalizeNotConfirmed, "finalization requires confirmation"))
		return
	}
	outcome, err := h.engine.FinalizeAll(r.Context(), requestctx.EvaluatorIDFromContext(r.Context()))
	if err != nil && outcome == (lifecycle.FinalizeOutcome{}) {
		httpx.WriteError(w, r, err)
		return
	}
	resp := finalizeResponse{FinalizeOutcome: outcome}
	if err != nil {
		body := httpx.LocalizedError(r, err)
		resp.SyncError = &body
	}
	writeOK(w, resp)
}
