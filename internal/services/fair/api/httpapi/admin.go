package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/louisbranch/fairscore/internal/fair/export"
	"github.com/louisbranch/fairscore/internal/fair/ranking"
	"github.com/louisbranch/fairscore/internal/fair/remotesync"
	"github.com/louisbranch/fairscore/internal/fair/store"
	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
	"github.com/louisbranch/fairscore/internal/platform/httpx"
	"github.com/louisbranch/fairscore/internal/platform/requestctx"
)

func (h *handler) registerAdmin(mux *http.ServeMux) {
	admin := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, h.requireRole(requestctx.RoleAdmin, fn))
	}

	admin("GET /api/admin/projects", h.listProjects)
	admin("POST /api/admin/projects", h.createProject)
	admin("PUT /api/admin/projects/{id}", h.updateProject)
	admin("DELETE /api/admin/projects/{id}", h.deleteProject)

	admin("GET /api/admin/evaluators", h.listEvaluators)
	admin("POST /api/admin/evaluators", h.createEvaluator)
	admin("POST /api/admin/evaluators/import", h.importEvaluators)
	admin("PUT /api/admin/evaluators/{id}", h.updateEvaluator)
	admin("DELETE /api/admin/evaluators/{id}", h.deleteEvaluator)

	admin("GET /api/admin/panels", h.listPanels)
	admin("POST /api/admin/panels", h.createPanel)
	admin("PUT /api/admin/panels/{id}", h.updatePanel)
	admin("DELETE /api/admin/panels/{id}", h.deletePanel)

	admin("GET /api/admin/settings", h.getSettings)
	admin("PUT /api/admin/settings", h.updateSettings)
	admin("POST /api/admin/settings/reset-branding", h.resetBranding)

	admin("GET /api/admin/scores", h.listScores)
	admin("GET /api/admin/scores/{projectId}", h.projectDetail)
	admin("GET /api/admin/results", h.listResults)
	admin("GET /api/admin/dashboard", h.dashboard)

	admin("GET /api/admin/exports/scores.csv", h.exportScoresCSV)
	admin("GET /api/admin/exports/results.csv", h.exportResultsCSV)
	admin("GET /api/admin/exports/results.json", h.exportResultsJSON)
	admin("GET /api/admin/exports/snapshot.json", h.exportSnapshotJSON)

	admin("GET /api/admin/migrate", h.migrationStatus)
	admin("POST /api/admin/migrate", h.migrate)

	admin("GET /api/admin/sync", h.syncStatus)
	admin("POST /api/admin/sync", h.bulkSync)
	admin("POST /api/admin/sync/login", h.syncLogin)
	admin("POST /api/admin/sync/logout", h.syncLogout)
	admin("POST /api/admin/sync/retry", h.retryBacklog)
	admin("POST /api/admin/sync/load", h.loadFromRemote)

	admin("POST /api/admin/clear", h.clearScores)
	admin("POST /api/admin/reset", h.resetAll)
}

// mutate runs fn in a store transaction and writes its value with status.
func (h *handler) mutate(w http.ResponseWriter, r *http.Request, status int, fn func(tx *store.Tx) (any, error)) {
	var out any
	err := h.store.Update(func(tx *store.Tx) error {
		var err error
		out, err = fn(tx)
		return err
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_ = httpx.WriteJSON(w, status, out)
}

func decodeAndMutate[T any](h *handler, w http.ResponseWriter, r *http.Request, status int, fn func(tx *store.Tx, in T) (any, error)) {
	var in T
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.mutate(w, r, status, func(tx *store.Tx) (any, error) { return fn(tx, in) })
}

func (h *handler) listProjects(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.store.Snapshot().Projects)
}

func (h *handler) createProject(w http.ResponseWriter, r *http.Request) {
	decodeAndMutate(h, w, r, http.StatusCreated, func(tx *store.Tx, in store.ProjectInput) (any, error) {
		return tx.CreateProject(in)
	})
}

func (h *handler) updateProject(w http.ResponseWriter, r *http.Request) {
	decodeAndMutate(h, w, r, http.StatusOK, func(tx *store.Tx, in store.ProjectInput) (any, error) {
		return tx.UpdateProject(r.PathValue("id"), in)
	})
}

func (h *handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusNoContent, func(tx *store.Tx) (any, error) {
		return nil, tx.DeleteProject(r.PathValue("id"))
	})
}

func (h *handler) listEvaluators(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.store.Snapshot().Evaluators)
}

func (h *handler) createEvaluator(w http.ResponseWriter, r *http.Request) {
	decodeAndMutate(h, w, r, http.StatusCreated, func(tx *store.Tx, in store.EvaluatorInput) (any, error) {
		return tx.CreateEvaluator(in)
	})
}

type importResponse struct {
	Added      int               `json:"added"`
	Evaluators []store.Evaluator `json:"evaluators"`
}

// importEvaluators accepts CSV text as the raw body. The body is read before
// the store is locked.
func (h *handler) importEvaluators(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, httpx.MaxBodyBytes))
	if err != nil {
		httpx.WriteError(w, r, apperrors.Wrap(apperrors.CodeInvalidRequest, "read import body", err))
		return
	}
	h.mutate(w, r, http.StatusCreated, func(tx *store.Tx) (any, error) {
		added, err := tx.ImportEvaluatorsCSV(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		return importResponse{Added: len(added), Evaluators: added}, nil
	})
}

func (h *handler) updateEvaluator(w http.ResponseWriter, r *http.Request) {
	decodeAndMutate(h, w, r, http.StatusOK, func(tx *store.Tx, in store.EvaluatorInput) (any, error) {
		return tx.UpdateEvaluator(r.PathValue("id"), in)
	})
}

func (h *handler) deleteEvaluator(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusNoContent, func(tx *store.Tx) (any, error) {
		return nil, tx.DeleteEvaluator(r.PathValue("id"))
	})
}

func (h *handler) listPanels(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.store.Snapshot().Panels)
}

func (h *handler) createPanel(w http.ResponseWriter, r *http.Request) {
	decodeAndMutate(h, w, r, http.StatusCreated, func(tx *store.Tx, in store.PanelInput) (any, error) {
		return tx.CreatePanel(in)
	})
}

func (h *handler) updatePanel(w http.ResponseWriter, r *http.Request) {
	decodeAndMutate(h, w, r, http.StatusOK, func(tx *store.Tx, in store.PanelInput) (any, error) {
		return tx.UpdatePanel(r.PathValue("id"), in)
	})
}

func (h *handler) deletePanel(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusNoContent, func(tx *store.Tx) (any, error) {
		return nil, tx.DeletePanel(r.PathValue("id"))
	})
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.store.Settings())
}

func (h *handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch store.SettingsPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if patch.AdminPass != nil && strings.TrimSpace(*patch.AdminPass) == "" {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeInvalidRequest, "admin passcode cannot be empty"))
		return
	}
	settings := h.store.UpdateSettings(patch)
	if patch.RemoteURL != nil && h.remote != nil {
		h.remote.SetBaseURL(settings.RemoteURL)
	}
	writeOK(w, settings)
}

func (h *handler) resetBranding(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.store.ResetBranding())
}

func (h *handler) listScores(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	writeOK(w, ranking.Rank(snap.Projects, snap.Results))
}

func (h *handler) projectDetail(w http.ResponseWriter, r *http.Request) {
	var detail ranking.Detail
	err := h.store.View(func(tx *store.Tx) error {
		project, ok := tx.Project(r.PathValue("projectId"))
		if !ok {
			return apperrors.WithMetadata(apperrors.CodeNotFound, "project not found",
				map[string]string{"Kind": "project", "ID": r.PathValue("projectId")})
		}
		detail = ranking.ProjectDetail(project, tx.Evaluators(), tx.Results())
		return nil
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, detail)
}

func (h *handler) listResults(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.store.Snapshot().Results)
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	writeOK(w, ranking.Summarize(h.store.Snapshot()))
}

func (h *handler) exportScoresCSV(w http.ResponseWriter, r *http.Request) {
	writeDownload(w, "project_scores.csv", "text/csv; charset=utf-8", []byte(export.ScoresCSV(h.store.Snapshot())))
}

func (h *handler) exportResultsCSV(w http.ResponseWriter, r *http.Request) {
	writeDownload(w, "results.csv", "text/csv; charset=utf-8", []byte(export.ResultsCSV(h.store.Snapshot(), h.location)))
}

func (h *handler) exportResultsJSON(w http.ResponseWriter, r *http.Request) {
	data, err := export.ResultsJSON(h.store.Snapshot().Results)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeDownload(w, "results.json", "application/json", data)
}

func (h *handler) exportSnapshotJSON(w http.ResponseWriter, r *http.Request) {
	data, err := export.SnapshotJSON(h.store.Snapshot())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeDownload(w, "fair_data.json", "application/json", data)
}

func writeDownload(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type migrationStatusResponse struct {
	Needed bool `json:"needed"`
}

type migrationResponse struct {
	Changed int                   `json:"changed"`
	Report  store.MigrationReport `json:"report"`
}

func (h *handler) migrationStatus(w http.ResponseWriter, r *http.Request) {
	var needed bool
	_ = h.store.View(func(tx *store.Tx) error {
		needed = tx.NeedsMigration()
		return nil
	})
	writeOK(w, migrationStatusResponse{Needed: needed})
}

func (h *handler) migrate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, func(tx *store.Tx) (any, error) {
		report := tx.Migrate()
		return migrationResponse{Changed: report.Changed(), Report: report}, nil
	})
}

type syncLoginRequest struct {
	Password string `json:"password"`
}

func (h *handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.sync.Status(r.Context()))
}

func (h *handler) bulkSync(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.BulkSync(r.Context()); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, h.sync.Status(r.Context()))
}

func (h *handler) syncLogin(w http.ResponseWriter, r *http.Request) {
	var req syncLoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.sync.Login(r.Context(), req.Password); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, h.sync.Status(r.Context()))
}

func (h *handler) syncLogout(w http.ResponseWriter, r *http.Request) {
	h.sync.Logout()
	writeOK(w, h.sync.Status(r.Context()))
}

func (h *handler) retryBacklog(w http.ResponseWriter, r *http.Request) {
	report, err := h.sync.RetryBacklog(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, report)
}

type loadResponse struct {
	Loaded bool              `json:"loaded"`
	Status remotesync.Status `json:"status"`
}

func (h *handler) loadFromRemote(w http.ResponseWriter, r *http.Request) {
	loaded := h.sync.LoadFromRemote(r.Context())
	writeOK(w, loadResponse{Loaded: loaded, Status: h.sync.Status(r.Context())})
}

func (h *handler) clearScores(w http.ResponseWriter, r *http.Request) {
	h.store.ClearScores()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) resetAll(w http.ResponseWriter, r *http.Request) {
	h.store.ResetAll()
	w.WriteHeader(http.StatusNoContent)
}
