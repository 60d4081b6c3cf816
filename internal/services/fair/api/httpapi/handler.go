// Package httpapi exposes the fair service as a JSON API for the admin and
// evaluator front ends.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/fairscore/internal/fair/lifecycle"
	"github.com/louisbranch/fairscore/internal/fair/remotesync"
	"github.com/louisbranch/fairscore/internal/fair/store"
	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
	"github.com/louisbranch/fairscore/internal/platform/httpx"
	"github.com/louisbranch/fairscore/internal/platform/requestctx"
	"github.com/louisbranch/fairscore/internal/platform/session"
)

// RemoteEndpoint is updated when admins change the remote URL setting.
type RemoteEndpoint interface {
	SetBaseURL(baseURL string)
}

// Sync is the slice of the sync coordinator the API drives.
type Sync interface {
	Login(ctx context.Context, password string) error
	Logout()
	BulkSync(ctx context.Context) error
	RetryBacklog(ctx context.Context) (remotesync.RetryReport, error)
	LoadFromRemote(ctx context.Context) bool
	Status(ctx context.Context) remotesync.Status
}

// Config wires the handler's collaborators.
type Config struct {
	Store    *store.Store
	Engine   *lifecycle.Engine
	Sync     Sync
	Remote   RemoteEndpoint
	Sessions *session.Issuer
	// Location formats export timestamps; UTC when nil.
	Location *time.Location
}

type handler struct {
	store    *store.Store
	engine   *lifecycle.Engine
	sync     Sync
	remote   RemoteEndpoint
	sessions *session.Issuer
	location *time.Location
}

// NewHandler builds the API handler with request-id and panic recovery
// middleware applied.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("lifecycle engine is required")
	}
	if cfg.Sync == nil {
		return nil, errors.New("sync coordinator is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session issuer is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	h := &handler{
		store:    cfg.Store,
		engine:   cfg.Engine,
		sync:     cfg.Sync,
		remote:   cfg.Remote,
		sessions: cfg.Sessions,
		location: cfg.Location,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /api/public", h.publicInfo)
	mux.HandleFunc("POST /api/login/admin", h.adminLogin)
	mux.HandleFunc("POST /api/login/evaluator", h.evaluatorLogin)
	h.registerAdmin(mux)
	h.registerEvaluator(mux)

	return httpx.Chain(mux, httpx.RequestID(), httpx.RecoverPanic()), nil
}

// requireRole authenticates the bearer token and admits only role.
func (h *handler) requireRole(role requestctx.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := h.sessions.Verify(httpx.BearerToken(r))
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		if actor.Role != role {
			httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeAuthTokenInvalid,
				"session role not allowed", map[string]string{"Reason": "role"}))
			return
		}
		// Ids can be reassigned by a reload or a migration; the email
		// pins the session to the evaluator who signed in.
		if role == requestctx.RoleEvaluator {
			var current bool
			_ = h.store.View(func(tx *store.Tx) error {
				evaluator, ok := tx.Evaluator(actor.ID)
				current = ok && strings.EqualFold(strings.TrimSpace(evaluator.Email), actor.Email)
				return nil
			})
			if !current {
				httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeAuthTokenInvalid,
					"evaluator no longer exists", map[string]string{"Reason": "evaluator"}))
				return
			}
		}
		next(w, r.WithContext(requestctx.WithActor(r.Context(), actor)))
	}
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeOK(w http.ResponseWriter, payload any) {
	_ = httpx.WriteJSON(w, http.StatusOK, payload)
}

func writeCreated(w http.ResponseWriter, payload any) {
	_ = httpx.WriteJSON(w, http.StatusCreated, payload)
}
