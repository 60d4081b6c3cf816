package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/louisbranch/fairscore/internal/fair/rubric"
	"github.com/louisbranch/fairscore/internal/fair/store"
	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
	"github.com/louisbranch/fairscore/internal/platform/httpx"
	"github.com/louisbranch/fairscore/internal/platform/requestctx"
)

type adminLoginRequest struct {
	Passcode string `json:"passcode"`
}

type evaluatorLoginRequest struct {
	Email string           `json:"email"`
	Code  store.AccessCode `json:"code"`
}

type loginResponse struct {
	Token     string           `json:"token"`
	ExpiresIn int64            `json:"expiresIn"`
	Evaluator *store.Evaluator `json:"evaluator,omitempty"`
}

type publicInfoResponse struct {
	EventTitle   string             `json:"eventTitle"`
	Subtitle     string             `json:"subtitle"`
	WelcomeTitle string             `json:"welcomeTitle"`
	WelcomeBody  string             `json:"welcomeBody"`
	LogoURL      string             `json:"logoUrl"`
	Rubric       []rubric.Criterion `json:"rubric"`
}

// publicInfo serves branding and the rubric to the welcome screen.
func (h *handler) publicInfo(w http.ResponseWriter, r *http.Request) {
	s := h.store.Settings()
	writeOK(w, publicInfoResponse{
		EventTitle:   s.EventTitle,
		Subtitle:     s.Subtitle,
		WelcomeTitle: s.WelcomeTitle,
		WelcomeBody:  s.WelcomeBody,
		LogoURL:      s.LogoURL,
		Rubric:       rubric.Criteria(),
	})
}

func (h *handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	want := h.store.Settings().AdminPass
	got := strings.TrimSpace(req.Passcode)
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeAuthInvalidCredentials, "admin passcode mismatch"))
		return
	}
	h.issue(w, r, requestctx.Actor{Role: requestctx.RoleAdmin}, nil)
}

func (h *handler) evaluatorLogin(w http.ResponseWriter, r *http.Request) {
	var req evaluatorLoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var (
		evaluator store.Evaluator
		ok        bool
	)
	_ = h.store.View(func(tx *store.Tx) error {
		evaluator, ok = tx.EvaluatorByCredentials(req.Email, string(req.Code))
		return nil
	})
	if !ok {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeAuthInvalidCredentials, "evaluator credentials mismatch"))
		return
	}
	h.issue(w, r, requestctx.Actor{Role: requestctx.RoleEvaluator, ID: evaluator.ID, Email: evaluator.Email}, &evaluator)
}

func (h *handler) issue(w http.ResponseWriter, r *http.Request, actor requestctx.Actor, evaluator *store.Evaluator) {
	token, err := h.sessions.Issue(actor)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, loginResponse{
		Token:     token,
		ExpiresIn: int64(h.sessions.TTL().Seconds()),
		Evaluator: evaluator,
	})
}
