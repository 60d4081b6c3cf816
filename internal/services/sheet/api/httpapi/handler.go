// Package httpapi serves the remote store contract over one HTTP endpoint:
// GET ?action=getData returns the dataset and POST dispatches on the request
// type.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/louisbranch/fairscore/internal/fair/remote"
	"github.com/louisbranch/fairscore/internal/fair/store"
	"github.com/louisbranch/fairscore/internal/platform/httpx"
)

// Maximum request body accepted on POST.
const maxRequestBytes = 16 << 20

// DatasetStore persists the dataset.
type DatasetStore interface {
	Dataset(ctx context.Context) (remote.Dataset, error)
	ReplaceDataset(ctx context.Context, data remote.Dataset) error
	UpsertResult(ctx context.Context, result store.Result) error
}

// Authenticator checks admin credentials.
type Authenticator interface {
	Login(password string) (string, error)
	Valid(token string) bool
}

type handler struct {
	store DatasetStore
	auth  Authenticator
}

// NewHandler builds the contract handler.
func NewHandler(st DatasetStore, auth Authenticator) (http.Handler, error) {
	if st == nil {
		return nil, errors.New("dataset store is required")
	}
	if auth == nil {
		return nil, errors.New("authenticator is required")
	}
	h := &handler{store: st, auth: auth}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.get)
	mux.HandleFunc("POST /{$}", h.post)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return httpx.Chain(mux, httpx.RequestID(), httpx.RecoverPanic()), nil
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action != remote.ActionGetData {
		reject(w, http.StatusBadRequest, "unknown action")
		return
	}
	data, err := h.store.Dataset(r.Context())
	if err != nil {
		log.Printf("load dataset: %v", err)
		reject(w, http.StatusInternalServerError, "storage error")
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, data)
}

func (h *handler) post(w http.ResponseWriter, r *http.Request) {
	var req remote.Request
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil || json.Unmarshal(body, &req) != nil {
		reject(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	switch req.Type {
	case remote.TypeAdminLogin:
		h.adminLogin(w, req)
	case remote.TypeBulk:
		h.bulk(w, r, req)
	case remote.TypeResult:
		h.result(w, r, req)
	default:
		reject(w, http.StatusBadRequest, "unknown type")
	}
}

func (h *handler) adminLogin(w http.ResponseWriter, req remote.Request) {
	token, err := h.auth.Login(req.Password)
	if err != nil {
		reply(w, remote.Response{Error: "invalid password"})
		return
	}
	reply(w, remote.Response{OK: true, Token: token})
}

func (h *handler) bulk(w http.ResponseWriter, r *http.Request, req remote.Request) {
	if !h.auth.Valid(req.Token) {
		reply(w, remote.Response{Error: remote.ErrInvalidToken})
		return
	}
	var data remote.Dataset
	if err := json.Unmarshal(req.Data, &data); err != nil {
		reply(w, remote.Response{Error: "invalid data"})
		return
	}
	if err := h.store.ReplaceDataset(r.Context(), data); err != nil {
		log.Printf("bulk replace: %v", err)
		reply(w, remote.Response{Error: "storage error"})
		return
	}
	log.Printf("bulk stored projects=%d evaluators=%d results=%d", len(data.Projects), len(data.Evaluators), len(data.Results))
	reply(w, remote.Response{OK: true})
}

func (h *handler) result(w http.ResponseWriter, r *http.Request, req remote.Request) {
	var result store.Result
	if err := json.Unmarshal(req.Data, &result); err != nil || result.ID == "" {
		reply(w, remote.Response{Error: "invalid result"})
		return
	}
	if err := h.store.UpsertResult(r.Context(), result); err != nil {
		log.Printf("upsert result=%s: %v", result.ID, err)
		reply(w, remote.Response{Error: "storage error"})
		return
	}
	reply(w, remote.Response{OK: true})
}

// reply writes a logical outcome; failures still use 200.
func reply(w http.ResponseWriter, resp remote.Response) {
	_ = httpx.WriteJSON(w, http.StatusOK, resp)
}

func reject(w http.ResponseWriter, status int, reason string) {
	_ = httpx.WriteJSON(w, status, remote.Response{Error: reason})
}
