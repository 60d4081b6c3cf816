package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
)

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	t.Parallel()

	called := ""
	mw1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called += "1"
			next.ServeHTTP(w, r)
		})
	}
	mw2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called += "2"
			next.ServeHTTP(w, r)
		})
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called += "h"
		w.WriteHeader(http.StatusNoContent)
	}), mw1, nil, mw2)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if called != "12h" {
		t.Fatalf("call order = %q, want %q", called, "12h")
	}
}

func TestRequestIDAddsHeaderWhenMissing(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatal("expected request id on request")
	}
	if got := rr.Header().Get(RequestIDHeader); got != seen {
		t.Fatalf("response id = %q, want %q", got, seen)
	}
}

func TestRequestIDPreservesIncomingHeader(t *testing.T) {
	t.Parallel()

	h := RequestID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got != "rid-1" {
		t.Fatalf("response id = %q", got)
	}
}

func TestRecoverPanicWritesInternalError(t *testing.T) {
	var logs bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(prev) })

	h := RecoverPanic()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(logs.String(), "panic=boom") {
		t.Fatalf("expected panic log, got %q", logs.String())
	}
}

func TestWriteErrorMapsDomainClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.WithMetadata(apperrors.CodeScoreOutOfRange, "bad", map[string]string{"Criterion": "method"}), http.StatusBadRequest, "SCORE_OUT_OF_RANGE"},
		{apperrors.New(apperrors.CodeEvaluatorFinalized, "done"), http.StatusConflict, "EVALUATOR_FINALIZED"},
		{apperrors.New(apperrors.CodeAuthTokenMissing, "no token"), http.StatusUnauthorized, "AUTH_TOKEN_MISSING"},
		{apperrors.New(apperrors.CodeRemoteUnavailable, "down"), http.StatusBadGateway, "REMOTE_UNAVAILABLE"},
		{apperrors.New(apperrors.CodeNotFound, "gone"), http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		WriteError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		if rr.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.code, rr.Code, tt.status)
		}
		var body ErrorBody
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Code != tt.code {
			t.Errorf("code = %q, want %q", body.Code, tt.code)
		}
		if body.Error == "" || body.Error == tt.code {
			t.Errorf("%s: expected localized message, got %q", tt.code, body.Error)
		}
	}
}

func TestWriteErrorLocalizesFromAcceptLanguage(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "es-AR,es;q=0.9")
	rr := httptest.NewRecorder()
	WriteError(rr, req, apperrors.WithMetadata(apperrors.CodeScoreIncomplete, "missing", map[string]string{"Criterion": "impact"}))

	var body ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "Falta la puntuación de impact." {
		t.Fatalf("message = %q", body.Error)
	}
	if got := rr.Header().Get("Content-Language"); got != "es" {
		t.Fatalf("Content-Language = %q", got)
	}
}

func TestWriteErrorPlainErrorIsInternal(t *testing.T) {
	var logs bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(prev) })

	rr := httptest.NewRecorder()
	WriteError(rr, nil, errors.New("disk on fire"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "disk on fire") {
		t.Fatal("internal error text leaked to response")
	}
}

func TestLocalizedError(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Accept-Language", "es")
	body := LocalizedError(req, apperrors.New(apperrors.CodeRemoteUnavailable, "down"))
	if body.Code != string(apperrors.CodeRemoteUnavailable) || body.Error == "" || body.Error == "down" {
		t.Fatalf("body = %+v", body)
	}
	if plain := LocalizedError(nil, errors.New("disk on fire")); plain.Code != string(apperrors.CodeUnknown) {
		t.Fatalf("plain = %+v", plain)
	}
}

func TestDecodeJSONInvalidBody(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{nope"))
	var target map[string]any
	err := DecodeJSON(req, &target)
	if apperrors.CodeOf(err) != apperrors.CodeInvalidRequest {
		t.Fatalf("code = %q", apperrors.CodeOf(err))
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"":             "",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if got := BearerToken(req); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
