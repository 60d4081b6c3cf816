// Package httpx provides HTTP middleware and JSON response helpers.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
	"github.com/louisbranch/fairscore/internal/platform/errors/i18n"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

// MaxBodyBytes bounds decoded request bodies.
const MaxBodyBytes = 4 << 20

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Chain applies middleware in declaration order.
func Chain(handler http.Handler, middleware ...Middleware) http.Handler {
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	wrapped := handler
	for idx := len(middleware) - 1; idx >= 0; idx-- {
		if middleware[idx] == nil {
			continue
		}
		wrapped = middleware[idx](wrapped)
	}
	return wrapped
}

// RequestID injects and echoes a request id for correlation.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if requestID == "" {
				requestID = uuid.NewString()
				r.Header.Set(RequestIDHeader, requestID)
			}
			w.Header().Set(RequestIDHeader, requestID)
			next.ServeHTTP(w, r)
		})
	}
}

// RecoverPanic converts panics into HTTP 500 responses.
func RecoverPanic() Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					requestID := "-"
					if rid := strings.TrimSpace(r.Header.Get(RequestIDHeader)); rid != "" {
						requestID = rid
					}
					log.Printf(
						"panic recovered method=%s path=%s request_id=%s panic=%v stack=%s",
						r.Method,
						r.URL.Path,
						requestID,
						recovered,
						strings.TrimSpace(string(debug.Stack())),
					)
					WriteError(w, r, apperrors.New(apperrors.CodeUnknown, "panic"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteJSON writes a JSON response with the provided status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return fmt.Errorf("response writer is required")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// WriteError renders err as a localized ErrorBody. Domain errors use their
// class status; anything else is a 500 and is logged.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if w == nil {
		return
	}
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	status, body, locale := describe(r, err)
	if status >= http.StatusInternalServerError {
		log.Printf("request failed code=%s err=%v", body.Code, err)
	}
	w.Header().Set("Content-Language", locale)
	_ = WriteJSON(w, status, body)
}

// LocalizedError returns the ErrorBody WriteError would render for err.
func LocalizedError(r *http.Request, err error) ErrorBody {
	_, body, _ := describe(r, err)
	return body
}

func describe(r *http.Request, err error) (int, ErrorBody, string) {
	locale := i18n.BaseLocale
	if r != nil {
		locale = i18n.MatchAcceptLanguage(r.Header.Get("Accept-Language"))
	}
	catalog := i18n.GetCatalog(locale)

	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, ErrorBody{
			Error: catalog.Format(string(apperrors.CodeUnknown), nil),
			Code:  string(apperrors.CodeUnknown),
		}, catalog.Locale()
	}
	return domainErr.Code.HTTPStatus(), ErrorBody{
		Error: catalog.Format(string(domainErr.Code), domainErr.Metadata),
		Code:  string(domainErr.Code),
	}, catalog.Locale()
}

// DecodeJSON reads a bounded JSON body into target. Unknown fields are
// allowed so older clients keep working.
func DecodeJSON(r *http.Request, target any) error {
	if r == nil || r.Body == nil {
		return apperrors.New(apperrors.CodeInvalidRequest, "request body is required")
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidRequest, "decode request body", err)
	}
	return nil
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequestContext returns r.Context() with a nil-safe fallback to context.Background().
func RequestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}
