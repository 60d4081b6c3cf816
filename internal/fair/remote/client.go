// Package remote talks to the remote system of record over its JSON-over-HTTP
// contract: GET ?action=getData and POST {type: adminLogin|bulk|result}.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/louisbranch/fairscore/internal/fair/store"
	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
	"github.com/louisbranch/fairscore/internal/platform/timeouts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxResponseBytes = 16 << 20

var tracer = otel.Tracer("github.com/louisbranch/fairscore/internal/fair/remote")

// Config configures the remote client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	http    *http.Client
}

// NewClient builds a client. An empty BaseURL yields a client whose calls
// fail with REMOTE_NOT_CONFIGURED until SetBaseURL is called.
func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: timeouts.RemoteRequest}
	}
	return &Client{baseURL: strings.TrimSpace(cfg.BaseURL), http: cfg.HTTPClient}
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL changes the endpoint.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimSpace(baseURL)
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool {
	return c.BaseURL() != ""
}

func (c *Client) endpoint() (string, error) {
	base := c.BaseURL()
	if base == "" {
		return "", apperrors.New(apperrors.CodeRemoteNotConfigured, "remote url not configured")
	}
	return base, nil
}

// GetData fetches the full dataset.
func (c *Client) GetData(ctx context.Context) (Dataset, error) {
	ctx, span := tracer.Start(ctx, "remote.GetData", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	base, err := c.endpoint()
	if err != nil {
		return Dataset{}, endSpan(span, err)
	}
	u, err := url.Parse(base)
	if err != nil {
		return Dataset{}, endSpan(span, apperrors.Wrap(apperrors.CodeRemoteNotConfigured, "parse remote url", err))
	}
	q := u.Query()
	q.Set("action", ActionGetData)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Dataset{}, endSpan(span, fmt.Errorf("build getData request: %w", err))
	}
	var data Dataset
	if err := c.do(req, &data); err != nil {
		return Dataset{}, endSpan(span, err)
	}
	span.SetAttributes(
		attribute.Int("fairscore.remote.projects", len(data.Projects)),
		attribute.Int("fairscore.remote.results", len(data.Results)),
	)
	return data, nil
}

// AdminLogin exchanges the admin password for a session token.
func (c *Client) AdminLogin(ctx context.Context, password string) (string, error) {
	resp, err := c.post(ctx, Request{Type: TypeAdminLogin, Password: password})
	if err != nil {
		return "", err
	}
	if !resp.OK {
		return "", apperrors.WithMetadata(apperrors.CodeAuthInvalidCredentials,
			"remote admin login rejected: "+resp.Error,
			map[string]string{"Reason": resp.Error})
	}
	if strings.TrimSpace(resp.Token) == "" {
		return "", apperrors.New(apperrors.CodeRemoteUnavailable, "remote admin login returned no token")
	}
	return resp.Token, nil
}

// PushBulk replaces the remote dataset with snap.
func (c *Client) PushBulk(ctx context.Context, token string, snap store.Snapshot) error {
	dataset, err := DatasetFrom(snap)
	if err != nil {
		return err
	}
	data, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("encode bulk data: %w", err)
	}
	resp, err := c.post(ctx, Request{Type: TypeBulk, Token: token, Data: data})
	if err != nil {
		return err
	}
	return rejection(resp)
}

// PushResult upserts one result remotely.
func (c *Client) PushResult(ctx context.Context, result store.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	resp, err := c.post(ctx, Request{Type: TypeResult, Data: data})
	if err != nil {
		return err
	}
	return rejection(resp)
}

func rejection(resp Response) error {
	if resp.OK {
		return nil
	}
	if resp.Error == ErrInvalidToken {
		return apperrors.New(apperrors.CodeAuthTokenInvalid, "remote rejected admin token")
	}
	reason := resp.Error
	if reason == "" {
		reason = "unknown error"
	}
	return apperrors.WithMetadata(apperrors.CodeRemoteRejected,
		"remote rejected request: "+reason,
		map[string]string{"Reason": reason})
}

func (c *Client) post(ctx context.Context, body Request) (Response, error) {
	ctx, span := tracer.Start(ctx, "remote."+body.Type,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("fairscore.remote.type", body.Type)),
	)
	defer span.End()

	base, err := c.endpoint()
	if err != nil {
		return Response{}, endSpan(span, err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, endSpan(span, fmt.Errorf("encode %s request: %w", body.Type, err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base, bytes.NewReader(payload))
	if err != nil {
		return Response{}, endSpan(span, fmt.Errorf("build %s request: %w", body.Type, err))
	}
	req.Header.Set("Content-Type", "application/json")

	var resp Response
	if err := c.do(req, &resp); err != nil {
		return Response{}, endSpan(span, err)
	}
	span.SetAttributes(attribute.Bool("fairscore.remote.ok", resp.OK))
	return resp, nil
}

// do sends req and decodes a JSON body into target. Transport failures,
// non-2xx statuses and non-JSON bodies are all REMOTE_UNAVAILABLE.
func (c *Client) do(req *http.Request, target any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteUnavailable, "remote request failed", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return apperrors.WithMetadata(apperrors.CodeRemoteUnavailable,
			fmt.Sprintf("remote status %d: %s", res.StatusCode, strings.TrimSpace(string(body))),
			map[string]string{"Status": fmt.Sprint(res.StatusCode)})
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteUnavailable, "read remote response", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteUnavailable, "invalid JSON from remote", err)
	}
	return nil
}

func endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
