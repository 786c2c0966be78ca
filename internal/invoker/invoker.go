// Package invoker calls actions on other internal services.
//
// A call is "safe": any HTTP status is returned to the caller as a Response and
// only transport-level failures (connection refused, timeout, undecodable
// success body) come back as errors. Deciding what a non-2xx status means is left to
// the caller.
package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Header names used to forward the caller identity.
const (
	HeaderClientCode    = "X-Client-Code"
	HeaderCallerService = "X-Caller-Service"
)

// DefaultTimeout bounds a single service call when none is configured.
const DefaultTimeout = 30 * time.Second

// Caller identifies on whose behalf a call is made.
type Caller struct {
	ClientCode  string
	ServiceName string
}

type callerKey struct{}

// WithCaller stores the caller identity in ctx.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the identity stored by WithCaller.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// Response is the raw outcome of a service call.
type Response struct {
	StatusCode int
	Payload    json.RawMessage
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Empty reports a missing, null or {} payload.
func (r *Response) Empty() bool {
	if r == nil {
		return true
	}
	p := strings.TrimSpace(string(r.Payload))
	return p == "" || p == "null" || p == "{}" || p == "[]"
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (r *Response) Decode(v any) error {
	if r.Empty() {
		return nil
	}
	return json.Unmarshal(r.Payload, v)
}

// Invoker calls an action exposed by another service.
type Invoker interface {
	Call(ctx context.Context, service, action string, payload any) (*Response, error)
}

// HTTPInvoker implements Invoker over plain HTTP:
// POST {baseURL}/{service}/{action} with the JSON payload as body.
type HTTPInvoker struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPInvoker creates an invoker for the given gateway base URL.
func NewHTTPInvoker(baseURL string, timeout time.Duration, logger *slog.Logger) (*HTTPInvoker, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("invoker base URL is empty")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPInvoker{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "invoker")),
	}, nil
}

// Call implements Invoker.
func (i *HTTPInvoker) Call(ctx context.Context, service, action string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s.%s payload: %w", service, action, err)
	}

	reqURL := fmt.Sprintf("%s/%s/%s", i.baseURL, service, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s.%s request: %w", service, action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if caller, ok := CallerFromContext(ctx); ok {
		req.Header.Set(HeaderClientCode, caller.ClientCode)
		req.Header.Set(HeaderCallerService, caller.ServiceName)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", service, action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s.%s response: %w", service, action, err)
	}
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw) {
		if ok {
			return nil, fmt.Errorf("%s.%s returned a non-JSON body (status %d)", service, action, resp.StatusCode)
		}
		// Gateways answer errors with HTML; the status alone is kept
		raw = nil
	}

	if resp.StatusCode >= 400 {
		i.logger.Warn("service call returned an error status",
			slog.String("service", service),
			slog.String("action", action),
			slog.Int("status", resp.StatusCode),
		)
	}

	return &Response{StatusCode: resp.StatusCode, Payload: raw}, nil
}
