package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaypoint/relaypoint.go/pkg/models"
)

// HTTP is the REST transport. It is safe for concurrent use; the token and
// scope installed by SetToken/UseScope apply to calls issued afterwards.
type HTTP struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	mu    sync.RWMutex
	token string
	scope models.Scope
}

// HTTPOption configures the HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.httpClient = c }
}

// WithHTTPLogger sets the logger used for wire-level debug output.
func WithHTTPLogger(log zerolog.Logger) HTTPOption {
	return func(h *HTTP) { h.log = log }
}

// NewHTTP creates the REST transport. baseURL includes protocol and host
// without a trailing slash.
func NewHTTP(baseURL string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) SetToken(token string) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}

func (h *HTTP) UseScope(scope models.Scope) {
	h.mu.Lock()
	h.scope = scope
	h.mu.Unlock()
}

func (h *HTTP) Close() error { return nil }

// serviceError is the error body the service returns for non-2xx replies.
type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *HTTP) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	var bodyReader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		bodyReader = bytes.NewReader(body)
	}

	u := h.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	h.mu.RLock()
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	if !h.scope.IsZero() {
		req.Header.Set("X-Relaypoint-Org", h.scope.Org.String())
		req.Header.Set("X-Relaypoint-Space", h.scope.Space.String())
	}
	h.mu.RUnlock()

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	h.log.Debug().Str("op", op).Str("method", method).Str("path", path).
		Int("status", resp.StatusCode).Msg("relaypoint call")

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		var se serviceError
		if json.Unmarshal(raw, &se) != nil || se.Message == "" {
			se.Message = string(raw)
		}
		return statusError(op, resp.StatusCode, se.Code, se.Message)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransientError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func (h *HTTP) Fetch(ctx context.Context, path string, query url.Values, out any) error {
	return h.do(ctx, "fetch "+path, http.MethodGet, path, query, nil, out)
}

func (h *HTTP) Create(ctx context.Context, path string, in, out any) error {
	return h.do(ctx, "create "+path, http.MethodPost, path, nil, in, out)
}

func (h *HTTP) Update(ctx context.Context, path string, in, out any) error {
	return h.do(ctx, "update "+path, http.MethodPatch, path, nil, in, out)
}

func (h *HTTP) Delete(ctx context.Context, path string) error {
	return h.do(ctx, "delete "+path, http.MethodDelete, path, nil, nil, nil)
}

func (h *HTTP) Call(ctx context.Context, proc string, params, out any) error {
	return h.do(ctx, "call "+proc, http.MethodPost, "/rpc/"+proc, nil, params, out)
}
