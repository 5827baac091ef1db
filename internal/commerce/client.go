// Package commerce is the request/response boundary to the remote commerce
// API. Every response is decoded from the {success, data, message} envelope;
// a success:false envelope becomes a *domain.DomainError and anything below
// the envelope becomes a *domain.TransportError.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 4 << 20
)

// UnauthorizedHook runs when a bearer-authenticated request comes back 401.
// credential is the token that was rejected.
type UnauthorizedHook func(ctx context.Context, credential string)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the tuned default client. Its Timeout is left
	// untouched when set.
	HTTPClient *http.Client
	Logger     *slog.Logger

	// BreakerFailures is the number of consecutive transport failures that
	// opens the circuit. Zero means 5; negative disables the breaker.
	BreakerFailures int
}

// Client talks to the commerce API.
type Client struct {
	baseURL string
	http    *http.Client
	breaker circuitbreaker.CircuitBreaker[*rawResponse]
	logger  *slog.Logger

	mu    sync.RWMutex
	hooks []UnauthorizedHook
}

type rawResponse struct {
	status int
	body   []byte
}

var errServerStatus = errors.New("server error status")

// New builds a Client from cfg.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(timeout)
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
	if cfg.BreakerFailures >= 0 {
		c.breaker = newBreaker(cfg.BreakerFailures, logger)
	}
	return c
}

// OnUnauthorized registers a hook for rejected credentials.
func (c *Client) OnUnauthorized(h UnauthorizedHook) {
	c.mu.Lock()
	c.hooks = append(c.hooks, h)
	c.mu.Unlock()
}

// Do sends one request. body, when non-nil, is encoded as JSON. credential,
// when non-empty, is sent as a bearer token. On success the envelope data
// is decoded into out (which may be nil).
func (c *Client) Do(ctx context.Context, method, path string, body any, credential string, out any) error {
	op := method + " " + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
	}

	requestID := uuid.NewString()
	started := time.Now()

	send := func(ctx context.Context) (*rawResponse, error) {
		raw, err := c.roundTrip(ctx, method, path, payload, credential, requestID)
		if err != nil {
			return nil, err
		}
		if raw.status >= http.StatusInternalServerError {
			return raw, errServerStatus
		}
		return raw, nil
	}

	var (
		raw *rawResponse
		err error
	)
	if c.breaker != nil {
		var got *rawResponse
		_, err = c.breaker.Execute(ctx, func(ctx context.Context) (*rawResponse, error) {
			r, err := send(ctx)
			got = r
			return r, err
		})
		raw = got
	} else {
		raw, err = send(ctx)
	}

	if raw == nil {
		if err == nil {
			err = errors.New("empty response")
		}
		c.logger.WarnContext(ctx, "commerce request failed",
			"op", op, "request_id", requestID, "duration", time.Since(started), "error", err)
		return &domain.TransportError{Op: op, Err: err}
	}

	c.logger.DebugContext(ctx, "commerce request",
		"op", op, "status", raw.status, "request_id", requestID, "duration", time.Since(started))

	return c.decode(ctx, op, credential, raw, out)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, credential, requestID string) (*rawResponse, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &rawResponse{status: resp.StatusCode, body: data}, nil
}

func (c *Client) decode(ctx context.Context, op, credential string, raw *rawResponse, out any) error {
	var env domain.Envelope[json.RawMessage]
	envErr := json.Unmarshal(raw.body, &env)

	if raw.status < 200 || raw.status > 299 {
		if raw.status == http.StatusUnauthorized && credential != "" {
			c.unauthorized(ctx, credential)
		}
		// A 4xx other than 401 carrying a failure envelope is an application
		// rejection. Everything else is transport.
		if raw.status != http.StatusUnauthorized && raw.status < http.StatusInternalServerError &&
			envErr == nil && !env.Success && env.Message != "" {
			return &domain.DomainError{Status: raw.status, Message: env.Message}
		}
		te := &domain.TransportError{Op: op, Status: raw.status}
		if envErr == nil {
			te.Message = env.Message
		}
		return te
	}

	if len(bytes.TrimSpace(raw.body)) == 0 {
		if out == nil {
			return nil
		}
		return &domain.TransportError{Op: op, Status: raw.status, Message: "empty response body"}
	}
	if envErr != nil {
		return &domain.TransportError{Op: op, Status: raw.status, Err: fmt.Errorf("decode envelope: %w", envErr)}
	}
	if !env.Success {
		return &domain.DomainError{Status: raw.status, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &domain.TransportError{Op: op, Status: raw.status, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func (c *Client) unauthorized(ctx context.Context, credential string) {
	c.mu.RLock()
	hooks := make([]UnauthorizedHook, len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.RUnlock()

	for _, h := range hooks {
		h(ctx, credential)
	}
}
