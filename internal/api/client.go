// Package api is the HTTP client for the remote habit service.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/julianstephens/habitrack/internal/constants"
	"github.com/julianstephens/habitrack/internal/logger"
	"github.com/julianstephens/habitrack/internal/models"
	"github.com/julianstephens/habitrack/internal/session"
)

// MaxResponseSize bounds response body reads. Habit service payloads are
// small; anything larger is a misbehaving server.
const MaxResponseSize int64 = 8 << 20

// Options configures a Client.
type Options struct {
	BaseURL   string
	HealthURL string
	Timeout   time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the habit service. Every method is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	healthURL string
	http      *http.Client
	session   *session.Session
}

// New builds a Client. sess may be nil for unauthenticated use.
func New(opts Options, sess *session.Session) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = constants.DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", base)
	}

	health := opts.HealthURL
	if health == "" {
		health = constants.DefaultHealthURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = constants.DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:   u,
		healthURL: health,
		http:      httpClient,
		session:   sess,
	}, nil
}

// BaseURL returns the API prefix requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL.String() }

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// anonymous requests carry no token and a 401 does not expire the session.
	anonymous bool
}

// do sends req and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	u := *c.baseURL
	u.Path = u.Path + req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := sonic.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", req.method, req.path, err)
	}
	requestID := uuid.NewString()
	log := logger.With("method", req.method, "path", req.path, "request_id", requestID)
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if !req.anonymous && c.session != nil {
		if token := c.session.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		kind := classifyTransport(err)
		log.Debug("API request failed", "kind", kind, "error", err)
		return &TransportError{Kind: kind, BaseURL: c.baseURL.String(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("reading %s %s response: %w", req.method, req.path, err)
	}
	log.Debug("API request", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     req.method,
			Path:       req.path,
		}
		var envelope models.ErrorResponse
		if len(data) > 0 && sonic.Unmarshal(data, &envelope) == nil {
			apiErr.Message = envelope.Message
		}
		if resp.StatusCode == http.StatusUnauthorized && !req.anonymous && c.session != nil {
			log.Warn("Session rejected by server")
			c.session.Expire()
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", req.method, req.path, err)
	}
	return nil
}
