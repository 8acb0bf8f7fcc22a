// Package apiclient talks to the writing-assistant backend over its JSON envelope API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"plotline-cli/internal/logging"

	"go.uber.org/zap"
)

// DefaultTimeout is the maximum time to wait for a backend response.
const DefaultTimeout = 30 * time.Second

// TokenSource supplies the bearer credential for the current session.
type TokenSource interface {
	Token() string
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized func()
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedHandler registers the single hook invoked on every 401.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, logger *zap.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// The login flow is cookie based; the jar carries the session cookie to /api/user/token.
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &requestIDTransport{},
			Jar:       jar,
		},
		logger: logger.Named("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetTokenSource swaps the credential source after construction.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// SetUnauthorizedHandler swaps the 401 hook after construction.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) BaseURL() string { return c.baseURL.String() }

func (c *Client) Get(ctx context.Context, path string) (*Envelope, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

func (c *Client) Delete(ctx context.Context, path string) (*Envelope, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do sends a JSON request and returns the parsed envelope. A success:false
// envelope is returned without error; use Envelope.Err or Decode to check it.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Envelope, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, true)
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	u := *c.baseURL
	p := ref.Path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u.Path = strings.TrimRight(u.Path, "/") + p
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	endpoint, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()
	if ts != nil {
		if tok := strings.TrimSpace(ts.Token()); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

// send executes req. notify controls whether a 401 reaches the unauthorized hook.
func (c *Client) send(req *http.Request, notify bool) (*Envelope, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.String("error", logging.SanitizeError(err)))
		return nil, &TransportError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL.Redacted(), Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("request done",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.Any("headers", logging.SanitizeHeader(req.Header)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp.StatusCode, body, notify)
	}
	env, err := parseEnvelope(body)
	if err != nil {
		c.logger.Error("invalid envelope",
			zap.Int("status", resp.StatusCode),
			zap.String("body", logging.SanitizeBody(body)))
		return nil, err
	}
	return env, nil
}

func (c *Client) statusError(status int, body []byte, notify bool) error {
	se := &StatusError{Status: status}
	if env, err := parseEnvelope(body); err == nil {
		se.Message = env.Message
	}
	if status == http.StatusUnauthorized {
		c.logger.Info("session rejected by server", zap.Bool("notify", notify))
		if !notify {
			return se
		}
		c.mu.RLock()
		fn := c.onUnauthorized
		c.mu.RUnlock()
		if fn != nil {
			fn()
		}
		return se
	}
	c.logger.Warn("server returned error",
		zap.Int("status", status),
		zap.String("body", logging.SanitizeBody(body)))
	return se
}

// Download streams a raw (non-envelope) resource such as an exported file into w.
// Relative URLs resolve against the base URL.
func (c *Client) Download(ctx context.Context, fileURL string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "*/*")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &TransportError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, c.statusError(resp.StatusCode, body, true)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	return n, nil
}
