package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/convoy/logger"
	"github.com/kbukum/convoy/resilience"
)

const defaultTokenHeader = "PRIVATE-TOKEN"

// RetryObserver is notified on every retry attempt, for metric recording.
type RetryObserver func(ctx context.Context, operation string)

// Config configures the resilient client.
type Config struct {
	// BaseURL is prepended to all relative request paths.
	BaseURL string

	// Token authenticates against the pipeline host. Sent as an opaque
	// header value; empty disables auth.
	Token string

	// TokenHeader is the header name for Token. Defaults to PRIVATE-TOKEN.
	TokenHeader string

	// Timeout is the per-attempt request timeout. Defaults to 30s.
	Timeout time.Duration

	// Retry configures the fixed-delay retry policy.
	Retry resilience.RetryConfig

	// Logger receives warn-level retry events. Defaults to the global logger.
	Logger *logger.Logger

	// OnRetry, if set, is invoked once per retry attempt.
	OnRetry RetryObserver
}

// ApplyDefaults fills zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.TokenHeader == "" {
		c.TokenHeader = defaultTokenHeader
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Retry.MaxRetries <= 0 {
		c.Retry.MaxRetries = resilience.DefaultMaxRetries
	}
	if c.Retry.Delay <= 0 {
		c.Retry.Delay = resilience.DefaultRetryDelay
	}
	if c.Logger == nil {
		c.Logger = logger.GetGlobalLogger().WithComponent("transport")
	}
}

// Client is the resilient byte-level HTTP client.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a new resilient client with the given configuration.
func New(cfg Config) *Client {
	cfg.ApplyDefaults()
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}
}

// Get fetches the body at url, retrying transient failures.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, "")
}

// Put uploads body to url, retrying transient failures.
func (c *Client) Put(ctx context.Context, url string, body []byte) error {
	_, err := c.do(ctx, http.MethodPut, url, body, "application/octet-stream")
	return err
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, contentType string) ([]byte, error) {
	operation := method + " " + url

	cfg := c.config.Retry
	cfg.RetryIf = func(err error) bool {
		return resilience.DefaultRetryIf(err) && IsRetryable(err)
	}
	cfg.OnRetry = func(attempt int, err error) {
		c.config.Logger.Warn("retrying remote call", logger.Fields(
			logger.FieldAttempt, attempt,
			"operation", operation,
			logger.FieldError, err.Error(),
		))
		if c.config.OnRetry != nil {
			c.config.OnRetry(ctx, operation)
		}
	}

	return resilience.Retry(ctx, cfg, func() ([]byte, error) {
		return c.doOnce(ctx, method, url, body, contentType)
	})
}

func (c *Client) doOnce(ctx context.Context, method, url string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(url), reader)
	if err != nil {
		return nil, fmt.Errorf("transport: create request: %w", err)
	}
	if c.config.Token != "" {
		req.Header.Set(c.config.TokenHeader, c.config.Token)
	}
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			URL:        url,
			Body:       respBody,
		}
	}

	return respBody, nil
}

func (c *Client) resolveURL(url string) string {
	if c.config.BaseURL == "" || strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(url, "/")
}

// GetJSON fetches url and decodes the JSON response into type T.
func GetJSON[T any](c *Client, ctx context.Context, url string) (T, error) {
	var data T
	body, err := c.Get(ctx, url)
	if err != nil {
		return data, err
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return data, fmt.Errorf("transport: decode response from %s: %w", url, err)
	}
	return data, nil
}

// PutJSON uploads body as JSON to url and decodes the JSON response into
// type T.
func PutJSON[T any](c *Client, ctx context.Context, url string, body any) (T, error) {
	var data T
	payload, err := json.Marshal(body)
	if err != nil {
		return data, fmt.Errorf("transport: encode request for %s: %w", url, err)
	}
	respBody, err := c.do(ctx, http.MethodPut, url, payload, "application/json")
	if err != nil {
		return data, err
	}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &data); err != nil {
			return data, fmt.Errorf("transport: decode response from %s: %w", url, err)
		}
	}
	return data, nil
}
