// Package apiclient reads log sheets and works from the licensing REST API.
//
// Every request waits on a token-bucket limiter, carries the configured
// bearer token, and is retried with exponential backoff on network errors,
// 5xx and 429 responses.
//
// Example usage:
//
//	client, err := apiclient.New(apiclient.Config{
//	    BaseURL: "https://licensing.example.org",
//	    Token:   os.Getenv("ROYALTY_MONITOR_API_TOKEN"),
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sheets, err := client.AllLogSheets(ctx)
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/0xmhha/royalty-monitor/pkg/logger"
	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
)

// API paths.
const (
	PathAdminLogSheets   = "/api/admin/logsheets"
	PathCompanyLogSheets = "/api/company/logsheets"
	PathArtistMusic      = "/api/artist/music"
	PathAdminMusic       = "/api/admin/music"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 4 * 1024

// Config contains API client configuration.
type Config struct {
	// BaseURL is the API root, e.g. https://licensing.example.org.
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// Timeout bounds each HTTP attempt.
	// Default: 30s.
	Timeout time.Duration

	// RequestsPerSecond is the sustained request rate.
	// Default: 5.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once.
	// Default: 5.
	Burst int

	// MaxRetries is the number of retries after the first attempt.
	// Default: 3. Negative disables retries.
	MaxRetries int

	// RetryDelay is the first backoff delay; it doubles per attempt.
	// Default: 500ms.
	RetryDelay time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client is a rate-limited API client. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	config  Config
	http    *http.Client
	limiter *rate.Limiter
	logger  logger.Logger
}

// New creates a Client.
func New(cfg Config, log logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNoBaseURL
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme %q", base.Scheme)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL: base,
		config:  cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  log,
	}, nil
}

// AllLogSheets returns every log sheet (admin).
func (c *Client) AllLogSheets(ctx context.Context) ([]logsheet.UsageRecord, error) {
	var sheets []logsheet.UsageRecord
	if err := c.get(ctx, PathAdminLogSheets, &sheets); err != nil {
		return nil, err
	}
	return nonNil(sheets), nil
}

// LogSheet returns a single log sheet (admin).
func (c *Client) LogSheet(ctx context.Context, id int64) (*logsheet.UsageRecord, error) {
	var sheet logsheet.UsageRecord
	if err := c.get(ctx, PathAdminLogSheets+"/"+strconv.FormatInt(id, 10), &sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// CompanyLogSheets returns the log sheets visible to a company or artist.
func (c *Client) CompanyLogSheets(ctx context.Context) ([]logsheet.UsageRecord, error) {
	var sheets []logsheet.UsageRecord
	if err := c.get(ctx, PathCompanyLogSheets, &sheets); err != nil {
		return nil, err
	}
	return nonNil(sheets), nil
}

// MyMusic returns the authenticated artist's works.
func (c *Client) MyMusic(ctx context.Context) ([]logsheet.Work, error) {
	var works []logsheet.Work
	if err := c.get(ctx, PathArtistMusic, &works); err != nil {
		return nil, err
	}
	return nonNil(works), nil
}

// AllMusic returns every uploaded work (admin).
func (c *Client) AllMusic(ctx context.Context) ([]logsheet.Work, error) {
	var works []logsheet.Work
	if err := c.get(ctx, PathAdminMusic, &works); err != nil {
		return nil, err
	}
	return nonNil(works), nil
}

// get performs a GET with retries and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoffMultiplier := 1 << (attempt - 1) // nolint:gosec // Attempt is bounded by MaxRetries
			delay := c.config.RetryDelay * time.Duration(backoffMultiplier)
			c.logger.Debug("retrying request",
				"path", path,
				"attempt", attempt,
				"delay", delay)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.do(ctx, path, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isRetryable(err) {
			return err
		}

		c.logger.Warn("request attempt failed",
			"path", path,
			"attempt", attempt,
			"error", err)
	}

	return fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String()+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	c.logger.Debug("api request",
		"method", req.Method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(started))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: GET %s", ErrUnauthorized, path)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: GET %s", ErrNotFound, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &StatusError{
			Method:     req.Method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return nil
}

// transportError marks network failures as retryable.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var transport *transportError
	if errors.As(err, &transport) {
		return true
	}

	var status *StatusError
	if errors.As(err, &status) {
		return status.Temporary()
	}

	return false
}

// errorMessage extracts {"message": "..."} from an error body, falling back
// to the trimmed body text.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	return strings.TrimSpace(string(data))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
