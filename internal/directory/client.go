// Package directory talks to the partner directory that lists test centers per tenant.
package directory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/allisson/archivist/internal/errors"
)

// ErrEntriesNotFound indicates the directory holds no entries for the tenant.
var ErrEntriesNotFound = apperrors.Wrap(apperrors.ErrNotFound, "directory entries not found")

// Remover removes every directory entry owned by a tenant.
type Remover interface {
	RemoveEntriesForTenant(ctx context.Context, tenantID string) error
}

// Config configures the directory client.
type Config struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
}

// Client is an HTTP client for the directory service. Requests are throttled by a
// token bucket shared across all callers.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient validates cfg and creates a Client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: directory base url is required", apperrors.ErrInvalidInput)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid directory base url: %v", apperrors.ErrInvalidInput, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		logger:     logger,
	}, nil
}

// RemoveEntriesForTenant issues DELETE {base}/tenants/{tenantID}/entries.
// A 404 response yields ErrEntriesNotFound.
func (c *Client) RemoveEntriesForTenant(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id is required", apperrors.ErrInvalidInput)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("directory rate limit: %w", err)
	}

	endpoint := c.baseURL.JoinPath("tenants", tenantID, "entries")
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build directory request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrUnavailable, "directory request failed: %v", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrEntriesNotFound
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.logger.Debug("directory entries removed",
			slog.String("tenant_id", tenantID),
			slog.Int("status", resp.StatusCode),
		)
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.Wrapf(apperrors.ErrUnavailable, "directory responded with status %d", resp.StatusCode)
	default:
		return fmt.Errorf("directory responded with status %d", resp.StatusCode)
	}
}
