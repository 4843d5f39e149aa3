// Package apim implements the control plane on the Azure API Management
// REST API (Microsoft.ApiManagement resource provider).
package apim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/cache"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/config"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
)

// CredentialSource supplies bearer credentials for the management API.
type CredentialSource interface {
	Get(ctx context.Context) (cache.Credential, error)
	Reset()
}

// Client talks to one API Management service instance.
type Client struct {
	http       *http.Client
	serviceURL string
	apiVersion string
	creds      CredentialSource
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ controlplane.Client = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New creates a client for the service identified by cfg.
func New(cfg config.ManagementConfig, creds CredentialSource, opts ...Option) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		http: &http.Client{Timeout: 30 * time.Second},
		serviceURL: fmt.Sprintf("%s/subscriptions/%s/resourceGroups/%s/providers/Microsoft.ApiManagement/service/%s",
			strings.TrimRight(cfg.BaseURL, "/"),
			url.PathEscape(cfg.SubscriptionID),
			url.PathEscape(cfg.ResourceGroup),
			url.PathEscape(cfg.ServiceName),
		),
		apiVersion: cfg.APIVersion,
		creds:      creds,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// statusError is a non-2xx management API response.
type statusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("apim %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *statusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return controlplane.ErrNotFound
	}
	return nil
}

// do performs one request. relPath is relative to the service URL unless it
// is an absolute nextLink. out may be nil.
func (c *Client) do(ctx context.Context, method, relPath string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("apim rate limit: %w", err)
	}

	cred, err := c.creds.Get(ctx)
	if err != nil {
		return err
	}

	target := relPath
	if !strings.HasPrefix(relPath, "http://") && !strings.HasPrefix(relPath, "https://") {
		if query == nil {
			query = url.Values{}
		}
		query.Set("api-version", c.apiVersion)
		target = c.serviceURL + relPath + "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, relPath, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, relPath, err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("apim %s %s: %w", method, relPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized {
			c.creds.Reset()
		}
		c.logger.DebugContext(ctx, "apim request failed", "method", method, "path", relPath, "status", resp.StatusCode)
		return &statusError{Method: method, Path: relPath, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, relPath, err)
	}
	return nil
}

// list follows nextLink pages and collects every item.
func list[T any](ctx context.Context, c *Client, relPath string, query url.Values) ([]T, error) {
	var items []T
	next := relPath
	for next != "" {
		var page collection[T]
		if err := c.do(ctx, http.MethodGet, next, query, nil, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Value...)
		next = page.NextLink
		query = nil
	}
	return items, nil
}

// lastSegment returns the resource name at the end of an ARM id such as
// "/subscriptions/x/.../users/{name}".
func lastSegment(id string) string {
	return path.Base(strings.TrimRight(id, "/"))
}

// odataQuote escapes a literal for an OData $filter expression.
func odataQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
