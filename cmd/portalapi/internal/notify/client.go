package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/apperr"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/validate"
)

// subscriptionKeyHeader authenticates every call; admin operations use the
// admin key, messages use the sending subscription's primary key.
const subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// Client is the contract of the notification API consumed by the portal.
//
// Errors carry an apperr kind: 404 is NotFound, 409 is Conflict, any other
// failure (including malformed or invalid responses) is Internal.
type Client interface {
	CreateOrUpdateProfile(ctx context.Context, fiscalCode string, profile Profile) (*Profile, error)
	GetService(ctx context.Context, serviceID string) (*Service, error)
	CreateService(ctx context.Context, service Service) (*Service, error)
	UpdateService(ctx context.Context, service Service) (*Service, error)
	SendMessage(ctx context.Context, subscriptionKey, fiscalCode string, msg Message) (*CreatedMessage, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL  string
	adminKey string
	http     *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for baseURL authenticated with adminKey.
func NewHTTPClient(baseURL, adminKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		adminKey: adminKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// CreateOrUpdateProfile creates the profile of fiscalCode.
func (c *HTTPClient) CreateOrUpdateProfile(ctx context.Context, fiscalCode string, profile Profile) (*Profile, error) {
	const op = "notify.CreateOrUpdateProfile"
	if !validate.IsFiscalCode(fiscalCode) {
		return nil, apperr.Errorf(apperr.KindValidation, op, "invalid fiscal code %q", fiscalCode)
	}
	var out Profile
	if err := c.call(ctx, op, http.MethodPost, "/adm/profiles/"+url.PathEscape(fiscalCode), c.adminKey, profile, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetService fetches a service by id.
func (c *HTTPClient) GetService(ctx context.Context, serviceID string) (*Service, error) {
	const op = "notify.GetService"
	var out Service
	if err := c.call(ctx, op, http.MethodGet, "/adm/services/"+url.PathEscape(serviceID), c.adminKey, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateService registers a new service.
func (c *HTTPClient) CreateService(ctx context.Context, service Service) (*Service, error) {
	const op = "notify.CreateService"
	if err := validate.Struct(service); err != nil {
		return nil, apperr.Validation(op, err)
	}
	var out Service
	if err := c.call(ctx, op, http.MethodPost, "/adm/services", c.adminKey, service, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateService replaces an existing service.
func (c *HTTPClient) UpdateService(ctx context.Context, service Service) (*Service, error) {
	const op = "notify.UpdateService"
	if err := validate.Struct(service); err != nil {
		return nil, apperr.Validation(op, err)
	}
	var out Service
	if err := c.call(ctx, op, http.MethodPut, "/adm/services/"+url.PathEscape(service.ServiceID), c.adminKey, service, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage sends msg to fiscalCode on behalf of the subscription owning subscriptionKey.
func (c *HTTPClient) SendMessage(ctx context.Context, subscriptionKey, fiscalCode string, msg Message) (*CreatedMessage, error) {
	const op = "notify.SendMessage"
	if !validate.IsFiscalCode(fiscalCode) {
		return nil, apperr.Errorf(apperr.KindValidation, op, "invalid fiscal code %q", fiscalCode)
	}
	if err := validate.Struct(msg); err != nil {
		return nil, apperr.Validation(op, err)
	}
	body := struct {
		Content Message `json:"content"`
	}{Content: msg}

	var out CreatedMessage
	if err := c.call(ctx, op, http.MethodPost, "/messages/"+url.PathEscape(fiscalCode), subscriptionKey, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call sends body as JSON, decodes the response into out and validates it.
func (c *HTTPClient) call(ctx context.Context, op, method, path, key string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return apperr.Internal(op, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperr.Internal(op, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set(subscriptionKeyHeader, key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Internal(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
		switch resp.StatusCode {
		case http.StatusNotFound:
			return apperr.NotFound(op, statusErr)
		case http.StatusConflict:
			return apperr.Conflict(op, statusErr)
		default:
			return apperr.Internal(op, statusErr)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Internal(op, fmt.Errorf("malformed response: %w", err))
	}
	if err := validate.Struct(out); err != nil {
		return apperr.Internal(op, fmt.Errorf("invalid response: %w", err))
	}
	return nil
}
