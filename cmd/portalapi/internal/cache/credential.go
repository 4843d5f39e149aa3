package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/telemetry"
)

const (
	// DefaultCredentialTTL is the lifetime assigned to every obtained credential.
	DefaultCredentialTTL = time.Hour
	// DefaultCredentialMargin is how early a credential is refreshed before expiry.
	DefaultCredentialMargin = time.Minute
)

// Credential is an access token for the management control plane.
type Credential struct {
	AccessToken string
	ExpiresAt   time.Time
}

// LoginFunc performs one login exchange against the identity backend and
// returns a raw access token.
type LoginFunc func(ctx context.Context) (string, error)

// CredentialCache holds the last obtained management credential and refreshes
// it lazily.
//
// The held credential is replaced once now+margin reaches its expiry. Expiry is
// always now+ttl at exchange time; any exp claim inside the token is ignored.
//
// The lock guards only the held value. Concurrent callers that observe a
// stale credential each perform their own exchange and the last writer wins.
type CredentialCache struct {
	login   LoginFunc
	ttl     time.Duration
	margin  time.Duration
	now     func() time.Time
	metrics *telemetry.CredentialMetrics
	logger  *slog.Logger

	mu   sync.RWMutex
	held *Credential
}

// CredentialOption customizes a CredentialCache.
type CredentialOption func(*CredentialCache)

// WithTTL overrides the fixed credential lifetime.
func WithTTL(ttl time.Duration) CredentialOption {
	return func(c *CredentialCache) { c.ttl = ttl }
}

// WithMargin overrides the refresh safety margin.
func WithMargin(margin time.Duration) CredentialOption {
	return func(c *CredentialCache) { c.margin = margin }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) CredentialOption {
	return func(c *CredentialCache) { c.now = now }
}

// WithCredentialMetrics records login exchanges.
func WithCredentialMetrics(m *telemetry.CredentialMetrics) CredentialOption {
	return func(c *CredentialCache) { c.metrics = m }
}

// WithLogger sets the logger used for exchange diagnostics.
func WithLogger(logger *slog.Logger) CredentialOption {
	return func(c *CredentialCache) { c.logger = logger }
}

// NewCredentialCache creates an empty cache around login.
func NewCredentialCache(login LoginFunc, opts ...CredentialOption) *CredentialCache {
	c := &CredentialCache{
		login:  login,
		ttl:    DefaultCredentialTTL,
		margin: DefaultCredentialMargin,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a credential that is valid for at least the safety margin,
// performing a login exchange when needed.
func (c *CredentialCache) Get(ctx context.Context) (Credential, error) {
	c.mu.RLock()
	held := c.held
	c.mu.RUnlock()

	if held != nil && c.now().Add(c.margin).Before(held.ExpiresAt) {
		return *held, nil
	}

	token, err := c.login(ctx)
	c.metrics.Exchange(err)
	if err != nil {
		return Credential{}, fmt.Errorf("management login: %w", err)
	}

	fresh := &Credential{AccessToken: token, ExpiresAt: c.now().Add(c.ttl)}
	c.logEmbeddedExpiry(ctx, token, fresh.ExpiresAt)

	c.mu.Lock()
	c.held = fresh
	c.mu.Unlock()

	return *fresh, nil
}

// Reset drops the held credential so the next Get performs an exchange.
func (c *CredentialCache) Reset() {
	c.mu.Lock()
	c.held = nil
	c.mu.Unlock()
}

// logEmbeddedExpiry reports the token's own exp claim next to the enforced
// expiry. The claim is informational only.
func (c *CredentialCache) logEmbeddedExpiry(ctx context.Context, token string, enforced time.Time) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	c.logger.DebugContext(ctx, "management credential refreshed",
		"enforced_expiry", enforced.Format(time.RFC3339),
		"token_exp_claim", exp.Time.Format(time.RFC3339),
	)
}

// ClientCredentialsLogin returns a LoginFunc performing the OAuth2 client
// credentials grant against tokenURL.
func ClientCredentialsLogin(clientID, clientSecret, tokenURL string, scopes ...string) LoginFunc {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	return func(ctx context.Context) (string, error) {
		tok, err := cfg.Token(ctx)
		if err != nil {
			return "", err
		}
		return tok.AccessToken, nil
	}
}
