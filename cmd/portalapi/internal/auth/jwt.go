package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xenitab/go-oidc-middleware/oidctoken"
	"github.com/xenitab/go-oidc-middleware/options"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/config"
)

// ErrAuthDisabled is returned by NewTokenParser when no verification mode is configured.
var ErrAuthDisabled = errors.New("token verification disabled")

// Skipper defines a function to skip authentication for matching requests.
type Skipper func(*http.Request) bool

// ErrorResponder writes authentication failures to the response writer.
type ErrorResponder func(http.ResponseWriter, *http.Request, error)

// TokenParser verifies a raw bearer token and returns its claims.
type TokenParser interface {
	ParseToken(ctx context.Context, token string) (map[string]any, error)
}

type verifierOptions struct {
	skipper        Skipper
	errorResponder ErrorResponder
	tokenStrings   [][]options.TokenStringOption
}

// VerifierOption customises the behaviour of the verifier middleware.
type VerifierOption func(*verifierOptions)

// WithSkipper overrides the default skipper used by the verifier.
func WithSkipper(skipper Skipper) VerifierOption {
	return func(o *verifierOptions) {
		if skipper != nil {
			o.skipper = skipper
		}
	}
}

// WithErrorResponder overrides the default error responder used by the verifier.
func WithErrorResponder(responder ErrorResponder) VerifierOption {
	return func(o *verifierOptions) {
		if responder != nil {
			o.errorResponder = responder
		}
	}
}

// WithTokenString configures an alternate header and prefix that should be treated as a bearer token.
func WithTokenString(header, prefix string) VerifierOption {
	tokenPrefix := prefix
	if tokenPrefix == "" {
		tokenPrefix = "Bearer "
	}
	return func(o *verifierOptions) {
		o.tokenStrings = append(o.tokenStrings, []options.TokenStringOption{
			options.WithTokenStringHeaderName(header),
			options.WithTokenStringTokenPrefix(tokenPrefix),
		})
	}
}

// NewTokenParser selects the verification mode from cfg:
//   - Issuer set: JWKS-backed verification through go-oidc-middleware
//   - SharedSecret set: HS256 verification through golang-jwt
//
// It returns ErrAuthDisabled when neither is configured.
func NewTokenParser(cfg config.OIDCConfig) (TokenParser, error) {
	switch {
	case cfg.Issuer != "":
		if cfg.ClientID == "" {
			return nil, errors.New("oidc client id is required")
		}
		handler, err := oidctoken.New[map[string]any](nil,
			options.WithIssuer(cfg.Issuer),
			options.WithRequiredAudience(cfg.ClientID),
			options.WithLazyLoadJwks(true),
		)
		if err != nil {
			return nil, fmt.Errorf("initialise oidc token handler: %w", err)
		}
		return handler, nil
	case cfg.SharedSecret != "":
		return NewSharedSecretParser([]byte(cfg.SharedSecret), cfg.ClientID), nil
	default:
		return nil, ErrAuthDisabled
	}
}

// SharedSecretParser verifies HS256 tokens signed with a shared secret.
type SharedSecretParser struct {
	secret   []byte
	audience string
}

// NewSharedSecretParser creates a parser; an empty audience disables the aud check.
func NewSharedSecretParser(secret []byte, audience string) *SharedSecretParser {
	return &SharedSecretParser{secret: secret, audience: audience}
}

// ParseToken implements TokenParser.
func (p *SharedSecretParser) ParseToken(_ context.Context, token string) (map[string]any, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...); err != nil {
		return nil, err
	}
	return map[string]any(claims), nil
}

// NewVerifier constructs a chi-compatible middleware that verifies bearer
// tokens and stores the resulting Identity on the request context.
//
// When no verification mode is configured every request is rejected except
// those matched by the skipper.
func NewVerifier(cfg config.OIDCConfig, opts ...VerifierOption) (func(http.Handler) http.Handler, error) {
	parser, err := NewTokenParser(cfg)
	if err != nil && !errors.Is(err, ErrAuthDisabled) {
		return nil, err
	}
	return newVerifier(parser, cfg, opts...), nil
}

func newVerifier(parser TokenParser, cfg config.OIDCConfig, opts ...VerifierOption) func(http.Handler) http.Handler {
	vOpts := verifierOptions{
		skipper:        defaultSkipper,
		errorResponder: defaultErrorResponder,
	}
	for _, opt := range opts {
		opt(&vOpts)
	}

	tokenStrings := make([][]options.TokenStringOption, 0, len(vOpts.tokenStrings)+1)
	tokenStrings = append(tokenStrings, vOpts.tokenStrings...)
	tokenStrings = append(tokenStrings, []options.TokenStringOption{}) // Default: Authorization header.

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if vOpts.skipper != nil && vOpts.skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			if parser == nil {
				vOpts.errorResponder(w, r, ErrAuthDisabled)
				return
			}

			token, err := oidctoken.GetTokenString(r.Header.Get, tokenStrings)
			if err != nil || token == "" {
				vOpts.errorResponder(w, r, fmt.Errorf("unable to extract bearer token: %w", err))
				return
			}

			claims, err := parser.ParseToken(r.Context(), strings.TrimSpace(token))
			if err != nil {
				vOpts.errorResponder(w, r, fmt.Errorf("invalid token: %w", err))
				return
			}

			id, err := FromClaims(claims, cfg)
			if err != nil {
				vOpts.errorResponder(w, r, fmt.Errorf("invalid identity claims: %w", err))
				return
			}

			next.ServeHTTP(w, r.WithContext(SetIdentityContext(r.Context(), id)))
		})
	}
}

func defaultSkipper(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.Method == http.MethodOptions {
		return true
	}

	path := r.URL.Path
	for _, prefix := range []string{"/health", "/metrics"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func defaultErrorResponder(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, "unauthenticated", http.StatusUnauthorized)
}
