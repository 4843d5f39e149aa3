package middleware

import (
	"fmt"
	"net/http"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/auth"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/config"
)

// NewAuthnMiddleware verifies bearer tokens and stores the caller's Identity
// on the request context. Requests skipped by the verifier pass through
// without an identity.
func NewAuthnMiddleware(cfg config.OIDCConfig, verifierOpts ...auth.VerifierOption) (func(http.Handler) http.Handler, error) {
	verifier, err := auth.NewVerifier(cfg, verifierOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise token verifier: %w", err)
	}
	return verifier, nil
}

// RequireIdentity rejects requests that reach it without a verified identity.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok || id.PrimaryEmail() == "" {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
