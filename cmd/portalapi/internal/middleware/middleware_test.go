package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/auth"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/config"
)

func TestRequireIdentity(t *testing.T) {
	handler := RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscriptions", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("identity present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/subscriptions", nil)
		req = req.WithContext(auth.SetIdentityContext(req.Context(), auth.Identity{Emails: []string{"a@example.com"}}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestOnBehalfOf(t *testing.T) {
	var got string
	handler := OnBehalfOf(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = OnBehalfOfFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{"none", "/subscriptions", "", ""},
		{"query", "/subscriptions?on_behalf_of=b@example.com", "", "b@example.com"},
		{"header", "/subscriptions", "c@example.com", "c@example.com"},
		{"query wins", "/subscriptions?on_behalf_of=b@example.com", "c@example.com", "b@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = "unset"
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set(OnBehalfOfHeader, tt.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/services/s1", nil))

	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/services/s1"`)
}

func TestNewAuthnMiddleware_SharedSecret(t *testing.T) {
	cfg := config.OIDCConfig{
		SharedSecret:      "dev-secret",
		SubjectClaimField: "sub",
		EmailsClaimField:  "emails",
	}
	authn, err := NewAuthnMiddleware(cfg)
	require.NoError(t, err)

	var got auth.Identity
	handler := authn(RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.IdentityFromContext(r.Context())
	})))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    "user-1",
		"emails": []string{"dev@example.com"},
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("dev-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev@example.com", got.PrimaryEmail())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscriptions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
