package middleware

import (
	"context"
	"net/http"
	"strings"
)

// OnBehalfOfQuery and OnBehalfOfHeader carry the email an admin acts as.
const (
	OnBehalfOfQuery  = "on_behalf_of"
	OnBehalfOfHeader = "X-On-Behalf-Of"
)

type onBehalfOfKey struct{}

// OnBehalfOf stores the requested impersonation target on the context. The
// query parameter wins over the header. Whether it is honored is decided by
// the portal service.
func OnBehalfOf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := strings.TrimSpace(r.URL.Query().Get(OnBehalfOfQuery))
		if target == "" {
			target = strings.TrimSpace(r.Header.Get(OnBehalfOfHeader))
		}
		if target != "" {
			r = r.WithContext(context.WithValue(r.Context(), onBehalfOfKey{}, target))
		}
		next.ServeHTTP(w, r)
	})
}

// OnBehalfOfFromContext returns the impersonation target, or "".
func OnBehalfOfFromContext(ctx context.Context) string {
	v, _ := ctx.Value(onBehalfOfKey{}).(string)
	return v
}
