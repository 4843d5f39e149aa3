package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/apperr"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err's kind to a status code. Internal error details are
// logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	resp := errorResponse{Error: kind.String(), Message: err.Error()}
	if kind == apperr.KindInternal {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		resp.Message = ""
	}
	writeJSON(w, kind.HTTPStatus(), resp)
}
