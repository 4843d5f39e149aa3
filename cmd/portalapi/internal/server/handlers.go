package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/apperr"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/auth"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/middleware"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/services/portal"
)

const maxBodyBytes = 1 << 20

// PortalHandlers serves the portal REST API.
type PortalHandlers struct {
	portal  portal.Service
	payload *payloadDecoder
	logger  *slog.Logger
}

// NewPortalHandlers creates the handler set.
func NewPortalHandlers(svc portal.Service, logger *slog.Logger) (*PortalHandlers, error) {
	if logger == nil {
		logger = slog.Default()
	}
	decoder, err := newPayloadDecoder()
	if err != nil {
		return nil, err
	}
	return &PortalHandlers{portal: svc, payload: decoder, logger: logger}, nil
}

// Mount registers the handlers on r.
func (h *PortalHandlers) Mount(r chi.Router) {
	r.Get("/accounts/me", h.GetAccount)
	r.Get("/subscriptions", h.ListSubscriptions)
	r.Post("/subscriptions", h.Subscribe)
	r.Put("/subscriptions/{subscriptionID}/{keyType}", h.RegenerateKey)
	r.Get("/services/{serviceID}", h.GetService)
	r.Put("/services/{serviceID}", h.UpdateService)
}

// caller returns the verified identity and the impersonation target.
func caller(r *http.Request) (auth.Identity, string) {
	id, _ := auth.IdentityFromContext(r.Context())
	return id, middleware.OnBehalfOfFromContext(r.Context())
}

// GetAccount handles GET /accounts/me.
func (h *PortalHandlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, onBehalfOf := caller(r)
	overview, err := h.portal.GetAccountOverview(r.Context(), id, onBehalfOf)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// ListSubscriptions handles GET /subscriptions.
func (h *PortalHandlers) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	id, onBehalfOf := caller(r)
	subs, err := h.portal.ListSubscriptions(r.Context(), id, onBehalfOf)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// Subscribe handles POST /subscriptions.
func (h *PortalHandlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	id, onBehalfOf := caller(r)
	sub, err := h.portal.Subscribe(r.Context(), id, onBehalfOf)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// RegenerateKey handles PUT /subscriptions/{subscriptionID}/{primary_key|secondary_key}.
func (h *PortalHandlers) RegenerateKey(w http.ResponseWriter, r *http.Request) {
	const op = "server.RegenerateKey"

	raw := chi.URLParam(r, "keyType")
	if !strings.HasSuffix(raw, "_key") {
		writeError(w, r, h.logger, apperr.Errorf(apperr.KindNotFound, op, "unknown route %s", r.URL.Path))
		return
	}
	keyType, err := controlplane.ParseKeyType(strings.TrimSuffix(raw, "_key"))
	if err != nil {
		writeError(w, r, h.logger, apperr.Validation(op, err))
		return
	}

	id, onBehalfOf := caller(r)
	sub, err := h.portal.RegenerateKey(r.Context(), id, onBehalfOf, chi.URLParam(r, "subscriptionID"), keyType)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// GetService handles GET /services/{serviceID}.
func (h *PortalHandlers) GetService(w http.ResponseWriter, r *http.Request) {
	id, onBehalfOf := caller(r)
	svc, err := h.portal.GetService(r.Context(), id, onBehalfOf, chi.URLParam(r, "serviceID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// UpdateService handles PUT /services/{serviceID}.
func (h *PortalHandlers) UpdateService(w http.ResponseWriter, r *http.Request) {
	const op = "server.UpdateService"

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, h.logger, apperr.Validation(op, fmt.Errorf("read body: %w", err)))
		return
	}
	payload, err := h.payload.decode(body)
	if err != nil {
		writeError(w, r, h.logger, apperr.Validation(op, err))
		return
	}

	id, onBehalfOf := caller(r)
	svc, err := h.portal.UpdateService(r.Context(), id, onBehalfOf, chi.URLParam(r, "serviceID"), payload)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}
