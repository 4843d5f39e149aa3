package portal

import (
	"errors"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/apperr"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
)

// classify tags a collaborator error. Tagged errors keep their kind,
// controlplane.ErrNotFound becomes NotFound and anything else is Internal.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *apperr.Error
	if errors.As(err, &tagged) {
		return apperr.Keep(op, err)
	}
	if errors.Is(err, controlplane.ErrNotFound) {
		return apperr.NotFound(op, err)
	}
	return apperr.Internal(op, err)
}
