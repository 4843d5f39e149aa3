package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"untagged", base, KindInternal},
		{"not found", NotFound("get", base), KindNotFound},
		{"forbidden wrapped by fmt", fmt.Errorf("outer: %w", Forbidden("act", base)), KindForbidden},
		{"outermost tag wins", Conflict("outer", NotFound("inner", base)), KindConflict},
		{"keep preserves inner kind", Keep("outer", Validation("inner", base)), KindValidation},
		{"keep defaults to internal", Keep("outer", base), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_UnwrapAndMessage(t *testing.T) {
	base := errors.New("boom")
	err := NotFound("resolve account", base)

	assert.ErrorIs(t, err, base)
	assert.Equal(t, "resolve account: boom", err.Error())
	assert.Equal(t, "resolve account: not_found", E(KindNotFound, "resolve account", nil).Error())
	assert.Nil(t, Keep("noop", nil))
	assert.False(t, Is(nil, KindInternal))
}

func TestKind_HTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, KindNotFound.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, KindForbidden.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, KindValidation.HTTPStatus())
	assert.Equal(t, http.StatusConflict, KindConflict.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindInternal.HTTPStatus())
}
