package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	inner := New(CodeTokenNotEnough, "insufficient collateral")
	outer := Wrap(inner, CodeInternal, "mint failed")

	t.Run("finds nested codes", func(t *testing.T) {
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeTokenNotEnough))
		assert.False(t, HasCode(outer, CodeNotOwner))
	})

	t.Run("Is only checks outermost domain error", func(t *testing.T) {
		assert.True(t, Is(outer, CodeInternal))
		assert.False(t, Is(outer, CodeTokenNotEnough))
	})

	t.Run("survives fmt wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("handler: %w", inner)
		assert.True(t, HasCode(wrapped, CodeTokenNotEnough))
		assert.Equal(t, CodeTokenNotEnough, CodeOf(wrapped))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		plain := errors.New("boom")
		assert.False(t, HasCode(plain, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(plain))
	})
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "reserve collateral")
	assert.Equal(t, "reserve collateral: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "not yours", New(CodeNotOwner, "not yours").Error())
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidKittyID:     http.StatusNotFound,
		CodeNotOwner:           http.StatusForbidden,
		CodeSameKittyID:        http.StatusBadRequest,
		CodeKittyIDOverflow:    http.StatusConflict,
		CodeExceedMaxInventory: http.StatusConflict,
		CodeTokenNotEnough:     http.StatusPaymentRequired,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeInvariantViolation: http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), string(code))
	}
}
