package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	err := NotFound("ad", "abc-123")

	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Contains(t, err.Message, "abc-123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuotaExceeded(t *testing.T) {
	err := QuotaExceeded("base accounts may publish only one ad")

	assert.Equal(t, "QUOTA_EXCEEDED", err.Code)
	assert.Equal(t, http.StatusForbidden, err.Status)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestContentRejected_DistinguishableFromTerminal(t *testing.T) {
	recoverable := ContentRejected("ad contains inappropriate language")
	terminal := ContentRejectedTerminal("ad was rejected too many times")

	assert.NotEqual(t, recoverable.Code, terminal.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, recoverable.Status)
	assert.Equal(t, http.StatusGone, terminal.Status)
	assert.ErrorIs(t, recoverable, ErrContentRejected)
	assert.ErrorIs(t, terminal, ErrContentRejectedTerminal)
	assert.NotErrorIs(t, terminal, ErrContentRejected)
}

func TestAppError_Unwrap(t *testing.T) {
	base := errors.New("connection refused")
	err := Internal(base)

	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "load user")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "load user")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", Forbidden("not the owner"), http.StatusForbidden},
		{"wrapped sentinel", fmt.Errorf("svc: %w", ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("svc: %w", ErrConflict), http.StatusConflict},
		{"quota", fmt.Errorf("svc: %w", ErrQuotaExceeded), http.StatusForbidden},
		{"content rejected", fmt.Errorf("svc: %w", ErrContentRejected), http.StatusUnprocessableEntity},
		{"content rejected terminal", fmt.Errorf("svc: %w", ErrContentRejectedTerminal), http.StatusGone},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
