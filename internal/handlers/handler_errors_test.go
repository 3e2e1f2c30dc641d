package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation keeps detail", fmt.Errorf("%w: field lineItems failed on min", apperrors.ErrValidation), http.StatusBadRequest, "validation error: field lineItems failed on min"},
		{"invoice not found", apperrors.ErrInvoiceNotFound, http.StatusNotFound, "invoice not found"},
		{"wrapped not found hides id", fmt.Errorf("account acc-secret: %w", apperrors.ErrNotFound), http.StatusNotFound, "resource not found"},
		{"insufficient balance", &apperrors.InsufficientBalanceError{Available: 10, Requested: 20}, http.StatusUnprocessableEntity, "insufficient balance: need 20, have 10"},
		{"already paid", apperrors.ErrAlreadyPaid, http.StatusConflict, "invoice already paid"},
		{"incomplete wins over cause", fmt.Errorf("%w: %w", apperrors.ErrSettlementIncomplete, apperrors.ErrAccountNotActive), http.StatusAccepted, "settlement debited but not yet delivered"},
		{"app error", apperrors.NewAppError(http.StatusTooManyRequests, "slow down", nil), http.StatusTooManyRequests, "slow down"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, msg, known := statusFor(tc.err)
			assert.True(t, known)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.msg, msg)
		})
	}

	code, _, known := statusFor(errors.New("connection reset"))
	assert.False(t, known)
	assert.Equal(t, http.StatusInternalServerError, code)
}
