package apperrors

import (
	"errors"
	"fmt"
)

// Settlement errors. Repositories and services both return these, callers match with errors.Is.
var (
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrAccountNotActive         = errors.New("account is not active")
	ErrCurrencyMismatch         = errors.New("account currencies do not match")
	ErrIdempotencyConflict      = errors.New("idempotency key reused with different parameters")
	ErrSettlementIncomplete     = errors.New("settlement debited but not yet delivered")
	ErrInvoiceNotFound          = errors.New("invoice not found")
	ErrAlreadyPaid              = errors.New("invoice already paid")
	ErrInvoiceCancelled         = errors.New("invoice cancelled")
	ErrPayeeAccountUnconfigured = errors.New("institution has no payee account configured")
	ErrPayerUnresolved          = errors.New("payer has no linked account")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrTransferAlreadyResolved  = errors.New("external transfer already resolved")
)

// InsufficientBalanceError reports a shortfall without exposing account identifiers.
type InsufficientBalanceError struct {
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %d, have %d", e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}
