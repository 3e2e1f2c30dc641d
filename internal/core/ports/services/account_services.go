package services

import (
	"context"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/dto"
)

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// GetAccount retrieves a specific account by its unique identifier.
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
}

// AccountStoreSvc is the only way balances change.
type AccountStoreSvc interface {
	// Debit removes value from an ACTIVE account and appends one DEBIT row.
	// Replaying the same idempotency key returns the original row.
	Debit(ctx context.Context, posting domain.Posting) (*domain.TransactionRecord, error)

	// Credit adds value to an ACTIVE account and appends one CREDIT row.
	Credit(ctx context.Context, posting domain.Posting) (*domain.TransactionRecord, error)
}

// AccountAdminSvc covers onboarding and lifecycle changes made by collaborators.
type AccountAdminSvc interface {
	OpenAccount(ctx context.Context, req dto.OpenAccountRequest, userID string) (*domain.Account, error)
	UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, userID string) (*domain.Account, error)
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountStoreSvc
	AccountAdminSvc
}
