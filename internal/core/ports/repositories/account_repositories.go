package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountsByIDs retrieves multiple accounts by their IDs.
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateAccountStatus changes the lifecycle status of an account.
	UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, userID string, now time.Time) error
}

// PostingApplier moves a balance and appends the matching ledger row as one atomic unit.
type PostingApplier interface {
	// ApplyPosting serialises on the account, replays an existing row for the same
	// idempotency key and direction, and otherwise updates the balance and appends
	// exactly one row. The bool result is true when the row already existed.
	ApplyPosting(ctx context.Context, posting domain.Posting, direction domain.Direction, now time.Time) (*domain.TransactionRecord, bool, error)
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
	PostingApplier
}
