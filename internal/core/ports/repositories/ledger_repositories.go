package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

// LedgerReader is the read side of the append-only transaction ledger.
// Rows are only ever written by PostingApplier; there is no update or delete.
type LedgerReader interface {
	// FindByTransactionID returns every row sharing the idempotency key (at most one per direction).
	FindByTransactionID(ctx context.Context, transactionID string) ([]domain.TransactionRecord, error)

	// ListByAccount returns rows for an account, newest first, using token-based pagination.
	ListByAccount(ctx context.Context, accountID string, window domain.TimeRange, limit int, nextToken *string) ([]domain.TransactionRecord, *string, error)

	// FindUnmatchedDebits returns settlement debits older than the cutoff that have
	// neither a credit row nor a pending external transfer. Debits parked for manual
	// reconciliation or backed off past dueBy are skipped; fewest attempts come first.
	FindUnmatchedDebits(ctx context.Context, olderThan time.Time, dueBy time.Time, limit int) ([]domain.TransactionRecord, error)
}

// ReplayTracker keeps the replay history of orphaned debits outside the immutable ledger.
type ReplayTracker interface {
	// FindReplayAttempt returns apperrors.ErrNotFound for a debit never replayed unsuccessfully.
	FindReplayAttempt(ctx context.Context, transactionID string) (*domain.ReplayAttempt, error)
	SaveReplayAttempt(ctx context.Context, attempt domain.ReplayAttempt) error
	ListReplaysNeedingAttention(ctx context.Context, limit int) ([]domain.ReplayAttempt, error)
}

// LedgerRepositoryFacade combines all ledger repository interfaces
type LedgerRepositoryFacade interface {
	LedgerReader
	ReplayTracker
}
