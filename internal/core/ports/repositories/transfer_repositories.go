package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

// TransferReader defines read operations for queued external transfers
type TransferReader interface {
	FindTransferByID(ctx context.Context, transferID string) (*domain.PendingExternalTransfer, error)
	FindTransferByTransactionID(ctx context.Context, transactionID string) (*domain.PendingExternalTransfer, error)
	ListPendingTransfers(ctx context.Context, limit int) ([]domain.PendingExternalTransfer, error)
}

// TransferWriter defines write operations for queued external transfers
type TransferWriter interface {
	// EnqueueTransfer stores the transfer, or returns the one already queued for the
	// same related transaction id.
	EnqueueTransfer(ctx context.Context, transfer domain.PendingExternalTransfer) (*domain.PendingExternalTransfer, error)

	// ResolveTransfer moves a PENDING transfer to a final status. Anything else yields
	// ErrTransferAlreadyResolved.
	ResolveTransfer(ctx context.Context, transferID string, status domain.TransferStatus, reason string, now time.Time) (*domain.PendingExternalTransfer, error)
}

// TransferRepositoryFacade combines all transfer repository interfaces
type TransferRepositoryFacade interface {
	TransferReader
	TransferWriter
}
