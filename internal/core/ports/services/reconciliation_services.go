package services

import (
	"context"
	"time"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

// ReconciliationSvc closes the loop on external transfers and orphaned debits.
type ReconciliationSvc interface {
	ListPendingTransfers(ctx context.Context, limit int) ([]domain.PendingExternalTransfer, error)
	// ResolveTransfer records the worker's verdict. FAILED refunds the source account.
	ResolveTransfer(ctx context.Context, transferID string, status domain.TransferStatus, reason string, userID string) (*domain.PendingExternalTransfer, error)
	ReplayOrphanedDebits(ctx context.Context, olderThan time.Duration) (*domain.ReplayReport, error)
	// ListReplaysNeedingAttention returns debits that replay gave up on.
	ListReplaysNeedingAttention(ctx context.Context, limit int) ([]domain.ReplayAttempt, error)
}
