package services

import (
	"context"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

// LedgerSvc exposes the append-only transaction trail.
type LedgerSvc interface {
	ListByAccount(ctx context.Context, accountID string, window domain.TimeRange, limit int, nextToken *string) ([]domain.TransactionRecord, *string, error)
	FindByIdempotencyKey(ctx context.Context, key string) ([]domain.TransactionRecord, error)
}
