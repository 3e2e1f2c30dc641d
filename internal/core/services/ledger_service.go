package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/settlement_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/settlement_engine/internal/core/ports/services"
	"github.com/SscSPs/settlement_engine/internal/utils/pagination"
)

const maxLedgerPageSize = 100

type ledgerService struct {
	BaseService
	ledgerRepo  portsrepo.LedgerRepositoryFacade
	accountRepo portsrepo.AccountReader
}

// NewLedgerService creates the read-only view of the transaction ledger.
func NewLedgerService(ledgerRepo portsrepo.LedgerRepositoryFacade, accountRepo portsrepo.AccountReader) portssvc.LedgerSvc {
	return &ledgerService{ledgerRepo: ledgerRepo, accountRepo: accountRepo}
}

var _ portssvc.LedgerSvc = (*ledgerService)(nil)

func (s *ledgerService) ListByAccount(ctx context.Context, accountID string, window domain.TimeRange, limit int, nextToken *string) ([]domain.TransactionRecord, *string, error) {
	// 404 for unknown accounts instead of an empty page.
	if _, err := s.accountRepo.FindAccountByID(ctx, accountID); err != nil {
		return nil, nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	limit = pagination.NormalizeLimit(limit, maxLedgerPageSize)
	records, next, err := s.ledgerRepo.ListByAccount(ctx, accountID, window, limit, nextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions", slog.String("account_id", accountID))
		return nil, nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return records, next, nil
}

func (s *ledgerService) FindByIdempotencyKey(ctx context.Context, key string) ([]domain.TransactionRecord, error) {
	records, err := s.ledgerRepo.FindByTransactionID(ctx, key)
	if err != nil {
		s.LogError(ctx, err, "Failed to find transactions by key", slog.String("transaction_id", key))
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}
	return records, nil
}
