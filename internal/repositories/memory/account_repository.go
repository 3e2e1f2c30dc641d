package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/google/uuid"
)

func (s *Store) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &acc, nil
}

func (s *Store) FindAccountsByIDs(_ context.Context, accountIDs []string) (map[string]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		if acc, ok := s.accounts[id]; ok {
			out[id] = acc
		}
	}
	return out, nil
}

func (s *Store) SaveAccount(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.AccountID]; exists {
		return fmt.Errorf("account %s: %w", account.AccountID, apperrors.ErrDuplicate)
	}
	s.accounts[account.AccountID] = account
	return nil
}

func (s *Store) UpdateAccountStatus(_ context.Context, accountID string, status domain.AccountStatus, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	acc.Status = status
	acc.LastUpdatedAt = now
	acc.LastUpdatedBy = userID
	acc.Version++
	s.accounts[accountID] = acc
	return nil
}

func (s *Store) ApplyPosting(_ context.Context, posting domain.Posting, direction domain.Direction, now time.Time) (*domain.TransactionRecord, bool, error) {
	unlock := s.accountLocks.Lock(posting.AccountID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, idx := range s.recordsByTx[posting.IdempotencyKey] {
		rec := s.records[idx]
		if rec.Direction != direction {
			continue
		}
		if !posting.Matches(rec) {
			return nil, false, apperrors.ErrIdempotencyConflict
		}
		return &rec, true, nil
	}

	acc, ok := s.accounts[posting.AccountID]
	if !ok {
		return nil, false, fmt.Errorf("account: %w", apperrors.ErrNotFound)
	}
	if !acc.IsActive() {
		return nil, false, apperrors.ErrAccountNotActive
	}

	switch direction {
	case domain.Debit:
		if acc.Balance < posting.Amount {
			return nil, false, &apperrors.InsufficientBalanceError{Available: acc.Balance, Requested: posting.Amount}
		}
		acc.Balance -= posting.Amount
	case domain.Credit:
		acc.Balance += posting.Amount
	default:
		return nil, false, fmt.Errorf("%w: unknown direction %q", apperrors.ErrValidation, direction)
	}
	acc.LastUpdatedAt = now
	acc.Version++
	s.accounts[acc.AccountID] = acc

	rec := domain.TransactionRecord{
		RecordID:        uuid.NewString(),
		TransactionID:   posting.IdempotencyKey,
		AccountID:       posting.AccountID,
		Direction:       direction,
		Amount:          posting.Amount,
		Kind:            posting.Kind,
		RelatedEntityID: posting.RelatedEntityID,
		Status:          domain.TransactionCompleted,
		BalanceAfter:    acc.Balance,
		Channel:         posting.Channel,
		Counterparty:    posting.Counterparty,
		CreatedAt:       now,
		CreatedBy:       posting.CreatedBy,
	}
	s.records = append(s.records, rec)
	s.recordsByTx[rec.TransactionID] = append(s.recordsByTx[rec.TransactionID], len(s.records)-1)
	return &rec, false, nil
}
