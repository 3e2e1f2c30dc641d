package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

func (s *Store) FindTransferByID(_ context.Context, transferID string) (*domain.PendingExternalTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[transferID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &t, nil
}

func (s *Store) FindTransferByTransactionID(_ context.Context, transactionID string) (*domain.PendingExternalTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.transferByTx[transactionID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	t := s.transfers[id]
	return &t, nil
}

func (s *Store) ListPendingTransfers(_ context.Context, limit int) ([]domain.PendingExternalTransfer, error) {
	s.mu.RLock()
	out := make([]domain.PendingExternalTransfer, 0)
	for _, t := range s.transfers {
		if t.Status == domain.TransferPending {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) EnqueueTransfer(_ context.Context, transfer domain.PendingExternalTransfer) (*domain.PendingExternalTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.transferByTx[transfer.RelatedTransactionID]; ok {
		existing := s.transfers[id]
		return &existing, nil
	}
	s.transfers[transfer.TransferID] = transfer
	s.transferByTx[transfer.RelatedTransactionID] = transfer.TransferID
	return &transfer, nil
}

func (s *Store) ResolveTransfer(_ context.Context, transferID string, status domain.TransferStatus, reason string, now time.Time) (*domain.PendingExternalTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[transferID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if t.Status != domain.TransferPending {
		return nil, apperrors.ErrTransferAlreadyResolved
	}
	t.Status = status
	t.FailureReason = reason
	t.ResolvedAt = &now
	s.transfers[transferID] = t
	return &t, nil
}
