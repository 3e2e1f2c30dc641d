package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/utils/pagination"
)

func (s *Store) FindByTransactionID(_ context.Context, transactionID string) ([]domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idxs := s.recordsByTx[transactionID]
	out := make([]domain.TransactionRecord, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, s.records[idx])
	}
	return out, nil
}

func (s *Store) ListByAccount(_ context.Context, accountID string, window domain.TimeRange, limit int, nextToken *string) ([]domain.TransactionRecord, *string, error) {
	var cursor *pagination.Cursor
	if nextToken != nil && *nextToken != "" {
		c, err := pagination.DecodeCursor(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		cursor = &c
	}

	s.mu.RLock()
	matched := make([]domain.TransactionRecord, 0)
	for _, rec := range s.records {
		if rec.AccountID != accountID || !window.Contains(rec.CreatedAt) {
			continue
		}
		if cursor != nil && !cursor.After(rec.CreatedAt, rec.RecordID) {
			continue
		}
		matched = append(matched, rec)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].RecordID > matched[j].RecordID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if limit <= 0 || len(matched) <= limit {
		return matched, nil, nil
	}
	page := matched[:limit]
	last := page[len(page)-1]
	token := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, RecordID: last.RecordID})
	return page, &token, nil
}

func (s *Store) FindUnmatchedDebits(_ context.Context, olderThan time.Time, dueBy time.Time, limit int) ([]domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TransactionRecord, 0)
	for _, rec := range s.records {
		if rec.Direction != domain.Debit || rec.Channel == "" || !rec.CreatedAt.Before(olderThan) {
			continue
		}
		if _, queued := s.transferByTx[rec.TransactionID]; queued {
			continue
		}
		if a, tried := s.replays[rec.TransactionID]; tried && (a.NeedsAttention || a.NextAttemptAt.After(dueBy)) {
			continue
		}
		credited := false
		for _, idx := range s.recordsByTx[rec.TransactionID] {
			if s.records[idx].Direction == domain.Credit {
				credited = true
				break
			}
		}
		if credited {
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := s.replays[out[i].TransactionID].Attempts, s.replays[out[j].TransactionID].Attempts
		if ai != aj {
			return ai < aj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) FindReplayAttempt(_ context.Context, transactionID string) (*domain.ReplayAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.replays[transactionID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &a, nil
}

func (s *Store) SaveReplayAttempt(_ context.Context, attempt domain.ReplayAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replays[attempt.TransactionID] = attempt
	return nil
}

func (s *Store) ListReplaysNeedingAttention(_ context.Context, limit int) ([]domain.ReplayAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ReplayAttempt, 0)
	for _, a := range s.replays {
		if a.NeedsAttention {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
