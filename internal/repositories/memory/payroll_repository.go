package memory

import (
	"context"
	"fmt"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

func (s *Store) FindRunByID(_ context.Context, runID string) (*domain.PayrollRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &run, nil
}

// FindEntriesByRunID returns entries in the order they were submitted.
func (s *Store) FindEntriesByRunID(_ context.Context, runID string) ([]domain.PayrollEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.runEntries[runID]
	out := make([]domain.PayrollEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.entries[id])
	}
	return out, nil
}

func (s *Store) FindEntryByID(_ context.Context, entryID string) (*domain.PayrollEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &entry, nil
}

func (s *Store) FindEntryByTransactionID(_ context.Context, transactionID string) (*domain.PayrollEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries {
		if entry.TransactionID == transactionID {
			return &entry, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) SaveRun(_ context.Context, run domain.PayrollRun, entries []domain.PayrollEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.RunID]; exists {
		return fmt.Errorf("payroll run %s: %w", run.RunID, apperrors.ErrDuplicate)
	}
	for _, e := range entries {
		if _, exists := s.entries[e.EntryID]; exists {
			return fmt.Errorf("payroll entry %s: %w", e.EntryID, apperrors.ErrDuplicate)
		}
	}
	s.runs[run.RunID] = run
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		s.entries[e.EntryID] = e
		ids = append(ids, e.EntryID)
	}
	s.runEntries[run.RunID] = ids
	return nil
}

func (s *Store) UpdateRun(_ context.Context, run domain.PayrollRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.RunID]; !ok {
		return apperrors.ErrNotFound
	}
	run.Version++
	s.runs[run.RunID] = run
	return nil
}

func (s *Store) UpsertEntry(_ context.Context, entry domain.PayrollEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[entry.EntryID]; ok {
		entry.Version = existing.Version + 1
	} else if entry.RunID != "" {
		s.runEntries[entry.RunID] = append(s.runEntries[entry.RunID], entry.EntryID)
	}
	s.entries[entry.EntryID] = entry
	return nil
}
