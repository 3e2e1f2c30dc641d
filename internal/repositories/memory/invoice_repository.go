package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

func cloneInvoice(inv domain.Invoice) domain.Invoice {
	inv.LineItems = append([]domain.InvoiceLineItem(nil), inv.LineItems...)
	return inv
}

func (s *Store) FindInvoiceByID(_ context.Context, invoiceID string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := cloneInvoice(inv)
	return &out, nil
}

func (s *Store) ListOverdueCandidates(_ context.Context, now time.Time, limit int) ([]domain.Invoice, error) {
	s.mu.RLock()
	out := make([]domain.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.Status != domain.InvoiceSent && inv.Status != domain.InvoiceViewed {
			continue
		}
		if inv.IsPastDue(now) {
			out = append(out, cloneInvoice(inv))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SaveInvoice(_ context.Context, invoice domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.invoices[invoice.InvoiceID]; exists {
		return fmt.Errorf("invoice %s: %w", invoice.InvoiceID, apperrors.ErrDuplicate)
	}
	s.invoices[invoice.InvoiceID] = cloneInvoice(invoice)
	return nil
}

func (s *Store) UpdateInvoice(_ context.Context, invoice *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.invoices[invoice.InvoiceID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Version != invoice.Version {
		return fmt.Errorf("invoice version %d is stale: %w", invoice.Version, apperrors.ErrConflict)
	}
	invoice.Version++
	s.invoices[invoice.InvoiceID] = cloneInvoice(*invoice)
	return nil
}
