package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

// InvoiceReader defines read operations for invoices
type InvoiceReader interface {
	// FindInvoiceByID returns the invoice with its line items.
	FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// ListOverdueCandidates returns SENT or VIEWED invoices whose due date is before now.
	ListOverdueCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Invoice, error)
}

// InvoiceWriter defines write operations for invoices
type InvoiceWriter interface {
	// SaveInvoice inserts a new invoice and its line items.
	SaveInvoice(ctx context.Context, invoice domain.Invoice) error

	// UpdateInvoice persists mutable invoice fields when the stored version equals
	// invoice.Version, then increments invoice.Version. A stale version yields ErrConflict.
	UpdateInvoice(ctx context.Context, invoice *domain.Invoice) error
}

// InvoiceRepositoryFacade combines all invoice repository interfaces
type InvoiceRepositoryFacade interface {
	InvoiceReader
	InvoiceWriter
}
