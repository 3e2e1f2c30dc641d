package repositories

import (
	"context"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

// PayrollReader defines read operations for payroll runs and entries
type PayrollReader interface {
	FindRunByID(ctx context.Context, runID string) (*domain.PayrollRun, error)
	FindEntriesByRunID(ctx context.Context, runID string) ([]domain.PayrollEntry, error)
	FindEntryByID(ctx context.Context, entryID string) (*domain.PayrollEntry, error)
	// FindEntryByTransactionID locates the entry paid out under a settlement transaction id.
	FindEntryByTransactionID(ctx context.Context, transactionID string) (*domain.PayrollEntry, error)
}

// PayrollWriter defines write operations for payroll runs and entries
type PayrollWriter interface {
	// SaveRun inserts a run together with its entries.
	SaveRun(ctx context.Context, run domain.PayrollRun, entries []domain.PayrollEntry) error
	UpdateRun(ctx context.Context, run domain.PayrollRun) error
	// UpsertEntry inserts an ad-hoc entry or updates the status fields of an existing one.
	UpsertEntry(ctx context.Context, entry domain.PayrollEntry) error
}

// PayrollRepositoryFacade combines all payroll repository interfaces
type PayrollRepositoryFacade interface {
	PayrollReader
	PayrollWriter
}
