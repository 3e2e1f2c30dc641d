package services

import (
	"context"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/dto"
)

// PayrollDisbursementSvc pays salary entries through the router.
type PayrollDisbursementSvc interface {
	PaySalary(ctx context.Context, entry domain.PayrollEntry, schoolAccountID string) (domain.SettlementOutcome, error)
	// ProcessBulkPayroll pays entries strictly in order while holding the school account lock.
	ProcessBulkPayroll(ctx context.Context, schoolAccountID string, entries []domain.PayrollEntry) (*domain.BulkResult, error)
}

// PayrollRunSvc manages persisted payroll runs.
type PayrollRunSvc interface {
	CreateRun(ctx context.Context, req dto.CreatePayrollRunRequest, userID string) (*domain.PayrollRun, []domain.PayrollEntry, error)
	GetRun(ctx context.Context, runID string) (*domain.PayrollRun, []domain.PayrollEntry, error)
	ProcessRun(ctx context.Context, runID string, userID string) (*domain.PayrollRun, *domain.BulkResult, error)
}

// PayrollSettlementSvc finishes salary entries whose debit was delivered by the replay job.
type PayrollSettlementSvc interface {
	CompleteReplayedEntry(ctx context.Context, debit domain.TransactionRecord, outcome domain.SettlementOutcome) (*domain.PayrollEntry, error)
}

// PayrollSvcFacade combines all payroll service interfaces
type PayrollSvcFacade interface {
	PayrollDisbursementSvc
	PayrollRunSvc
	PayrollSettlementSvc
}
