package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/settlement_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/settlement_engine/internal/core/ports/services"
)

const (
	maxPendingTransfers = 500
	replayBatchSize     = 100

	// A debit that keeps failing is parked for an operator after this many replays.
	maxReplayAttempts  = 10
	replayBackoffBase  = time.Minute
	replayBackoffLimit = 6 * time.Hour
)

type reconciliationService struct {
	BaseService
	transferRepo portsrepo.TransferRepositoryFacade
	ledgerRepo   portsrepo.LedgerRepositoryFacade
	payrollRepo  portsrepo.PayrollRepositoryFacade
	accounts     portssvc.AccountStoreSvc
	router       portssvc.DisbursementRouterSvc
	invoices     portssvc.InvoiceSettlementSvc
	payroll      portssvc.PayrollSettlementSvc
}

// ReconciliationServiceOption is a functional option for configuring the reconciliation service
type ReconciliationServiceOption func(*reconciliationService)

// WithReconciliationClock overrides the clock used for resolution timestamps and replay cutoffs.
func WithReconciliationClock(clock func() time.Time) ReconciliationServiceOption {
	return func(s *reconciliationService) {
		s.Clock = clock
	}
}

// NewReconciliationService creates the service that resolves external transfers and replays orphaned debits.
func NewReconciliationService(
	transferRepo portsrepo.TransferRepositoryFacade,
	ledgerRepo portsrepo.LedgerRepositoryFacade,
	payrollRepo portsrepo.PayrollRepositoryFacade,
	accounts portssvc.AccountStoreSvc,
	router portssvc.DisbursementRouterSvc,
	invoices portssvc.InvoiceSettlementSvc,
	payroll portssvc.PayrollSettlementSvc,
	options ...ReconciliationServiceOption,
) portssvc.ReconciliationSvc {
	svc := &reconciliationService{
		transferRepo: transferRepo,
		ledgerRepo:   ledgerRepo,
		payrollRepo:  payrollRepo,
		accounts:     accounts,
		router:       router,
		invoices:     invoices,
		payroll:      payroll,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.ReconciliationSvc = (*reconciliationService)(nil)

func (s *reconciliationService) ListPendingTransfers(ctx context.Context, limit int) ([]domain.PendingExternalTransfer, error) {
	if limit <= 0 || limit > maxPendingTransfers {
		limit = maxPendingTransfers
	}
	transfers, err := s.transferRepo.ListPendingTransfers(ctx, limit)
	if err != nil {
		s.LogError(ctx, err, "Failed to list pending transfers")
		return nil, fmt.Errorf("failed to list pending transfers: %w", err)
	}
	return transfers, nil
}

func (s *reconciliationService) ResolveTransfer(ctx context.Context, transferID string, status domain.TransferStatus, reason string, userID string) (*domain.PendingExternalTransfer, error) {
	if status != domain.TransferSettled && status != domain.TransferFailed {
		return nil, fmt.Errorf("%w: transfer can only be resolved as SETTLED or FAILED", apperrors.ErrValidation)
	}
	if status == domain.TransferFailed && reason == "" {
		return nil, fmt.Errorf("%w: a failure reason is required", apperrors.ErrValidation)
	}

	transfer, err := s.transferRepo.FindTransferByID(ctx, transferID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find transfer", slog.String("transfer_id", transferID))
		}
		return nil, fmt.Errorf("failed to resolve transfer: %w", err)
	}
	if transfer.Status != domain.TransferPending {
		return nil, apperrors.ErrTransferAlreadyResolved
	}

	ctx = context.WithoutCancel(ctx)

	// Refund before flipping the transfer so a crash in between is retried as PENDING.
	if status == domain.TransferFailed {
		_, err := s.accounts.Credit(ctx, domain.Posting{
			AccountID:       transfer.SourceAccountID,
			Amount:          transfer.Amount,
			IdempotencyKey:  transfer.ReversalKey(),
			Kind:            domain.KindTransferReversal,
			RelatedEntityID: transfer.RelatedEntityID,
			Channel:         transfer.Type,
			Counterparty:    transfer.RecipientDetails,
			CreatedBy:       userID,
		})
		if err != nil {
			s.LogError(ctx, err, "Failed to refund failed transfer", slog.String("transfer_id", transferID))
			return nil, fmt.Errorf("failed to refund transfer: %w", err)
		}
	}

	resolved, err := s.transferRepo.ResolveTransfer(ctx, transferID, status, reason, s.Now())
	if err != nil {
		if !errors.Is(err, apperrors.ErrTransferAlreadyResolved) {
			s.LogError(ctx, err, "Failed to resolve transfer", slog.String("transfer_id", transferID))
		}
		return nil, fmt.Errorf("failed to resolve transfer: %w", err)
	}

	if status == domain.TransferFailed {
		s.failPayrollEntry(ctx, resolved, userID)
	}

	s.LogInfo(ctx, "External transfer resolved",
		slog.String("transfer_id", transferID),
		slog.String("status", string(status)))
	return resolved, nil
}

// failPayrollEntry flips the salary entry paid by a failed transfer, if there is one.
func (s *reconciliationService) failPayrollEntry(ctx context.Context, transfer *domain.PendingExternalTransfer, userID string) {
	entry, err := s.payrollRepo.FindEntryByTransactionID(ctx, transfer.RelatedTransactionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find payroll entry for transfer", slog.String("transfer_id", transfer.TransferID))
		}
		return
	}

	now := s.Now()
	entry.Status = domain.PayrollEntryFailed
	entry.FailureReason = "external transfer failed: " + transfer.FailureReason
	entry.LastUpdatedAt = now
	entry.LastUpdatedBy = userID
	if err := s.payrollRepo.UpsertEntry(ctx, *entry); err != nil {
		s.LogError(ctx, err, "Failed to mark payroll entry failed", slog.String("entry_id", entry.EntryID))
		return
	}

	if entry.RunID == "" {
		return
	}
	run, entries, err := s.loadRun(ctx, entry.RunID)
	if err != nil {
		s.LogError(ctx, err, "Failed to reload payroll run", slog.String("run_id", entry.RunID))
		return
	}
	run.Summarize(entries)
	run.LastUpdatedAt = now
	run.LastUpdatedBy = userID
	if err := s.payrollRepo.UpdateRun(ctx, *run); err != nil {
		s.LogError(ctx, err, "Failed to update payroll run totals", slog.String("run_id", run.RunID))
	}
}

func (s *reconciliationService) loadRun(ctx context.Context, runID string) (*domain.PayrollRun, []domain.PayrollEntry, error) {
	run, err := s.payrollRepo.FindRunByID(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.payrollRepo.FindEntriesByRunID(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return run, entries, nil
}

// ReplayOrphanedDebits re-delivers debits that never got their credit or transfer.
// A delivered debit completes the invoice or payroll entry that owns it. A failed one
// is backed off, or parked for an operator when retrying cannot help.
func (s *reconciliationService) ReplayOrphanedDebits(ctx context.Context, olderThan time.Duration) (*domain.ReplayReport, error) {
	now := s.Now()
	debits, err := s.ledgerRepo.FindUnmatchedDebits(ctx, now.Add(-olderThan), now, replayBatchSize)
	if err != nil {
		s.LogError(ctx, err, "Failed to find orphaned debits")
		return nil, fmt.Errorf("failed to find orphaned debits: %w", err)
	}

	report := &domain.ReplayReport{Scanned: len(debits), Results: make([]domain.SettlementOutcome, 0, len(debits))}
	for _, debit := range debits {
		if ctx.Err() != nil {
			break
		}
		outcome, err := s.router.Resume(ctx, debit)
		report.Results = append(report.Results, outcome)
		if err != nil {
			report.Failed++
			if s.recordFailedReplay(ctx, debit, err) {
				report.NeedsAttention++
			}
			continue
		}
		report.Resumed++
		s.completeOwner(ctx, debit, outcome)
	}

	if report.Scanned > 0 {
		s.LogInfo(ctx, "Orphaned debit replay finished",
			slog.Int("scanned", report.Scanned),
			slog.Int("resumed", report.Resumed),
			slog.Int("failed", report.Failed),
			slog.Int("needs_attention", report.NeedsAttention))
	}
	return report, nil
}

// completeOwner finishes the business record paid by a delivered debit.
func (s *reconciliationService) completeOwner(ctx context.Context, debit domain.TransactionRecord, outcome domain.SettlementOutcome) {
	ctx = context.WithoutCancel(ctx)
	var err error
	switch debit.Kind {
	case domain.KindFeePayment:
		if s.invoices != nil {
			_, err = s.invoices.CompleteReplayedPayment(ctx, debit)
		}
	case domain.KindSalaryPayment:
		if s.payroll != nil {
			_, err = s.payroll.CompleteReplayedEntry(ctx, debit, outcome)
		}
	}
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrInvoiceNotFound):
		s.LogInfo(ctx, "Replayed debit has no owning record", slog.String("transaction_id", debit.TransactionID))
	default:
		s.LogError(ctx, err, "Failed to complete owner of replayed debit",
			slog.String("transaction_id", debit.TransactionID),
			slog.String("related_entity_id", debit.RelatedEntityID))
	}
}

// recordFailedReplay bumps the attempt count of a debit and reports whether it is now parked.
func (s *reconciliationService) recordFailedReplay(ctx context.Context, debit domain.TransactionRecord, cause error) bool {
	now := s.Now()
	attempt := domain.ReplayAttempt{TransactionID: debit.TransactionID}
	prior, err := s.ledgerRepo.FindReplayAttempt(ctx, debit.TransactionID)
	switch {
	case err == nil:
		attempt = *prior
	case !errors.Is(err, apperrors.ErrNotFound):
		s.LogError(ctx, err, "Failed to load replay attempts", slog.String("transaction_id", debit.TransactionID))
	}

	attempt.Attempts++
	attempt.LastError = cause.Error()
	attempt.UpdatedAt = now
	attempt.NeedsAttention = !retryable(cause) || attempt.Attempts >= maxReplayAttempts
	attempt.NextAttemptAt = now.Add(replayBackoff(attempt.Attempts))

	if err := s.ledgerRepo.SaveReplayAttempt(context.WithoutCancel(ctx), attempt); err != nil {
		s.LogError(ctx, err, "Failed to record replay attempt", slog.String("transaction_id", debit.TransactionID))
	}
	if attempt.NeedsAttention {
		s.LogError(ctx, cause, "Orphaned debit parked for manual reconciliation",
			slog.String("transaction_id", debit.TransactionID),
			slog.Int("attempts", attempt.Attempts))
	} else {
		s.LogWarn(ctx, cause, "Orphaned debit still undelivered",
			slog.String("transaction_id", debit.TransactionID),
			slog.Int("attempts", attempt.Attempts),
			slog.Time("next_attempt_at", attempt.NextAttemptAt))
	}
	return attempt.NeedsAttention
}

// replayBackoff doubles from replayBackoffBase per attempt, capped at replayBackoffLimit.
func replayBackoff(attempts int) time.Duration {
	d := replayBackoffBase
	for i := 1; i < attempts && d < replayBackoffLimit; i++ {
		d *= 2
	}
	return min(d, replayBackoffLimit)
}

func (s *reconciliationService) ListReplaysNeedingAttention(ctx context.Context, limit int) ([]domain.ReplayAttempt, error) {
	if limit <= 0 || limit > maxPendingTransfers {
		limit = maxPendingTransfers
	}
	parked, err := s.ledgerRepo.ListReplaysNeedingAttention(ctx, limit)
	if err != nil {
		s.LogError(ctx, err, "Failed to list parked replays")
		return nil, fmt.Errorf("failed to list parked replays: %w", err)
	}
	return parked, nil
}
