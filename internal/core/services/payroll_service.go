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
	"github.com/SscSPs/settlement_engine/internal/dto"
	"github.com/SscSPs/settlement_engine/internal/utils/lock"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const errRunInterrupted = "run interrupted"

type payrollService struct {
	BaseService
	payrollRepo portsrepo.PayrollRepositoryFacade
	accountRepo portsrepo.AccountReader
	router      portssvc.DisbursementRouterSvc
	dispatcher  portssvc.NotificationDispatcher
	validate    *validator.Validate
	// schoolLocks serialises bulk runs per school account.
	schoolLocks lock.KeyedMutex
	runLocks    lock.KeyedMutex
}

// PayrollServiceOption is a functional option for configuring the payroll service
type PayrollServiceOption func(*payrollService)

// WithPayrollClock overrides the clock used for processed timestamps.
func WithPayrollClock(clock func() time.Time) PayrollServiceOption {
	return func(s *payrollService) {
		s.Clock = clock
	}
}

// NewPayrollService creates the payroll run manager.
func NewPayrollService(
	payrollRepo portsrepo.PayrollRepositoryFacade,
	accountRepo portsrepo.AccountReader,
	router portssvc.DisbursementRouterSvc,
	dispatcher portssvc.NotificationDispatcher,
	options ...PayrollServiceOption,
) portssvc.PayrollSvcFacade {
	svc := &payrollService{
		payrollRepo: payrollRepo,
		accountRepo: accountRepo,
		router:      router,
		dispatcher:  dispatcher,
		validate:    newValidator(),
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.PayrollSvcFacade = (*payrollService)(nil)

func (s *payrollService) PaySalary(ctx context.Context, entry domain.PayrollEntry, schoolAccountID string) (domain.SettlementOutcome, error) {
	prepared, err := s.prepareEntry(ctx, entry, schoolAccountID)
	if err != nil {
		return failedOutcome(prepared.TransactionID, prepared.Channel, err), err
	}
	if prepared.RunID == "" {
		outcome, _, err := s.paySalary(ctx, &prepared, schoolAccountID)
		return outcome, err
	}

	// A run entry is paid under the run lock and the run totals follow it.
	unlock := s.runLocks.Lock(prepared.RunID)
	defer unlock()
	if prepared, err = s.prepareEntry(ctx, entry, schoolAccountID); err != nil {
		return failedOutcome(prepared.TransactionID, prepared.Channel, err), err
	}
	outcome, paid, err := s.paySalary(ctx, &prepared, schoolAccountID)
	if paid {
		if rerr := s.resummarizeRun(context.WithoutCancel(ctx), prepared.RunID, prepared.LastUpdatedBy); rerr != nil {
			s.LogError(ctx, rerr, "Failed to update payroll run totals", slog.String("run_id", prepared.RunID))
		}
	}
	return outcome, err
}

// prepareEntry returns the entry to settle for a caller submission. A resubmitted entry
// is settled from its stored copy and the caller cannot change its terms.
func (s *payrollService) prepareEntry(ctx context.Context, entry domain.PayrollEntry, schoolAccountID string) (domain.PayrollEntry, error) {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}

	stored, err := s.payrollRepo.FindEntryByID(ctx, entry.EntryID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		entry.Status = domain.PayrollEntryPending
		entry.TransactionID = ""
		entry.TransferID = ""
		return entry, nil
	case err != nil:
		s.LogError(ctx, err, "Failed to load payroll entry", slog.String("entry_id", entry.EntryID))
		return entry, fmt.Errorf("failed to load payroll entry: %w", err)
	}

	if derr := stored.TermsDiffer(entry); derr != nil {
		s.LogWarn(ctx, derr, "Payroll entry resubmission rejected", slog.String("entry_id", entry.EntryID))
		return *stored, fmt.Errorf("%w: payroll entry resubmitted with different terms: %s", apperrors.ErrIdempotencyConflict, derr.Error())
	}
	if stored.RunID != "" {
		run, err := s.payrollRepo.FindRunByID(ctx, stored.RunID)
		if err != nil {
			s.LogError(ctx, err, "Failed to load payroll run", slog.String("run_id", stored.RunID))
			return *stored, fmt.Errorf("failed to load payroll run: %w", err)
		}
		if run.SchoolAccountID != schoolAccountID {
			return *stored, fmt.Errorf("%w: payroll entry is paid from its run's school account", apperrors.ErrIdempotencyConflict)
		}
	}

	prepared := *stored
	if entry.LastUpdatedBy != "" {
		prepared.LastUpdatedBy = entry.LastUpdatedBy
	}
	return prepared, nil
}

// paySalary settles one entry and persists its new status. The bool reports whether the
// entry counts as paid.
func (s *payrollService) paySalary(ctx context.Context, entry *domain.PayrollEntry, schoolAccountID string) (domain.SettlementOutcome, bool, error) {
	logger := s.GetLogger(ctx).With(
		slog.String("entry_id", entry.EntryID),
		slog.String("staff_id", entry.StaffID))

	if entry.Status == domain.PayrollEntryCompleted {
		return entry.CompletedOutcome(), true, nil
	}
	// Its transfer failed and was refunded; paying again needs a new entry id.
	if entry.Status == domain.PayrollEntryFailed && entry.TransferID != "" {
		err := fmt.Errorf("%w: entry was refunded after a failed transfer", apperrors.ErrConflict)
		return failedOutcome(entry.TransactionID, entry.Channel, err), false, err
	}

	if err := entry.Validate(); err != nil {
		verr := fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		logger.Warn("Payroll entry rejected", slog.String("error", err.Error()))
		s.finish(ctx, entry, domain.PayrollEntryFailed, domain.SettlementOutcome{}, err.Error())
		return failedOutcome("", entry.Channel, err), false, verr
	}

	// Balance pre-check only on the first attempt; a retry may hold a committed debit.
	if entry.TransactionID == "" {
		school, err := s.accountRepo.FindAccountByID(ctx, schoolAccountID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				logger.Error("Failed to load school account", slog.String("error", err.Error()))
			}
			s.finish(ctx, entry, domain.PayrollEntryFailed, domain.SettlementOutcome{}, "school account unavailable")
			return failedOutcome("", entry.Channel, err), false, fmt.Errorf("failed to load school account: %w", err)
		}
		if school.Balance < entry.NetSalary {
			err := &apperrors.InsufficientBalanceError{Available: school.Balance, Requested: entry.NetSalary}
			logger.Warn("Payroll entry not funded", slog.String("error", err.Error()))
			s.finish(ctx, entry, domain.PayrollEntryFailed, domain.SettlementOutcome{}, err.Error())
			return failedOutcome("", entry.Channel, err), false, err
		}
	}

	relatedEntity := entry.RunID
	if relatedEntity == "" {
		relatedEntity = entry.EntryID
	}
	outcome, err := s.router.Settle(ctx, domain.SettlementRequest{
		PayerAccountID:   schoolAccountID,
		PayeeAccountID:   entry.RecipientAccountID,
		RecipientDetails: entry.RecipientDetails,
		Amount:           entry.NetSalary,
		RelatedEntityID:  relatedEntity,
		Sequence:         "salary/" + entry.EntryID,
		TransactionID:    entry.TransactionID, // a recorded debit is always resumed under its own id
		Channel:          entry.Channel,
		DebitKind:        domain.KindSalaryPayment,
		CreditKind:       domain.KindSalaryReceived,
		CreatedBy:        entry.LastUpdatedBy,
	})

	ctx = context.WithoutCancel(ctx)
	switch {
	case outcome.Succeeded():
		s.finish(ctx, entry, domain.PayrollEntryCompleted, outcome, "")
		s.sendSlip(ctx, entry)
		return outcome, true, nil
	case outcome.Status == domain.OutcomePendingReconciliation:
		// The school was debited; the entry stays PENDING so a retry or the replay job finishes it.
		s.finish(ctx, entry, domain.PayrollEntryPending, outcome, outcome.FailureReason)
		return outcome, false, err
	default:
		reason := outcome.FailureReason
		if reason == "" && err != nil {
			reason = err.Error()
		}
		s.finish(ctx, entry, domain.PayrollEntryFailed, outcome, reason)
		return outcome, false, err
	}
}

// finish records the entry's new status. Failures to persist are logged only: the
// settlement is already final and a retry replays it.
func (s *payrollService) finish(ctx context.Context, entry *domain.PayrollEntry, status domain.PayrollEntryStatus, outcome domain.SettlementOutcome, reason string) {
	now := s.Now()
	entry.Status = status
	entry.FailureReason = reason
	if outcome.TransactionID != "" {
		entry.TransactionID = outcome.TransactionID
	}
	if outcome.TransferID != "" {
		entry.TransferID = outcome.TransferID
	}
	entry.ProcessedAt = &now
	entry.LastUpdatedAt = now
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if err := s.payrollRepo.UpsertEntry(ctx, *entry); err != nil {
		s.LogError(ctx, err, "Failed to persist payroll entry",
			slog.String("entry_id", entry.EntryID),
			slog.String("status", string(status)))
	}
}

func (s *payrollService) CompleteReplayedEntry(ctx context.Context, debit domain.TransactionRecord, outcome domain.SettlementOutcome) (*domain.PayrollEntry, error) {
	entry, err := s.payrollRepo.FindEntryByTransactionID(ctx, debit.TransactionID)
	if err != nil {
		return nil, err
	}
	if entry.RunID != "" {
		unlock := s.runLocks.Lock(entry.RunID)
		defer unlock()
		// Re-read under the lock; a concurrent ProcessRun may have finished it.
		if entry, err = s.payrollRepo.FindEntryByID(ctx, entry.EntryID); err != nil {
			return nil, err
		}
	}
	switch {
	case entry.Status == domain.PayrollEntryCompleted:
		return entry, nil
	case entry.Status == domain.PayrollEntryFailed && entry.TransferID != "":
		return nil, fmt.Errorf("%w: entry was refunded after a failed transfer", apperrors.ErrConflict)
	}

	ctx = context.WithoutCancel(ctx)
	entry.LastUpdatedBy = debit.CreatedBy
	s.finish(ctx, entry, domain.PayrollEntryCompleted, outcome, "")
	s.sendSlip(ctx, entry)

	if entry.RunID != "" {
		if err := s.resummarizeRun(ctx, entry.RunID, debit.CreatedBy); err != nil {
			s.LogError(ctx, err, "Failed to update payroll run totals", slog.String("run_id", entry.RunID))
		}
	}
	s.LogInfo(ctx, "Replayed salary entry completed",
		slog.String("entry_id", entry.EntryID),
		slog.String("transaction_id", debit.TransactionID))
	return entry, nil
}

// resummarizeRun recomputes run totals and status from the stored entries.
// A run that has not been processed yet keeps its DRAFT status.
func (s *payrollService) resummarizeRun(ctx context.Context, runID string, userID string) error {
	run, entries, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status == domain.PayrollRunDraft {
		return nil
	}
	run.Summarize(entries)
	run.LastUpdatedAt = s.Now()
	run.LastUpdatedBy = userID
	return s.payrollRepo.UpdateRun(ctx, *run)
}

func (s *payrollService) sendSlip(ctx context.Context, entry *domain.PayrollEntry) {
	if s.dispatcher == nil {
		return
	}
	_, err := s.dispatcher.Send(ctx, domain.Notification{
		Recipient:   entry.Recipient,
		Kind:        domain.NotificationSalarySlip,
		ReferenceID: entry.EntryID,
		Payload: map[string]any{
			"baseSalary":    entry.BaseSalary,
			"allowances":    entry.Allowances,
			"deductions":    entry.Deductions,
			"netSalary":     entry.NetSalary,
			"channel":       entry.Channel,
			"transactionID": entry.TransactionID,
		},
	})
	if err != nil {
		s.LogWarn(ctx, err, "Salary slip not delivered", slog.String("entry_id", entry.EntryID))
	}
}

func (s *payrollService) ProcessBulkPayroll(ctx context.Context, schoolAccountID string, entries []domain.PayrollEntry) (*domain.BulkResult, error) {
	unlock := s.schoolLocks.Lock(schoolAccountID)
	defer unlock()
	return s.processBulk(ctx, schoolAccountID, entries, true)
}

// processBulk pays entries in order and writes the new statuses back into entries.
// The caller holds the school lock. Caller-supplied entries are prepared against their
// stored copies; entries loaded from a run already are.
func (s *payrollService) processBulk(ctx context.Context, schoolAccountID string, entries []domain.PayrollEntry, prepare bool) (*domain.BulkResult, error) {
	if _, err := s.accountRepo.FindAccountByID(ctx, schoolAccountID); err != nil {
		return nil, fmt.Errorf("failed to load school account: %w", err)
	}

	result := &domain.BulkResult{Results: make([]domain.PayrollEntryResult, 0, len(entries))}
	for i := range entries {
		entry := &entries[i]
		if prepare {
			prepared, err := s.prepareEntry(ctx, *entry, schoolAccountID)
			*entry = prepared
			if err != nil {
				result.Failed++
				result.Results = append(result.Results, domain.PayrollEntryResult{
					EntryID: entry.EntryID,
					StaffID: entry.StaffID,
					Outcome: failedOutcome(entry.TransactionID, entry.Channel, err),
					Error:   err.Error(),
				})
				continue
			}
		}
		if entry.Status == "" {
			entry.Status = domain.PayrollEntryPending
		}
		line := domain.PayrollEntryResult{EntryID: entry.EntryID, StaffID: entry.StaffID}

		if ctx.Err() != nil {
			line.Outcome = failedOutcome(entry.TransactionID, entry.Channel, nil)
			line.Error = errRunInterrupted
			result.Failed++
			result.Results = append(result.Results, line)
			continue
		}

		outcome, paid, err := s.paySalary(ctx, entry, schoolAccountID)
		line.Outcome = outcome
		if err != nil {
			line.Error = err.Error()
		}
		if paid {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, line)
	}

	s.LogInfo(ctx, "Bulk payroll processed",
		slog.Int("successful", result.Successful),
		slog.Int("failed", result.Failed))
	return result, nil
}

func (s *payrollService) CreateRun(ctx context.Context, req dto.CreatePayrollRunRequest, userID string) (*domain.PayrollRun, []domain.PayrollEntry, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, validationError(err)
	}
	if _, err := s.accountRepo.FindAccountByID(ctx, req.SchoolAccountID); err != nil {
		return nil, nil, fmt.Errorf("failed to load school account: %w", err)
	}

	now := s.Now()
	audit := domain.AuditFields{CreatedAt: now, CreatedBy: userID, LastUpdatedAt: now, LastUpdatedBy: userID, Version: 1}
	run := domain.PayrollRun{
		RunID:           uuid.NewString(),
		SchoolAccountID: req.SchoolAccountID,
		Period:          req.Period,
		Status:          domain.PayrollRunDraft,
		AuditFields:     audit,
	}

	entries := make([]domain.PayrollEntry, 0, len(req.Entries))
	seen := make(map[string]struct{}, len(req.Entries))
	for i, er := range req.Entries {
		entry := er.ToDomain()
		if entry.EntryID == "" {
			entry.EntryID = uuid.NewString()
		}
		if _, dup := seen[entry.EntryID]; dup {
			return nil, nil, fmt.Errorf("%w: entry %d repeats entry id", apperrors.ErrValidation, i+1)
		}
		seen[entry.EntryID] = struct{}{}
		if err := entry.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: entry %d: %s", apperrors.ErrValidation, i+1, err.Error())
		}
		entry.RunID = run.RunID
		entry.AuditFields = audit
		entries = append(entries, entry)
		run.TotalNet += entry.NetSalary
	}
	run.EntryCount = len(entries)

	if err := s.payrollRepo.SaveRun(ctx, run, entries); err != nil {
		s.LogError(ctx, err, "Failed to save payroll run", slog.String("run_id", run.RunID))
		return nil, nil, fmt.Errorf("failed to create payroll run: %w", err)
	}
	s.LogInfo(ctx, "Payroll run created",
		slog.String("run_id", run.RunID),
		slog.Int("entries", run.EntryCount),
		slog.Int64("total_net", run.TotalNet))
	return &run, entries, nil
}

func (s *payrollService) GetRun(ctx context.Context, runID string) (*domain.PayrollRun, []domain.PayrollEntry, error) {
	run, err := s.payrollRepo.FindRunByID(ctx, runID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find payroll run", slog.String("run_id", runID))
		}
		return nil, nil, fmt.Errorf("failed to get payroll run: %w", err)
	}
	entries, err := s.payrollRepo.FindEntriesByRunID(ctx, runID)
	if err != nil {
		s.LogError(ctx, err, "Failed to find payroll entries", slog.String("run_id", runID))
		return nil, nil, fmt.Errorf("failed to get payroll entries: %w", err)
	}
	return run, entries, nil
}

func (s *payrollService) ProcessRun(ctx context.Context, runID string, userID string) (*domain.PayrollRun, *domain.BulkResult, error) {
	unlockRun := s.runLocks.Lock(runID)
	defer unlockRun()

	run, entries, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	switch run.Status {
	case domain.PayrollRunCompleted:
		return nil, nil, fmt.Errorf("%w: payroll run already completed", apperrors.ErrConflict)
	case domain.PayrollRunProcessing:
		// Left behind by an interrupted pass; entries replay idempotently.
		s.GetLogger(ctx).Warn("Resuming payroll run left in PROCESSING", slog.String("run_id", runID))
	}

	unlockSchool := s.schoolLocks.Lock(run.SchoolAccountID)
	defer unlockSchool()

	run.Status = domain.PayrollRunProcessing
	run.LastUpdatedAt = s.Now()
	run.LastUpdatedBy = userID
	if err := s.payrollRepo.UpdateRun(ctx, *run); err != nil {
		s.LogError(ctx, err, "Failed to mark payroll run processing", slog.String("run_id", runID))
		return nil, nil, fmt.Errorf("failed to process payroll run: %w", err)
	}

	for i := range entries {
		entries[i].LastUpdatedBy = userID
	}
	result, err := s.processBulk(ctx, run.SchoolAccountID, entries, false)
	if err != nil {
		run.Summarize(entries)
		if uerr := s.payrollRepo.UpdateRun(context.WithoutCancel(ctx), *run); uerr != nil {
			s.LogError(ctx, uerr, "Failed to restore payroll run status", slog.String("run_id", runID))
		}
		return nil, nil, err
	}

	now := s.Now()
	run.Summarize(entries)
	run.ProcessedAt = &now
	run.LastUpdatedAt = now
	if err := s.payrollRepo.UpdateRun(context.WithoutCancel(ctx), *run); err != nil {
		s.LogError(ctx, err, "Failed to store payroll run totals", slog.String("run_id", runID))
		return nil, nil, fmt.Errorf("failed to process payroll run: %w", err)
	}

	s.LogInfo(ctx, "Payroll run processed",
		slog.String("run_id", runID),
		slog.String("status", string(run.Status)),
		slog.Int64("total_disbursed", run.TotalDisbursed))
	return run, result, nil
}
