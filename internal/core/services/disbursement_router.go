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
	"github.com/google/uuid"
)

// settlementNamespace seeds the deterministic transaction ids.
var settlementNamespace = uuid.MustParse("6f1c2a9e-3b7d-5e41-9a0c-2d8f4b6e1a37")

// RetryPolicy bounds how often the delivery step is retried after the debit committed.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration // multiplied by the attempt number
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 200 * time.Millisecond}

type disbursementRouter struct {
	BaseService
	accounts     portssvc.AccountStoreSvc
	accountRepo  portsrepo.AccountReader
	ledgerRepo   portsrepo.LedgerReader
	transferRepo portsrepo.TransferWriter
	retry        RetryPolicy
	sleep        func(time.Duration)
}

// RouterOption is a functional option for configuring the disbursement router
type RouterOption func(*disbursementRouter)

// WithRetryPolicy sets the delivery retry policy.
func WithRetryPolicy(p RetryPolicy) RouterOption {
	return func(r *disbursementRouter) {
		if p.Attempts > 0 {
			r.retry = p
		}
	}
}

// WithRouterClock overrides the clock stamped on queued transfers.
func WithRouterClock(clock func() time.Time) RouterOption {
	return func(r *disbursementRouter) {
		r.Clock = clock
	}
}

// WithSleep replaces the wait between delivery attempts.
func WithSleep(sleep func(time.Duration)) RouterOption {
	return func(r *disbursementRouter) {
		r.sleep = sleep
	}
}

// NewDisbursementRouter creates the router that executes every settlement.
func NewDisbursementRouter(
	accounts portssvc.AccountStoreSvc,
	accountRepo portsrepo.AccountReader,
	ledgerRepo portsrepo.LedgerReader,
	transferRepo portsrepo.TransferWriter,
	options ...RouterOption,
) portssvc.DisbursementRouterSvc {
	r := &disbursementRouter{
		accounts:     accounts,
		accountRepo:  accountRepo,
		ledgerRepo:   ledgerRepo,
		transferRepo: transferRepo,
		retry:        DefaultRetryPolicy,
		sleep:        time.Sleep,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

var _ portssvc.DisbursementRouterSvc = (*disbursementRouter)(nil)

func (r *disbursementRouter) TransactionIDFor(relatedEntityID, sequence string) string {
	return uuid.NewSHA1(settlementNamespace, []byte(relatedEntityID+"/"+sequence)).String()
}

func (r *disbursementRouter) Settle(ctx context.Context, req domain.SettlementRequest) (domain.SettlementOutcome, error) {
	txID := req.TransactionID
	if txID == "" {
		txID = r.TransactionIDFor(req.RelatedEntityID, req.Sequence)
	}
	logger := r.GetLogger(ctx).With(
		slog.String("transaction_id", txID),
		slog.String("channel", string(req.Channel)))

	if err := req.Validate(); err != nil {
		return failedOutcome(txID, req.Channel, err), fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}

	existing, err := r.ledgerRepo.FindByTransactionID(ctx, txID)
	if err != nil {
		logger.Error("Failed to look up settlement rows", slog.String("error", err.Error()))
		return failedOutcome(txID, req.Channel, err), fmt.Errorf("failed to look up settlement: %w", err)
	}
	debited := false
	for _, rec := range existing {
		if rec.Direction == domain.Debit {
			debited = true
		}
	}

	// Account state is checked before anything moves. A retry that already holds
	// a debit skips this because the balance has legitimately changed since.
	if !debited {
		if err := r.preValidate(ctx, req); err != nil {
			logger.Warn("Settlement rejected", slog.String("error", err.Error()))
			return failedOutcome(txID, req.Channel, err), err
		}
	}

	// Once the payer is debited the delivery step must run even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if req.PayerAccountID != "" {
		_, err := r.accounts.Debit(ctx, domain.Posting{
			AccountID:       req.PayerAccountID,
			Amount:          req.Amount,
			IdempotencyKey:  txID,
			Kind:            req.DebitKind,
			RelatedEntityID: req.RelatedEntityID,
			Channel:         req.Channel,
			Counterparty:    counterparty(req),
			CreatedBy:       req.CreatedBy,
		})
		if err != nil {
			logger.Warn("Settlement debit failed", slog.String("error", err.Error()))
			return failedOutcome(txID, req.Channel, err), err
		}
	}

	return r.deliver(ctx, req, txID)
}

func (r *disbursementRouter) Resume(ctx context.Context, debit domain.TransactionRecord) (domain.SettlementOutcome, error) {
	if debit.Direction != domain.Debit {
		return failedOutcome(debit.TransactionID, debit.Channel, nil),
			fmt.Errorf("%w: only debit rows can be resumed", apperrors.ErrValidation)
	}
	req := domain.SettlementRequest{
		PayerAccountID:  debit.AccountID,
		Amount:          debit.Amount,
		RelatedEntityID: debit.RelatedEntityID,
		Channel:         debit.Channel,
		DebitKind:       debit.Kind,
		CreditKind:      domain.CreditKindFor(debit.Kind),
		CreatedBy:       debit.CreatedBy,
	}
	if debit.Channel == domain.ChannelWallet {
		req.PayeeAccountID = debit.Counterparty
	} else {
		req.RecipientDetails = debit.Counterparty
	}
	if err := req.Validate(); err != nil {
		return failedOutcome(debit.TransactionID, debit.Channel, err),
			fmt.Errorf("%w: cannot rebuild settlement: %s", apperrors.ErrValidation, err.Error())
	}

	r.LogInfo(ctx, "Resuming orphaned debit", slog.String("transaction_id", debit.TransactionID))
	return r.deliver(context.WithoutCancel(ctx), req, debit.TransactionID)
}

func (r *disbursementRouter) preValidate(ctx context.Context, req domain.SettlementRequest) error {
	ids := make([]string, 0, 2)
	if req.PayerAccountID != "" {
		ids = append(ids, req.PayerAccountID)
	}
	if req.Channel == domain.ChannelWallet {
		ids = append(ids, req.PayeeAccountID)
	}
	accounts, err := r.accountRepo.FindAccountsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load settlement accounts: %w", err)
	}

	var payer, payee domain.Account
	var ok bool
	if req.PayerAccountID != "" {
		if payer, ok = accounts[req.PayerAccountID]; !ok {
			return fmt.Errorf("payer account: %w", apperrors.ErrNotFound)
		}
		if !payer.IsActive() {
			return fmt.Errorf("payer account is %s: %w", payer.Status, apperrors.ErrAccountNotActive)
		}
	}
	if req.Channel == domain.ChannelWallet {
		if payee, ok = accounts[req.PayeeAccountID]; !ok {
			return fmt.Errorf("payee account: %w", apperrors.ErrNotFound)
		}
		if !payee.IsActive() {
			return fmt.Errorf("payee account is %s: %w", payee.Status, apperrors.ErrAccountNotActive)
		}
		if req.PayerAccountID != "" && payer.CurrencyCode != payee.CurrencyCode {
			return apperrors.ErrCurrencyMismatch
		}
	}
	if req.PayerAccountID != "" && payer.Balance < req.Amount {
		return &apperrors.InsufficientBalanceError{Available: payer.Balance, Requested: req.Amount}
	}
	return nil
}

// deliver runs the second leg against the same transaction id until it sticks or the
// retry budget is spent. It never issues another debit.
func (r *disbursementRouter) deliver(ctx context.Context, req domain.SettlementRequest, txID string) (domain.SettlementOutcome, error) {
	var lastErr error
	for attempt := 1; attempt <= r.retry.Attempts; attempt++ {
		outcome, err := r.deliverOnce(ctx, req, txID)
		if err == nil {
			r.LogInfo(ctx, "Settlement delivered",
				slog.String("transaction_id", txID),
				slog.String("status", string(outcome.Status)),
				slog.Int("attempt", attempt))
			return outcome, nil
		}
		lastErr = err
		r.LogWarn(ctx, err, "Settlement delivery attempt failed",
			slog.String("transaction_id", txID),
			slog.Int("attempt", attempt))
		if !retryable(err) || attempt == r.retry.Attempts {
			break
		}
		r.sleep(r.retry.Backoff * time.Duration(attempt))
	}

	if req.PayerAccountID == "" {
		// Nothing was taken from anyone, so this is a plain failure.
		return failedOutcome(txID, req.Channel, lastErr), lastErr
	}

	r.LogError(ctx, lastErr, "Settlement left pending reconciliation", slog.String("transaction_id", txID))
	return domain.SettlementOutcome{
		TransactionID: txID,
		Status:        domain.OutcomePendingReconciliation,
		Channel:       req.Channel,
		FailureReason: lastErr.Error(),
	}, fmt.Errorf("%w: %w", apperrors.ErrSettlementIncomplete, lastErr)
}

func (r *disbursementRouter) deliverOnce(ctx context.Context, req domain.SettlementRequest, txID string) (domain.SettlementOutcome, error) {
	if req.Channel == domain.ChannelWallet {
		_, err := r.accounts.Credit(ctx, domain.Posting{
			AccountID:       req.PayeeAccountID,
			Amount:          req.Amount,
			IdempotencyKey:  txID,
			Kind:            req.CreditKind,
			RelatedEntityID: req.RelatedEntityID,
			Channel:         req.Channel,
			Counterparty:    req.PayerAccountID,
			CreatedBy:       req.CreatedBy,
		})
		if err != nil {
			return domain.SettlementOutcome{}, err
		}
		return domain.SettlementOutcome{TransactionID: txID, Status: domain.OutcomeCompleted, Channel: req.Channel}, nil
	}

	payer, err := r.accountRepo.FindAccountByID(ctx, req.PayerAccountID)
	if err != nil {
		return domain.SettlementOutcome{}, fmt.Errorf("failed to load source account: %w", err)
	}
	transfer, err := r.transferRepo.EnqueueTransfer(ctx, domain.PendingExternalTransfer{
		TransferID:           uuid.NewString(),
		Type:                 req.Channel,
		Amount:               req.Amount,
		CurrencyCode:         payer.CurrencyCode,
		RecipientDetails:     req.RecipientDetails,
		Status:               domain.TransferPending,
		RelatedTransactionID: txID,
		RelatedEntityID:      req.RelatedEntityID,
		SourceAccountID:      req.PayerAccountID,
		CreatedAt:            r.Now(),
	})
	if err != nil {
		return domain.SettlementOutcome{}, fmt.Errorf("failed to queue external transfer: %w", err)
	}
	return domain.SettlementOutcome{
		TransactionID: txID,
		Status:        domain.OutcomeQueued,
		Channel:       req.Channel,
		TransferID:    transfer.TransferID,
	}, nil
}

// retryable excludes failures a second attempt cannot fix.
func retryable(err error) bool {
	return !errors.Is(err, apperrors.ErrAccountNotActive) &&
		!errors.Is(err, apperrors.ErrNotFound) &&
		!errors.Is(err, apperrors.ErrIdempotencyConflict) &&
		!errors.Is(err, apperrors.ErrValidation)
}

func counterparty(req domain.SettlementRequest) string {
	if req.Channel == domain.ChannelWallet {
		return req.PayeeAccountID
	}
	return req.RecipientDetails
}

func failedOutcome(txID string, channel domain.Channel, err error) domain.SettlementOutcome {
	out := domain.SettlementOutcome{TransactionID: txID, Status: domain.OutcomeFailed, Channel: channel}
	if err != nil {
		out.FailureReason = err.Error()
	}
	return out
}
