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
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// accountService implements the AccountSvcFacade interface
type accountService struct {
	BaseService
	accountRepo portsrepo.AccountRepositoryFacade
	validate    *validator.Validate
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithAccountClock overrides the clock used for audit fields and ledger rows.
func WithAccountClock(clock func() time.Time) AccountServiceOption {
	return func(s *accountService) {
		s.Clock = clock
	}
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(repo portsrepo.AccountRepositoryFacade, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		accountRepo: repo,
		validate:    newValidator(),
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account", slog.String("account_id", accountID))
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (s *accountService) Debit(ctx context.Context, posting domain.Posting) (*domain.TransactionRecord, error) {
	return s.apply(ctx, posting, domain.Debit)
}

func (s *accountService) Credit(ctx context.Context, posting domain.Posting) (*domain.TransactionRecord, error) {
	return s.apply(ctx, posting, domain.Credit)
}

func (s *accountService) apply(ctx context.Context, posting domain.Posting, direction domain.Direction) (*domain.TransactionRecord, error) {
	if err := posting.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}

	record, replayed, err := s.accountRepo.ApplyPosting(ctx, posting, direction, s.Now())
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInsufficientBalance),
			errors.Is(err, apperrors.ErrAccountNotActive),
			errors.Is(err, apperrors.ErrNotFound),
			errors.Is(err, apperrors.ErrIdempotencyConflict):
			s.LogWarn(ctx, err, "Posting rejected",
				slog.String("direction", string(direction)),
				slog.String("transaction_id", posting.IdempotencyKey))
		default:
			s.LogError(ctx, err, "Failed to apply posting",
				slog.String("direction", string(direction)),
				slog.String("transaction_id", posting.IdempotencyKey))
		}
		return nil, err
	}

	if replayed {
		s.LogDebug(ctx, "Posting replayed",
			slog.String("direction", string(direction)),
			slog.String("transaction_id", posting.IdempotencyKey))
	} else {
		s.LogDebug(ctx, "Posting applied",
			slog.String("direction", string(direction)),
			slog.String("transaction_id", posting.IdempotencyKey),
			slog.Int64("balance_after", record.BalanceAfter))
	}
	return record, nil
}

func (s *accountService) OpenAccount(ctx context.Context, req dto.OpenAccountRequest, userID string) (*domain.Account, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	now := s.Now()
	accountID := req.AccountID
	if accountID == "" {
		accountID = uuid.NewString()
	}

	account := domain.Account{
		AccountID:    accountID,
		OwnerID:      req.OwnerID,
		Status:       domain.AccountActive,
		CurrencyCode: req.CurrencyCode,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save account", slog.String("account_id", accountID))
		return nil, fmt.Errorf("failed to open account: %w", err)
	}

	// The opening balance goes through the ledger like every other balance change.
	if req.OpeningBalance > 0 {
		_, err := s.Credit(ctx, domain.Posting{
			AccountID:       accountID,
			Amount:          req.OpeningBalance,
			IdempotencyKey:  "opening/" + accountID,
			Kind:            domain.KindOpeningBalance,
			RelatedEntityID: accountID,
			CreatedBy:       userID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to credit opening balance: %w", err)
		}
	}

	s.LogInfo(ctx, "Account opened",
		slog.String("account_id", accountID),
		slog.String("currency", req.CurrencyCode))
	return s.GetAccount(ctx, accountID)
}

func (s *accountService) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, userID string) (*domain.Account, error) {
	switch status {
	case domain.AccountActive, domain.AccountSuspended, domain.AccountClosed:
	default:
		return nil, fmt.Errorf("%w: unknown account status %q", apperrors.ErrValidation, status)
	}

	if err := s.accountRepo.UpdateAccountStatus(ctx, accountID, status, userID, s.Now()); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to update account status", slog.String("account_id", accountID))
		}
		return nil, fmt.Errorf("failed to update account status: %w", err)
	}

	s.LogInfo(ctx, "Account status changed",
		slog.String("account_id", accountID),
		slog.String("status", string(status)))
	return s.GetAccount(ctx, accountID)
}
