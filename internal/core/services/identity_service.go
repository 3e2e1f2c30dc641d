package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/settlement_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/settlement_engine/internal/core/ports/services"
	"github.com/SscSPs/settlement_engine/internal/dto"
	"github.com/go-playground/validator/v10"
)

// identityService resolves recipients through stored account links.
type identityService struct {
	BaseService
	linkRepo    portsrepo.AccountLinkRepository
	accountRepo portsrepo.AccountReader
	validate    *validator.Validate
}

// NewIdentityService creates the link-backed identity resolver.
func NewIdentityService(linkRepo portsrepo.AccountLinkRepository, accountRepo portsrepo.AccountReader) portssvc.IdentityLinkSvc {
	return &identityService{linkRepo: linkRepo, accountRepo: accountRepo, validate: newValidator()}
}

var _ portssvc.IdentityLinkSvc = (*identityService)(nil)

func (s *identityService) ResolveAccount(ctx context.Context, recipientRef string) (string, bool, error) {
	link, err := s.linkRepo.FindLink(ctx, recipientRef)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to resolve recipient: %w", err)
	}
	return link.AccountID, true, nil
}

func (s *identityService) LinkAccount(ctx context.Context, req dto.LinkAccountRequest, userID string) (*domain.AccountLink, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.accountRepo.FindAccountByID(ctx, req.AccountID); err != nil {
		return nil, fmt.Errorf("failed to link account: %w", err)
	}

	link := domain.AccountLink{
		RecipientRef: req.RecipientRef,
		AccountID:    req.AccountID,
		CreatedAt:    s.Now(),
		CreatedBy:    userID,
	}
	if err := s.linkRepo.SaveLink(ctx, link); err != nil {
		s.LogError(ctx, err, "Failed to save account link", slog.String("account_id", req.AccountID))
		return nil, fmt.Errorf("failed to link account: %w", err)
	}
	s.LogInfo(ctx, "Recipient linked to account", slog.String("account_id", req.AccountID))
	return &link, nil
}
