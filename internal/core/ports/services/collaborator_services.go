package services

import (
	"context"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/dto"
)

// NotificationDispatcher delivers receipts, invoices and salary slips.
// A returned error means the transport failed; the result then carries DeliveryFailed.
type NotificationDispatcher interface {
	Send(ctx context.Context, n domain.Notification) (domain.DeliveryResult, error)
}

// IdentityResolver maps a human recipient to an engine account.
type IdentityResolver interface {
	// ResolveAccount returns ok=false when the recipient has no linked account.
	ResolveAccount(ctx context.Context, recipientRef string) (accountID string, ok bool, err error)
}

// IdentityLinkSvc manages the links behind IdentityResolver.
type IdentityLinkSvc interface {
	IdentityResolver
	LinkAccount(ctx context.Context, req dto.LinkAccountRequest, userID string) (*domain.AccountLink, error)
}
