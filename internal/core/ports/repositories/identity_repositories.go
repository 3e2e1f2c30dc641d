package repositories

import (
	"context"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

// AccountLinkRepository stores recipient to account links used by the identity resolver.
type AccountLinkRepository interface {
	// SaveLink creates or replaces the link for a recipient reference.
	SaveLink(ctx context.Context, link domain.AccountLink) error

	// FindLink returns ErrNotFound when the recipient has no linked account.
	FindLink(ctx context.Context, recipientRef string) (*domain.AccountLink, error)
}
