package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/settlement_engine/internal/core/ports/repositories"
	"github.com/SscSPs/settlement_engine/internal/models"
	"github.com/SscSPs/settlement_engine/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAccountLinkRepository struct {
	BaseRepository
}

func newPgxAccountLinkRepository(pool *pgxpool.Pool) *PgxAccountLinkRepository {
	return &PgxAccountLinkRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AccountLinkRepository = (*PgxAccountLinkRepository)(nil)

func (r *PgxAccountLinkRepository) SaveLink(ctx context.Context, link domain.AccountLink) error {
	m := mapping.ToModelAccountLink(link)
	query := `
		INSERT INTO account_links (recipient_ref, account_id, created_at, created_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (recipient_ref) DO UPDATE
		SET account_id = EXCLUDED.account_id, created_at = EXCLUDED.created_at, created_by = EXCLUDED.created_by;
	`
	if _, err := r.Pool.Exec(ctx, query, m.RecipientRef, m.AccountID, m.CreatedAt, m.CreatedBy); err != nil {
		return fmt.Errorf("failed to save account link for %s: %w", m.RecipientRef, err)
	}
	return nil
}

func (r *PgxAccountLinkRepository) FindLink(ctx context.Context, recipientRef string) (*domain.AccountLink, error) {
	var m models.AccountLink
	query := `SELECT recipient_ref, account_id, created_at, created_by FROM account_links WHERE recipient_ref = $1;`
	err := r.Pool.QueryRow(ctx, query, recipientRef).Scan(&m.RecipientRef, &m.AccountID, &m.CreatedAt, &m.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account link for %s: %w", recipientRef, err)
	}
	link := mapping.ToDomainAccountLink(m)
	return &link, nil
}
