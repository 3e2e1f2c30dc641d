package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/settlement_engine/internal/core/ports/repositories"
	"github.com/SscSPs/settlement_engine/internal/models"
	"github.com/SscSPs/settlement_engine/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transferColumns = `transfer_id, transfer_type, amount, currency_code, recipient_details, status,
	related_transaction_id, related_entity_id, source_account_id, failure_reason, created_at, resolved_at`

type PgxTransferRepository struct {
	BaseRepository
}

func newPgxTransferRepository(pool *pgxpool.Pool) *PgxTransferRepository {
	return &PgxTransferRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransferRepositoryFacade = (*PgxTransferRepository)(nil)

func scanTransfer(row pgx.Row) (models.PendingTransfer, error) {
	var m models.PendingTransfer
	err := row.Scan(
		&m.TransferID, &m.TransferType, &m.Amount, &m.CurrencyCode, &m.RecipientDetails, &m.Status,
		&m.RelatedTransactionID, &m.RelatedEntityID, &m.SourceAccountID, &m.FailureReason, &m.CreatedAt, &m.ResolvedAt,
	)
	return m, err
}

func (r *PgxTransferRepository) findOne(ctx context.Context, where, arg string) (*domain.PendingExternalTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM pending_transfers WHERE ` + where + `;`
	m, err := scanTransfer(r.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find pending transfer: %w", err)
	}
	t := mapping.ToDomainPendingTransfer(m)
	return &t, nil
}

func (r *PgxTransferRepository) FindTransferByID(ctx context.Context, transferID string) (*domain.PendingExternalTransfer, error) {
	return r.findOne(ctx, `transfer_id = $1`, transferID)
}

func (r *PgxTransferRepository) FindTransferByTransactionID(ctx context.Context, transactionID string) (*domain.PendingExternalTransfer, error) {
	return r.findOne(ctx, `related_transaction_id = $1`, transactionID)
}

// ListPendingTransfers returns PENDING transfers, oldest first.
func (r *PgxTransferRepository) ListPendingTransfers(ctx context.Context, limit int) ([]domain.PendingExternalTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM pending_transfers WHERE status = 'PENDING' ORDER BY created_at LIMIT $1;`
	rows, err := r.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending transfers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PendingExternalTransfer, 0)
	for rows.Next() {
		m, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending transfer: %w", err)
		}
		out = append(out, mapping.ToDomainPendingTransfer(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending transfers: %w", err)
	}
	return out, nil
}

// EnqueueTransfer inserts the transfer unless one already exists for the related transaction.
func (r *PgxTransferRepository) EnqueueTransfer(ctx context.Context, transfer domain.PendingExternalTransfer) (*domain.PendingExternalTransfer, error) {
	m := mapping.ToModelPendingTransfer(transfer)
	query := `
		INSERT INTO pending_transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (related_transaction_id) DO NOTHING;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		m.TransferID, m.TransferType, m.Amount, m.CurrencyCode, m.RecipientDetails, m.Status,
		m.RelatedTransactionID, m.RelatedEntityID, m.SourceAccountID, m.FailureReason, m.CreatedAt, m.ResolvedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue transfer for %s: %w", m.RelatedTransactionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.FindTransferByTransactionID(ctx, m.RelatedTransactionID)
	}
	return &transfer, nil
}

// ResolveTransfer moves a PENDING transfer to its final status.
func (r *PgxTransferRepository) ResolveTransfer(ctx context.Context, transferID string, status domain.TransferStatus, reason string, now time.Time) (*domain.PendingExternalTransfer, error) {
	query := `
		UPDATE pending_transfers
		SET status = $2, failure_reason = $3, resolved_at = $4
		WHERE transfer_id = $1 AND status = 'PENDING'
		RETURNING ` + transferColumns + `;`
	m, err := scanTransfer(r.Pool.QueryRow(ctx, query, transferID, string(status), mapping.NullString(reason), now))
	if err == nil {
		t := mapping.ToDomainPendingTransfer(m)
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to resolve transfer %s: %w", transferID, err)
	}
	if _, findErr := r.FindTransferByID(ctx, transferID); findErr != nil {
		return nil, findErr
	}
	return nil, apperrors.ErrTransferAlreadyResolved
}
