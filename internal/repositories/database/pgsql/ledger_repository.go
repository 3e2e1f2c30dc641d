package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/settlement_engine/internal/core/ports/repositories"
	"github.com/SscSPs/settlement_engine/internal/models"
	"github.com/SscSPs/settlement_engine/internal/utils/mapping"
	"github.com/SscSPs/settlement_engine/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `record_id, transaction_id, account_id, direction, amount, kind, related_entity_id, status, balance_after, channel, counterparty, created_at, created_by`

func prefixedTransactionColumns(alias string) string {
	cols := strings.Split(transactionColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgxLedgerRepository struct {
	BaseRepository
}

func newPgxLedgerRepository(pool *pgxpool.Pool) *PgxLedgerRepository {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.RecordID,
		&m.TransactionID,
		&m.AccountID,
		&m.Direction,
		&m.Amount,
		&m.Kind,
		&m.RelatedEntityID,
		&m.Status,
		&m.BalanceAfter,
		&m.Channel,
		&m.Counterparty,
		&m.CreatedAt,
		&m.CreatedBy,
	)
	return m, err
}

func collectTransactions(rows pgx.Rows) ([]domain.TransactionRecord, error) {
	defer rows.Close()
	out := make([]domain.TransactionRecord, 0)
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		out = append(out, mapping.ToDomainTransaction(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return out, nil
}

// findRecord returns nil when no row exists for the key and direction.
func findRecord(ctx context.Context, q querier, transactionID string, direction domain.Direction) (*domain.TransactionRecord, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1 AND direction = $2;`
	m, err := scanTransaction(q.QueryRow(ctx, query, transactionID, string(direction)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up transaction %s: %w", transactionID, err)
	}
	rec := mapping.ToDomainTransaction(m)
	return &rec, nil
}

func insertRecord(ctx context.Context, q querier, rec domain.TransactionRecord) error {
	m := mapping.ToModelTransaction(rec)
	query := `INSERT INTO transactions (` + transactionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`
	_, err := q.Exec(ctx, query,
		m.RecordID,
		m.TransactionID,
		m.AccountID,
		m.Direction,
		m.Amount,
		m.Kind,
		m.RelatedEntityID,
		m.Status,
		m.BalanceAfter,
		m.Channel,
		m.Counterparty,
		m.CreatedAt,
		m.CreatedBy,
	)
	if err != nil && !isUniqueViolation(err) {
		return fmt.Errorf("failed to insert transaction %s: %w", rec.TransactionID, err)
	}
	return err
}

func (r *PgxLedgerRepository) FindByTransactionID(ctx context.Context, transactionID string) ([]domain.TransactionRecord, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1 ORDER BY direction DESC;`
	rows, err := r.Pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction %s: %w", transactionID, err)
	}
	return collectTransactions(rows)
}

// ListByAccount retrieves ledger rows for an account, newest first, using token-based pagination.
// The token points at the last row of the previous page.
func (r *PgxLedgerRepository) ListByAccount(ctx context.Context, accountID string, window domain.TimeRange, limit int, nextToken *string) ([]domain.TransactionRecord, *string, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	// One extra row tells us whether another page exists.
	fetchLimit := limit + 1

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1`
	args := []any{accountID}

	if !window.From.IsZero() {
		args = append(args, window.From)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if !window.To.IsZero() {
		args = append(args, window.To)
		query += ` AND created_at < $` + strconv.Itoa(len(args))
	}
	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeCursor(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		args = append(args, cursor.CreatedAt, cursor.RecordID)
		query += fmt.Sprintf(` AND (created_at, record_id) < ($%d, $%d::uuid)`, len(args)-1, len(args))
	}
	args = append(args, fetchLimit)
	query += ` ORDER BY created_at DESC, record_id DESC LIMIT $` + strconv.Itoa(len(args)) + `;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query transactions for account %s: %w", accountID, err)
	}
	records, err := collectTransactions(rows)
	if err != nil {
		return nil, nil, err
	}

	if len(records) <= limit {
		return records, nil, nil
	}
	page := records[:limit]
	last := page[len(page)-1]
	token := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, RecordID: last.RecordID})
	return page, &token, nil
}

// FindUnmatchedDebits returns settlement debits with no credit row and no queued transfer,
// skipping debits that are parked or backed off past dueBy. Least-tried debits come first.
func (r *PgxLedgerRepository) FindUnmatchedDebits(ctx context.Context, olderThan time.Time, dueBy time.Time, limit int) ([]domain.TransactionRecord, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	query := `
		SELECT ` + prefixedTransactionColumns("d") + `
		FROM transactions d
		LEFT JOIN replay_attempts ra ON ra.transaction_id = d.transaction_id
		WHERE d.direction = 'DEBIT' AND d.channel IS NOT NULL AND d.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM transactions c WHERE c.transaction_id = d.transaction_id AND c.direction = 'CREDIT')
		  AND NOT EXISTS (SELECT 1 FROM pending_transfers p WHERE p.related_transaction_id = d.transaction_id)
		  AND (ra.transaction_id IS NULL OR (NOT ra.needs_attention AND ra.next_attempt_at <= $2))
		ORDER BY COALESCE(ra.attempts, 0), d.created_at
		LIMIT $3;
	`
	rows, err := r.Pool.Query(ctx, query, olderThan, dueBy, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched debits: %w", err)
	}
	return collectTransactions(rows)
}

const replayColumns = `transaction_id, attempts, last_error, next_attempt_at, needs_attention, updated_at`

func scanReplayAttempt(row pgx.Row) (domain.ReplayAttempt, error) {
	var m models.ReplayAttempt
	err := row.Scan(&m.TransactionID, &m.Attempts, &m.LastError, &m.NextAttemptAt, &m.NeedsAttention, &m.UpdatedAt)
	return mapping.ToDomainReplayAttempt(m), err
}

func (r *PgxLedgerRepository) FindReplayAttempt(ctx context.Context, transactionID string) (*domain.ReplayAttempt, error) {
	query := `SELECT ` + replayColumns + ` FROM replay_attempts WHERE transaction_id = $1;`
	a, err := scanReplayAttempt(r.Pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find replay attempt for %s: %w", transactionID, err)
	}
	return &a, nil
}

func (r *PgxLedgerRepository) SaveReplayAttempt(ctx context.Context, attempt domain.ReplayAttempt) error {
	m := mapping.ToModelReplayAttempt(attempt)
	query := `
		INSERT INTO replay_attempts (` + replayColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (transaction_id) DO UPDATE
		SET attempts = EXCLUDED.attempts, last_error = EXCLUDED.last_error, next_attempt_at = EXCLUDED.next_attempt_at,
		    needs_attention = EXCLUDED.needs_attention, updated_at = EXCLUDED.updated_at;
	`
	_, err := r.Pool.Exec(ctx, query, m.TransactionID, m.Attempts, m.LastError, m.NextAttemptAt, m.NeedsAttention, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save replay attempt for %s: %w", m.TransactionID, err)
	}
	return nil
}

func (r *PgxLedgerRepository) ListReplaysNeedingAttention(ctx context.Context, limit int) ([]domain.ReplayAttempt, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	query := `SELECT ` + replayColumns + ` FROM replay_attempts WHERE needs_attention ORDER BY updated_at LIMIT $1;`
	rows, err := r.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list parked replays: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ReplayAttempt, 0)
	for rows.Next() {
		a, err := scanReplayAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan replay attempt: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating replay attempts: %w", err)
	}
	return out, nil
}
