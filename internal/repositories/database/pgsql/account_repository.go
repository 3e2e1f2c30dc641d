package pgsql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/settlement_engine/internal/core/ports/repositories"
	"github.com/SscSPs/settlement_engine/internal/models"
	"github.com/SscSPs/settlement_engine/internal/utils/mapping"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `account_id, owner_id, status, balance, currency_code, created_at, created_by, last_updated_at, last_updated_by, version`

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

func scanAccount(row pgx.Row) (models.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.AccountID,
		&m.OwnerID,
		&m.Status,
		&m.Balance,
		&m.CurrencyCode,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Version,
	)
	return m, err
}

// SaveAccount inserts a new account. The opening balance is posted separately.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)
	query := `INSERT INTO accounts (` + accountColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

	_, err := r.Pool.Exec(ctx, query,
		m.AccountID,
		m.OwnerID,
		m.Status,
		m.Balance,
		m.CurrencyCode,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
		m.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account with ID %s already exists", apperrors.ErrDuplicate, m.AccountID)
		}
		return fmt.Errorf("failed to save account %s: %w", m.AccountID, err)
	}
	return nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	m, err := scanAccount(r.Pool.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account by ID %s: %w", accountID, err)
	}
	acc := mapping.ToDomainAccount(m)
	return &acc, nil
}

// FindAccountsByIDs retrieves multiple accounts by their IDs.
// Missing IDs are simply absent from the map.
func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1);`
	rows, err := r.Pool.Query(ctx, query, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by IDs: %w", err)
	}
	defer rows.Close()

	accounts := make(map[string]domain.Account, len(accountIDs))
	for rows.Next() {
		m, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row during batch fetch: %w", err)
		}
		accounts[m.AccountID] = mapping.ToDomainAccount(m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows during batch fetch: %w", err)
	}
	return accounts, nil
}

// UpdateAccountStatus changes the lifecycle status of an account.
func (r *PgxAccountRepository) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, userID string, now time.Time) error {
	query := `
		UPDATE accounts
		SET status = $2, last_updated_at = $3, last_updated_by = $4, version = version + 1
		WHERE account_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, accountID, string(status), now, userID)
	if err != nil {
		return fmt.Errorf("failed to update status of account %s: %w", accountID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ApplyPosting locks the account row, replays or rejects a reused idempotency key,
// then moves the balance and appends the ledger row in the same transaction.
func (r *PgxAccountRepository) ApplyPosting(ctx context.Context, posting domain.Posting, direction domain.Direction, now time.Time) (*domain.TransactionRecord, bool, error) {
	if direction != domain.Debit && direction != domain.Credit {
		return nil, false, fmt.Errorf("%w: unknown direction %q", apperrors.ErrValidation, direction)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if rbErr := r.Rollback(ctx, tx); rbErr != nil {
			slog.ErrorContext(ctx, "failed to rollback posting", slog.String("account_id", posting.AccountID), slog.String("error", rbErr.Error()))
		}
	}()

	lockQuery := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1 FOR UPDATE;`
	m, err := scanAccount(tx.QueryRow(ctx, lockQuery, posting.AccountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, fmt.Errorf("account: %w", apperrors.ErrNotFound)
		}
		return nil, false, fmt.Errorf("failed to lock account %s: %w", posting.AccountID, err)
	}

	existing, err := findRecord(ctx, tx, posting.IdempotencyKey, direction)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if !posting.Matches(*existing) {
			return nil, false, apperrors.ErrIdempotencyConflict
		}
		return existing, true, nil
	}

	acc := mapping.ToDomainAccount(m)
	if !acc.IsActive() {
		return nil, false, apperrors.ErrAccountNotActive
	}
	newBalance := acc.Balance + posting.Amount
	if direction == domain.Debit {
		if acc.Balance < posting.Amount {
			return nil, false, &apperrors.InsufficientBalanceError{Available: acc.Balance, Requested: posting.Amount}
		}
		newBalance = acc.Balance - posting.Amount
	}

	updateQuery := `
		UPDATE accounts
		SET balance = $2, last_updated_at = $3, version = version + 1
		WHERE account_id = $1;
	`
	if _, err := tx.Exec(ctx, updateQuery, acc.AccountID, newBalance, now); err != nil {
		return nil, false, fmt.Errorf("failed to update balance of account %s: %w", acc.AccountID, err)
	}

	rec := domain.TransactionRecord{
		RecordID:        uuid.NewString(),
		TransactionID:   posting.IdempotencyKey,
		AccountID:       posting.AccountID,
		Direction:       direction,
		Amount:          posting.Amount,
		Kind:            posting.Kind,
		RelatedEntityID: posting.RelatedEntityID,
		Status:          domain.TransactionCompleted,
		BalanceAfter:    newBalance,
		Channel:         posting.Channel,
		Counterparty:    posting.Counterparty,
		CreatedAt:       now,
		CreatedBy:       posting.CreatedBy,
	}
	if err := insertRecord(ctx, tx, rec); err != nil {
		if isUniqueViolation(err) {
			// Another account wrote the same key and direction first.
			return r.replayAfterRace(ctx, posting, direction)
		}
		return nil, false, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, false, err
	}
	return &rec, false, nil
}

func (r *PgxAccountRepository) replayAfterRace(ctx context.Context, posting domain.Posting, direction domain.Direction) (*domain.TransactionRecord, bool, error) {
	existing, err := findRecord(ctx, r.Pool, posting.IdempotencyKey, direction)
	if err != nil {
		return nil, false, err
	}
	if existing == nil || !posting.Matches(*existing) {
		return nil, false, apperrors.ErrIdempotencyConflict
	}
	return existing, true, nil
}
