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

const payrollRunColumns = `run_id, school_account_id, period, status, entry_count, successful, failed, total_net, total_disbursed,
	processed_at, created_at, created_by, last_updated_at, last_updated_by, version`

const payrollEntryColumns = `entry_id, run_id, position, staff_id, recipient_ref, recipient_name, recipient_email, recipient_phone,
	base_salary, allowances, deductions, net_salary, channel, recipient_account_id, recipient_details, status,
	transaction_id, transfer_id, failure_reason, processed_at, created_at, created_by, last_updated_at, last_updated_by, version`

type PgxPayrollRepository struct {
	BaseRepository
}

func newPgxPayrollRepository(pool *pgxpool.Pool) *PgxPayrollRepository {
	return &PgxPayrollRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PayrollRepositoryFacade = (*PgxPayrollRepository)(nil)

func scanPayrollRun(row pgx.Row) (models.PayrollRun, error) {
	var m models.PayrollRun
	err := row.Scan(
		&m.RunID, &m.SchoolAccountID, &m.Period, &m.Status, &m.EntryCount, &m.Successful, &m.Failed,
		&m.TotalNet, &m.TotalDisbursed, &m.ProcessedAt,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy, &m.Version,
	)
	return m, err
}

func scanPayrollEntry(row pgx.Row) (models.PayrollEntry, error) {
	var m models.PayrollEntry
	err := row.Scan(
		&m.EntryID, &m.RunID, &m.Position, &m.StaffID, &m.RecipientRef, &m.RecipientName, &m.RecipientEmail, &m.RecipientPhone,
		&m.BaseSalary, &m.Allowances, &m.Deductions, &m.NetSalary, &m.Channel, &m.RecipientAccountID, &m.RecipientDetails, &m.Status,
		&m.TransactionID, &m.TransferID, &m.FailureReason, &m.ProcessedAt,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy, &m.Version,
	)
	return m, err
}

func entryArgs(m models.PayrollEntry) []any {
	return []any{
		m.EntryID, m.RunID, m.Position, m.StaffID, m.RecipientRef, m.RecipientName, m.RecipientEmail, m.RecipientPhone,
		m.BaseSalary, m.Allowances, m.Deductions, m.NetSalary, m.Channel, m.RecipientAccountID, m.RecipientDetails, m.Status,
		m.TransactionID, m.TransferID, m.FailureReason, m.ProcessedAt,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.Version,
	}
}

const entryPlaceholders = `$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25`

func (r *PgxPayrollRepository) FindRunByID(ctx context.Context, runID string) (*domain.PayrollRun, error) {
	query := `SELECT ` + payrollRunColumns + ` FROM payroll_runs WHERE run_id = $1;`
	m, err := scanPayrollRun(r.Pool.QueryRow(ctx, query, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payroll run %s: %w", runID, err)
	}
	run := mapping.ToDomainPayrollRun(m)
	return &run, nil
}

// FindEntriesByRunID returns entries in the order they were submitted.
func (r *PgxPayrollRepository) FindEntriesByRunID(ctx context.Context, runID string) ([]domain.PayrollEntry, error) {
	query := `SELECT ` + payrollEntryColumns + ` FROM payroll_entries WHERE run_id = $1 ORDER BY position;`
	rows, err := r.Pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries of payroll run %s: %w", runID, err)
	}
	defer rows.Close()

	out := make([]domain.PayrollEntry, 0)
	for rows.Next() {
		m, err := scanPayrollEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll entry: %w", err)
		}
		out = append(out, mapping.ToDomainPayrollEntry(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payroll entries: %w", err)
	}
	return out, nil
}

func (r *PgxPayrollRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.PayrollEntry, error) {
	return r.findEntry(ctx, `entry_id = $1`, entryID)
}

func (r *PgxPayrollRepository) FindEntryByTransactionID(ctx context.Context, transactionID string) (*domain.PayrollEntry, error) {
	return r.findEntry(ctx, `transaction_id = $1`, transactionID)
}

func (r *PgxPayrollRepository) findEntry(ctx context.Context, where string, arg string) (*domain.PayrollEntry, error) {
	query := `SELECT ` + payrollEntryColumns + ` FROM payroll_entries WHERE ` + where + ` LIMIT 1;`
	m, err := scanPayrollEntry(r.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payroll entry: %w", err)
	}
	entry := mapping.ToDomainPayrollEntry(m)
	return &entry, nil
}

// SaveRun inserts a run together with its entries in one transaction.
func (r *PgxPayrollRepository) SaveRun(ctx context.Context, run domain.PayrollRun, entries []domain.PayrollEntry) (err error) {
	m := mapping.ToModelPayrollRun(run)

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = r.Rollback(ctx, tx)
		}
	}()

	runQuery := `INSERT INTO payroll_runs (` + payrollRunColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);`
	_, err = tx.Exec(ctx, runQuery,
		m.RunID, m.SchoolAccountID, m.Period, m.Status, m.EntryCount, m.Successful, m.Failed,
		m.TotalNet, m.TotalDisbursed, m.ProcessedAt,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("payroll run %s: %w", m.RunID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert payroll run %s: %w", m.RunID, err)
	}

	batch := &pgx.Batch{}
	entryQuery := `INSERT INTO payroll_entries (` + payrollEntryColumns + `) VALUES (` + entryPlaceholders + `);`
	for i, e := range entries {
		batch.Queue(entryQuery, entryArgs(mapping.ToModelPayrollEntry(e, i))...)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("payroll entry: %w", apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert entries of payroll run %s: %w", m.RunID, err)
	}

	return r.Commit(ctx, tx)
}

func (r *PgxPayrollRepository) UpdateRun(ctx context.Context, run domain.PayrollRun) error {
	m := mapping.ToModelPayrollRun(run)
	query := `
		UPDATE payroll_runs
		SET status = $2, entry_count = $3, successful = $4, failed = $5, total_net = $6, total_disbursed = $7,
		    processed_at = $8, last_updated_at = $9, last_updated_by = $10, version = version + 1
		WHERE run_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		m.RunID, m.Status, m.EntryCount, m.Successful, m.Failed, m.TotalNet, m.TotalDisbursed,
		m.ProcessedAt, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update payroll run %s: %w", m.RunID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpsertEntry inserts an ad-hoc entry, appending it to its run if it has one,
// or updates the status fields of an existing entry.
func (r *PgxPayrollRepository) UpsertEntry(ctx context.Context, entry domain.PayrollEntry) error {
	m := mapping.ToModelPayrollEntry(entry, 0)
	query := `
		INSERT INTO payroll_entries (` + payrollEntryColumns + `)
		VALUES ($1, $2,
		        COALESCE((SELECT MAX(position) + 1 FROM payroll_entries WHERE run_id = $2), $3),
		        $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (entry_id) DO UPDATE
		SET status = EXCLUDED.status,
		    transaction_id = EXCLUDED.transaction_id,
		    transfer_id = EXCLUDED.transfer_id,
		    failure_reason = EXCLUDED.failure_reason,
		    processed_at = EXCLUDED.processed_at,
		    last_updated_at = EXCLUDED.last_updated_at,
		    last_updated_by = EXCLUDED.last_updated_by,
		    version = payroll_entries.version + 1;
	`
	if _, err := r.Pool.Exec(ctx, query, entryArgs(m)...); err != nil {
		return fmt.Errorf("failed to upsert payroll entry %s: %w", m.EntryID, err)
	}
	return nil
}
