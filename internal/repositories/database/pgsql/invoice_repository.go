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

const invoiceColumns = `invoice_id, invoice_number, invoice_type, recipient_ref, recipient_name, recipient_email, recipient_phone,
	payer_account_ref, payee_account_id, currency_code, tax_rate, subtotal, tax, total, paid_amount, status, due_date,
	reminder_count, receipt_number, last_transaction_id, dispatch_message_id, sent_at, paid_at, cancelled_at, last_reminder_at,
	created_at, created_by, last_updated_at, last_updated_by, version`

const lineItemColumns = `line_item_id, invoice_id, position, description, quantity, unit_price, amount`

type PgxInvoiceRepository struct {
	BaseRepository
}

func newPgxInvoiceRepository(pool *pgxpool.Pool) *PgxInvoiceRepository {
	return &PgxInvoiceRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.InvoiceRepositoryFacade = (*PgxInvoiceRepository)(nil)

func scanInvoice(row pgx.Row) (models.Invoice, error) {
	var m models.Invoice
	err := row.Scan(
		&m.InvoiceID,
		&m.InvoiceNumber,
		&m.InvoiceType,
		&m.RecipientRef,
		&m.RecipientName,
		&m.RecipientEmail,
		&m.RecipientPhone,
		&m.PayerAccountRef,
		&m.PayeeAccountID,
		&m.CurrencyCode,
		&m.TaxRate,
		&m.Subtotal,
		&m.Tax,
		&m.Total,
		&m.PaidAmount,
		&m.Status,
		&m.DueDate,
		&m.ReminderCount,
		&m.ReceiptNumber,
		&m.LastTransactionID,
		&m.DispatchMessageID,
		&m.SentAt,
		&m.PaidAt,
		&m.CancelledAt,
		&m.LastReminderAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Version,
	)
	return m, err
}

// SaveInvoice inserts the header and its line items in one transaction.
func (r *PgxInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice) (err error) {
	m, items := mapping.ToModelInvoice(invoice)

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = r.Rollback(ctx, tx)
		}
	}()

	headerQuery := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, $23, $24, $25, $26, $27, $28, $29, $30);`
	_, err = tx.Exec(ctx, headerQuery,
		m.InvoiceID, m.InvoiceNumber, m.InvoiceType, m.RecipientRef, m.RecipientName, m.RecipientEmail, m.RecipientPhone,
		m.PayerAccountRef, m.PayeeAccountID, m.CurrencyCode, m.TaxRate, m.Subtotal, m.Tax, m.Total, m.PaidAmount, m.Status, m.DueDate,
		m.ReminderCount, m.ReceiptNumber, m.LastTransactionID, m.DispatchMessageID, m.SentAt, m.PaidAt, m.CancelledAt, m.LastReminderAt,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: invoice %s already exists", apperrors.ErrDuplicate, m.InvoiceID)
		}
		return fmt.Errorf("failed to insert invoice %s: %w", m.InvoiceID, err)
	}

	batch := &pgx.Batch{}
	itemQuery := `INSERT INTO invoice_line_items (` + lineItemColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7);`
	for _, li := range items {
		batch.Queue(itemQuery, li.LineItemID, li.InvoiceID, li.Position, li.Description, li.Quantity, li.UnitPrice, li.Amount)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert line items for invoice %s: %w", m.InvoiceID, err)
	}

	return r.Commit(ctx, tx)
}

func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_id = $1;`
	m, err := scanInvoice(r.Pool.QueryRow(ctx, query, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}
	items, err := r.lineItems(ctx, []string{invoiceID})
	if err != nil {
		return nil, err
	}
	inv := mapping.ToDomainInvoice(m, items[invoiceID])
	return &inv, nil
}

// ListOverdueCandidates returns SENT or VIEWED invoices past their due date, oldest due first.
func (r *PgxInvoiceRepository) ListOverdueCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE status IN ('SENT', 'VIEWED') AND due_date < $1
		ORDER BY due_date
		LIMIT $2;
	`
	rows, err := r.Pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue invoices: %w", err)
	}
	defer rows.Close()

	headers := make([]models.Invoice, 0)
	ids := make([]string, 0)
	for rows.Next() {
		m, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		headers = append(headers, m)
		ids = append(ids, m.InvoiceID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}

	items, err := r.lineItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Invoice, len(headers))
	for i, h := range headers {
		out[i] = mapping.ToDomainInvoice(h, items[h.InvoiceID])
	}
	return out, nil
}

// UpdateInvoice persists the mutable header fields guarded by the version column.
// Line items are immutable after creation.
func (r *PgxInvoiceRepository) UpdateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	m, _ := mapping.ToModelInvoice(*invoice)
	query := `
		UPDATE invoices
		SET payer_account_ref = $3, paid_amount = $4, status = $5, reminder_count = $6, receipt_number = $7,
		    last_transaction_id = $8, dispatch_message_id = $9, sent_at = $10, paid_at = $11, cancelled_at = $12,
		    last_reminder_at = $13, last_updated_at = $14, last_updated_by = $15, version = version + 1
		WHERE invoice_id = $1 AND version = $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		m.InvoiceID, m.Version,
		m.PayerAccountRef, m.PaidAmount, m.Status, m.ReminderCount, m.ReceiptNumber,
		m.LastTransactionID, m.DispatchMessageID, m.SentAt, m.PaidAt, m.CancelledAt,
		m.LastReminderAt, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice %s: %w", m.InvoiceID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_id = $1);`, m.InvoiceID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check invoice %s after update: %w", m.InvoiceID, err)
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("invoice version %d is stale: %w", invoice.Version, apperrors.ErrConflict)
	}
	invoice.Version++
	return nil
}

func (r *PgxInvoiceRepository) lineItems(ctx context.Context, invoiceIDs []string) (map[string][]models.InvoiceLineItem, error) {
	out := make(map[string][]models.InvoiceLineItem, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return out, nil
	}
	query := `SELECT ` + lineItemColumns + ` FROM invoice_line_items WHERE invoice_id = ANY($1) ORDER BY invoice_id, position;`
	rows, err := r.Pool.Query(ctx, query, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice line items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var li models.InvoiceLineItem
		if err := rows.Scan(&li.LineItemID, &li.InvoiceID, &li.Position, &li.Description, &li.Quantity, &li.UnitPrice, &li.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line item: %w", err)
		}
		out[li.InvoiceID] = append(out[li.InvoiceID], li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice line items: %w", err)
	}
	return out, nil
}
