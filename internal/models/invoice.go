package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a row of the invoices table. Recipient fields are flattened.
type Invoice struct {
	InvoiceID         string          `db:"invoice_id"`
	InvoiceNumber     string          `db:"invoice_number"`
	InvoiceType       string          `db:"invoice_type"`
	RecipientRef      string          `db:"recipient_ref"`
	RecipientName     string          `db:"recipient_name"`
	RecipientEmail    sql.NullString  `db:"recipient_email"`
	RecipientPhone    sql.NullString  `db:"recipient_phone"`
	PayerAccountRef   sql.NullString  `db:"payer_account_ref"`
	PayeeAccountID    string          `db:"payee_account_id"`
	CurrencyCode      string          `db:"currency_code"`
	TaxRate           decimal.Decimal `db:"tax_rate"`
	Subtotal          int64           `db:"subtotal"`
	Tax               int64           `db:"tax"`
	Total             int64           `db:"total"`
	PaidAmount        int64           `db:"paid_amount"`
	Status            string          `db:"status"`
	DueDate           time.Time       `db:"due_date"`
	ReminderCount     int             `db:"reminder_count"`
	ReceiptNumber     sql.NullString  `db:"receipt_number"`
	LastTransactionID sql.NullString  `db:"last_transaction_id"`
	DispatchMessageID sql.NullString  `db:"dispatch_message_id"`
	SentAt            sql.NullTime    `db:"sent_at"`
	PaidAt            sql.NullTime    `db:"paid_at"`
	CancelledAt       sql.NullTime    `db:"cancelled_at"`
	LastReminderAt    sql.NullTime    `db:"last_reminder_at"`
	AuditFields
}

// InvoiceLineItem is a row of invoice_line_items.
type InvoiceLineItem struct {
	LineItemID  string          `db:"line_item_id"`
	InvoiceID   string          `db:"invoice_id"`
	Position    int             `db:"position"`
	Description string          `db:"description"`
	Quantity    decimal.Decimal `db:"quantity"`
	UnitPrice   int64           `db:"unit_price"`
	Amount      int64           `db:"amount"`
}
