package models

import (
	"database/sql"
	"time"
)

// PendingTransfer is a row of pending_transfers. related_transaction_id is unique.
type PendingTransfer struct {
	TransferID           string         `db:"transfer_id"`
	TransferType         string         `db:"transfer_type"`
	Amount               int64          `db:"amount"`
	CurrencyCode         string         `db:"currency_code"`
	RecipientDetails     string         `db:"recipient_details"`
	Status               string         `db:"status"`
	RelatedTransactionID string         `db:"related_transaction_id"`
	RelatedEntityID      string         `db:"related_entity_id"`
	SourceAccountID      string         `db:"source_account_id"`
	FailureReason        sql.NullString `db:"failure_reason"`
	CreatedAt            time.Time      `db:"created_at"`
	ResolvedAt           sql.NullTime   `db:"resolved_at"`
}

// ReplayAttempt is a row of replay_attempts, keyed by the debit's transaction id.
type ReplayAttempt struct {
	TransactionID  string    `db:"transaction_id"`
	Attempts       int       `db:"attempts"`
	LastError      string    `db:"last_error"`
	NextAttemptAt  time.Time `db:"next_attempt_at"`
	NeedsAttention bool      `db:"needs_attention"`
	UpdatedAt      time.Time `db:"updated_at"`
}
