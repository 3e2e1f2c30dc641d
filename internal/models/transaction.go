package models

import (
	"database/sql"
	"time"
)

// TransactionType indicates whether a ledger row is a Debit or a Credit.
type TransactionType string

const (
	Debit  TransactionType = "DEBIT"
	Credit TransactionType = "CREDIT"
)

// Transaction is a row of the append-only transactions table.
// (transaction_id, direction) is unique.
type Transaction struct {
	RecordID        string          `db:"record_id"`
	TransactionID   string          `db:"transaction_id"`
	AccountID       string          `db:"account_id"`
	Direction       TransactionType `db:"direction"`
	Amount          int64           `db:"amount"`
	Kind            string          `db:"kind"`
	RelatedEntityID string          `db:"related_entity_id"`
	Status          string          `db:"status"`
	BalanceAfter    int64           `db:"balance_after"`
	Channel         sql.NullString  `db:"channel"`
	Counterparty    sql.NullString  `db:"counterparty"`
	CreatedAt       time.Time       `db:"created_at"`
	CreatedBy       string          `db:"created_by"`
}
