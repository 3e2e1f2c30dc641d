package models

import "time"

// AccountStatus mirrors the accounts.status check constraint.
type AccountStatus string

const (
	AccountActive    AccountStatus = "ACTIVE"
	AccountSuspended AccountStatus = "SUSPENDED"
	AccountClosed    AccountStatus = "CLOSED"
)

// Account is a row of the accounts table. Balance is stored in minor units.
type Account struct {
	AccountID    string        `db:"account_id"`
	OwnerID      string        `db:"owner_id"`
	Status       AccountStatus `db:"status"`
	Balance      int64         `db:"balance"`
	CurrencyCode string        `db:"currency_code"`
	AuditFields
}

// AccountLink maps a recipient reference to an account.
type AccountLink struct {
	RecipientRef string    `db:"recipient_ref"`
	AccountID    string    `db:"account_id"`
	CreatedAt    time.Time `db:"created_at"`
	CreatedBy    string    `db:"created_by"`
}
