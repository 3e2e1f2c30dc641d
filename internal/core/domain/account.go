package domain

// AccountStatus is the lifecycle state of a balance holder.
type AccountStatus string

const (
	AccountActive    AccountStatus = "ACTIVE"
	AccountSuspended AccountStatus = "SUSPENDED"
	AccountClosed    AccountStatus = "CLOSED"
)

// Account represents a payer wallet or an institution wallet.
// Balance is held in minor units and is never negative after a committed operation.
type Account struct {
	AccountID    string        `json:"accountID"`
	OwnerID      string        `json:"ownerID"`
	Status       AccountStatus `json:"status"`
	Balance      int64         `json:"balance"`
	CurrencyCode string        `json:"currencyCode"`
	AuditFields
}

// IsActive reports whether the account may be debited or credited.
func (a Account) IsActive() bool {
	return a.Status == AccountActive
}
