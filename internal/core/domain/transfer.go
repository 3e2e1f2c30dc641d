package domain

import "time"

// TransferStatus tracks a queued external payout.
type TransferStatus string

const (
	TransferPending TransferStatus = "PENDING"
	TransferSettled TransferStatus = "SETTLED"
	TransferFailed  TransferStatus = "FAILED"
)

// PendingExternalTransfer is a payout instruction for the bank, mobile money or manual worker.
// It is written once the source debit has committed; RelatedTransactionID is unique.
type PendingExternalTransfer struct {
	TransferID           string         `json:"transferID"`
	Type                 Channel        `json:"type"`
	Amount               int64          `json:"amount"`
	CurrencyCode         string         `json:"currencyCode"`
	RecipientDetails     string         `json:"recipientDetails"`
	Status               TransferStatus `json:"status"`
	RelatedTransactionID string         `json:"relatedTransactionID"`
	RelatedEntityID      string         `json:"relatedEntityID"`
	SourceAccountID      string         `json:"sourceAccountID"`
	FailureReason        string         `json:"failureReason,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
	ResolvedAt           *time.Time     `json:"resolvedAt,omitempty"`
}

// ReversalKey is the idempotency key used to refund the source account of a failed transfer.
func (t PendingExternalTransfer) ReversalKey() string {
	return t.RelatedTransactionID + ":reversal"
}

// AccountLink maps a recipient reference (parent, staff member) to an engine account.
type AccountLink struct {
	RecipientRef string    `json:"recipientRef"`
	AccountID    string    `json:"accountID"`
	CreatedAt    time.Time `json:"createdAt"`
	CreatedBy    string    `json:"createdBy"`
}

// ReplayReport summarises one orphaned debit replay pass.
type ReplayReport struct {
	Scanned int `json:"scanned"`
	Resumed int `json:"resumed"`
	Failed  int `json:"failed"`
	// NeedsAttention counts debits parked for manual reconciliation in this pass.
	NeedsAttention int                 `json:"needsAttention"`
	Results        []SettlementOutcome `json:"results"`
}

// ReplayAttempt tracks failed deliveries of one orphaned debit. The debit is not
// replayed before NextAttemptAt, and never again once NeedsAttention is set.
type ReplayAttempt struct {
	TransactionID  string    `json:"transactionID"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"lastError"`
	NextAttemptAt  time.Time `json:"nextAttemptAt"`
	NeedsAttention bool      `json:"needsAttention"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
