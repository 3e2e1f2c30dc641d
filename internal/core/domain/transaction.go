package domain

import (
	"fmt"
	"time"
)

// Direction indicates whether a ledger row took value out of or into an account.
type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

// TransactionKind classifies a ledger row.
type TransactionKind string

const (
	KindFeePayment       TransactionKind = "FEE_PAYMENT"
	KindFeeReceived      TransactionKind = "FEE_RECEIVED"
	KindSalaryPayment    TransactionKind = "SALARY_PAYMENT"
	KindSalaryReceived   TransactionKind = "SALARY_RECEIVED"
	KindTransferReversal TransactionKind = "TRANSFER_REVERSAL"
	KindOpeningBalance   TransactionKind = "OPENING_BALANCE"
)

// CreditKindFor returns the kind written on the receiving side of a debit kind.
func CreditKindFor(debit TransactionKind) TransactionKind {
	switch debit {
	case KindFeePayment:
		return KindFeeReceived
	case KindSalaryPayment:
		return KindSalaryReceived
	}
	return ""
}

// TransactionStatus is always COMPLETED once a row is written; failed attempts are never stored.
type TransactionStatus string

const TransactionCompleted TransactionStatus = "COMPLETED"

// TransactionRecord is one immutable ledger row.
// A wallet settlement writes exactly one DEBIT and one CREDIT row sharing TransactionID.
type TransactionRecord struct {
	RecordID        string            `json:"recordID"`
	TransactionID   string            `json:"transactionID"` // idempotency key
	AccountID       string            `json:"accountID"`
	Direction       Direction         `json:"direction"`
	Amount          int64             `json:"amount"`
	Kind            TransactionKind   `json:"kind"`
	RelatedEntityID string            `json:"relatedEntityID"`
	Status          TransactionStatus `json:"status"`
	BalanceAfter    int64             `json:"balanceAfter"`
	Channel         Channel           `json:"channel,omitempty"`
	Counterparty    string            `json:"counterparty,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	CreatedBy       string            `json:"createdBy"`
}

// Posting is the input to a single debit or credit against the account store.
type Posting struct {
	AccountID       string
	Amount          int64
	IdempotencyKey  string
	Kind            TransactionKind
	RelatedEntityID string
	Channel         Channel
	// Counterparty records where the value went (or came from) so an orphaned debit can be replayed.
	Counterparty string
	CreatedBy    string
}

// Validate checks the posting before any account is touched.
func (p Posting) Validate() error {
	if p.AccountID == "" {
		return fmt.Errorf("posting account id is required")
	}
	if p.Amount <= 0 {
		return fmt.Errorf("posting amount must be positive, got %d", p.Amount)
	}
	if p.IdempotencyKey == "" {
		return fmt.Errorf("posting idempotency key is required")
	}
	if p.Kind == "" {
		return fmt.Errorf("posting kind is required")
	}
	return nil
}

// Matches reports whether an existing row was produced by the same posting.
func (p Posting) Matches(rec TransactionRecord) bool {
	return rec.AccountID == p.AccountID && rec.Amount == p.Amount && rec.Kind == p.Kind
}
