package domain

import "fmt"

// Channel is the disbursement mechanism used to deliver a settlement.
type Channel string

const (
	ChannelWallet      Channel = "WALLET"
	ChannelBank        Channel = "BANK"
	ChannelMobileMoney Channel = "MOBILE_MONEY"
	ChannelManual      Channel = "MANUAL"
)

// IsValid reports whether c is a known channel.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelWallet, ChannelBank, ChannelMobileMoney, ChannelManual:
		return true
	}
	return false
}

// IsExternal reports whether the channel is delivered by the external transfer worker.
func (c Channel) IsExternal() bool {
	return c == ChannelBank || c == ChannelMobileMoney || c == ChannelManual
}

// OutcomeStatus is the result of a settlement attempt.
type OutcomeStatus string

const (
	// OutcomeCompleted means the payee account has been credited.
	OutcomeCompleted OutcomeStatus = "COMPLETED"
	// OutcomeQueued means the payer was debited and a pending external transfer exists.
	OutcomeQueued OutcomeStatus = "QUEUED"
	// OutcomePendingReconciliation means the debit committed but delivery could not be recorded yet.
	OutcomePendingReconciliation OutcomeStatus = "PENDING_RECONCILIATION"
	// OutcomeFailed means nothing was moved.
	OutcomeFailed OutcomeStatus = "FAILED"
)

// SettlementRequest asks the router to move Amount for RelatedEntityID over Channel.
type SettlementRequest struct {
	PayerAccountID   string // empty when the payer side is not an engine account
	PayeeAccountID   string // required for WALLET
	RecipientDetails string // required for BANK and MOBILE_MONEY
	Amount           int64
	RelatedEntityID  string
	// Sequence disambiguates several logical payments for the same entity.
	Sequence string
	// TransactionID pins the id of a settlement already recorded elsewhere.
	// When empty the router derives it from RelatedEntityID and Sequence.
	TransactionID string
	Channel       Channel
	DebitKind     TransactionKind
	CreditKind    TransactionKind
	CreatedBy     string
}

// Validate checks the request shape. Account state is checked by the router.
func (r SettlementRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("settlement amount must be positive, got %d", r.Amount)
	}
	if r.RelatedEntityID == "" {
		return fmt.Errorf("settlement related entity id is required")
	}
	if !r.Channel.IsValid() {
		return fmt.Errorf("unknown settlement channel %q", r.Channel)
	}
	if r.Channel == ChannelWallet && r.PayeeAccountID == "" {
		return fmt.Errorf("wallet settlement requires a payee account")
	}
	if r.Channel.IsExternal() && r.PayerAccountID == "" {
		return fmt.Errorf("external settlement requires a payer account")
	}
	if (r.Channel == ChannelBank || r.Channel == ChannelMobileMoney) && r.RecipientDetails == "" {
		return fmt.Errorf("%s settlement requires recipient details", r.Channel)
	}
	if r.PayerAccountID != "" && r.PayerAccountID == r.PayeeAccountID {
		return fmt.Errorf("payer and payee must be different accounts")
	}
	if r.PayerAccountID != "" && r.DebitKind == "" {
		return fmt.Errorf("settlement debit kind is required")
	}
	if r.Channel == ChannelWallet && r.CreditKind == "" {
		return fmt.Errorf("settlement credit kind is required")
	}
	return nil
}

// SettlementOutcome is returned for every attempt, including failures.
type SettlementOutcome struct {
	TransactionID string        `json:"transactionID"`
	Status        OutcomeStatus `json:"status"`
	Channel       Channel       `json:"channel"`
	TransferID    string        `json:"transferID,omitempty"`
	FailureReason string        `json:"failureReason,omitempty"`
}

// Succeeded reports whether value left the payer (completed or queued).
func (o SettlementOutcome) Succeeded() bool {
	return o.Status == OutcomeCompleted || o.Status == OutcomeQueued
}
