package domain

import (
	"fmt"
	"time"
)

// PayrollEntryStatus tracks one salary line.
type PayrollEntryStatus string

const (
	PayrollEntryPending   PayrollEntryStatus = "PENDING"
	PayrollEntryCompleted PayrollEntryStatus = "COMPLETED"
	PayrollEntryFailed    PayrollEntryStatus = "FAILED"
)

// PayrollEntry is one staff member's salary line within a run.
// NetSalary is fixed when the entry is created and never recomputed.
type PayrollEntry struct {
	EntryID            string             `json:"entryID"`
	RunID              string             `json:"runID,omitempty"`
	StaffID            string             `json:"staffID"`
	Recipient          Recipient          `json:"recipient"`
	BaseSalary         int64              `json:"baseSalary"`
	Allowances         int64              `json:"allowances"`
	Deductions         int64              `json:"deductions"`
	NetSalary          int64              `json:"netSalary"`
	Channel            Channel            `json:"channel"`
	RecipientAccountID string             `json:"recipientAccountID,omitempty"`
	RecipientDetails   string             `json:"recipientDetails,omitempty"`
	Status             PayrollEntryStatus `json:"status"`
	TransactionID      string             `json:"transactionID,omitempty"`
	TransferID         string             `json:"transferID,omitempty"`
	FailureReason      string             `json:"failureReason,omitempty"`
	ProcessedAt        *time.Time         `json:"processedAt,omitempty"`
	AuditFields
}

// ComputeNetSalary returns base + allowances - deductions.
func ComputeNetSalary(base, allowances, deductions int64) int64 {
	return base + allowances - deductions
}

// Validate checks the entry before it is allowed near the router.
func (e PayrollEntry) Validate() error {
	if e.StaffID == "" {
		return fmt.Errorf("staff id is required")
	}
	if e.BaseSalary < 0 || e.Allowances < 0 || e.Deductions < 0 {
		return fmt.Errorf("salary components must not be negative")
	}
	if e.NetSalary != ComputeNetSalary(e.BaseSalary, e.Allowances, e.Deductions) {
		return fmt.Errorf("net salary %d does not match base + allowances - deductions", e.NetSalary)
	}
	if e.NetSalary <= 0 {
		return fmt.Errorf("net salary must be positive, got %d", e.NetSalary)
	}
	if !e.Channel.IsValid() {
		return fmt.Errorf("unknown channel %q", e.Channel)
	}
	if e.Channel == ChannelWallet && e.RecipientAccountID == "" {
		return fmt.Errorf("wallet channel requires a recipient account")
	}
	if e.Channel != ChannelWallet && e.RecipientAccountID != "" {
		return fmt.Errorf("recipient account is only used by the wallet channel")
	}
	if (e.Channel == ChannelBank || e.Channel == ChannelMobileMoney) && e.RecipientDetails == "" {
		return fmt.Errorf("%s channel requires recipient details", e.Channel)
	}
	return nil
}

// TermsDiffer reports the first payment term of a resubmitted entry that does not
// match the stored copy. An empty RunID on the resubmission means "same run".
func (e PayrollEntry) TermsDiffer(resubmitted PayrollEntry) error {
	switch {
	case resubmitted.RunID != "" && resubmitted.RunID != e.RunID:
		return fmt.Errorf("entry belongs to run %q", e.RunID)
	case resubmitted.StaffID != e.StaffID:
		return fmt.Errorf("staff id differs")
	case resubmitted.BaseSalary != e.BaseSalary || resubmitted.Allowances != e.Allowances ||
		resubmitted.Deductions != e.Deductions || resubmitted.NetSalary != e.NetSalary:
		return fmt.Errorf("salary amounts differ")
	case resubmitted.Channel != e.Channel:
		return fmt.Errorf("channel differs")
	case resubmitted.RecipientAccountID != e.RecipientAccountID ||
		resubmitted.RecipientDetails != e.RecipientDetails ||
		resubmitted.Recipient.Reference != e.Recipient.Reference:
		return fmt.Errorf("recipient differs")
	}
	return nil
}

// CompletedOutcome rebuilds the outcome of an entry that already paid out.
func (e PayrollEntry) CompletedOutcome() SettlementOutcome {
	status := OutcomeCompleted
	if e.Channel.IsExternal() {
		status = OutcomeQueued
	}
	return SettlementOutcome{
		TransactionID: e.TransactionID,
		Status:        status,
		Channel:       e.Channel,
		TransferID:    e.TransferID,
	}
}

// PayrollRunStatus is the aggregate state of a run.
type PayrollRunStatus string

const (
	PayrollRunDraft              PayrollRunStatus = "DRAFT"
	PayrollRunProcessing         PayrollRunStatus = "PROCESSING"
	PayrollRunCompleted          PayrollRunStatus = "COMPLETED"
	PayrollRunPartiallyCompleted PayrollRunStatus = "PARTIALLY_COMPLETED"
	PayrollRunFailed             PayrollRunStatus = "FAILED"
)

// PayrollRun is a batch of salary disbursements against one school account.
type PayrollRun struct {
	RunID           string           `json:"runID"`
	SchoolAccountID string           `json:"schoolAccountID"`
	Period          string           `json:"period"`
	Status          PayrollRunStatus `json:"status"`
	EntryCount      int              `json:"entryCount"`
	Successful      int              `json:"successful"`
	Failed          int              `json:"failed"`
	TotalNet        int64            `json:"totalNet"`
	TotalDisbursed  int64            `json:"totalDisbursed"`
	ProcessedAt     *time.Time       `json:"processedAt,omitempty"`
	AuditFields
}

// Summarize recomputes run totals from its entries.
func (r *PayrollRun) Summarize(entries []PayrollEntry) {
	r.EntryCount = len(entries)
	r.Successful, r.Failed = 0, 0
	r.TotalNet, r.TotalDisbursed = 0, 0
	for _, e := range entries {
		r.TotalNet += e.NetSalary
		if e.Status == PayrollEntryCompleted {
			r.Successful++
			r.TotalDisbursed += e.NetSalary
		} else {
			r.Failed++
		}
	}
	switch {
	case r.Successful == r.EntryCount:
		r.Status = PayrollRunCompleted
	case r.Successful == 0:
		r.Status = PayrollRunFailed
	default:
		r.Status = PayrollRunPartiallyCompleted
	}
}

// PayrollEntryResult is the per-entry line of a bulk result.
type PayrollEntryResult struct {
	EntryID string            `json:"entryID"`
	StaffID string            `json:"staffID"`
	Outcome SettlementOutcome `json:"outcome"`
	Error   string            `json:"error,omitempty"`
}

// BulkResult summarises a bulk payroll pass.
type BulkResult struct {
	Successful int                  `json:"successful"`
	Failed     int                  `json:"failed"`
	Results    []PayrollEntryResult `json:"results"`
}
