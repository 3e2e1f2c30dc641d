package dto

import (
	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

// PayrollEntryRequest is one salary line. Net salary is computed by the service.
type PayrollEntryRequest struct {
	EntryID            string           `json:"entryID" binding:"omitempty,max=64"` // Optional; reuse it to retry safely
	StaffID            string           `json:"staffID" binding:"required"`
	Recipient          RecipientRequest `json:"recipient" binding:"required"`
	BaseSalary         int64            `json:"baseSalary" binding:"gte=0"`
	Allowances         int64            `json:"allowances" binding:"gte=0"`
	Deductions         int64            `json:"deductions" binding:"gte=0"`
	Channel            domain.Channel   `json:"channel" binding:"required,oneof=WALLET BANK MOBILE_MONEY MANUAL"`
	RecipientAccountID string           `json:"recipientAccountID"`
	RecipientDetails   string           `json:"recipientDetails"`
}

// ToDomain builds a PENDING entry with its fixed net salary.
func (r PayrollEntryRequest) ToDomain() domain.PayrollEntry {
	return domain.PayrollEntry{
		EntryID:            r.EntryID,
		StaffID:            r.StaffID,
		Recipient:          r.Recipient.ToDomain(),
		BaseSalary:         r.BaseSalary,
		Allowances:         r.Allowances,
		Deductions:         r.Deductions,
		NetSalary:          domain.ComputeNetSalary(r.BaseSalary, r.Allowances, r.Deductions),
		Channel:            r.Channel,
		RecipientAccountID: r.RecipientAccountID,
		RecipientDetails:   r.RecipientDetails,
		Status:             domain.PayrollEntryPending,
	}
}

// CreatePayrollRunRequest defines a new DRAFT payroll run.
type CreatePayrollRunRequest struct {
	SchoolAccountID string                `json:"schoolAccountID" binding:"required"`
	Period          string                `json:"period" binding:"required"`
	Entries         []PayrollEntryRequest `json:"entries" binding:"required,min=1,dive"`
}

// PaySalaryRequest pays a single ad-hoc entry.
type PaySalaryRequest struct {
	SchoolAccountID string              `json:"schoolAccountID" binding:"required"`
	Entry           PayrollEntryRequest `json:"entry" binding:"required"`
}

// PayrollRunResponse returns a run with its entries.
type PayrollRunResponse struct {
	Run     domain.PayrollRun     `json:"run"`
	Entries []domain.PayrollEntry `json:"entries"`
}

// ProcessRunResponse returns the run after processing and the per-entry results.
type ProcessRunResponse struct {
	Run    domain.PayrollRun  `json:"run"`
	Result *domain.BulkResult `json:"result"`
}
