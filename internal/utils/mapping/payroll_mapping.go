package mapping

import (
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/models"
)

func ToModelPayrollRun(d domain.PayrollRun) models.PayrollRun {
	return models.PayrollRun{
		RunID:           d.RunID,
		SchoolAccountID: d.SchoolAccountID,
		Period:          d.Period,
		Status:          string(d.Status),
		EntryCount:      d.EntryCount,
		Successful:      d.Successful,
		Failed:          d.Failed,
		TotalNet:        d.TotalNet,
		TotalDisbursed:  d.TotalDisbursed,
		ProcessedAt:     NullTime(d.ProcessedAt),
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
}

func ToDomainPayrollRun(m models.PayrollRun) domain.PayrollRun {
	return domain.PayrollRun{
		RunID:           m.RunID,
		SchoolAccountID: m.SchoolAccountID,
		Period:          m.Period,
		Status:          domain.PayrollRunStatus(m.Status),
		EntryCount:      m.EntryCount,
		Successful:      m.Successful,
		Failed:          m.Failed,
		TotalNet:        m.TotalNet,
		TotalDisbursed:  m.TotalDisbursed,
		ProcessedAt:     TimePtr(m.ProcessedAt),
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelPayrollEntry converts an entry; position keeps submission order inside a run.
func ToModelPayrollEntry(d domain.PayrollEntry, position int) models.PayrollEntry {
	return models.PayrollEntry{
		EntryID:            d.EntryID,
		RunID:              NullString(d.RunID),
		Position:           position,
		StaffID:            d.StaffID,
		RecipientRef:       d.Recipient.Reference,
		RecipientName:      d.Recipient.Name,
		RecipientEmail:     NullString(d.Recipient.Email),
		RecipientPhone:     NullString(d.Recipient.Phone),
		BaseSalary:         d.BaseSalary,
		Allowances:         d.Allowances,
		Deductions:         d.Deductions,
		NetSalary:          d.NetSalary,
		Channel:            string(d.Channel),
		RecipientAccountID: NullString(d.RecipientAccountID),
		RecipientDetails:   NullString(d.RecipientDetails),
		Status:             string(d.Status),
		TransactionID:      NullString(d.TransactionID),
		TransferID:         NullString(d.TransferID),
		FailureReason:      NullString(d.FailureReason),
		ProcessedAt:        NullTime(d.ProcessedAt),
		AuditFields:        ToModelAuditFields(d.AuditFields),
	}
}

func ToDomainPayrollEntry(m models.PayrollEntry) domain.PayrollEntry {
	return domain.PayrollEntry{
		EntryID: m.EntryID,
		RunID:   m.RunID.String,
		StaffID: m.StaffID,
		Recipient: domain.Recipient{
			Reference: m.RecipientRef,
			Name:      m.RecipientName,
			Email:     m.RecipientEmail.String,
			Phone:     m.RecipientPhone.String,
		},
		BaseSalary:         m.BaseSalary,
		Allowances:         m.Allowances,
		Deductions:         m.Deductions,
		NetSalary:          m.NetSalary,
		Channel:            domain.Channel(m.Channel),
		RecipientAccountID: m.RecipientAccountID.String,
		RecipientDetails:   m.RecipientDetails.String,
		Status:             domain.PayrollEntryStatus(m.Status),
		TransactionID:      m.TransactionID.String,
		TransferID:         m.TransferID.String,
		FailureReason:      m.FailureReason.String,
		ProcessedAt:        TimePtr(m.ProcessedAt),
		AuditFields:        ToDomainAuditFields(m.AuditFields),
	}
}
