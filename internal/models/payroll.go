package models

import "database/sql"

// PayrollRun is a row of payroll_runs.
type PayrollRun struct {
	RunID           string       `db:"run_id"`
	SchoolAccountID string       `db:"school_account_id"`
	Period          string       `db:"period"`
	Status          string       `db:"status"`
	EntryCount      int          `db:"entry_count"`
	Successful      int          `db:"successful"`
	Failed          int          `db:"failed"`
	TotalNet        int64        `db:"total_net"`
	TotalDisbursed  int64        `db:"total_disbursed"`
	ProcessedAt     sql.NullTime `db:"processed_at"`
	AuditFields
}

// PayrollEntry is a row of payroll_entries. Ad-hoc salary payments have no run.
type PayrollEntry struct {
	EntryID            string         `db:"entry_id"`
	RunID              sql.NullString `db:"run_id"`
	Position           int            `db:"position"`
	StaffID            string         `db:"staff_id"`
	RecipientRef       string         `db:"recipient_ref"`
	RecipientName      string         `db:"recipient_name"`
	RecipientEmail     sql.NullString `db:"recipient_email"`
	RecipientPhone     sql.NullString `db:"recipient_phone"`
	BaseSalary         int64          `db:"base_salary"`
	Allowances         int64          `db:"allowances"`
	Deductions         int64          `db:"deductions"`
	NetSalary          int64          `db:"net_salary"`
	Channel            string         `db:"channel"`
	RecipientAccountID sql.NullString `db:"recipient_account_id"`
	RecipientDetails   sql.NullString `db:"recipient_details"`
	Status             string         `db:"status"`
	TransactionID      sql.NullString `db:"transaction_id"`
	TransferID         sql.NullString `db:"transfer_id"`
	FailureReason      sql.NullString `db:"failure_reason"`
	ProcessedAt        sql.NullTime   `db:"processed_at"`
	AuditFields
}
