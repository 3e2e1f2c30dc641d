package domain_test

import (
	"testing"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func walletEntry(base, allowances, deductions int64) domain.PayrollEntry {
	return domain.PayrollEntry{
		StaffID:            "staff-1",
		BaseSalary:         base,
		Allowances:         allowances,
		Deductions:         deductions,
		NetSalary:          domain.ComputeNetSalary(base, allowances, deductions),
		Channel:            domain.ChannelWallet,
		RecipientAccountID: "acc-staff-1",
	}
}

func TestPayrollEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		entry   func() domain.PayrollEntry
		wantErr bool
	}{
		{name: "valid wallet entry", entry: func() domain.PayrollEntry { return walletEntry(100000, 20000, 5000) }},
		{name: "deductions consume everything", entry: func() domain.PayrollEntry { return walletEntry(50000, 0, 50000) }, wantErr: true},
		{name: "deductions exceed base and allowances", entry: func() domain.PayrollEntry { return walletEntry(50000, 1000, 60000) }, wantErr: true},
		{
			name: "net salary tampered",
			entry: func() domain.PayrollEntry {
				e := walletEntry(100000, 0, 0)
				e.NetSalary = 90000
				return e
			},
			wantErr: true,
		},
		{
			name: "wallet without recipient account",
			entry: func() domain.PayrollEntry {
				e := walletEntry(100000, 0, 0)
				e.RecipientAccountID = ""
				return e
			},
			wantErr: true,
		},
		{
			name: "bank with details",
			entry: func() domain.PayrollEntry {
				e := walletEntry(100000, 0, 0)
				e.Channel = domain.ChannelBank
				e.RecipientAccountID = ""
				e.RecipientDetails = "GB29NWBK60161331926819"
				return e
			},
		},
		{
			name: "bank without details",
			entry: func() domain.PayrollEntry {
				e := walletEntry(100000, 0, 0)
				e.Channel = domain.ChannelBank
				e.RecipientAccountID = ""
				return e
			},
			wantErr: true,
		},
		{
			name: "manual needs nothing else",
			entry: func() domain.PayrollEntry {
				e := walletEntry(100000, 0, 0)
				e.Channel = domain.ChannelManual
				e.RecipientAccountID = ""
				return e
			},
		},
		{
			name: "recipient account on mobile money",
			entry: func() domain.PayrollEntry {
				e := walletEntry(100000, 0, 0)
				e.Channel = domain.ChannelMobileMoney
				e.RecipientDetails = "+254700000000"
				return e
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry().Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPayrollRun_Summarize(t *testing.T) {
	entries := []domain.PayrollEntry{
		{NetSalary: 100, Status: domain.PayrollEntryCompleted},
		{NetSalary: 200, Status: domain.PayrollEntryCompleted},
		{NetSalary: 300, Status: domain.PayrollEntryFailed},
	}
	run := domain.PayrollRun{}
	run.Summarize(entries)

	assert.Equal(t, 3, run.EntryCount)
	assert.Equal(t, 2, run.Successful)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, int64(600), run.TotalNet)
	assert.Equal(t, int64(300), run.TotalDisbursed)
	assert.Equal(t, domain.PayrollRunPartiallyCompleted, run.Status)

	run.Summarize(entries[:2])
	assert.Equal(t, domain.PayrollRunCompleted, run.Status)

	run.Summarize(entries[2:])
	assert.Equal(t, domain.PayrollRunFailed, run.Status)
}

func TestPayrollEntry_CompletedOutcome(t *testing.T) {
	e := domain.PayrollEntry{TransactionID: "tx", Channel: domain.ChannelBank, TransferID: "tr"}
	out := e.CompletedOutcome()
	assert.Equal(t, domain.OutcomeQueued, out.Status)
	assert.Equal(t, "tr", out.TransferID)

	e.Channel = domain.ChannelWallet
	assert.Equal(t, domain.OutcomeCompleted, e.CompletedOutcome().Status)
}
