package mapping

import (
	"testing"
	"time"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceMapping_NullableColumns(t *testing.T) {
	sent := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inv := domain.Invoice{
		InvoiceID: "inv-1",
		Recipient: domain.Recipient{Reference: "parent-1", Name: "A Parent"},
		TaxRate:   decimal.RequireFromString("0.075"),
		Status:    domain.InvoiceSent,
		SentAt:    &sent,
		LineItems: []domain.InvoiceLineItem{
			{LineItemID: "li-1", Description: "Tuition", Quantity: decimal.NewFromInt(1), UnitPrice: 100000, Amount: 100000},
			{LineItemID: "li-2", Description: "Books", Quantity: decimal.NewFromInt(2), UnitPrice: 25000, Amount: 50000},
		},
	}

	m, items := ToModelInvoice(inv)
	assert.False(t, m.PayerAccountRef.Valid, "unresolved payer is stored as NULL")
	assert.False(t, m.PaidAt.Valid)
	assert.True(t, m.SentAt.Valid)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[1].Position)
	assert.Equal(t, "inv-1", items[1].InvoiceID)

	back := ToDomainInvoice(m, items)
	assert.Equal(t, "", back.PayerAccountRef)
	assert.Nil(t, back.PaidAt)
	require.NotNil(t, back.SentAt)
	assert.True(t, sent.Equal(*back.SentAt))
	assert.Equal(t, "Books", back.LineItems[1].Description)
	assert.True(t, back.TaxRate.Equal(inv.TaxRate))
}

func TestPayrollEntryMapping_AdHocEntryHasNoRun(t *testing.T) {
	e := domain.PayrollEntry{EntryID: "e-1", StaffID: "staff-1", Channel: domain.ChannelBank, RecipientDetails: "0123456789"}
	m := ToModelPayrollEntry(e, 0)
	assert.False(t, m.RunID.Valid)
	assert.False(t, m.RecipientAccountID.Valid)
	assert.Equal(t, "0123456789", m.RecipientDetails.String)
	assert.Equal(t, e, ToDomainPayrollEntry(m))
}

func TestTransactionMapping_OpeningBalanceHasNoChannel(t *testing.T) {
	rec := domain.TransactionRecord{RecordID: "r-1", TransactionID: "opening/a", Direction: domain.Credit, Kind: domain.KindOpeningBalance}
	m := ToModelTransaction(rec)
	assert.False(t, m.Channel.Valid)
	assert.Equal(t, rec, ToDomainTransaction(m))
}
