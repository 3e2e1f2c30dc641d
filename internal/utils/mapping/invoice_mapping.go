package mapping

import (
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/models"
)

// ToModelInvoice flattens a domain Invoice into its header row and line item rows.
func ToModelInvoice(d domain.Invoice) (models.Invoice, []models.InvoiceLineItem) {
	m := models.Invoice{
		InvoiceID:         d.InvoiceID,
		InvoiceNumber:     d.InvoiceNumber,
		InvoiceType:       string(d.Type),
		RecipientRef:      d.Recipient.Reference,
		RecipientName:     d.Recipient.Name,
		RecipientEmail:    NullString(d.Recipient.Email),
		RecipientPhone:    NullString(d.Recipient.Phone),
		PayerAccountRef:   NullString(d.PayerAccountRef),
		PayeeAccountID:    d.PayeeAccountID,
		CurrencyCode:      d.CurrencyCode,
		TaxRate:           d.TaxRate,
		Subtotal:          d.Subtotal,
		Tax:               d.Tax,
		Total:             d.Total,
		PaidAmount:        d.PaidAmount,
		Status:            string(d.Status),
		DueDate:           d.DueDate,
		ReminderCount:     d.ReminderCount,
		ReceiptNumber:     NullString(d.ReceiptNumber),
		LastTransactionID: NullString(d.LastTransactionID),
		DispatchMessageID: NullString(d.DispatchMessageID),
		SentAt:            NullTime(d.SentAt),
		PaidAt:            NullTime(d.PaidAt),
		CancelledAt:       NullTime(d.CancelledAt),
		LastReminderAt:    NullTime(d.LastReminderAt),
		AuditFields:       ToModelAuditFields(d.AuditFields),
	}
	items := make([]models.InvoiceLineItem, len(d.LineItems))
	for i, li := range d.LineItems {
		items[i] = models.InvoiceLineItem{
			LineItemID:  li.LineItemID,
			InvoiceID:   d.InvoiceID,
			Position:    i,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Amount:      li.Amount,
		}
	}
	return m, items
}

// ToDomainInvoice rebuilds a domain Invoice. Line items must already be in position order.
func ToDomainInvoice(m models.Invoice, items []models.InvoiceLineItem) domain.Invoice {
	d := domain.Invoice{
		InvoiceID:     m.InvoiceID,
		InvoiceNumber: m.InvoiceNumber,
		Type:          domain.InvoiceType(m.InvoiceType),
		Recipient: domain.Recipient{
			Reference: m.RecipientRef,
			Name:      m.RecipientName,
			Email:     m.RecipientEmail.String,
			Phone:     m.RecipientPhone.String,
		},
		PayerAccountRef:   m.PayerAccountRef.String,
		PayeeAccountID:    m.PayeeAccountID,
		CurrencyCode:      m.CurrencyCode,
		TaxRate:           m.TaxRate,
		Subtotal:          m.Subtotal,
		Tax:               m.Tax,
		Total:             m.Total,
		PaidAmount:        m.PaidAmount,
		Status:            domain.InvoiceStatus(m.Status),
		DueDate:           m.DueDate,
		ReminderCount:     m.ReminderCount,
		ReceiptNumber:     m.ReceiptNumber.String,
		LastTransactionID: m.LastTransactionID.String,
		DispatchMessageID: m.DispatchMessageID.String,
		SentAt:            TimePtr(m.SentAt),
		PaidAt:            TimePtr(m.PaidAt),
		CancelledAt:       TimePtr(m.CancelledAt),
		LastReminderAt:    TimePtr(m.LastReminderAt),
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}
	d.LineItems = make([]domain.InvoiceLineItem, len(items))
	for i, li := range items {
		d.LineItems[i] = domain.InvoiceLineItem{
			LineItemID:  li.LineItemID,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Amount:      li.Amount,
		}
	}
	return d
}
