package dto

import (
	"time"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RecipientRequest identifies the person an invoice or slip is addressed to.
type RecipientRequest struct {
	Reference string `json:"reference" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"omitempty,e164"`
}

// ToDomain converts the request to a domain.Recipient.
func (r RecipientRequest) ToDomain() domain.Recipient {
	return domain.Recipient{Reference: r.Reference, Name: r.Name, Email: r.Email, Phone: r.Phone}
}

// LineItemRequest is one billed line. Quantity may be fractional.
type LineItemRequest struct {
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   int64           `json:"unitPrice" binding:"required,gt=0"`
}

// CreateInvoiceRequest defines the data needed to create a DRAFT invoice.
type CreateInvoiceRequest struct {
	Type           domain.InvoiceType `json:"type" binding:"required,oneof=PROFORMA INVOICE RECEIPT FEE_NOTICE"`
	PayeeAccountID string             `json:"payeeAccountID"` // Optional: payment fails until configured
	CurrencyCode   string             `json:"currencyCode" binding:"omitempty,len=3,uppercase"` // Defaults to the payee account currency
	Recipient      RecipientRequest   `json:"recipient" binding:"required"`
	LineItems      []LineItemRequest  `json:"lineItems" binding:"required,min=1,dive"`
	TaxRate        *decimal.Decimal   `json:"taxRate"` // Optional, no tax when absent
	DueDate        time.Time          `json:"dueDate" binding:"required"`
}

// PayInvoiceRequest names the account paying the invoice.
type PayInvoiceRequest struct {
	PayerAccountID string `json:"payerAccountID"` // Optional, falls back to the resolved payer
}

// OverdueSweepRequest lets a scheduler pin the sweep time.
type OverdueSweepRequest struct {
	AsOf *time.Time `json:"asOf"`
}

// OverdueSweepResponse reports how many invoices moved to OVERDUE.
type OverdueSweepResponse struct {
	Updated int `json:"updated"`
}

// InvoiceResponse mirrors domain.Invoice.
type InvoiceResponse struct {
	InvoiceID         string                   `json:"invoiceID"`
	InvoiceNumber     string                   `json:"invoiceNumber"`
	Type              domain.InvoiceType       `json:"type"`
	Recipient         domain.Recipient         `json:"recipient"`
	PayerAccountRef   string                   `json:"payerAccountRef,omitempty"`
	PayeeAccountID    string                   `json:"payeeAccountID"`
	CurrencyCode      string                   `json:"currencyCode"`
	LineItems         []domain.InvoiceLineItem `json:"lineItems"`
	TaxRate           decimal.Decimal          `json:"taxRate"`
	Subtotal          int64                    `json:"subtotal"`
	Tax               int64                    `json:"tax"`
	Total             int64                    `json:"total"`
	PaidAmount        int64                    `json:"paidAmount"`
	AmountDue         int64                    `json:"amountDue"`
	Status            domain.InvoiceStatus     `json:"status"`
	DueDate           time.Time                `json:"dueDate"`
	ReminderCount     int                      `json:"reminderCount"`
	ReceiptNumber     string                   `json:"receiptNumber,omitempty"`
	LastTransactionID string                   `json:"lastTransactionID,omitempty"`
	SentAt            *time.Time               `json:"sentAt,omitempty"`
	PaidAt            *time.Time               `json:"paidAt,omitempty"`
	CancelledAt       *time.Time               `json:"cancelledAt,omitempty"`
	CreatedAt         time.Time                `json:"createdAt"`
	LastUpdatedAt     time.Time                `json:"lastUpdatedAt"`
}

// ToInvoiceResponse converts a domain.Invoice to InvoiceResponse DTO
func ToInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	return InvoiceResponse{
		InvoiceID:         inv.InvoiceID,
		InvoiceNumber:     inv.InvoiceNumber,
		Type:              inv.Type,
		Recipient:         inv.Recipient,
		PayerAccountRef:   inv.PayerAccountRef,
		PayeeAccountID:    inv.PayeeAccountID,
		CurrencyCode:      inv.CurrencyCode,
		LineItems:         inv.LineItems,
		TaxRate:           inv.TaxRate,
		Subtotal:          inv.Subtotal,
		Tax:               inv.Tax,
		Total:             inv.Total,
		PaidAmount:        inv.PaidAmount,
		AmountDue:         inv.AmountDue(),
		Status:            inv.Status,
		DueDate:           inv.DueDate,
		ReminderCount:     inv.ReminderCount,
		ReceiptNumber:     inv.ReceiptNumber,
		LastTransactionID: inv.LastTransactionID,
		SentAt:            inv.SentAt,
		PaidAt:            inv.PaidAt,
		CancelledAt:       inv.CancelledAt,
		CreatedAt:         inv.CreatedAt,
		LastUpdatedAt:     inv.LastUpdatedAt,
	}
}

// DispatchResponse is returned by the dispatch and reminder endpoints.
type DispatchResponse struct {
	Invoice  InvoiceResponse       `json:"invoice"`
	Delivery domain.DeliveryResult `json:"delivery"`
}

// ToDispatchResponse converts a domain.DispatchResult to DispatchResponse DTO
func ToDispatchResponse(res *domain.DispatchResult) DispatchResponse {
	return DispatchResponse{Invoice: ToInvoiceResponse(res.Invoice), Delivery: res.Delivery}
}
