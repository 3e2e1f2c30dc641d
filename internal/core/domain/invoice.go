package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceType distinguishes the document an invoice is issued as.
type InvoiceType string

const (
	InvoiceTypeProforma  InvoiceType = "PROFORMA"
	InvoiceTypeInvoice   InvoiceType = "INVOICE"
	InvoiceTypeReceipt   InvoiceType = "RECEIPT"
	InvoiceTypeFeeNotice InvoiceType = "FEE_NOTICE"
)

// NumberPrefix returns the prefix used for generated invoice numbers.
func (t InvoiceType) NumberPrefix() string {
	switch t {
	case InvoiceTypeProforma:
		return "PRO"
	case InvoiceTypeReceipt:
		return "RCT"
	case InvoiceTypeFeeNotice:
		return "FEE"
	default:
		return "INV"
	}
}

// IsValid reports whether t is a known invoice type.
func (t InvoiceType) IsValid() bool {
	switch t {
	case InvoiceTypeProforma, InvoiceTypeInvoice, InvoiceTypeReceipt, InvoiceTypeFeeNotice:
		return true
	}
	return false
}

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "DRAFT"
	// InvoiceDispatchRequested is persisted while the dispatcher has not acknowledged delivery.
	InvoiceDispatchRequested InvoiceStatus = "DISPATCH_REQUESTED"
	InvoiceSent              InvoiceStatus = "SENT"
	InvoiceViewed            InvoiceStatus = "VIEWED"
	InvoicePaid              InvoiceStatus = "PAID"
	InvoiceOverdue           InvoiceStatus = "OVERDUE"
	InvoiceCancelled         InvoiceStatus = "CANCELLED"
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:             {InvoiceDispatchRequested, InvoicePaid, InvoiceCancelled},
	InvoiceDispatchRequested: {InvoiceSent, InvoiceDraft, InvoicePaid},
	InvoiceSent:              {InvoiceViewed, InvoiceOverdue, InvoicePaid, InvoiceCancelled},
	InvoiceViewed:            {InvoiceOverdue, InvoicePaid},
	InvoiceOverdue:           {InvoicePaid},
}

// CanTransitionInvoice reports whether an invoice may move from one status to another.
func CanTransitionInvoice(from, to InvoiceStatus) bool {
	for _, s := range invoiceTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// InvoiceLineItem is one billed line. Amount is quantity × unit price rounded half up to minor units.
type InvoiceLineItem struct {
	LineItemID  string          `json:"lineItemID"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   int64           `json:"unitPrice"`
	Amount      int64           `json:"amount"`
}

// LineAmount computes quantity × unitPrice in minor units.
func LineAmount(quantity decimal.Decimal, unitPrice int64) (int64, error) {
	if !quantity.IsPositive() {
		return 0, fmt.Errorf("quantity must be positive, got %s", quantity.String())
	}
	if unitPrice <= 0 {
		return 0, fmt.Errorf("unit price must be positive, got %d", unitPrice)
	}
	amount := quantity.Mul(decimal.NewFromInt(unitPrice)).Round(0)
	if !amount.IsPositive() {
		return 0, fmt.Errorf("line amount rounds to zero")
	}
	return amount.IntPart(), nil
}

// InvoiceTotals computes subtotal, tax and total for a set of line items.
// Tax is only applied when taxRate is explicitly positive.
func InvoiceTotals(items []InvoiceLineItem, taxRate decimal.Decimal) (subtotal, tax, total int64, err error) {
	if len(items) == 0 {
		return 0, 0, 0, fmt.Errorf("invoice needs at least one line item")
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(1)) {
		return 0, 0, 0, fmt.Errorf("tax rate must be between 0 and 1, got %s", taxRate.String())
	}
	for i := range items {
		amount, lineErr := LineAmount(items[i].Quantity, items[i].UnitPrice)
		if lineErr != nil {
			return 0, 0, 0, fmt.Errorf("line %d: %w", i+1, lineErr)
		}
		items[i].Amount = amount
		subtotal += amount
	}
	if taxRate.IsPositive() {
		tax = decimal.NewFromInt(subtotal).Mul(taxRate).Round(0).IntPart()
	}
	return subtotal, tax, subtotal + tax, nil
}

// Invoice is a payable obligation.
type Invoice struct {
	InvoiceID     string            `json:"invoiceID"`
	InvoiceNumber string            `json:"invoiceNumber"`
	Type          InvoiceType       `json:"type"`
	Recipient     Recipient         `json:"recipient"`
	// PayerAccountRef stays empty until the identity resolver links the recipient to an account.
	PayerAccountRef   string            `json:"payerAccountRef,omitempty"`
	PayeeAccountID    string            `json:"payeeAccountID"`
	CurrencyCode      string            `json:"currencyCode"`
	LineItems         []InvoiceLineItem `json:"lineItems"`
	TaxRate           decimal.Decimal   `json:"taxRate"`
	Subtotal          int64             `json:"subtotal"`
	Tax               int64             `json:"tax"`
	Total             int64             `json:"total"`
	PaidAmount        int64             `json:"paidAmount"`
	Status            InvoiceStatus     `json:"status"`
	DueDate           time.Time         `json:"dueDate"`
	ReminderCount     int               `json:"reminderCount"`
	ReceiptNumber     string            `json:"receiptNumber,omitempty"`
	LastTransactionID string            `json:"lastTransactionID,omitempty"`
	DispatchMessageID string            `json:"dispatchMessageID,omitempty"`
	SentAt            *time.Time        `json:"sentAt,omitempty"`
	PaidAt            *time.Time        `json:"paidAt,omitempty"`
	CancelledAt       *time.Time        `json:"cancelledAt,omitempty"`
	LastReminderAt    *time.Time        `json:"lastReminderAt,omitempty"`
	AuditFields
}

// AmountDue is what remains to be paid.
func (i Invoice) AmountDue() int64 {
	return i.Total - i.PaidAmount
}

// IsPastDue reports whether the due date has passed at now.
func (i Invoice) IsPastDue(now time.Time) bool {
	return !i.DueDate.IsZero() && now.After(i.DueDate)
}

// TransitionTo moves the invoice to the given status if the lifecycle allows it.
func (i *Invoice) TransitionTo(to InvoiceStatus) error {
	if !CanTransitionInvoice(i.Status, to) {
		return fmt.Errorf("invoice %s cannot move from %s to %s", i.InvoiceNumber, i.Status, to)
	}
	i.Status = to
	return nil
}

// MarkPaid settles the remaining amount. PAID holds exactly when PaidAmount equals Total.
func (i *Invoice) MarkPaid(transactionID, receiptNumber string, at time.Time) error {
	if err := i.TransitionTo(InvoicePaid); err != nil {
		return err
	}
	i.PaidAmount = i.Total
	i.LastTransactionID = transactionID
	i.ReceiptNumber = receiptNumber
	i.PaidAt = &at
	return nil
}

// Receipt is returned after a successful invoice payment.
type Receipt struct {
	InvoiceID     string         `json:"invoiceID"`
	InvoiceNumber string         `json:"invoiceNumber"`
	ReceiptNumber string         `json:"receiptNumber"`
	TransactionID string         `json:"transactionID"`
	AmountPaid    int64          `json:"amountPaid"`
	CurrencyCode  string         `json:"currencyCode"`
	PaidAt        time.Time      `json:"paidAt"`
	Notification  DeliveryResult `json:"notification"`
}

// DispatchResult pairs the invoice after dispatch with the dispatcher's answer.
type DispatchResult struct {
	Invoice  *Invoice       `json:"invoice"`
	Delivery DeliveryResult `json:"delivery"`
}
