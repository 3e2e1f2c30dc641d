package services

import (
	"context"
	"time"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/dto"
)

// InvoiceReaderSvc defines read operations for invoices
type InvoiceReaderSvc interface {
	GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error)
}

// InvoiceLifecycleSvc owns invoice state transitions.
type InvoiceLifecycleSvc interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest, userID string) (*domain.Invoice, error)
	Dispatch(ctx context.Context, invoiceID string, userID string) (*domain.DispatchResult, error)
	MarkViewed(ctx context.Context, invoiceID string, userID string) (*domain.Invoice, error)
	SendReminder(ctx context.Context, invoiceID string, userID string) (*domain.DispatchResult, error)
	Cancel(ctx context.Context, invoiceID string, userID string) (*domain.Invoice, error)
	// MarkOverdue moves SENT and VIEWED invoices past their due date to OVERDUE.
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

// InvoicePaymentSvc drives single invoice payment through the router.
type InvoicePaymentSvc interface {
	PayInvoice(ctx context.Context, invoiceID string, payerAccountID string, userID string) (*domain.Receipt, error)
}

// InvoiceSettlementSvc finishes invoices whose payment debit was delivered by the replay job.
type InvoiceSettlementSvc interface {
	CompleteReplayedPayment(ctx context.Context, debit domain.TransactionRecord) (*domain.Receipt, error)
}

// InvoiceSvcFacade combines all invoice service interfaces
type InvoiceSvcFacade interface {
	InvoiceReaderSvc
	InvoiceLifecycleSvc
	InvoicePaymentSvc
	InvoiceSettlementSvc
}
