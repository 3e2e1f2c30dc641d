package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/settlement_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/settlement_engine/internal/core/ports/services"
	"github.com/SscSPs/settlement_engine/internal/dto"
	"github.com/SscSPs/settlement_engine/internal/utils"
	"github.com/SscSPs/settlement_engine/internal/utils/lock"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	receiptPrefix     = "RCPT"
	overdueSweepBatch = 100
)

// invoiceService implements the InvoiceSvcFacade interface
type invoiceService struct {
	BaseService
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	accountRepo portsrepo.AccountReader
	router      portssvc.DisbursementRouterSvc
	resolver    portssvc.IdentityResolver
	dispatcher  portssvc.NotificationDispatcher
	validate    *validator.Validate
	locks       lock.KeyedMutex
}

// InvoiceServiceOption is a functional option for configuring the invoice service
type InvoiceServiceOption func(*invoiceService)

// WithInvoiceClock overrides the clock used for numbering, due checks and audit fields.
func WithInvoiceClock(clock func() time.Time) InvoiceServiceOption {
	return func(s *invoiceService) {
		s.Clock = clock
	}
}

// NewInvoiceService creates the invoice lifecycle manager.
func NewInvoiceService(
	invoiceRepo portsrepo.InvoiceRepositoryFacade,
	accountRepo portsrepo.AccountReader,
	router portssvc.DisbursementRouterSvc,
	resolver portssvc.IdentityResolver,
	dispatcher portssvc.NotificationDispatcher,
	options ...InvoiceServiceOption,
) portssvc.InvoiceSvcFacade {
	svc := &invoiceService{
		invoiceRepo: invoiceRepo,
		accountRepo: accountRepo,
		router:      router,
		resolver:    resolver,
		dispatcher:  dispatcher,
		validate:    newValidator(),
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.InvoiceSvcFacade = (*invoiceService)(nil)

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	inv, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvoiceNotFound
		}
		s.LogError(ctx, err, "Failed to find invoice", slog.String("invoice_id", invoiceID))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest, userID string) (*domain.Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	items := make([]domain.InvoiceLineItem, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, domain.InvoiceLineItem{
			LineItemID:  uuid.NewString(),
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
		})
	}
	taxRate := decimal.Zero
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	subtotal, tax, total, err := domain.InvoiceTotals(items, taxRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}

	currency := req.CurrencyCode
	if req.PayeeAccountID != "" {
		payee, err := s.accountRepo.FindAccountByID(ctx, req.PayeeAccountID)
		switch {
		case err == nil:
			if currency != "" && currency != payee.CurrencyCode {
				return nil, apperrors.ErrCurrencyMismatch
			}
			currency = payee.CurrencyCode
		case errors.Is(err, apperrors.ErrNotFound):
			// Allowed; payment fails with ErrPayeeAccountUnconfigured until the account exists.
			s.LogWarn(ctx, err, "Invoice payee account not found")
		default:
			s.LogError(ctx, err, "Failed to load payee account")
			return nil, fmt.Errorf("failed to create invoice: %w", err)
		}
	}

	now := s.Now()
	number, err := utils.GenerateDocumentNumber(req.Type.NumberPrefix(), now)
	if err != nil {
		s.LogError(ctx, err, "Failed to generate invoice number")
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	inv := domain.Invoice{
		InvoiceID:      uuid.NewString(),
		InvoiceNumber:  number,
		Type:           req.Type,
		Recipient:      req.Recipient.ToDomain(),
		PayeeAccountID: req.PayeeAccountID,
		CurrencyCode:   currency,
		LineItems:      items,
		TaxRate:        taxRate,
		Subtotal:       subtotal,
		Tax:            tax,
		Total:          total,
		Status:         domain.InvoiceDraft,
		DueDate:        req.DueDate.UTC(),
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
			Version:       1,
		},
	}
	inv.PayerAccountRef = s.resolvePayer(ctx, inv.Recipient)

	if err := s.invoiceRepo.SaveInvoice(ctx, inv); err != nil {
		s.LogError(ctx, err, "Failed to save invoice", slog.String("invoice_id", inv.InvoiceID))
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.LogInfo(ctx, "Invoice created",
		slog.String("invoice_id", inv.InvoiceID),
		slog.String("invoice_number", inv.InvoiceNumber),
		slog.Int64("total", inv.Total))
	return &inv, nil
}

func (s *invoiceService) Dispatch(ctx context.Context, invoiceID string, userID string) (*domain.DispatchResult, error) {
	unlock := s.locks.Lock(invoiceID)
	defer unlock()

	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != domain.InvoiceDraft && inv.Status != domain.InvoiceDispatchRequested {
		return nil, statusError(inv, domain.InvoiceDispatchRequested)
	}

	if inv.PayerAccountRef == "" {
		inv.PayerAccountRef = s.resolvePayer(ctx, inv.Recipient)
		if inv.PayerAccountRef == "" {
			return nil, apperrors.ErrPayerUnresolved
		}
	}

	if inv.Status == domain.InvoiceDraft {
		if err := inv.TransitionTo(domain.InvoiceDispatchRequested); err != nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidTransition, err.Error())
		}
		if err := s.update(ctx, inv, userID); err != nil {
			return nil, err
		}
	}

	delivery := s.send(ctx, domain.Notification{
		Recipient:   inv.Recipient,
		Kind:        domain.NotificationInvoice,
		ReferenceID: inv.InvoiceID,
		Payload:     invoicePayload(inv),
	})

	// The outcome of the send must be recorded even if the caller has gone.
	ctx = context.WithoutCancel(ctx)
	next := domain.InvoiceDraft
	if delivery.Delivered() {
		next = domain.InvoiceSent
	}
	if err := inv.TransitionTo(next); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidTransition, err.Error())
	}
	if delivery.Delivered() {
		now := s.Now()
		inv.SentAt = &now
		inv.DispatchMessageID = delivery.MessageID
	}
	if err := s.update(ctx, inv, userID); err != nil {
		return nil, err
	}

	if delivery.Delivered() {
		s.LogInfo(ctx, "Invoice sent", slog.String("invoice_id", inv.InvoiceID))
	} else {
		s.GetLogger(ctx).Warn("Invoice dispatch not acknowledged",
			slog.String("invoice_id", inv.InvoiceID),
			slog.String("delivery_status", string(delivery.Status)))
	}
	return &domain.DispatchResult{Invoice: inv, Delivery: delivery}, nil
}

func (s *invoiceService) MarkViewed(ctx context.Context, invoiceID string, userID string) (*domain.Invoice, error) {
	unlock := s.locks.Lock(invoiceID)
	defer unlock()

	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == domain.InvoiceViewed {
		return inv, nil
	}
	if err := inv.TransitionTo(domain.InvoiceViewed); err != nil {
		return nil, statusError(inv, domain.InvoiceViewed)
	}
	if err := s.update(ctx, inv, userID); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invoiceService) SendReminder(ctx context.Context, invoiceID string, userID string) (*domain.DispatchResult, error) {
	unlock := s.locks.Lock(invoiceID)
	defer unlock()

	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case domain.InvoiceSent, domain.InvoiceViewed, domain.InvoiceOverdue:
	default:
		return nil, statusError(inv, inv.Status)
	}

	delivery := s.send(ctx, domain.Notification{
		Recipient:   inv.Recipient,
		Kind:        domain.NotificationReminder,
		ReferenceID: inv.InvoiceID,
		Payload:     invoicePayload(inv),
	})
	if !delivery.Delivered() {
		return &domain.DispatchResult{Invoice: inv, Delivery: delivery}, nil
	}

	now := s.Now()
	inv.ReminderCount++
	inv.LastReminderAt = &now
	if err := s.update(context.WithoutCancel(ctx), inv, userID); err != nil {
		return nil, err
	}
	return &domain.DispatchResult{Invoice: inv, Delivery: delivery}, nil
}

func (s *invoiceService) Cancel(ctx context.Context, invoiceID string, userID string) (*domain.Invoice, error) {
	unlock := s.locks.Lock(invoiceID)
	defer unlock()

	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := inv.TransitionTo(domain.InvoiceCancelled); err != nil {
		return nil, statusError(inv, domain.InvoiceCancelled)
	}
	now := s.Now()
	inv.CancelledAt = &now
	if err := s.update(ctx, inv, userID); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Invoice cancelled", slog.String("invoice_id", inv.InvoiceID))
	return inv, nil
}

func (s *invoiceService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	updated := 0
	for {
		candidates, err := s.invoiceRepo.ListOverdueCandidates(ctx, now, overdueSweepBatch)
		if err != nil {
			s.LogError(ctx, err, "Failed to list overdue candidates")
			return updated, fmt.Errorf("failed to mark overdue invoices: %w", err)
		}
		moved := 0
		for _, c := range candidates {
			ok, err := s.markOverdue(ctx, c.InvoiceID, now)
			if err != nil {
				s.LogWarn(ctx, err, "Skipping overdue candidate", slog.String("invoice_id", c.InvoiceID))
				continue
			}
			if ok {
				moved++
			}
		}
		updated += moved
		if len(candidates) < overdueSweepBatch || moved == 0 {
			break
		}
	}
	if updated > 0 {
		s.LogInfo(ctx, "Invoices marked overdue", slog.Int("count", updated))
	}
	return updated, nil
}

func (s *invoiceService) markOverdue(ctx context.Context, invoiceID string, now time.Time) (bool, error) {
	unlock := s.locks.Lock(invoiceID)
	defer unlock()

	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return false, err
	}
	if inv.Status != domain.InvoiceSent && inv.Status != domain.InvoiceViewed {
		return false, nil
	}
	if !inv.IsPastDue(now) {
		return false, nil
	}
	if err := inv.TransitionTo(domain.InvoiceOverdue); err != nil {
		return false, nil
	}
	if err := s.update(ctx, inv, "system"); err != nil {
		return false, err
	}
	return true, nil
}

func (s *invoiceService) PayInvoice(ctx context.Context, invoiceID string, payerAccountID string, userID string) (*domain.Receipt, error) {
	unlock := s.locks.Lock(invoiceID)
	defer unlock()

	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionInvoice(inv.Status, domain.InvoicePaid) {
		return nil, statusError(inv, domain.InvoicePaid)
	}

	if inv.PayeeAccountID == "" {
		return nil, apperrors.ErrPayeeAccountUnconfigured
	}
	if _, err := s.accountRepo.FindAccountByID(ctx, inv.PayeeAccountID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrPayeeAccountUnconfigured
		}
		s.LogError(ctx, err, "Failed to load payee account", slog.String("invoice_id", invoiceID))
		return nil, fmt.Errorf("failed to pay invoice: %w", err)
	}

	payer := payerAccountID
	if payer == "" {
		payer = inv.PayerAccountRef
	}
	if payer == "" {
		payer = s.resolvePayer(ctx, inv.Recipient)
	}
	if payer == "" {
		return nil, apperrors.ErrPayerUnresolved
	}

	outcome, err := s.router.Settle(ctx, domain.SettlementRequest{
		PayerAccountID:  payer,
		PayeeAccountID:  inv.PayeeAccountID,
		Amount:          inv.AmountDue(),
		RelatedEntityID: inv.InvoiceID,
		Sequence:        paymentSequence(inv),
		Channel:         domain.ChannelWallet,
		DebitKind:       domain.KindFeePayment,
		CreditKind:      domain.KindFeeReceived,
		CreatedBy:       userID,
	})
	if err != nil {
		if outcome.Status == domain.OutcomePendingReconciliation {
			// Keep the transaction id so support can follow it; a retry replays it.
			inv.LastTransactionID = outcome.TransactionID
			if uerr := s.update(context.WithoutCancel(ctx), inv, userID); uerr != nil {
				s.LogError(ctx, uerr, "Failed to record pending payment", slog.String("invoice_id", invoiceID))
			}
		}
		return nil, err
	}

	if inv.PayerAccountRef == "" {
		inv.PayerAccountRef = payer
	}
	return s.completePayment(context.WithoutCancel(ctx), inv, outcome.TransactionID, userID)
}

// CompleteReplayedPayment finishes an invoice whose payment debit was delivered by the
// orphaned debit replay. Completing an invoice already paid by the same transaction is a no-op.
func (s *invoiceService) CompleteReplayedPayment(ctx context.Context, debit domain.TransactionRecord) (*domain.Receipt, error) {
	invoiceID := debit.RelatedEntityID
	unlock := s.locks.Lock(invoiceID)
	defer unlock()

	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == domain.InvoicePaid && inv.LastTransactionID == debit.TransactionID {
		return nil, nil
	}
	if !domain.CanTransitionInvoice(inv.Status, domain.InvoicePaid) {
		return nil, statusError(inv, domain.InvoicePaid)
	}
	if s.router.TransactionIDFor(inv.InvoiceID, paymentSequence(inv)) != debit.TransactionID || debit.Amount != inv.AmountDue() {
		return nil, fmt.Errorf("%w: transaction %s is not the outstanding payment of this invoice", apperrors.ErrConflict, debit.TransactionID)
	}
	if inv.PayerAccountRef == "" {
		inv.PayerAccountRef = debit.AccountID
	}
	return s.completePayment(context.WithoutCancel(ctx), inv, debit.TransactionID, debit.CreatedBy)
}

// completePayment marks a settled invoice PAID and sends its receipt. The caller holds the invoice lock.
func (s *invoiceService) completePayment(ctx context.Context, inv *domain.Invoice, transactionID string, userID string) (*domain.Receipt, error) {
	now := s.Now()
	receiptNumber, err := utils.GenerateDocumentNumber(receiptPrefix, now)
	if err != nil {
		s.LogError(ctx, err, "Failed to generate receipt number", slog.String("invoice_id", inv.InvoiceID))
		return nil, fmt.Errorf("failed to pay invoice: %w", err)
	}
	amountPaid := inv.AmountDue()
	if err := inv.MarkPaid(transactionID, receiptNumber, now); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidTransition, err.Error())
	}
	if err := s.update(ctx, inv, userID); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Invoice paid",
		slog.String("invoice_id", inv.InvoiceID),
		slog.String("transaction_id", transactionID))

	delivery := s.send(ctx, domain.Notification{
		Recipient:   inv.Recipient,
		Kind:        domain.NotificationReceipt,
		ReferenceID: inv.InvoiceID,
		Payload: map[string]any{
			"invoiceNumber": inv.InvoiceNumber,
			"receiptNumber": receiptNumber,
			"amountPaid":    amountPaid,
			"currencyCode":  inv.CurrencyCode,
			"paidAt":        now,
		},
	})

	return &domain.Receipt{
		InvoiceID:     inv.InvoiceID,
		InvoiceNumber: inv.InvoiceNumber,
		ReceiptNumber: receiptNumber,
		TransactionID: transactionID,
		AmountPaid:    amountPaid,
		CurrencyCode:  inv.CurrencyCode,
		PaidAt:        now,
		Notification:  delivery,
	}, nil
}

// paymentSequence keys a payment to the amount already paid, so each outstanding
// balance has exactly one transaction id.
func paymentSequence(inv *domain.Invoice) string {
	return fmt.Sprintf("payment-%d", inv.PaidAmount)
}

func (s *invoiceService) update(ctx context.Context, inv *domain.Invoice, userID string) error {
	inv.LastUpdatedAt = s.Now()
	inv.LastUpdatedBy = userID
	if err := s.invoiceRepo.UpdateInvoice(ctx, inv); err != nil {
		if !errors.Is(err, apperrors.ErrConflict) {
			s.LogError(ctx, err, "Failed to update invoice", slog.String("invoice_id", inv.InvoiceID))
		}
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}

// resolvePayer returns "" when the recipient has no linked account or the resolver fails.
func (s *invoiceService) resolvePayer(ctx context.Context, recipient domain.Recipient) string {
	if s.resolver == nil || recipient.Reference == "" {
		return ""
	}
	accountID, ok, err := s.resolver.ResolveAccount(ctx, recipient.Reference)
	if err != nil {
		s.LogWarn(ctx, err, "Identity resolution failed")
		return ""
	}
	if !ok {
		return ""
	}
	return accountID
}

// send never fails; transport errors are folded into a FAILED result.
func (s *invoiceService) send(ctx context.Context, n domain.Notification) domain.DeliveryResult {
	if s.dispatcher == nil {
		return domain.DeliveryResult{Status: domain.DeliverySkipped, Reason: "no dispatcher configured"}
	}
	res, err := s.dispatcher.Send(ctx, n)
	if err != nil {
		s.LogWarn(ctx, err, "Notification dispatch failed",
			slog.String("kind", string(n.Kind)),
			slog.String("reference_id", n.ReferenceID))
		if res.Status == "" || res.Delivered() {
			res = domain.DeliveryResult{Status: domain.DeliveryFailed, Reason: err.Error()}
		}
	}
	return res
}

// statusError explains why an invoice in its current status cannot move to target.
func statusError(inv *domain.Invoice, target domain.InvoiceStatus) error {
	switch inv.Status {
	case domain.InvoicePaid:
		return apperrors.ErrAlreadyPaid
	case domain.InvoiceCancelled:
		return apperrors.ErrInvoiceCancelled
	}
	return fmt.Errorf("%w: %s to %s", apperrors.ErrInvalidTransition, inv.Status, target)
}

func invoicePayload(inv *domain.Invoice) map[string]any {
	return map[string]any{
		"invoiceNumber": inv.InvoiceNumber,
		"type":          inv.Type,
		"total":         inv.Total,
		"amountDue":     inv.AmountDue(),
		"currencyCode":  inv.CurrencyCode,
		"dueDate":       inv.DueDate,
		"lineItems":     inv.LineItems,
	}
}
