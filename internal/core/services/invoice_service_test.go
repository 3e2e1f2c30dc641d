package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceTestSuite struct {
	suite.Suite
	f *fixture
}

func (suite *InvoiceServiceTestSuite) SetupTest() {
	suite.f = newFixture(suite.T())
	suite.f.open("parent-wallet", 500_000)
	suite.f.open("school-wallet", 0)
	suite.f.link("parent-1", "parent-wallet")
}

func (suite *InvoiceServiceTestSuite) createReq(total int64) dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		Type:           domain.InvoiceTypeInvoice,
		PayeeAccountID: "school-wallet",
		Recipient:      dto.RecipientRequest{Reference: "parent-1", Name: "Ada Parent", Email: "ada@example.com"},
		LineItems: []dto.LineItemRequest{
			{Description: "Term fees", Quantity: decimal.NewFromInt(1), UnitPrice: total},
		},
		DueDate: suite.f.now.Add(14 * 24 * time.Hour),
	}
}

func (suite *InvoiceServiceTestSuite) create(total int64) *domain.Invoice {
	inv, err := suite.f.invoices.CreateInvoice(suite.f.ctx, suite.createReq(total), "bursar")
	suite.Require().NoError(err)
	return inv
}

func (suite *InvoiceServiceTestSuite) send(inv *domain.Invoice) *domain.Invoice {
	suite.f.dispatcher.On("Send", mock.Anything, ofKind(domain.NotificationInvoice)).Return(delivered, nil).Once()
	res, err := suite.f.invoices.Dispatch(suite.f.ctx, inv.InvoiceID, "bursar")
	suite.Require().NoError(err)
	suite.Require().Equal(domain.InvoiceSent, res.Invoice.Status)
	return res.Invoice
}

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_ComputesTotalsAndNumber() {
	f := suite.f
	req := suite.createReq(0)
	rate := decimal.RequireFromString("0.075")
	req.TaxRate = &rate
	req.LineItems = []dto.LineItemRequest{
		{Description: "Tuition", Quantity: decimal.NewFromInt(1), UnitPrice: 120_000},
		{Description: "Books", Quantity: decimal.RequireFromString("1.5"), UnitPrice: 20_000},
	}

	inv, err := f.invoices.CreateInvoice(f.ctx, req, "bursar")
	suite.Require().NoError(err)
	suite.Equal(int64(150_000), inv.Subtotal)
	suite.Equal(int64(11_250), inv.Tax)
	suite.Equal(int64(161_250), inv.Total)
	suite.Equal(domain.InvoiceDraft, inv.Status)
	suite.Equal("NGN", inv.CurrencyCode)
	suite.Equal("parent-wallet", inv.PayerAccountRef)
	suite.Regexp(`^INV-20260302-[0-9A-F]{8}$`, inv.InvoiceNumber)
}

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_Validation() {
	f := suite.f
	req := suite.createReq(100)
	req.LineItems = nil
	_, err := f.invoices.CreateInvoice(f.ctx, req, "bursar")
	suite.ErrorIs(err, apperrors.ErrValidation)

	req = suite.createReq(100)
	req.LineItems[0].Quantity = decimal.Zero
	_, err = f.invoices.CreateInvoice(f.ctx, req, "bursar")
	suite.ErrorIs(err, apperrors.ErrValidation)

	req = suite.createReq(100)
	req.CurrencyCode = "USD"
	_, err = f.invoices.CreateInvoice(f.ctx, req, "bursar")
	suite.ErrorIs(err, apperrors.ErrCurrencyMismatch)
}

// School wallet 500,000, invoice 150,000: one payment moves exactly 150,000 with two ledger rows.
func (suite *InvoiceServiceTestSuite) TestPayInvoice_EndToEnd() {
	f := suite.f
	inv := suite.send(suite.create(150_000))
	f.dispatcher.On("Send", mock.Anything, ofKind(domain.NotificationReceipt)).Return(delivered, nil).Once()

	receipt, err := f.invoices.PayInvoice(f.ctx, inv.InvoiceID, "", "parent")
	suite.Require().NoError(err)
	suite.Equal(int64(150_000), receipt.AmountPaid)
	suite.Regexp(`^RCPT-20260302-[0-9A-F]{8}$`, receipt.ReceiptNumber)
	suite.True(receipt.Notification.Delivered())

	paid, err := f.invoices.GetInvoice(f.ctx, inv.InvoiceID)
	suite.Require().NoError(err)
	suite.Equal(domain.InvoicePaid, paid.Status)
	suite.Equal(int64(150_000), paid.PaidAmount)
	suite.Equal(receipt.TransactionID, paid.LastTransactionID)

	suite.Equal(int64(350_000), f.balance("parent-wallet"))
	suite.Equal(int64(150_000), f.balance("school-wallet"))

	rows := f.rows(receipt.TransactionID)
	suite.Require().Len(rows, 2)
	for _, r := range rows {
		suite.Equal(inv.InvoiceID, r.RelatedEntityID)
		suite.Equal(int64(150_000), r.Amount)
	}
	f.dispatcher.AssertExpectations(suite.T())
}

func (suite *InvoiceServiceTestSuite) TestPayInvoice_SecondCallIsAlreadyPaid() {
	f := suite.f
	inv := suite.create(40_000)
	f.dispatcher.On("Send", mock.Anything, ofKind(domain.NotificationReceipt)).Return(delivered, nil)

	receipt, err := f.invoices.PayInvoice(f.ctx, inv.InvoiceID, "parent-wallet", "parent")
	suite.Require().NoError(err)

	_, err = f.invoices.PayInvoice(f.ctx, inv.InvoiceID, "parent-wallet", "parent")
	suite.ErrorIs(err, apperrors.ErrAlreadyPaid)

	suite.Len(f.rows(receipt.TransactionID), 2)
	suite.Equal(int64(460_000), f.balance("parent-wallet"))

	// Paid invoices accept no further lifecycle changes.
	_, err = f.invoices.Cancel(f.ctx, inv.InvoiceID, "bursar")
	suite.ErrorIs(err, apperrors.ErrAlreadyPaid)
	_, err = f.invoices.SendReminder(f.ctx, inv.InvoiceID, "bursar")
	suite.ErrorIs(err, apperrors.ErrAlreadyPaid)
}

func (suite *InvoiceServiceTestSuite) TestPayInvoice_CancelledAlwaysFails() {
	f := suite.f
	inv := suite.create(10_000)
	_, err := f.invoices.Cancel(f.ctx, inv.InvoiceID, "bursar")
	suite.Require().NoError(err)

	for i := 0; i < 2; i++ {
		_, err = f.invoices.PayInvoice(f.ctx, inv.InvoiceID, "parent-wallet", "parent")
		suite.ErrorIs(err, apperrors.ErrInvoiceCancelled)
	}
	suite.Equal(int64(500_000), f.balance("parent-wallet"))
}

func (suite *InvoiceServiceTestSuite) TestPayInvoice_Errors() {
	f := suite.f
	_, err := f.invoices.PayInvoice(f.ctx, "missing", "parent-wallet", "parent")
	suite.ErrorIs(err, apperrors.ErrInvoiceNotFound)

	req := suite.createReq(1_000)
	req.PayeeAccountID = ""
	noPayee, err := f.invoices.CreateInvoice(f.ctx, req, "bursar")
	suite.Require().NoError(err)
	_, err = f.invoices.PayInvoice(f.ctx, noPayee.InvoiceID, "parent-wallet", "parent")
	suite.ErrorIs(err, apperrors.ErrPayeeAccountUnconfigured)

	req = suite.createReq(1_000)
	req.Recipient.Reference = "stranger"
	unlinked, err := f.invoices.CreateInvoice(f.ctx, req, "bursar")
	suite.Require().NoError(err)
	_, err = f.invoices.PayInvoice(f.ctx, unlinked.InvoiceID, "", "parent")
	suite.ErrorIs(err, apperrors.ErrPayerUnresolved)

	big := suite.create(600_000)
	_, err = f.invoices.PayInvoice(f.ctx, big.InvoiceID, "", "parent")
	suite.ErrorIs(err, apperrors.ErrInsufficientBalance)
	still, err := f.invoices.GetInvoice(f.ctx, big.InvoiceID)
	suite.Require().NoError(err)
	suite.Equal(domain.InvoiceDraft, still.Status)
	suite.Zero(still.PaidAmount)
}

func (suite *InvoiceServiceTestSuite) TestPayInvoice_PendingReconciliationThenRetry() {
	f := suite.f
	inv := suite.create(25_000)
	f.store.FailNextCredits(3)

	_, err := f.invoices.PayInvoice(f.ctx, inv.InvoiceID, "", "parent")
	suite.ErrorIs(err, apperrors.ErrSettlementIncomplete)

	pending, err := f.invoices.GetInvoice(f.ctx, inv.InvoiceID)
	suite.Require().NoError(err)
	suite.Equal(domain.InvoiceDraft, pending.Status)
	suite.NotEmpty(pending.LastTransactionID)

	f.dispatcher.On("Send", mock.Anything, ofKind(domain.NotificationReceipt)).Return(domain.DeliveryResult{}, errors.New("smtp down"))
	receipt, err := f.invoices.PayInvoice(f.ctx, inv.InvoiceID, "", "parent")
	suite.Require().NoError(err)
	suite.Equal(pending.LastTransactionID, receipt.TransactionID)
	suite.Equal(domain.DeliveryFailed, receipt.Notification.Status)
	suite.Len(f.rows(receipt.TransactionID), 2)
	suite.Equal(int64(475_000), f.balance("parent-wallet"))
}

func (suite *InvoiceServiceTestSuite) TestDispatch_UndeliveredStaysDraft() {
	f := suite.f
	inv := suite.create(1_000)
	f.dispatcher.On("Send", mock.Anything, ofKind(domain.NotificationInvoice)).
		Return(domain.DeliveryResult{Status: domain.DeliveryRejected, Reason: "bad address"}, nil).Once()

	res, err := f.invoices.Dispatch(f.ctx, inv.InvoiceID, "bursar")
	suite.Require().NoError(err)
	suite.Equal(domain.InvoiceDraft, res.Invoice.Status)
	suite.Equal(domain.DeliveryRejected, res.Delivery.Status)
	suite.Nil(res.Invoice.SentAt)

	sent := suite.send(inv)
	suite.NotNil(sent.SentAt)
	suite.Equal("msg-1", sent.DispatchMessageID)

	_, err = f.invoices.Dispatch(f.ctx, inv.InvoiceID, "bursar")
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (suite *InvoiceServiceTestSuite) TestDispatch_RequiresResolvablePayer() {
	f := suite.f
	req := suite.createReq(1_000)
	req.Recipient.Reference = "stranger"
	inv, err := f.invoices.CreateInvoice(f.ctx, req, "bursar")
	suite.Require().NoError(err)

	_, err = f.invoices.Dispatch(f.ctx, inv.InvoiceID, "bursar")
	suite.ErrorIs(err, apperrors.ErrPayerUnresolved)
	f.dispatcher.AssertNotCalled(suite.T(), "Send", mock.Anything, mock.Anything)

	// Linking later makes the same invoice dispatchable.
	f.link("stranger", "parent-wallet")
	suite.send(inv)
}

func (suite *InvoiceServiceTestSuite) TestViewRemindAndOverdue() {
	f := suite.f
	inv := suite.send(suite.create(5_000))

	viewed, err := f.invoices.MarkViewed(f.ctx, inv.InvoiceID, "parent")
	suite.Require().NoError(err)
	suite.Equal(domain.InvoiceViewed, viewed.Status)

	f.dispatcher.On("Send", mock.Anything, ofKind(domain.NotificationReminder)).
		Return(domain.DeliveryResult{Status: domain.DeliveryFailed}, nil).Once()
	res, err := f.invoices.SendReminder(f.ctx, inv.InvoiceID, "bursar")
	suite.Require().NoError(err)
	suite.Equal(0, res.Invoice.ReminderCount)

	f.dispatcher.On("Send", mock.Anything, ofKind(domain.NotificationReminder)).Return(delivered, nil).Once()
	res, err = f.invoices.SendReminder(f.ctx, inv.InvoiceID, "bursar")
	suite.Require().NoError(err)
	suite.Equal(1, res.Invoice.ReminderCount)

	n, err := f.invoices.MarkOverdue(f.ctx, f.now)
	suite.Require().NoError(err)
	suite.Zero(n)

	n, err = f.invoices.MarkOverdue(f.ctx, f.now.Add(15*24*time.Hour))
	suite.Require().NoError(err)
	suite.Equal(1, n)

	overdue, err := f.invoices.GetInvoice(f.ctx, inv.InvoiceID)
	suite.Require().NoError(err)
	suite.Equal(domain.InvoiceOverdue, overdue.Status)

	_, err = f.invoices.Cancel(f.ctx, inv.InvoiceID, "bursar")
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)

	// Overdue invoices can still be paid.
	f.dispatcher.On("Send", mock.Anything, ofKind(domain.NotificationReceipt)).Return(delivered, nil).Once()
	_, err = f.invoices.PayInvoice(f.ctx, inv.InvoiceID, "", "parent")
	suite.Require().NoError(err)
}

func (suite *InvoiceServiceTestSuite) TestMarkViewed_DraftIsInvalid() {
	f := suite.f
	inv := suite.create(5_000)
	_, err := f.invoices.MarkViewed(f.ctx, inv.InvoiceID, "parent")
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func TestInvoiceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceServiceTestSuite))
}
