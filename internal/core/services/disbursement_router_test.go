package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/stretchr/testify/suite"
)

type RouterTestSuite struct {
	suite.Suite
	f *fixture
}

func (suite *RouterTestSuite) SetupTest() {
	suite.f = newFixture(suite.T())
	suite.f.open("payer", 10_000)
	suite.f.open("payee", 500)
}

func walletRequest(amount int64) domain.SettlementRequest {
	return domain.SettlementRequest{
		PayerAccountID:  "payer",
		PayeeAccountID:  "payee",
		Amount:          amount,
		RelatedEntityID: "inv-1",
		Sequence:        "payment-0",
		Channel:         domain.ChannelWallet,
		DebitKind:       domain.KindFeePayment,
		CreditKind:      domain.KindFeeReceived,
		CreatedBy:       "user-1",
	}
}

func (suite *RouterTestSuite) TestTransactionIDFor_IsDeterministic() {
	r := suite.f.router
	suite.Equal(r.TransactionIDFor("inv-1", "payment-0"), r.TransactionIDFor("inv-1", "payment-0"))
	suite.NotEqual(r.TransactionIDFor("inv-1", "payment-0"), r.TransactionIDFor("inv-1", "payment-1"))
}

func (suite *RouterTestSuite) TestSettle_WalletConservesBalance() {
	f := suite.f
	payerBefore, payeeBefore := f.balance("payer"), f.balance("payee")

	out, err := f.router.Settle(f.ctx, walletRequest(2_500))
	suite.Require().NoError(err)
	suite.Equal(domain.OutcomeCompleted, out.Status)

	suite.Equal(payerBefore-2_500, f.balance("payer"))
	suite.Equal(payeeBefore+2_500, f.balance("payee"))

	rows := f.rows(out.TransactionID)
	suite.Require().Len(rows, 2)
	var net int64
	for _, r := range rows {
		if r.Direction == domain.Debit {
			net -= r.Amount
		} else {
			net += r.Amount
		}
	}
	suite.Zero(net)
}

func (suite *RouterTestSuite) TestSettle_RetryReplaysWithoutNewRows() {
	f := suite.f
	first, err := f.router.Settle(f.ctx, walletRequest(1_000))
	suite.Require().NoError(err)
	second, err := f.router.Settle(f.ctx, walletRequest(1_000))
	suite.Require().NoError(err)

	suite.Equal(first.TransactionID, second.TransactionID)
	suite.Len(f.rows(first.TransactionID), 2)
	suite.Equal(int64(9_000), f.balance("payer"))
}

func (suite *RouterTestSuite) TestSettle_SameSequenceDifferentAmountConflicts() {
	f := suite.f
	_, err := f.router.Settle(f.ctx, walletRequest(1_000))
	suite.Require().NoError(err)

	out, err := f.router.Settle(f.ctx, walletRequest(1_001))
	suite.ErrorIs(err, apperrors.ErrIdempotencyConflict)
	suite.Equal(domain.OutcomeFailed, out.Status)
}

func (suite *RouterTestSuite) TestSettle_PreValidationRejectsBeforeDebit() {
	f := suite.f
	f.openIn("usd", 0, "USD")
	_, err := f.accounts.UpdateAccountStatus(f.ctx, "payee", domain.AccountClosed, "admin")
	suite.Require().NoError(err)

	out, err := f.router.Settle(f.ctx, walletRequest(100))
	suite.ErrorIs(err, apperrors.ErrAccountNotActive)
	suite.Equal(domain.OutcomeFailed, out.Status)
	suite.Empty(f.rows(out.TransactionID))

	req := walletRequest(100)
	req.PayeeAccountID = "usd"
	out, err = f.router.Settle(f.ctx, req)
	suite.ErrorIs(err, apperrors.ErrCurrencyMismatch)
	suite.Empty(f.rows(out.TransactionID))

	suite.Equal(int64(10_000), f.balance("payer"))
}

func (suite *RouterTestSuite) TestSettle_InsufficientBalanceIsHardStop() {
	f := suite.f
	out, err := f.router.Settle(f.ctx, walletRequest(10_001))
	suite.ErrorIs(err, apperrors.ErrInsufficientBalance)
	suite.Equal(domain.OutcomeFailed, out.Status)
	suite.Empty(f.rows(out.TransactionID))
	suite.Equal(int64(500), f.balance("payee"))
}

func (suite *RouterTestSuite) TestSettle_InvalidRequest() {
	f := suite.f
	req := walletRequest(0)
	out, err := f.router.Settle(f.ctx, req)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Equal(domain.OutcomeFailed, out.Status)
}

func (suite *RouterTestSuite) TestSettle_CreditRetriedAfterTransientFailure() {
	f := suite.f
	f.store.FailNextCredits(2)

	out, err := f.router.Settle(f.ctx, walletRequest(700))
	suite.Require().NoError(err)
	suite.Equal(domain.OutcomeCompleted, out.Status)
	suite.Equal([]time.Duration{time.Second, 2 * time.Second}, f.sleeps)
	suite.Len(f.rows(out.TransactionID), 2)
}

func (suite *RouterTestSuite) TestSettle_ExhaustedRetriesLeavePendingReconciliation() {
	f := suite.f
	f.store.FailNextCredits(3)

	out, err := f.router.Settle(f.ctx, walletRequest(700))
	suite.ErrorIs(err, apperrors.ErrSettlementIncomplete)
	suite.Equal(domain.OutcomePendingReconciliation, out.Status)
	suite.Equal(int64(9_300), f.balance("payer"))
	suite.Equal(int64(500), f.balance("payee"))

	rows := f.rows(out.TransactionID)
	suite.Require().Len(rows, 1)

	// Resume finishes the credit without touching the payer again.
	resumed, err := f.router.Resume(f.ctx, rows[0])
	suite.Require().NoError(err)
	suite.Equal(domain.OutcomeCompleted, resumed.Status)
	suite.Equal(int64(9_300), f.balance("payer"))
	suite.Equal(int64(1_200), f.balance("payee"))
	suite.Len(f.rows(out.TransactionID), 2)
}

func (suite *RouterTestSuite) TestSettle_RetryAfterIncompleteSkipsBalanceCheck() {
	f := suite.f
	f.store.FailNextCredits(3)
	_, err := f.router.Settle(f.ctx, walletRequest(10_000))
	suite.ErrorIs(err, apperrors.ErrSettlementIncomplete)
	suite.Equal(int64(0), f.balance("payer"))

	out, err := f.router.Settle(f.ctx, walletRequest(10_000))
	suite.Require().NoError(err)
	suite.Equal(domain.OutcomeCompleted, out.Status)
	suite.Equal(int64(10_500), f.balance("payee"))
}

func (suite *RouterTestSuite) TestSettle_ExternalChannelQueuesTransfer() {
	f := suite.f
	req := domain.SettlementRequest{
		PayerAccountID:   "payer",
		RecipientDetails: "0123456789@058",
		Amount:           4_000,
		RelatedEntityID:  "run-1",
		Sequence:         "salary/e-1",
		Channel:          domain.ChannelBank,
		DebitKind:        domain.KindSalaryPayment,
	}
	out, err := f.router.Settle(f.ctx, req)
	suite.Require().NoError(err)
	suite.Equal(domain.OutcomeQueued, out.Status)
	suite.NotEmpty(out.TransferID)

	pending, err := f.recon.ListPendingTransfers(f.ctx, 10)
	suite.Require().NoError(err)
	suite.Require().Len(pending, 1)
	suite.Equal("NGN", pending[0].CurrencyCode)
	suite.Equal(out.TransactionID, pending[0].RelatedTransactionID)

	again, err := f.router.Settle(f.ctx, req)
	suite.Require().NoError(err)
	suite.Equal(out.TransferID, again.TransferID)
	suite.Equal(int64(6_000), f.balance("payer"))
}

func (suite *RouterTestSuite) TestSettle_CancelledContextStillDelivers() {
	f := suite.f
	ctx, cancel := context.WithCancel(f.ctx)
	f.store.FailNextCredits(1)
	cancel()

	// Pre-validation reads ignore cancellation in the memory store, so the debit
	// goes through and the credit must still land.
	out, err := f.router.Settle(ctx, walletRequest(100))
	suite.Require().NoError(err)
	suite.Equal(domain.OutcomeCompleted, out.Status)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
