package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/core/services"
	"github.com/SscSPs/settlement_engine/internal/dto"
	"github.com/SscSPs/settlement_engine/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PayrollServiceTestSuite struct {
	suite.Suite
	f *fixture
}

func (suite *PayrollServiceTestSuite) SetupTest() {
	suite.f = newFixture(suite.T())
	suite.f.dispatcher.On("Send", mock.Anything, ofKind(domain.NotificationSalarySlip)).Return(delivered, nil)
}

func walletEntry(id string, base, allowances, deductions int64, recipientAccount string) domain.PayrollEntry {
	return domain.PayrollEntry{
		EntryID:            id,
		StaffID:            "staff-" + id,
		Recipient:          domain.Recipient{Reference: "staff-" + id, Name: "Staff " + id},
		BaseSalary:         base,
		Allowances:         allowances,
		Deductions:         deductions,
		NetSalary:          domain.ComputeNetSalary(base, allowances, deductions),
		Channel:            domain.ChannelWallet,
		RecipientAccountID: recipientAccount,
		Status:             domain.PayrollEntryPending,
	}
}

// A school that can afford only the first three of five entries pays exactly those three.
func (suite *PayrollServiceTestSuite) TestProcessBulkPayroll_StopsPayingWhenFundsRunOut() {
	f := suite.f
	f.open("school", 300_000)
	entries := make([]domain.PayrollEntry, 0, 5)
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("e%d", i)
		f.open("staff-wallet-"+id, 0)
		entries = append(entries, walletEntry(id, 100_000, 0, 0, "staff-wallet-"+id))
	}

	result, err := f.payroll.ProcessBulkPayroll(f.ctx, "school", entries)
	suite.Require().NoError(err)
	suite.Equal(3, result.Successful)
	suite.Equal(2, result.Failed)
	suite.Equal(int64(0), f.balance("school"))

	for i, line := range result.Results {
		suite.Equal(entries[i].EntryID, line.EntryID, "results keep submission order")
		if i < 3 {
			suite.Equal(domain.OutcomeCompleted, line.Outcome.Status)
			suite.Equal(int64(100_000), f.balance("staff-wallet-"+line.EntryID))
		} else {
			suite.Equal(domain.OutcomeFailed, line.Outcome.Status)
			suite.Contains(line.Error, "insufficient balance")
		}
	}

	stored, err := f.repos.PayrollRepo.FindEntryByID(f.ctx, "e5")
	suite.Require().NoError(err)
	suite.Equal(domain.PayrollEntryFailed, stored.Status)
}

func (suite *PayrollServiceTestSuite) TestProcessBulkPayroll_UnknownSchool() {
	f := suite.f
	_, err := f.payroll.ProcessBulkPayroll(f.ctx, "ghost", []domain.PayrollEntry{walletEntry("e1", 1, 0, 0, "x")})
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *PayrollServiceTestSuite) TestPaySalary_RetryOfCompletedEntryReturnsStoredOutcome() {
	f := suite.f
	f.open("school", 50_000)
	f.open("staff-acc", 0)
	entry := walletEntry("e1", 30_000, 5_000, 2_000, "staff-acc")

	out, err := f.payroll.PaySalary(f.ctx, entry, "school")
	suite.Require().NoError(err)
	suite.Equal(domain.OutcomeCompleted, out.Status)
	suite.Equal(int64(33_000), f.balance("staff-acc"))

	stored, err := f.repos.PayrollRepo.FindEntryByID(f.ctx, "e1")
	suite.Require().NoError(err)
	suite.Equal(domain.PayrollEntryCompleted, stored.Status)
	suite.Equal(out.TransactionID, stored.TransactionID)

	// Submitting the same entry again replays instead of paying twice.
	again, err := f.payroll.PaySalary(f.ctx, entry, "school")
	suite.Require().NoError(err)
	suite.Equal(out.TransactionID, again.TransactionID)
	suite.Equal(int64(17_000), f.balance("school"))
	suite.Len(f.rows(out.TransactionID), 2)
}

func (suite *PayrollServiceTestSuite) TestPaySalary_ExternalChannelIsQueued() {
	f := suite.f
	f.open("school", 50_000)
	entry := walletEntry("e1", 20_000, 0, 0, "")
	entry.Channel = domain.ChannelMobileMoney
	entry.RecipientDetails = "+2348012345678"

	out, err := f.payroll.PaySalary(f.ctx, entry, "school")
	suite.Require().NoError(err)
	suite.Equal(domain.OutcomeQueued, out.Status)
	suite.NotEmpty(out.TransferID)
	suite.Equal(int64(30_000), f.balance("school"))
}

func (suite *PayrollServiceTestSuite) TestPaySalary_ResubmissionCannotChangeTerms() {
	f := suite.f
	f.open("school", 100_000)
	f.open("staff-acc", 0)
	entry := walletEntry("e1", 30_000, 0, 0, "staff-acc")

	_, err := f.payroll.PaySalary(f.ctx, entry, "school")
	suite.Require().NoError(err)

	inflated := entry
	inflated.BaseSalary = 90_000
	inflated.NetSalary = domain.ComputeNetSalary(90_000, 0, 0)
	_, err = f.payroll.PaySalary(f.ctx, inflated, "school")
	suite.ErrorIs(err, apperrors.ErrIdempotencyConflict)

	redirected := entry
	redirected.RecipientAccountID = "school"
	_, err = f.payroll.PaySalary(f.ctx, redirected, "school")
	suite.ErrorIs(err, apperrors.ErrIdempotencyConflict)

	moved := entry
	moved.RunID = "run-elsewhere"
	_, err = f.payroll.PaySalary(f.ctx, moved, "school")
	suite.ErrorIs(err, apperrors.ErrIdempotencyConflict)

	stored, err := f.repos.PayrollRepo.FindEntryByID(f.ctx, "e1")
	suite.Require().NoError(err)
	suite.Equal(int64(30_000), stored.NetSalary)
	suite.Empty(stored.RunID)
	suite.Equal(int64(70_000), f.balance("school"))
	suite.Equal(int64(30_000), f.balance("staff-acc"))
}

// A debited but undelivered entry keeps its terms; retrying it delivers the original amount once.
func (suite *PayrollServiceTestSuite) TestPaySalary_PendingEntryRetriedWithStoredTerms() {
	f := suite.f
	f.open("school", 100_000)
	f.open("staff-acc", 0)
	entry := walletEntry("e1", 30_000, 0, 0, "staff-acc")

	f.store.FailNextCredits(3)
	first, err := f.payroll.PaySalary(f.ctx, entry, "school")
	suite.ErrorIs(err, apperrors.ErrSettlementIncomplete)
	suite.Equal(domain.OutcomePendingReconciliation, first.Status)
	suite.Equal(int64(70_000), f.balance("school"))

	inflated := entry
	inflated.Allowances = 50_000
	inflated.NetSalary = domain.ComputeNetSalary(30_000, 50_000, 0)
	_, err = f.payroll.PaySalary(f.ctx, inflated, "school")
	suite.ErrorIs(err, apperrors.ErrIdempotencyConflict)
	suite.Equal(int64(70_000), f.balance("school"))

	again, err := f.payroll.PaySalary(f.ctx, entry, "school")
	suite.Require().NoError(err)
	suite.Equal(first.TransactionID, again.TransactionID)
	suite.Equal(int64(70_000), f.balance("school"))
	suite.Equal(int64(30_000), f.balance("staff-acc"))
	suite.Len(f.rows(first.TransactionID), 2)
}

// A run entry resubmitted without its run id settles under the run's transaction, not a new one.
func (suite *PayrollServiceTestSuite) TestPaySalary_RunEntryResubmittedWithoutRunID() {
	f := suite.f
	f.open("school", 100_000)
	f.open("other-school", 100_000)
	f.open("staff-acc", 0)
	run, _, err := f.payroll.CreateRun(f.ctx, dto.CreatePayrollRunRequest{
		SchoolAccountID: "school",
		Period:          "2026-03",
		Entries: []dto.PayrollEntryRequest{{
			EntryID:            "run-e1",
			StaffID:            "s1",
			Recipient:          dto.RecipientRequest{Reference: "s1", Name: "One"},
			BaseSalary:         40_000,
			Channel:            domain.ChannelWallet,
			RecipientAccountID: "staff-acc",
		}},
	}, "bursar")
	suite.Require().NoError(err)

	f.store.FailNextCredits(3)
	processed, _, err := f.payroll.ProcessRun(f.ctx, run.RunID, "bursar")
	suite.Require().NoError(err)
	suite.Equal(domain.PayrollRunFailed, processed.Status)

	_, entries, err := f.payroll.GetRun(f.ctx, run.RunID)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	debitID := entries[0].TransactionID
	suite.Require().NotEmpty(debitID)
	suite.Equal(int64(60_000), f.balance("school"))

	resubmitted := entries[0]
	resubmitted.RunID = ""
	resubmitted.TransactionID = ""

	_, err = f.payroll.PaySalary(f.ctx, resubmitted, "other-school")
	suite.ErrorIs(err, apperrors.ErrIdempotencyConflict)
	suite.Equal(int64(100_000), f.balance("other-school"))

	out, err := f.payroll.PaySalary(f.ctx, resubmitted, "school")
	suite.Require().NoError(err)
	suite.Equal(debitID, out.TransactionID)
	suite.Equal(int64(60_000), f.balance("school"))
	suite.Equal(int64(40_000), f.balance("staff-acc"))
	suite.Len(f.rows(debitID), 2)

	completed, _, err := f.payroll.GetRun(f.ctx, run.RunID)
	suite.Require().NoError(err)
	suite.Equal(domain.PayrollRunCompleted, completed.Status)
	suite.Equal(1, completed.Successful)
}

func (suite *PayrollServiceTestSuite) TestCreateAndProcessRun() {
	f := suite.f
	f.open("school", 100_000)
	f.open("w1", 0)
	f.open("w2", 0)

	req := dto.CreatePayrollRunRequest{
		SchoolAccountID: "school",
		Period:          "2026-03",
		Entries: []dto.PayrollEntryRequest{
			{StaffID: "s1", Recipient: dto.RecipientRequest{Reference: "s1", Name: "One"}, BaseSalary: 60_000, Channel: domain.ChannelWallet, RecipientAccountID: "w1"},
			{StaffID: "s2", Recipient: dto.RecipientRequest{Reference: "s2", Name: "Two"}, BaseSalary: 60_000, Channel: domain.ChannelWallet, RecipientAccountID: "w2"},
		},
	}
	run, entries, err := f.payroll.CreateRun(f.ctx, req, "bursar")
	suite.Require().NoError(err)
	suite.Equal(domain.PayrollRunDraft, run.Status)
	suite.Equal(int64(120_000), run.TotalNet)
	suite.Len(entries, 2)

	processed, result, err := f.payroll.ProcessRun(f.ctx, run.RunID, "bursar")
	suite.Require().NoError(err)
	suite.Equal(domain.PayrollRunPartiallyCompleted, processed.Status)
	suite.Equal(1, result.Successful)
	suite.Equal(int64(60_000), processed.TotalDisbursed)

	// Top up and process again: only the failed entry is paid.
	_, err = f.accounts.Credit(f.ctx, domain.Posting{AccountID: "school", Amount: 20_000, IdempotencyKey: "topup", Kind: domain.KindOpeningBalance})
	suite.Require().NoError(err)
	processed, result, err = f.payroll.ProcessRun(f.ctx, run.RunID, "bursar")
	suite.Require().NoError(err)
	suite.Equal(domain.PayrollRunCompleted, processed.Status)
	suite.Equal(2, result.Successful)
	suite.Equal(int64(0), f.balance("school"))
	suite.Equal(int64(60_000), f.balance("w2"))

	_, _, err = f.payroll.ProcessRun(f.ctx, run.RunID, "bursar")
	suite.ErrorIs(err, apperrors.ErrConflict)

	_, stored, err := f.payroll.GetRun(f.ctx, run.RunID)
	suite.Require().NoError(err)
	for _, e := range stored {
		suite.Equal(domain.PayrollEntryCompleted, e.Status)
	}
}

func (suite *PayrollServiceTestSuite) TestCreateRun_RejectsInvalidEntries() {
	f := suite.f
	f.open("school", 0)
	req := dto.CreatePayrollRunRequest{
		SchoolAccountID: "school",
		Period:          "2026-03",
		Entries: []dto.PayrollEntryRequest{
			{StaffID: "s1", Recipient: dto.RecipientRequest{Reference: "s1", Name: "One"}, BaseSalary: 10, Deductions: 10, Channel: domain.ChannelWallet, RecipientAccountID: "w1"},
		},
	}
	_, _, err := f.payroll.CreateRun(f.ctx, req, "bursar")
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func TestPayrollServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PayrollServiceTestSuite))
}

// Deductions larger than base plus allowances never reach the router.
func TestPaySalary_ZeroNetRejectedBeforeRouter(t *testing.T) {
	store := memory.NewStore()
	repos := memory.NewRepositoryProvider(store)
	router := new(MockRouter)
	svc := services.NewPayrollService(repos.PayrollRepo, repos.AccountRepo, router, nil)

	entry := walletEntry("e1", 50_000, 10_000, 70_000, "staff-acc")
	out, err := svc.PaySalary(context.Background(), entry, "school")

	require.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, domain.OutcomeFailed, out.Status)
	router.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)

	stored, err := repos.PayrollRepo.FindEntryByID(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.PayrollEntryFailed, stored.Status)
}

var errEntryStoreDown = errors.New("payroll store unavailable")

// entryLookupFails breaks entry lookups while leaving the rest of the store working.
type entryLookupFails struct {
	*memory.Store
}

func (entryLookupFails) FindEntryByID(context.Context, string) (*domain.PayrollEntry, error) {
	return nil, errEntryStoreDown
}

// A lookup failure must not be mistaken for a new entry and paid again.
func TestPaySalary_LookupFailureIsNotANewEntry(t *testing.T) {
	store := memory.NewStore()
	repos := memory.NewRepositoryProvider(store)
	router := new(MockRouter)
	svc := services.NewPayrollService(entryLookupFails{Store: store}, repos.AccountRepo, router, nil)

	entry := walletEntry("e1", 50_000, 0, 0, "staff-acc")
	out, err := svc.PaySalary(context.Background(), entry, "school")

	require.ErrorIs(t, err, errEntryStoreDown)
	assert.Equal(t, domain.OutcomeFailed, out.Status)
	router.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)

	_, err = repos.PayrollRepo.FindEntryByID(context.Background(), "e1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
