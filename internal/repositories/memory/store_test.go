package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *memory.Store, id string, balance int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveAccount(ctx, domain.Account{AccountID: id, Status: domain.AccountActive, CurrencyCode: "NGN"}))
	if balance > 0 {
		_, _, err := s.ApplyPosting(ctx, domain.Posting{
			AccountID: id, Amount: balance, IdempotencyKey: "seed/" + id, Kind: domain.KindOpeningBalance,
		}, domain.Credit, t0)
		require.NoError(t, err)
	}
}

func TestApplyPosting_DebitAndReplay(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seed(t, s, "payer", 1000)

	p := domain.Posting{AccountID: "payer", Amount: 400, IdempotencyKey: "tx-1", Kind: domain.KindFeePayment}
	rec, replayed, err := s.ApplyPosting(ctx, p, domain.Debit, t0)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, int64(600), rec.BalanceAfter)

	again, replayed, err := s.ApplyPosting(ctx, p, domain.Debit, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, rec.RecordID, again.RecordID)

	acc, err := s.FindAccountByID(ctx, "payer")
	require.NoError(t, err)
	assert.Equal(t, int64(600), acc.Balance)

	p.Amount = 401
	_, _, err = s.ApplyPosting(ctx, p, domain.Debit, t0)
	assert.ErrorIs(t, err, apperrors.ErrIdempotencyConflict)
}

func TestApplyPosting_Rejections(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seed(t, s, "payer", 100)

	_, _, err := s.ApplyPosting(ctx, domain.Posting{AccountID: "payer", Amount: 101, IdempotencyKey: "tx", Kind: domain.KindFeePayment}, domain.Debit, t0)
	var ibe *apperrors.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.Equal(t, int64(100), ibe.Available)

	rows, err := s.FindByTransactionID(ctx, "tx")
	require.NoError(t, err)
	assert.Empty(t, rows, "rejected debit must not write a ledger row")

	require.NoError(t, s.UpdateAccountStatus(ctx, "payer", domain.AccountSuspended, "admin", t0))
	_, _, err = s.ApplyPosting(ctx, domain.Posting{AccountID: "payer", Amount: 1, IdempotencyKey: "tx2", Kind: domain.KindFeeReceived}, domain.Credit, t0)
	assert.ErrorIs(t, err, apperrors.ErrAccountNotActive)

	_, _, err = s.ApplyPosting(ctx, domain.Posting{AccountID: "ghost", Amount: 1, IdempotencyKey: "tx3", Kind: domain.KindFeeReceived}, domain.Credit, t0)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestApplyPosting_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seed(t, s, "payer", 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := s.ApplyPosting(ctx, domain.Posting{
				AccountID: "payer", Amount: 100, IdempotencyKey: fmt.Sprintf("tx-%d", i), Kind: domain.KindFeePayment,
			}, domain.Debit, t0)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	acc, err := s.FindAccountByID(ctx, "payer")
	require.NoError(t, err)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, int64(0), acc.Balance)
}

func TestListByAccount_Pagination(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seed(t, s, "acc", 0)
	for i := 0; i < 5; i++ {
		_, _, err := s.ApplyPosting(ctx, domain.Posting{
			AccountID: "acc", Amount: int64(i + 1), IdempotencyKey: fmt.Sprintf("k%d", i), Kind: domain.KindFeeReceived,
		}, domain.Credit, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	page1, next, err := s.ListByAccount(ctx, "acc", domain.TimeRange{}, 2, nil)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotNil(t, next)
	assert.Equal(t, int64(5), page1[0].Amount)

	page2, next, err := s.ListByAccount(ctx, "acc", domain.TimeRange{}, 2, next)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, int64(3), page2[0].Amount)

	page3, next, err := s.ListByAccount(ctx, "acc", domain.TimeRange{}, 2, next)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
	assert.Nil(t, next)

	windowed, _, err := s.ListByAccount(ctx, "acc", domain.TimeRange{From: t0.Add(time.Minute), To: t0.Add(3 * time.Minute)}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, windowed, 2)

	bad := "%%%"
	_, _, err = s.ListByAccount(ctx, "acc", domain.TimeRange{}, 2, &bad)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestFindUnmatchedDebits(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seed(t, s, "payer", 1000)
	seed(t, s, "payee", 0)

	debit := func(key string, ch domain.Channel) {
		_, _, err := s.ApplyPosting(ctx, domain.Posting{
			AccountID: "payer", Amount: 10, IdempotencyKey: key, Kind: domain.KindFeePayment, Channel: ch, Counterparty: "payee",
		}, domain.Debit, t0)
		require.NoError(t, err)
	}
	debit("orphan", domain.ChannelWallet)
	debit("paired", domain.ChannelWallet)
	debit("queued", domain.ChannelBank)

	_, _, err := s.ApplyPosting(ctx, domain.Posting{AccountID: "payee", Amount: 10, IdempotencyKey: "paired", Kind: domain.KindFeeReceived}, domain.Credit, t0)
	require.NoError(t, err)
	_, err = s.EnqueueTransfer(ctx, domain.PendingExternalTransfer{TransferID: "tr-1", RelatedTransactionID: "queued", Status: domain.TransferPending})
	require.NoError(t, err)

	orphans, err := s.FindUnmatchedDebits(ctx, t0.Add(time.Second), t0, 10)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "orphan", orphans[0].TransactionID)

	none, err := s.FindUnmatchedDebits(ctx, t0, t0, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindUnmatchedDebits_SkipsBackedOffAndParked(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seed(t, s, "payer", 1000)

	for _, key := range []string{"stuck", "parked", "fresh"} {
		_, _, err := s.ApplyPosting(ctx, domain.Posting{
			AccountID: "payer", Amount: 10, IdempotencyKey: key, Kind: domain.KindFeePayment, Channel: domain.ChannelWallet, Counterparty: "payee",
		}, domain.Debit, t0)
		require.NoError(t, err)
	}
	require.NoError(t, s.SaveReplayAttempt(ctx, domain.ReplayAttempt{
		TransactionID: "stuck", Attempts: 2, NextAttemptAt: t0.Add(time.Hour), UpdatedAt: t0,
	}))
	require.NoError(t, s.SaveReplayAttempt(ctx, domain.ReplayAttempt{
		TransactionID: "parked", Attempts: 1, NeedsAttention: true, LastError: "account is not active", UpdatedAt: t0,
	}))

	due, err := s.FindUnmatchedDebits(ctx, t0.Add(time.Second), t0, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "fresh", due[0].TransactionID)

	// Once the backoff elapses the stuck debit is due again, behind untried debits.
	later, err := s.FindUnmatchedDebits(ctx, t0.Add(time.Second), t0.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, later, 2)
	assert.Equal(t, "fresh", later[0].TransactionID)
	assert.Equal(t, "stuck", later[1].TransactionID)

	one, err := s.FindUnmatchedDebits(ctx, t0.Add(time.Second), t0.Add(2*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "fresh", one[0].TransactionID)

	parked, err := s.ListReplaysNeedingAttention(ctx, 10)
	require.NoError(t, err)
	require.Len(t, parked, 1)
	assert.Equal(t, "parked", parked[0].TransactionID)

	_, err = s.FindReplayAttempt(ctx, "fresh")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateInvoice_OptimisticVersion(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	inv := domain.Invoice{InvoiceID: "inv-1", Status: domain.InvoiceDraft, AuditFields: domain.AuditFields{Version: 1}}
	require.NoError(t, s.SaveInvoice(ctx, inv))

	first, err := s.FindInvoiceByID(ctx, "inv-1")
	require.NoError(t, err)
	second, err := s.FindInvoiceByID(ctx, "inv-1")
	require.NoError(t, err)

	first.Status = domain.InvoiceCancelled
	require.NoError(t, s.UpdateInvoice(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Status = domain.InvoicePaid
	assert.ErrorIs(t, s.UpdateInvoice(ctx, second), apperrors.ErrConflict)
}

func TestTransfers_EnqueueIsIdempotentAndResolveOnce(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	a, err := s.EnqueueTransfer(ctx, domain.PendingExternalTransfer{TransferID: "a", RelatedTransactionID: "tx", Status: domain.TransferPending})
	require.NoError(t, err)
	b, err := s.EnqueueTransfer(ctx, domain.PendingExternalTransfer{TransferID: "b", RelatedTransactionID: "tx", Status: domain.TransferPending})
	require.NoError(t, err)
	assert.Equal(t, a.TransferID, b.TransferID)

	_, err = s.ResolveTransfer(ctx, "a", domain.TransferSettled, "", t0)
	require.NoError(t, err)
	_, err = s.ResolveTransfer(ctx, "a", domain.TransferFailed, "late", t0)
	assert.ErrorIs(t, err, apperrors.ErrTransferAlreadyResolved)

	pending, err := s.ListPendingTransfers(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
