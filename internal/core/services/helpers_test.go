package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/settlement_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/settlement_engine/internal/core/ports/services"
	"github.com/SscSPs/settlement_engine/internal/core/services"
	"github.com/SscSPs/settlement_engine/internal/dto"
	"github.com/SscSPs/settlement_engine/internal/repositories/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDispatcher is a mock type for the NotificationDispatcher interface
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, n domain.Notification) (domain.DeliveryResult, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(domain.DeliveryResult), args.Error(1)
}

// MockRouter is a mock type for the DisbursementRouterSvc interface
type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) Settle(ctx context.Context, req domain.SettlementRequest) (domain.SettlementOutcome, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.SettlementOutcome), args.Error(1)
}

func (m *MockRouter) Resume(ctx context.Context, debit domain.TransactionRecord) (domain.SettlementOutcome, error) {
	args := m.Called(ctx, debit)
	return args.Get(0).(domain.SettlementOutcome), args.Error(1)
}

func (m *MockRouter) TransactionIDFor(relatedEntityID, sequence string) string {
	args := m.Called(relatedEntityID, sequence)
	return args.String(0)
}

var delivered = domain.DeliveryResult{Status: domain.DeliveryDelivered, MessageID: "msg-1"}

func ofKind(kind domain.NotificationKind) interface{} {
	return mock.MatchedBy(func(n domain.Notification) bool { return n.Kind == kind })
}

// flakyStore fails the next failCredits credit postings before they reach the store.
type flakyStore struct {
	*memory.Store
	mu          sync.Mutex
	failCredits int
}

var errTransient = errors.New("connection reset by peer")

func (f *flakyStore) ApplyPosting(ctx context.Context, p domain.Posting, dir domain.Direction, now time.Time) (*domain.TransactionRecord, bool, error) {
	if dir == domain.Credit {
		f.mu.Lock()
		if f.failCredits > 0 {
			f.failCredits--
			f.mu.Unlock()
			return nil, false, errTransient
		}
		f.mu.Unlock()
	}
	return f.Store.ApplyPosting(ctx, p, dir, now)
}

func (f *flakyStore) FailNextCredits(n int) {
	f.mu.Lock()
	f.failCredits = n
	f.mu.Unlock()
}

// fixture wires every service over one in-memory store.
type fixture struct {
	t          *testing.T
	ctx        context.Context
	store      *flakyStore
	repos      portsrepo.RepositoryProvider
	dispatcher *MockDispatcher
	now        time.Time
	sleeps     []time.Duration

	accounts portssvc.AccountSvcFacade
	ledger   portssvc.LedgerSvc
	identity portssvc.IdentityLinkSvc
	router   portssvc.DisbursementRouterSvc
	invoices portssvc.InvoiceSvcFacade
	payroll  portssvc.PayrollSvcFacade
	recon    portssvc.ReconciliationSvc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:          t,
		ctx:        context.Background(),
		store:      &flakyStore{Store: memory.NewStore()},
		dispatcher: new(MockDispatcher),
		now:        time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	f.repos = memory.NewRepositoryProvider(f.store.Store)
	f.repos.AccountRepo = f.store
	clock := func() time.Time { return f.now }

	f.accounts = services.NewAccountService(f.repos.AccountRepo, services.WithAccountClock(clock))
	f.ledger = services.NewLedgerService(f.repos.LedgerRepo, f.repos.AccountRepo)
	f.identity = services.NewIdentityService(f.repos.LinkRepo, f.repos.AccountRepo)
	f.router = services.NewDisbursementRouter(
		f.accounts, f.repos.AccountRepo, f.repos.LedgerRepo, f.repos.TransferRepo,
		services.WithRetryPolicy(services.RetryPolicy{Attempts: 3, Backoff: time.Second}),
		services.WithRouterClock(clock),
		services.WithSleep(func(d time.Duration) { f.sleeps = append(f.sleeps, d) }),
	)
	f.invoices = services.NewInvoiceService(f.repos.InvoiceRepo, f.repos.AccountRepo, f.router, f.identity, f.dispatcher,
		services.WithInvoiceClock(clock))
	f.payroll = services.NewPayrollService(f.repos.PayrollRepo, f.repos.AccountRepo, f.router, f.dispatcher,
		services.WithPayrollClock(clock))
	f.recon = services.NewReconciliationService(f.repos.TransferRepo, f.repos.LedgerRepo, f.repos.PayrollRepo, f.accounts, f.router,
		f.invoices, f.payroll, services.WithReconciliationClock(clock))
	return f
}

func (f *fixture) open(id string, balance int64) {
	f.t.Helper()
	f.openIn(id, balance, "NGN")
}

func (f *fixture) openIn(id string, balance int64, currency string) {
	f.t.Helper()
	_, err := f.accounts.OpenAccount(f.ctx, dto.OpenAccountRequest{
		AccountID: id, OwnerID: "owner-" + id, CurrencyCode: currency, OpeningBalance: balance,
	}, "admin")
	require.NoError(f.t, err)
}

func (f *fixture) balance(id string) int64 {
	f.t.Helper()
	acc, err := f.accounts.GetAccount(f.ctx, id)
	require.NoError(f.t, err)
	return acc.Balance
}

func (f *fixture) rows(txID string) []domain.TransactionRecord {
	f.t.Helper()
	rows, err := f.ledger.FindByIdempotencyKey(f.ctx, txID)
	require.NoError(f.t, err)
	return rows
}

func (f *fixture) link(ref, accountID string) {
	f.t.Helper()
	_, err := f.identity.LinkAccount(f.ctx, dto.LinkAccountRequest{RecipientRef: ref, AccountID: accountID}, "admin")
	require.NoError(f.t, err)
}
