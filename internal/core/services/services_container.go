package services

import (
	portsrepo "github.com/SscSPs/settlement_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/settlement_engine/internal/core/ports/services"
	"github.com/SscSPs/settlement_engine/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, dispatcher portssvc.NotificationDispatcher) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// The account store comes first; everything that moves money goes through it.
	container.Account = NewAccountService(repos.AccountRepo)
	container.Ledger = NewLedgerService(repos.LedgerRepo, repos.AccountRepo)
	container.Identity = NewIdentityService(repos.LinkRepo, repos.AccountRepo)

	container.Router = NewDisbursementRouter(
		container.Account,
		repos.AccountRepo,
		repos.LedgerRepo,
		repos.TransferRepo,
		WithRetryPolicy(RetryPolicy{
			Attempts: cfg.SettlementRetryAttempts,
			Backoff:  cfg.SettlementRetryBackoff,
		}),
	)

	container.Invoice = NewInvoiceService(
		repos.InvoiceRepo,
		repos.AccountRepo,
		container.Router,
		container.Identity,
		dispatcher,
	)
	container.Payroll = NewPayrollService(
		repos.PayrollRepo,
		repos.AccountRepo,
		container.Router,
		dispatcher,
	)
	container.Reconciliation = NewReconciliationService(
		repos.TransferRepo,
		repos.LedgerRepo,
		repos.PayrollRepo,
		container.Account,
		container.Router,
		container.Invoice,
		container.Payroll,
	)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.AccountSvcFacade      = (*accountService)(nil)
	_ portssvc.InvoiceSvcFacade      = (*invoiceService)(nil)
	_ portssvc.PayrollSvcFacade      = (*payrollService)(nil)
	_ portssvc.DisbursementRouterSvc = (*disbursementRouter)(nil)
)
