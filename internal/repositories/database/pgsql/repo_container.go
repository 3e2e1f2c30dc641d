package pgsql

import (
	portsrepo "github.com/SscSPs/settlement_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:  newPgxAccountRepository(dbPool),
		LedgerRepo:   newPgxLedgerRepository(dbPool),
		InvoiceRepo:  newPgxInvoiceRepository(dbPool),
		PayrollRepo:  newPgxPayrollRepository(dbPool),
		TransferRepo: newPgxTransferRepository(dbPool),
		LinkRepo:     newPgxAccountLinkRepository(dbPool),
	}
}
