// Package memory holds in-process implementations of the repository ports.
// It backs STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"sync"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/settlement_engine/internal/core/ports/repositories"
	"github.com/SscSPs/settlement_engine/internal/utils/lock"
)

// Store keeps every table in maps guarded by one RWMutex. Postings additionally
// serialise on the account they touch.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]domain.Account
	records      []domain.TransactionRecord
	recordsByTx  map[string][]int
	invoices     map[string]domain.Invoice
	runs         map[string]domain.PayrollRun
	entries      map[string]domain.PayrollEntry
	runEntries   map[string][]string
	transfers    map[string]domain.PendingExternalTransfer
	transferByTx map[string]string
	links        map[string]domain.AccountLink
	replays      map[string]domain.ReplayAttempt

	accountLocks lock.KeyedMutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]domain.Account),
		recordsByTx:  make(map[string][]int),
		invoices:     make(map[string]domain.Invoice),
		runs:         make(map[string]domain.PayrollRun),
		entries:      make(map[string]domain.PayrollEntry),
		runEntries:   make(map[string][]string),
		transfers:    make(map[string]domain.PendingExternalTransfer),
		transferByTx: make(map[string]string),
		links:        make(map[string]domain.AccountLink),
		replays:      make(map[string]domain.ReplayAttempt),
	}
}

// NewRepositoryProvider exposes one store through every repository port.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:  store,
		LedgerRepo:   store,
		InvoiceRepo:  store,
		PayrollRepo:  store,
		TransferRepo: store,
		LinkRepo:     store,
	}
}

var (
	_ portsrepo.AccountRepositoryFacade  = (*Store)(nil)
	_ portsrepo.LedgerRepositoryFacade   = (*Store)(nil)
	_ portsrepo.InvoiceRepositoryFacade  = (*Store)(nil)
	_ portsrepo.PayrollRepositoryFacade  = (*Store)(nil)
	_ portsrepo.TransferRepositoryFacade = (*Store)(nil)
	_ portsrepo.AccountLinkRepository    = (*Store)(nil)
)
