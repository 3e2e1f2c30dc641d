package services

import (
	"context"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

// DisbursementRouterSvc executes a settlement end to end.
type DisbursementRouterSvc interface {
	// Settle debits the payer (when present) and then credits the payee or queues an
	// external transfer. The returned outcome is meaningful even when err is non-nil.
	Settle(ctx context.Context, req domain.SettlementRequest) (domain.SettlementOutcome, error)

	// Resume finishes the delivery step for a debit that has no credit or queued transfer.
	Resume(ctx context.Context, debit domain.TransactionRecord) (domain.SettlementOutcome, error)

	// TransactionIDFor returns the deterministic transaction id for a logical payment.
	TransactionIDFor(relatedEntityID, sequence string) string
}
