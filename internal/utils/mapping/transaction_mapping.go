package mapping

import (
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/models"
)

// ToModelTransaction converts a domain ledger row to its table model.
func ToModelTransaction(d domain.TransactionRecord) models.Transaction {
	return models.Transaction{
		RecordID:        d.RecordID,
		TransactionID:   d.TransactionID,
		AccountID:       d.AccountID,
		Direction:       models.TransactionType(d.Direction),
		Amount:          d.Amount,
		Kind:            string(d.Kind),
		RelatedEntityID: d.RelatedEntityID,
		Status:          string(d.Status),
		BalanceAfter:    d.BalanceAfter,
		Channel:         NullString(string(d.Channel)),
		Counterparty:    NullString(d.Counterparty),
		CreatedAt:       d.CreatedAt,
		CreatedBy:       d.CreatedBy,
	}
}

// ToDomainTransaction converts a transactions row to a domain ledger row.
func ToDomainTransaction(m models.Transaction) domain.TransactionRecord {
	return domain.TransactionRecord{
		RecordID:        m.RecordID,
		TransactionID:   m.TransactionID,
		AccountID:       m.AccountID,
		Direction:       domain.Direction(m.Direction),
		Amount:          m.Amount,
		Kind:            domain.TransactionKind(m.Kind),
		RelatedEntityID: m.RelatedEntityID,
		Status:          domain.TransactionStatus(m.Status),
		BalanceAfter:    m.BalanceAfter,
		Channel:         domain.Channel(m.Channel.String),
		Counterparty:    m.Counterparty.String,
		CreatedAt:       m.CreatedAt,
		CreatedBy:       m.CreatedBy,
	}
}
