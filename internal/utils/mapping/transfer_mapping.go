package mapping

import (
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/models"
)

func ToModelPendingTransfer(d domain.PendingExternalTransfer) models.PendingTransfer {
	return models.PendingTransfer{
		TransferID:           d.TransferID,
		TransferType:         string(d.Type),
		Amount:               d.Amount,
		CurrencyCode:         d.CurrencyCode,
		RecipientDetails:     d.RecipientDetails,
		Status:               string(d.Status),
		RelatedTransactionID: d.RelatedTransactionID,
		RelatedEntityID:      d.RelatedEntityID,
		SourceAccountID:      d.SourceAccountID,
		FailureReason:        NullString(d.FailureReason),
		CreatedAt:            d.CreatedAt,
		ResolvedAt:           NullTime(d.ResolvedAt),
	}
}

func ToDomainPendingTransfer(m models.PendingTransfer) domain.PendingExternalTransfer {
	return domain.PendingExternalTransfer{
		TransferID:           m.TransferID,
		Type:                 domain.Channel(m.TransferType),
		Amount:               m.Amount,
		CurrencyCode:         m.CurrencyCode,
		RecipientDetails:     m.RecipientDetails,
		Status:               domain.TransferStatus(m.Status),
		RelatedTransactionID: m.RelatedTransactionID,
		RelatedEntityID:      m.RelatedEntityID,
		SourceAccountID:      m.SourceAccountID,
		FailureReason:        m.FailureReason.String,
		CreatedAt:            m.CreatedAt,
		ResolvedAt:           TimePtr(m.ResolvedAt),
	}
}

func ToModelReplayAttempt(d domain.ReplayAttempt) models.ReplayAttempt {
	return models.ReplayAttempt(d)
}

func ToDomainReplayAttempt(m models.ReplayAttempt) domain.ReplayAttempt {
	return domain.ReplayAttempt(m)
}
