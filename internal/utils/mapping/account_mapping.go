package mapping

import (
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/models"
)

// ToModelAccount converts a domain Account to a model Account
func ToModelAccount(d domain.Account) models.Account {
	return models.Account{
		AccountID:    d.AccountID,
		OwnerID:      d.OwnerID,
		Status:       models.AccountStatus(d.Status),
		Balance:      d.Balance,
		CurrencyCode: d.CurrencyCode,
		AuditFields:  ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainAccount converts a model Account to a domain Account
func ToDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:    m.AccountID,
		OwnerID:      m.OwnerID,
		Status:       domain.AccountStatus(m.Status),
		Balance:      m.Balance,
		CurrencyCode: m.CurrencyCode,
		AuditFields:  ToDomainAuditFields(m.AuditFields),
	}
}

func ToModelAccountLink(d domain.AccountLink) models.AccountLink {
	return models.AccountLink{
		RecipientRef: d.RecipientRef,
		AccountID:    d.AccountID,
		CreatedAt:    d.CreatedAt,
		CreatedBy:    d.CreatedBy,
	}
}

func ToDomainAccountLink(m models.AccountLink) domain.AccountLink {
	return domain.AccountLink{
		RecipientRef: m.RecipientRef,
		AccountID:    m.AccountID,
		CreatedAt:    m.CreatedAt,
		CreatedBy:    m.CreatedBy,
	}
}
