package dto

import (
	"time"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

// OpenAccountRequest is sent by onboarding to register a balance holder.
type OpenAccountRequest struct {
	AccountID      string `json:"accountID" binding:"omitempty,max=64"` // Optional, generated when empty
	OwnerID        string `json:"ownerID" binding:"required"`
	CurrencyCode   string `json:"currencyCode" binding:"required,len=3,uppercase"`
	OpeningBalance int64  `json:"openingBalance" binding:"gte=0"` // Written to the ledger as OPENING_BALANCE
}

// UpdateAccountStatusRequest suspends, closes or reactivates an account.
type UpdateAccountStatusRequest struct {
	Status domain.AccountStatus `json:"status" binding:"required,oneof=ACTIVE SUSPENDED CLOSED"`
}

// LinkAccountRequest maps a recipient reference to an account for the identity resolver.
type LinkAccountRequest struct {
	RecipientRef string `json:"recipientRef" binding:"required"`
	AccountID    string `json:"accountID" binding:"required"`
}

// AccountResponse defines the data returned for an account.
// Mirrors domain.Account.
type AccountResponse struct {
	AccountID     string               `json:"accountID"`
	OwnerID       string               `json:"ownerID"`
	Status        domain.AccountStatus `json:"status"`
	Balance       int64                `json:"balance"`
	CurrencyCode  string               `json:"currencyCode"`
	CreatedAt     time.Time            `json:"createdAt"`
	CreatedBy     string               `json:"createdBy"`
	LastUpdatedAt time.Time            `json:"lastUpdatedAt"`
	LastUpdatedBy string               `json:"lastUpdatedBy"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:     acc.AccountID,
		OwnerID:       acc.OwnerID,
		Status:        acc.Status,
		Balance:       acc.Balance,
		CurrencyCode:  acc.CurrencyCode,
		CreatedAt:     acc.CreatedAt,
		CreatedBy:     acc.CreatedBy,
		LastUpdatedAt: acc.LastUpdatedAt,
		LastUpdatedBy: acc.LastUpdatedBy,
	}
}

// ListTransactionsParams binds the ledger query string.
type ListTransactionsParams struct {
	From      *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit     int        `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken *string    `form:"nextToken"`
}

// Window converts the optional bounds into a domain.TimeRange.
func (p ListTransactionsParams) Window() domain.TimeRange {
	var r domain.TimeRange
	if p.From != nil {
		r.From = *p.From
	}
	if p.To != nil {
		r.To = *p.To
	}
	return r
}

// TransactionResponse is one ledger row as returned over HTTP.
type TransactionResponse struct {
	TransactionID   string                 `json:"transactionID"`
	AccountID       string                 `json:"accountID"`
	Direction       domain.Direction       `json:"direction"`
	Amount          int64                  `json:"amount"`
	Kind            domain.TransactionKind `json:"kind"`
	RelatedEntityID string                 `json:"relatedEntityID"`
	Status          string                 `json:"status"`
	BalanceAfter    int64                  `json:"balanceAfter"`
	Channel         domain.Channel         `json:"channel,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

// ListTransactionsResponse wraps a page of ledger rows.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// ToListTransactionsResponse converts ledger rows to the response DTO
func ToListTransactionsResponse(records []domain.TransactionRecord, nextToken *string) ListTransactionsResponse {
	out := make([]TransactionResponse, 0, len(records))
	for _, r := range records {
		out = append(out, TransactionResponse{
			TransactionID:   r.TransactionID,
			AccountID:       r.AccountID,
			Direction:       r.Direction,
			Amount:          r.Amount,
			Kind:            r.Kind,
			RelatedEntityID: r.RelatedEntityID,
			Status:          string(r.Status),
			BalanceAfter:    r.BalanceAfter,
			Channel:         r.Channel,
			CreatedAt:       r.CreatedAt,
		})
	}
	return ListTransactionsResponse{Transactions: out, NextToken: nextToken}
}
