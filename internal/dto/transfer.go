package dto

import (
	"github.com/SscSPs/settlement_engine/internal/core/domain"
)

// ListPendingTransfersParams binds the pending transfer query string.
type ListPendingTransfersParams struct {
	Limit int `form:"limit,default=50" binding:"min=1,max=500"`
}

// ResolveTransferRequest is posted by the external transfer worker.
type ResolveTransferRequest struct {
	Status domain.TransferStatus `json:"status" binding:"required,oneof=SETTLED FAILED"`
	Reason string                `json:"reason" binding:"required_if=Status FAILED"`
}

// ReplayRequest overrides the minimum age of debits considered orphaned.
type ReplayRequest struct {
	OlderThanSeconds *int `json:"olderThanSeconds" binding:"omitempty,gte=0"`
}

// ListPendingTransfersResponse wraps the pending queue.
type ListPendingTransfersResponse struct {
	Transfers []domain.PendingExternalTransfer `json:"transfers"`
}

// ListParkedReplaysResponse lists debits replay gave up on.
type ListParkedReplaysResponse struct {
	Replays []domain.ReplayAttempt `json:"replays"`
}
