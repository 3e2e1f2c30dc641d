package handlers

import (
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/SscSPs/settlement_engine/internal/core/ports/services"
	"github.com/SscSPs/settlement_engine/internal/dto"
	"github.com/SscSPs/settlement_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

type transferHandler struct {
	reconciliation portssvc.ReconciliationSvc
	orphanAge      time.Duration
}

func newTransferHandler(rs portssvc.ReconciliationSvc, orphanAge time.Duration) *transferHandler {
	return &transferHandler{reconciliation: rs, orphanAge: orphanAge}
}

// registerTransferRoutes registers the external transfer worker and reconciliation routes.
func registerTransferRoutes(rg *gin.RouterGroup, reconciliation portssvc.ReconciliationSvc, orphanAge time.Duration) {
	h := newTransferHandler(reconciliation, orphanAge)

	transfers := rg.Group("/transfers")
	{
		transfers.GET("/pending", h.listPending)
		transfers.POST("/:transferID/resolve", h.resolve)
	}
	rg.POST("/reconciliation/replay", h.replay)
	rg.GET("/reconciliation/attention", h.listParked)
}

// listPending godoc
// @Summary List queued external transfers
// @Description Oldest first. Used by the bank, mobile money and manual payout workers.
// @Tags transfers
// @Produce  json
// @Param   limit query int false "Maximum transfers" default(50)
// @Success 200 {object} dto.ListPendingTransfersResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /transfers/pending [get]
func (h *transferHandler) listPending(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := callerID(c); !ok {
		return
	}
	var params dto.ListPendingTransfersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListPendingTransfers", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	transfers, err := h.reconciliation.ListPendingTransfers(c.Request.Context(), params.Limit)
	if err != nil {
		respondError(c, err, "Failed to list pending transfers")
		return
	}
	c.JSON(http.StatusOK, dto.ListPendingTransfersResponse{Transfers: transfers})
}

// resolve godoc
// @Summary Record the outcome of an external transfer
// @Description FAILED refunds the source account and fails the linked payroll entry.
// @Tags transfers
// @Accept  json
// @Produce  json
// @Param   transferID path string true "Transfer ID"
// @Param   resolution body dto.ResolveTransferRequest true "Outcome"
// @Success 200 {object} domain.PendingExternalTransfer
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Transfer not found"
// @Failure 409 {object} map[string]string "Transfer already resolved"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /transfers/{transferID}/resolve [post]
func (h *transferHandler) resolve(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ResolveTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ResolveTransfer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}

	transfer, err := h.reconciliation.ResolveTransfer(c.Request.Context(), c.Param("transferID"), req.Status, req.Reason, userID)
	if err != nil {
		respondError(c, err, "Failed to resolve transfer")
		return
	}
	logger.Info("Transfer resolved", slog.String("transfer_id", transfer.TransferID), slog.String("status", string(transfer.Status)))
	c.JSON(http.StatusOK, transfer)
}

// replay godoc
// @Summary Finish orphaned settlement debits
// @Description Resumes delivery for debits with no credit and no queued transfer.
// @Tags transfers
// @Accept  json
// @Produce  json
// @Param   replay body dto.ReplayRequest false "Minimum debit age"
// @Success 200 {object} domain.ReplayReport
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /reconciliation/replay [post]
func (h *transferHandler) replay(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ReplayRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for Replay", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}
	if _, ok := callerID(c); !ok {
		return
	}
	age := h.orphanAge
	if req.OlderThanSeconds != nil {
		age = time.Duration(*req.OlderThanSeconds) * time.Second
	}

	report, err := h.reconciliation.ReplayOrphanedDebits(c.Request.Context(), age)
	if err != nil {
		respondError(c, err, "Failed to replay orphaned debits")
		return
	}
	c.JSON(http.StatusOK, report)
}

// listParked godoc
// @Summary List orphaned debits that need manual reconciliation
// @Description Debits whose replay failed permanently or too many times. They are no longer retried.
// @Tags transfers
// @Produce  json
// @Param   limit query int false "Maximum entries" default(50)
// @Success 200 {object} dto.ListParkedReplaysResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /reconciliation/attention [get]
func (h *transferHandler) listParked(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := callerID(c); !ok {
		return
	}
	var params dto.ListPendingTransfersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListParkedReplays", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	parked, err := h.reconciliation.ListReplaysNeedingAttention(c.Request.Context(), params.Limit)
	if err != nil {
		respondError(c, err, "Failed to list parked replays")
		return
	}
	c.JSON(http.StatusOK, dto.ListParkedReplaysResponse{Replays: parked})
}
