package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	portssvc "github.com/SscSPs/settlement_engine/internal/core/ports/services"
	"github.com/SscSPs/settlement_engine/internal/dto"
	"github.com/SscSPs/settlement_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

type invoiceHandler struct {
	invoiceService portssvc.InvoiceSvcFacade
	now            func() time.Time
}

func newInvoiceHandler(is portssvc.InvoiceSvcFacade) *invoiceHandler {
	return &invoiceHandler{invoiceService: is, now: time.Now}
}

// registerInvoiceRoutes registers routes related to invoices.
func registerInvoiceRoutes(rg *gin.RouterGroup, invoiceService portssvc.InvoiceSvcFacade) {
	h := newInvoiceHandler(invoiceService)

	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.createInvoice)
		invoices.POST("/overdue-sweep", h.markOverdue)
		invoices.GET("/:invoiceID", h.getInvoice)
		invoices.POST("/:invoiceID/dispatch", h.dispatch)
		invoices.POST("/:invoiceID/view", h.markViewed)
		invoices.POST("/:invoiceID/remind", h.sendReminder)
		invoices.POST("/:invoiceID/pay", h.payInvoice)
		invoices.POST("/:invoiceID/cancel", h.cancel)
	}
}

// createInvoice godoc
// @Summary Create a draft invoice
// @Description Computes line amounts, subtotal, tax and total in minor units
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   invoice body dto.CreateInvoiceRequest true "Invoice"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 422 {object} map[string]string "Currency does not match the payee account"
// @Failure 500 {object} map[string]string "Failed to create invoice"
// @Security BearerAuth
// @Router /invoices [post]
func (h *invoiceHandler) createInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateInvoice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}

	inv, err := h.invoiceService.CreateInvoice(c.Request.Context(), req, userID)
	if err != nil {
		respondError(c, err, "Failed to create invoice")
		return
	}
	logger.Info("Invoice created", slog.String("invoice_id", inv.InvoiceID), slog.String("invoice_number", inv.InvoiceNumber))
	c.JSON(http.StatusCreated, dto.ToInvoiceResponse(inv))
}

// getInvoice godoc
// @Summary Get an invoice
// @Tags invoices
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} map[string]string "Invoice not found"
// @Security BearerAuth
// @Router /invoices/{invoiceID} [get]
func (h *invoiceHandler) getInvoice(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("invoiceID"))
	if err != nil {
		respondError(c, err, "Failed to retrieve invoice")
		return
	}
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(inv))
}

// dispatch godoc
// @Summary Send an invoice to its recipient
// @Description The invoice becomes SENT only when the dispatcher acknowledges delivery; otherwise it returns to DRAFT.
// @Tags invoices
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.DispatchResponse
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 409 {object} map[string]string "Invoice cannot be dispatched in its current status"
// @Failure 422 {object} map[string]string "Payer has no linked account"
// @Security BearerAuth
// @Router /invoices/{invoiceID}/dispatch [post]
func (h *invoiceHandler) dispatch(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	res, err := h.invoiceService.Dispatch(c.Request.Context(), c.Param("invoiceID"), userID)
	if err != nil {
		respondError(c, err, "Failed to dispatch invoice")
		return
	}
	c.JSON(http.StatusOK, dto.ToDispatchResponse(res))
}

// markViewed godoc
// @Summary Record that the recipient opened the invoice
// @Tags invoices
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 409 {object} map[string]string "Invalid status transition"
// @Security BearerAuth
// @Router /invoices/{invoiceID}/view [post]
func (h *invoiceHandler) markViewed(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	inv, err := h.invoiceService.MarkViewed(c.Request.Context(), c.Param("invoiceID"), userID)
	if err != nil {
		respondError(c, err, "Failed to update invoice")
		return
	}
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(inv))
}

// sendReminder godoc
// @Summary Remind the recipient of an unpaid invoice
// @Tags invoices
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.DispatchResponse
// @Failure 409 {object} map[string]string "Invoice is not awaiting payment"
// @Security BearerAuth
// @Router /invoices/{invoiceID}/remind [post]
func (h *invoiceHandler) sendReminder(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	res, err := h.invoiceService.SendReminder(c.Request.Context(), c.Param("invoiceID"), userID)
	if err != nil {
		respondError(c, err, "Failed to send reminder")
		return
	}
	c.JSON(http.StatusOK, dto.ToDispatchResponse(res))
}

// payInvoice godoc
// @Summary Pay an invoice from a wallet
// @Description Settles the amount due to the institution's payee account and returns a receipt.
// @Description 202 means the payer was debited but the credit is still being reconciled; retrying is safe.
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Param   payment body dto.PayInvoiceRequest false "Payer override"
// @Success 200 {object} domain.Receipt
// @Success 202 {object} map[string]string "Payment pending reconciliation"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 409 {object} map[string]string "Invoice already paid or cancelled"
// @Failure 422 {object} map[string]string "Insufficient balance or account not usable"
// @Security BearerAuth
// @Router /invoices/{invoiceID}/pay [post]
func (h *invoiceHandler) payInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.PayInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for PayInvoice", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}

	receipt, err := h.invoiceService.PayInvoice(c.Request.Context(), c.Param("invoiceID"), req.PayerAccountID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSettlementIncomplete) {
			logger.Warn("Invoice payment pending reconciliation", slog.String("error", err.Error()))
			c.JSON(http.StatusAccepted, gin.H{"status": "PENDING_RECONCILIATION", "error": apperrors.ErrSettlementIncomplete.Error()})
			return
		}
		respondError(c, err, "Failed to pay invoice")
		return
	}
	logger.Info("Invoice paid", slog.String("invoice_id", receipt.InvoiceID), slog.String("receipt_number", receipt.ReceiptNumber))
	c.JSON(http.StatusOK, receipt)
}

// cancel godoc
// @Summary Cancel an unpaid invoice
// @Tags invoices
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 409 {object} map[string]string "Invoice cannot be cancelled"
// @Security BearerAuth
// @Router /invoices/{invoiceID}/cancel [post]
func (h *invoiceHandler) cancel(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	inv, err := h.invoiceService.Cancel(c.Request.Context(), c.Param("invoiceID"), userID)
	if err != nil {
		respondError(c, err, "Failed to cancel invoice")
		return
	}
	c.JSON(http.StatusOK, dto.ToInvoiceResponse(inv))
}

// markOverdue godoc
// @Summary Move past-due invoices to OVERDUE
// @Tags invoices
// @Accept  json
// @Produce  json
// @Param   sweep body dto.OverdueSweepRequest false "Optional sweep time"
// @Success 200 {object} dto.OverdueSweepResponse
// @Security BearerAuth
// @Router /invoices/overdue-sweep [post]
func (h *invoiceHandler) markOverdue(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.OverdueSweepRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for OverdueSweep", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}
	if _, ok := callerID(c); !ok {
		return
	}
	asOf := h.now().UTC()
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}

	updated, err := h.invoiceService.MarkOverdue(c.Request.Context(), asOf)
	if err != nil {
		respondError(c, err, "Failed to mark overdue invoices")
		return
	}
	c.JSON(http.StatusOK, dto.OverdueSweepResponse{Updated: updated})
}
