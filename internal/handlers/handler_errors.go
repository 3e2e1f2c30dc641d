package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/settlement_engine/internal/apperrors"
	"github.com/SscSPs/settlement_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

type errorStatus struct {
	target error
	code   int
}

// errorStatuses is checked in order; the first match wins.
var errorStatuses = []errorStatus{
	{apperrors.ErrSettlementIncomplete, http.StatusAccepted},
	{apperrors.ErrValidation, http.StatusBadRequest},
	{apperrors.ErrInvoiceNotFound, http.StatusNotFound},
	{apperrors.ErrNotFound, http.StatusNotFound},
	{apperrors.ErrInsufficientBalance, http.StatusUnprocessableEntity},
	{apperrors.ErrAccountNotActive, http.StatusUnprocessableEntity},
	{apperrors.ErrCurrencyMismatch, http.StatusUnprocessableEntity},
	{apperrors.ErrPayeeAccountUnconfigured, http.StatusUnprocessableEntity},
	{apperrors.ErrPayerUnresolved, http.StatusUnprocessableEntity},
	{apperrors.ErrAlreadyPaid, http.StatusConflict},
	{apperrors.ErrInvoiceCancelled, http.StatusConflict},
	{apperrors.ErrInvalidTransition, http.StatusConflict},
	{apperrors.ErrIdempotencyConflict, http.StatusConflict},
	{apperrors.ErrTransferAlreadyResolved, http.StatusConflict},
	{apperrors.ErrConflict, http.StatusConflict},
	{apperrors.ErrDuplicate, http.StatusConflict},
}

// statusFor maps a service error to an HTTP status and a message safe to return.
// Internal identifiers never leave through the message.
func statusFor(err error) (int, string, bool) {
	for _, s := range errorStatuses {
		if !errors.Is(err, s.target) {
			continue
		}
		msg := s.target.Error()
		var insufficient *apperrors.InsufficientBalanceError
		switch {
		case s.target == apperrors.ErrValidation:
			msg = err.Error()
		case errors.As(err, &insufficient):
			msg = insufficient.Error()
		}
		return s.code, msg, true
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code >= 400 && appErr.Code < 500 {
		return appErr.Code, appErr.Message, true
	}
	return http.StatusInternalServerError, "", false
}

// respondError writes err as JSON. Unknown errors are logged and hidden behind fallback.
func respondError(c *gin.Context, err error, fallback string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	code, msg, known := statusFor(err)
	if !known {
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
		return
	}
	logger.Warn("Request rejected", slog.Int("status", code), slog.String("error", err.Error()))
	c.JSON(code, gin.H{"error": msg})
}

// callerID returns the authenticated caller or writes 401.
func callerID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Caller ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return userID, ok
}
