package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/settlement_engine/internal/core/ports/services"
	"github.com/SscSPs/settlement_engine/internal/dto"
	"github.com/SscSPs/settlement_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

type payrollHandler struct {
	payrollService portssvc.PayrollSvcFacade
}

func newPayrollHandler(ps portssvc.PayrollSvcFacade) *payrollHandler {
	return &payrollHandler{payrollService: ps}
}

// registerPayrollRoutes registers payroll run and ad-hoc salary routes.
func registerPayrollRoutes(rg *gin.RouterGroup, payrollService portssvc.PayrollSvcFacade) {
	h := newPayrollHandler(payrollService)

	payroll := rg.Group("/payroll")
	{
		payroll.POST("/runs", h.createRun)
		payroll.GET("/runs/:runID", h.getRun)
		payroll.POST("/runs/:runID/process", h.processRun)
		payroll.POST("/salary", h.paySalary)
	}
}

// createRun godoc
// @Summary Create a payroll run
// @Description Stores a DRAFT run with its entries. Net salary is fixed at creation.
// @Tags payroll
// @Accept  json
// @Produce  json
// @Param   run body dto.CreatePayrollRunRequest true "Run"
// @Success 201 {object} dto.PayrollRunResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "School account not found"
// @Failure 409 {object} map[string]string "Duplicate entry id"
// @Security BearerAuth
// @Router /payroll/runs [post]
func (h *payrollHandler) createRun(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreatePayrollRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreatePayrollRun", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}

	run, entries, err := h.payrollService.CreateRun(c.Request.Context(), req, userID)
	if err != nil {
		respondError(c, err, "Failed to create payroll run")
		return
	}
	logger.Info("Payroll run created", slog.String("run_id", run.RunID), slog.Int("entries", len(entries)))
	c.JSON(http.StatusCreated, dto.PayrollRunResponse{Run: *run, Entries: entries})
}

// getRun godoc
// @Summary Get a payroll run with its entries
// @Tags payroll
// @Produce  json
// @Param   runID path string true "Run ID"
// @Success 200 {object} dto.PayrollRunResponse
// @Failure 404 {object} map[string]string "Run not found"
// @Security BearerAuth
// @Router /payroll/runs/{runID} [get]
func (h *payrollHandler) getRun(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	run, entries, err := h.payrollService.GetRun(c.Request.Context(), c.Param("runID"))
	if err != nil {
		respondError(c, err, "Failed to retrieve payroll run")
		return
	}
	c.JSON(http.StatusOK, dto.PayrollRunResponse{Run: *run, Entries: entries})
}

// processRun godoc
// @Summary Pay out a payroll run
// @Description Pays entries strictly in submission order while holding the school account lock.
// @Description Entries that cannot be funded fail; later entries are still attempted.
// @Description Re-processing only attempts entries that are not yet COMPLETED.
// @Tags payroll
// @Produce  json
// @Param   runID path string true "Run ID"
// @Success 200 {object} dto.ProcessRunResponse
// @Failure 404 {object} map[string]string "Run not found"
// @Failure 409 {object} map[string]string "Run already completed"
// @Security BearerAuth
// @Router /payroll/runs/{runID}/process [post]
func (h *payrollHandler) processRun(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := callerID(c)
	if !ok {
		return
	}
	run, result, err := h.payrollService.ProcessRun(c.Request.Context(), c.Param("runID"), userID)
	if err != nil {
		respondError(c, err, "Failed to process payroll run")
		return
	}
	logger.Info("Payroll run processed",
		slog.String("run_id", run.RunID),
		slog.String("status", string(run.Status)),
		slog.Int("successful", run.Successful),
		slog.Int("failed", run.Failed))
	c.JSON(http.StatusOK, dto.ProcessRunResponse{Run: *run, Result: result})
}

// paySalary godoc
// @Summary Pay a single salary entry
// @Description Reusing an entryID makes the call safe to retry.
// @Tags payroll
// @Accept  json
// @Produce  json
// @Param   salary body dto.PaySalaryRequest true "Salary"
// @Success 200 {object} domain.SettlementOutcome
// @Success 202 {object} domain.SettlementOutcome "Debited, delivery pending reconciliation"
// @Failure 400 {object} map[string]string "Invalid entry"
// @Failure 422 {object} map[string]string "Insufficient balance or account not usable"
// @Security BearerAuth
// @Router /payroll/salary [post]
func (h *payrollHandler) paySalary(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.PaySalaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for PaySalary", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}

	entry := req.Entry.ToDomain()
	entry.CreatedBy = userID
	entry.LastUpdatedBy = userID

	outcome, err := h.payrollService.PaySalary(c.Request.Context(), entry, req.SchoolAccountID)
	if err != nil {
		if code, _, _ := statusFor(err); code == http.StatusAccepted {
			logger.Warn("Salary payment pending reconciliation", slog.String("error", err.Error()))
			c.JSON(http.StatusAccepted, outcome)
			return
		}
		respondError(c, err, "Failed to pay salary")
		return
	}
	c.JSON(http.StatusOK, outcome)
}
