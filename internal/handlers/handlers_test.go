package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/settlement_engine/internal/adapters/notification"
	"github.com/SscSPs/settlement_engine/internal/core/domain"
	"github.com/SscSPs/settlement_engine/internal/core/services"
	"github.com/SscSPs/settlement_engine/internal/dto"
	"github.com/SscSPs/settlement_engine/internal/handlers"
	"github.com/SscSPs/settlement_engine/internal/middleware"
	"github.com/SscSPs/settlement_engine/internal/platform/config"
	"github.com/SscSPs/settlement_engine/internal/repositories/memory"
	"github.com/SscSPs/settlement_engine/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

const (
	serviceKey = "payroll-trigger-key"
	testIssuer = "settlement-test"
)

type HandlerTestSuite struct {
	suite.Suite
	router    *gin.Engine
	jwtSecret string
	token     string
}

// generateTestToken signs a bearer token the way operator tooling does.
func (suite *HandlerTestSuite) generateTestToken(userID string) string {
	signed, err := utils.GenerateJWT(userID, suite.jwtSecret, time.Hour, testIssuer)
	suite.Require().NoError(err)
	return signed
}

func (suite *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.jwtSecret = "test-secret-key-that-is-long-enough"

	keyHash, err := utils.HashSecret(serviceKey)
	suite.Require().NoError(err)

	cfg := &config.Config{
		IsProduction:            true, // no swagger routes in tests
		JWTSecret:               suite.jwtSecret,
		JWTIssuer:               testIssuer,
		ServiceAPIKeyHashes:     []string{keyHash},
		SettlementRetryAttempts: 1,
		OrphanDebitAge:          time.Minute,
	}
	repos := memory.NewRepositoryProvider(memory.NewStore())
	container := services.NewServiceContainer(cfg, repos, notification.LogDispatcher{})

	suite.router = gin.New()
	suite.router.Use(middleware.StructuredLoggingMiddleware(slog.Default()))
	handlers.RegisterRoutes(suite.router, cfg, container)
	suite.token = suite.generateTestToken("bursar-1")
}

func (suite *HandlerTestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+suite.token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlerTestSuite) decode(w *httptest.ResponseRecorder, v any) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (suite *HandlerTestSuite) openAccount(id string, balance int64) {
	w := suite.do(http.MethodPost, "/api/v1/accounts", dto.OpenAccountRequest{
		AccountID: id, OwnerID: "owner-" + id, CurrencyCode: "NGN", OpeningBalance: balance,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (suite *HandlerTestSuite) balance(id string) int64 {
	w := suite.do(http.MethodGet, "/api/v1/accounts/"+id, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var acc dto.AccountResponse
	suite.decode(w, &acc)
	return acc.Balance
}

func (suite *HandlerTestSuite) createInvoice(payee string, unitPrice int64) dto.InvoiceResponse {
	body := map[string]any{
		"type":           "FEE_NOTICE",
		"payeeAccountID": payee,
		"recipient":      map[string]any{"reference": "parent-1", "name": "A Parent", "email": "parent@example.com"},
		"lineItems":      []map[string]any{{"description": "Term fees", "quantity": "1", "unitPrice": unitPrice}},
		"dueDate":        time.Now().Add(14 * 24 * time.Hour).UTC().Format(time.RFC3339),
	}
	w := suite.do(http.MethodPost, "/api/v1/invoices", body)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var inv dto.InvoiceResponse
	suite.decode(w, &inv)
	return inv
}

func (suite *HandlerTestSuite) TestHealthIsPublic() {
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlerTestSuite) TestMissingTokenIsRejected() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/accounts/any", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlerTestSuite) TestForeignIssuerIsRejected() {
	foreign, err := utils.GenerateJWT("bursar-1", suite.jwtSecret, time.Hour, "another-service")
	suite.Require().NoError(err)
	suite.token = foreign

	w := suite.do(http.MethodGet, "/api/v1/transfers/pending", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlerTestSuite) TestServiceKeyAuthenticates() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/transfers/pending", nil)
	req.Header.Set(middleware.APIKeyHeader, serviceKey)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *HandlerTestSuite) TestParkedReplaysStartEmpty() {
	w := suite.do(http.MethodGet, "/api/v1/reconciliation/attention?limit=10", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp dto.ListParkedReplaysResponse
	suite.decode(w, &resp)
	suite.Empty(resp.Replays)
}

func (suite *HandlerTestSuite) TestOpenAccountAndListTransactions() {
	suite.openAccount("payer-1", 500000)

	w := suite.do(http.MethodGet, "/api/v1/accounts/payer-1/transactions?limit=10", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var page dto.ListTransactionsResponse
	suite.decode(w, &page)
	suite.Require().Len(page.Transactions, 1)
	suite.Equal(domain.KindOpeningBalance, page.Transactions[0].Kind)
	suite.Nil(page.NextToken)

	w = suite.do(http.MethodGet, "/api/v1/accounts/missing/transactions", nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/accounts", dto.OpenAccountRequest{OwnerID: "x", CurrencyCode: "naira"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestInvoiceDispatchAndPay() {
	suite.openAccount("payer-1", 500000)
	suite.openAccount("school-1", 0)
	w := suite.do(http.MethodPost, "/api/v1/account-links", dto.LinkAccountRequest{RecipientRef: "parent-1", AccountID: "payer-1"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	inv := suite.createInvoice("school-1", 150000)
	suite.Equal(domain.InvoiceDraft, inv.Status)
	suite.Equal(int64(150000), inv.Total)

	w = suite.do(http.MethodPost, "/api/v1/invoices/"+inv.InvoiceID+"/dispatch", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var dispatched dto.DispatchResponse
	suite.decode(w, &dispatched)
	suite.Equal(domain.InvoiceSent, dispatched.Invoice.Status)
	suite.True(dispatched.Delivery.Delivered())

	w = suite.do(http.MethodPost, "/api/v1/invoices/"+inv.InvoiceID+"/pay", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var receipt domain.Receipt
	suite.decode(w, &receipt)
	suite.Equal(int64(150000), receipt.AmountPaid)
	suite.NotEmpty(receipt.ReceiptNumber)

	suite.Equal(int64(350000), suite.balance("payer-1"))
	suite.Equal(int64(150000), suite.balance("school-1"))

	w = suite.do(http.MethodPost, "/api/v1/invoices/"+inv.InvoiceID+"/pay", nil)
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal(int64(350000), suite.balance("payer-1"))
}

func (suite *HandlerTestSuite) TestPayInvoiceInsufficientBalance() {
	suite.openAccount("payer-1", 1000)
	suite.openAccount("school-1", 0)
	inv := suite.createInvoice("school-1", 150000)

	w := suite.do(http.MethodPost, "/api/v1/invoices/"+inv.InvoiceID+"/pay", dto.PayInvoiceRequest{PayerAccountID: "payer-1"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.NotContains(w.Body.String(), "payer-1")
	suite.Equal(int64(1000), suite.balance("payer-1"))
}

func (suite *HandlerTestSuite) TestUnknownInvoice() {
	w := suite.do(http.MethodGet, "/api/v1/invoices/nope", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestPayrollRunProcessesInOrder() {
	suite.openAccount("school-1", 300000)
	entries := make([]map[string]any, 0, 5)
	for i := 1; i <= 5; i++ {
		entries = append(entries, map[string]any{
			"entryID":          fmt.Sprintf("entry-%d", i),
			"staffID":          fmt.Sprintf("staff-%d", i),
			"recipient":        map[string]any{"reference": fmt.Sprintf("staff-%d", i), "name": "Staff Member"},
			"baseSalary":       100000,
			"channel":          "BANK",
			"recipientDetails": "0123456789",
		})
	}

	w := suite.do(http.MethodPost, "/api/v1/payroll/runs", map[string]any{
		"schoolAccountID": "school-1", "period": "2026-03", "entries": entries,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created dto.PayrollRunResponse
	suite.decode(w, &created)

	w = suite.do(http.MethodPost, "/api/v1/payroll/runs/"+created.Run.RunID+"/process", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var processed dto.ProcessRunResponse
	suite.decode(w, &processed)
	suite.Equal(domain.PayrollRunPartiallyCompleted, processed.Run.Status)
	suite.Equal(3, processed.Run.Successful)
	suite.Equal(2, processed.Run.Failed)
	suite.Equal(int64(0), suite.balance("school-1"))

	w = suite.do(http.MethodGet, "/api/v1/transfers/pending", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var pending dto.ListPendingTransfersResponse
	suite.decode(w, &pending)
	suite.Len(pending.Transfers, 3)
}

func (suite *HandlerTestSuite) TestResolveTransferRequiresReasonForFailure() {
	w := suite.do(http.MethodPost, "/api/v1/transfers/t-1/resolve", map[string]any{"status": "FAILED"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
