/*
handlers_test.go - HTTP API tests

Exercises the router end to end over the in-memory store: account
registration, loan setup, payment recording, the calculator endpoints, and
the plan conflict rules.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/lending-engine/api"
	"github.com/warp/lending-engine/loan"
	"github.com/warp/lending-engine/loan/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *loan.Engine) {
	t.Helper()
	engine := loan.NewEngine(store.NewMemory(), nil, loan.LogDispatcher{})
	handler := api.NewHandler(engine)
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, engine
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createTestAccount(t *testing.T, srv *httptest.Server) api.AccountDTO {
	t.Helper()
	var account api.AccountDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts", api.CreateAccountRequest{Name: "API Client"}, &account)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return account
}

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

func TestAPI_AccountLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	// Register
	account := createTestAccount(t, srv)
	assert.Equal(t, "unconfigured", account.State)
	assert.NotEmpty(t, account.ID)

	// Setup terms
	var configured api.AccountDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+account.ID+"/setup", api.SetupLoanRequest{
		Principal:         "1200",
		DownPayment:       "200",
		AnnualRatePercent: "12",
		TenureMonths:      6,
	}, &configured)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "active", configured.State)
	assert.Equal(t, "172.55", configured.MonthlyInstallment)
	assert.Equal(t, "1035.29", configured.OutstandingBalance)
	require.NotNil(t, configured.NextPaymentDue)

	// Record a payment
	var paid api.RecordPaymentResponse
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+account.ID+"/payments", api.RecordPaymentRequest{
		Amount: "172.55",
		Method: "bank_transfer",
	}, &paid)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "172.55", paid.Payment.Amount)
	assert.Equal(t, "bank_transfer", paid.Payment.Method)
	assert.Equal(t, "862.74", paid.Account.OutstandingBalance)

	// Ledger has the entry
	var payments []api.PaymentDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/"+account.ID+"/payments", nil, &payments)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, payments, 1)

	// Amortization table
	var schedule api.ScheduleDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts/"+account.ID+"/schedule", nil, &schedule)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, schedule.Entries, 6)
	assert.Equal(t, "0.00", schedule.Entries[5].Balance)
}

func TestAPI_AccountErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("unknown account is 404", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/accounts/missing", nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("bad terms are 400", func(t *testing.T) {
		account := createTestAccount(t, srv)
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+account.ID+"/setup", api.SetupLoanRequest{
			Principal:         "0",
			AnnualRatePercent: "12",
			TenureMonths:      6,
		}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("payment before setup is 400", func(t *testing.T) {
		account := createTestAccount(t, srv)
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+account.ID+"/payments", api.RecordPaymentRequest{
			Amount: "100",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed amount is 400", func(t *testing.T) {
		account := createTestAccount(t, srv)
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+account.ID+"/payments", api.RecordPaymentRequest{
			Amount: "lots",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAPI_SettingsAndUnlock(t *testing.T) {
	srv, _ := newTestServer(t)
	account := createTestAccount(t, srv)

	enabled := false
	grace := 10
	var updated api.AccountDTO
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/accounts/"+account.ID+"/settings", api.LockSettingsRequest{
		AutoLockEnabled:   &enabled,
		AutoLockGraceDays: &grace,
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, updated.AutoLockEnabled)
	assert.Equal(t, 10, updated.AutoLockGraceDays)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+account.ID+"/unlock", api.OperatorUnlockRequest{
		Unlocked: true,
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, updated.OperatorUnlocked)
}

// =============================================================================
// CALCULATOR
// =============================================================================

func TestAPI_CalculatorCompare(t *testing.T) {
	srv, _ := newTestServer(t)

	var cmp api.ComparisonDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/calculator/compare", api.QuoteRequest{
		Principal:         "1000",
		AnnualRatePercent: "12",
		TenureMonths:      6,
	}, &cmp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "reducing_balance", cmp.Cheapest)
	assert.Equal(t, "24.71", cmp.Savings)
	assert.Equal(t, "172.55", cmp.Reducing.MonthlyInstallment)
	assert.Equal(t, "176.67", cmp.Simple.MonthlyInstallment)
	assert.Equal(t, "176.67", cmp.Flat.MonthlyInstallment)
}

func TestAPI_CalculatorQuote(t *testing.T) {
	srv, _ := newTestServer(t)

	var quote api.QuoteDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/calculator/quote", api.QuoteRequest{
		Principal:         "1000",
		AnnualRatePercent: "12",
		TenureMonths:      6,
		Method:            "simple_interest",
	}, &quote)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "simple_interest", quote.Method)
	assert.Equal(t, "1060.00", quote.TotalAmount)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/calculator/quote", api.QuoteRequest{
		Principal:         "-5",
		AnnualRatePercent: "12",
		TenureMonths:      6,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_CalculatorStandaloneSchedule(t *testing.T) {
	srv, _ := newTestServer(t)

	var schedule api.ScheduleDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/calculator/schedule", api.QuoteRequest{
		Principal:         "1000",
		AnnualRatePercent: "12",
		TenureMonths:      6,
	}, &schedule)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, schedule.Entries, 6)
	assert.Empty(t, schedule.Entries[0].DueDate, "no anchor without an account")
}

// =============================================================================
// PLANS
// =============================================================================

func TestAPI_PlanCRUDAndInUseConflict(t *testing.T) {
	srv, _ := newTestServer(t)

	var plan api.PlanDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/plans", api.PlanRequest{
		Name:                 "Standard",
		InterestRate:         "12",
		MinTenureMonths:      3,
		MaxTenureMonths:      36,
		ProcessingFeePercent: "1",
		LateFeePercent:       "2",
	}, &plan)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, plan.Active)

	// Attach an account to the plan
	account := createTestAccount(t, srv)
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/accounts/"+account.ID+"/setup", api.SetupLoanRequest{
		Principal:         "1000",
		AnnualRatePercent: "12",
		TenureMonths:      6,
		PlanID:            &plan.ID,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Deleting an in-use plan conflicts
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/plans/"+plan.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unreferenced plans delete cleanly
	var spare api.PlanDTO
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/plans", api.PlanRequest{
		Name:                 "Spare",
		InterestRate:         "15",
		ProcessingFeePercent: "0",
		LateFeePercent:       "2",
	}, &spare)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/plans/"+spare.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/plans/"+spare.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestAPI_TriggerSweep(t *testing.T) {
	srv, _ := newTestServer(t)

	var result map[string]any
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/sweeps/penalty", nil, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "penalty", result["sweep"])

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/admin/sweeps/bogus", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_SweepRunsUnavailableOnMemoryStore(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/admin/sweeps/runs", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	var health map[string]string
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/health", nil, &health)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])
}
