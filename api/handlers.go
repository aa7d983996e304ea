/*
handlers.go - HTTP API handlers for the lending engine

PURPOSE:
  Exposes the loan engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                    List all accounts
    POST   /api/accounts                    Register a client
    GET    /api/accounts/{id}               Get account details
    POST   /api/accounts/{id}/setup         Accept loan terms
    POST   /api/accounts/{id}/payments      Record a payment
    GET    /api/accounts/{id}/payments      Payment history
    GET    /api/accounts/{id}/schedule      Amortization table
    GET    /api/accounts/{id}/reminders     Reminder history
    PUT    /api/accounts/{id}/settings      Lock/reminder policy knobs
    POST   /api/accounts/{id}/unlock        Operator lock override

  Calculator (no account involved):
    POST   /api/calculator/quote            Single-method quote
    POST   /api/calculator/compare          All three methods
    POST   /api/calculator/schedule         Standalone amortization table

  Plans:
    GET    /api/plans                       List plans
    POST   /api/plans                       Create plan
    GET    /api/plans/{id}                  Get plan
    PUT    /api/plans/{id}                  Update plan
    DELETE /api/plans/{id}                  Delete plan (409 when in use)

  Admin:
    POST   /api/admin/sweeps/{name}         Trigger one sweep now
    GET    /api/admin/sweeps/runs           Recent sweep run records

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (version race exhausted retries, plan in use)
  - 500: Internal errors
  The mapping lives in writeDomainError; handlers never inspect error
  strings.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: The background sweeps behind the admin endpoints
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/lending-engine/loan"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *loan.Engine
	Store  loan.Store
}

// NewHandler creates a new handler around the engine.
func NewHandler(engine *loan.Engine) *Handler {
	return &Handler{Engine: engine, Store: engine.Store}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount registers a client with an unconfigured loan record.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := loan.NewAccount{Name: req.Name}
	if req.AutoLockEnabled != nil {
		in.AutoLockDisabled = !*req.AutoLockEnabled
	}
	if req.AutoLockGraceDays != nil {
		in.AutoLockGraceDays = *req.AutoLockGraceDays
	}
	if req.RemindersEnabled != nil {
		in.RemindersDisabled = !*req.RemindersEnabled
	}

	account, err := h.Engine.CreateAccount(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := loan.AccountID(chi.URLParam(r, "id"))

	account, err := h.Store.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// SetupLoan accepts loan terms for an account.
func (h *Handler) SetupLoan(w http.ResponseWriter, r *http.Request) {
	id := loan.AccountID(chi.URLParam(r, "id"))

	var req SetupLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	terms, err := termsFromRequest(id, req)
	if err != nil {
		writeDomainError(w, "Invalid loan terms", err)
		return
	}

	account, err := h.Engine.SetupLoan(r.Context(), terms)
	if err != nil {
		writeDomainError(w, "Failed to set up loan", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

func termsFromRequest(id loan.AccountID, req SetupLoanRequest) (loan.LoanTerms, error) {
	principal, err := parseMoney("principal", req.Principal)
	if err != nil {
		return loan.LoanTerms{}, err
	}
	downPayment := decimal.Zero
	if req.DownPayment != "" {
		if downPayment, err = parseMoney("down_payment", req.DownPayment); err != nil {
			return loan.LoanTerms{}, err
		}
	}
	rate, err := parseMoney("annual_rate_percent", req.AnnualRatePercent)
	if err != nil {
		return loan.LoanTerms{}, err
	}

	terms := loan.LoanTerms{
		AccountID:         id,
		Principal:         principal,
		DownPayment:       downPayment,
		AnnualRatePercent: rate,
		TenureMonths:      req.TenureMonths,
	}
	if req.DueDate != "" {
		due, err := loan.ParseDueDate(req.DueDate)
		if err != nil {
			return loan.LoanTerms{}, err
		}
		terms.DueDate = &due
	}
	if req.PlanID != nil {
		planID := loan.PlanID(*req.PlanID)
		terms.PlanID = &planID
	}
	if req.ProcessingFeePct != nil {
		pct, err := parseMoney("processing_fee_percent", *req.ProcessingFeePct)
		if err != nil {
			return loan.LoanTerms{}, err
		}
		terms.ProcessingFeePercent = &pct
	}
	if req.LateFeePercent != nil {
		pct, err := parseMoney("late_fee_percent", *req.LateFeePercent)
		if err != nil {
			return loan.LoanTerms{}, err
		}
		terms.LateFeePercent = &pct
	}
	return terms, nil
}

// UpdateSettings adjusts the lock/reminder policy knobs.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id := loan.AccountID(chi.URLParam(r, "id"))

	var req LockSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Engine.UpdateLockSettings(r.Context(), id, loan.LockSettings{
		AutoLockEnabled:   req.AutoLockEnabled,
		AutoLockGraceDays: req.AutoLockGraceDays,
		RemindersEnabled:  req.RemindersEnabled,
	})
	if err != nil {
		writeDomainError(w, "Failed to update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// OperatorUnlock records or revokes an explicit lock override.
func (h *Handler) OperatorUnlock(w http.ResponseWriter, r *http.Request) {
	id := loan.AccountID(chi.URLParam(r, "id"))

	var req OperatorUnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Engine.SetOperatorUnlock(r.Context(), id, req.Unlocked)
	if err != nil {
		writeDomainError(w, "Failed to update lock override", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// RecordPayment records a repayment against an account.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := loan.AccountID(chi.URLParam(r, "id"))

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := parseMoney("amount", req.Amount)
	if err != nil {
		writeDomainError(w, "Invalid payment", err)
		return
	}

	in := loan.PaymentInput{Amount: amount, Method: req.Method, Notes: req.Notes}
	if req.Date != "" {
		paidAt, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use RFC 3339)", err)
			return
		}
		in.Date = &paidAt
	}

	account, payment, err := h.Engine.RecordPayment(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, RecordPaymentResponse{
		Payment: toPaymentDTO(payment),
		Account: toAccountDTO(account),
	})
}

// ListPayments returns the payment ledger for an account, newest first.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id := loan.AccountID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetAccount(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get account", err)
		return
	}
	payments, err := h.Store.PaymentsForAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSchedule returns the account's amortization table.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id := loan.AccountID(chi.URLParam(r, "id"))

	schedule, err := h.Engine.AmortizationSchedule(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to build schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(schedule))
}

// ListReminders returns an account's reminder history, newest first.
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	id := loan.AccountID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetAccount(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get account", err)
		return
	}
	reminders, err := h.Store.RemindersForAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reminders", err)
		return
	}

	dtos := make([]ReminderDTO, len(reminders))
	for i, rem := range reminders {
		dtos[i] = toReminderDTO(rem)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CALCULATOR HANDLERS - pure, no persistence touched
// =============================================================================

// Quote returns a single-method installment quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	req, principal, rate, ok := h.decodeQuoteRequest(w, r)
	if !ok {
		return
	}

	quote, err := loan.QuoteFor(loan.Method(req.Method), principal, rate, req.TenureMonths)
	if err != nil {
		writeDomainError(w, "Failed to compute quote", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteDTO(quote))
}

// CompareQuotes returns all three methods side by side.
func (h *Handler) CompareQuotes(w http.ResponseWriter, r *http.Request) {
	req, principal, rate, ok := h.decodeQuoteRequest(w, r)
	if !ok {
		return
	}

	cmp, err := h.Engine.CompareMethods(principal, rate, req.TenureMonths)
	if err != nil {
		writeDomainError(w, "Failed to compare methods", err)
		return
	}
	writeJSON(w, http.StatusOK, ComparisonDTO{
		Simple:   toQuoteDTO(cmp.SimpleInterest),
		Reducing: toQuoteDTO(cmp.ReducingBalance),
		Flat:     toQuoteDTO(cmp.FlatRate),
		Cheapest: string(cmp.Cheapest),
		Savings:  cmp.Savings.StringFixed(2),
	})
}

// StandaloneSchedule expands a hypothetical loan into its table without
// touching any account.
func (h *Handler) StandaloneSchedule(w http.ResponseWriter, r *http.Request) {
	req, principal, rate, ok := h.decodeQuoteRequest(w, r)
	if !ok {
		return
	}

	schedule, err := loan.BuildSchedule(loan.Method(req.Method), principal, rate, req.TenureMonths)
	if err != nil {
		writeDomainError(w, "Failed to build schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(schedule))
}

func (h *Handler) decodeQuoteRequest(w http.ResponseWriter, r *http.Request) (QuoteRequest, decimal.Decimal, decimal.Decimal, bool) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, decimal.Zero, decimal.Zero, false
	}
	principal, err := parseMoney("principal", req.Principal)
	if err != nil {
		writeDomainError(w, "Invalid calculator input", err)
		return req, decimal.Zero, decimal.Zero, false
	}
	rate, err := parseMoney("annual_rate_percent", req.AnnualRatePercent)
	if err != nil {
		writeDomainError(w, "Invalid calculator input", err)
		return req, decimal.Zero, decimal.Zero, false
	}
	return req, principal, rate, true
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Store.ListPlans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list plans", err)
		return
	}

	dtos := make([]PlanDTO, len(plans))
	for i, p := range plans {
		dtos[i] = toPlanDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	plan, err := planFromRequest(req)
	if err != nil {
		writeDomainError(w, "Invalid plan", err)
		return
	}
	plan.ID = loan.NewPlanID()
	plan.CreatedAt = time.Now().UTC()

	if err := h.Store.CreatePlan(r.Context(), plan); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanDTO(plan))
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id := loan.PlanID(chi.URLParam(r, "id"))

	plan, err := h.Store.GetPlan(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get plan", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id := loan.PlanID(chi.URLParam(r, "id"))

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	existing, err := h.Store.GetPlan(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get plan", err)
		return
	}

	plan, err := planFromRequest(req)
	if err != nil {
		writeDomainError(w, "Invalid plan", err)
		return
	}
	plan.ID = id
	plan.CreatedAt = existing.CreatedAt

	if err := h.Store.UpdatePlan(r.Context(), plan); err != nil {
		writeDomainError(w, "Failed to update plan", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id := loan.PlanID(chi.URLParam(r, "id"))

	if err := h.Store.DeletePlan(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete plan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func planFromRequest(req PlanRequest) (loan.LoanPlan, error) {
	if req.Name == "" {
		return loan.LoanPlan{}, errors.New("name must not be empty")
	}
	rate, err := parseMoney("interest_rate", req.InterestRate)
	if err != nil {
		return loan.LoanPlan{}, err
	}
	processing, err := parseMoney("processing_fee_percent", req.ProcessingFeePercent)
	if err != nil {
		return loan.LoanPlan{}, err
	}
	lateFee, err := parseMoney("late_fee_percent", req.LateFeePercent)
	if err != nil {
		return loan.LoanPlan{}, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return loan.LoanPlan{
		Name:                 req.Name,
		InterestRate:         rate,
		MinTenureMonths:      req.MinTenureMonths,
		MaxTenureMonths:      req.MaxTenureMonths,
		ProcessingFeePercent: processing,
		LateFeePercent:       lateFee,
		Description:          req.Description,
		Active:               active,
	}, nil
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerSweep runs the named sweep once, immediately.
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := r.Context()

	switch name {
	case SweepPenalty:
		deltas, failed, err := h.Engine.RunPenaltySweep(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Penalty sweep failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sweep": name, "accounts_charged": len(deltas), "failed": failed})
	case SweepAutoLock:
		decisions, failed, err := h.Engine.RunAutoLockSweep(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Auto-lock sweep failed", err)
			return
		}
		locked := 0
		for _, d := range decisions {
			if d.Locked {
				locked++
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"sweep": name, "evaluated": len(decisions), "locked": locked, "failed": failed})
	case SweepReminder:
		reminders, failed, err := h.Engine.RunReminderSweep(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Reminder sweep failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sweep": name, "reminders_created": len(reminders), "failed": failed})
	default:
		writeError(w, http.StatusNotFound, "Unknown sweep: "+name, nil)
	}
}

// ListSweepRuns returns recent sweep run records. 404 when the store does
// not persist them.
func (h *Handler) ListSweepRuns(w http.ResponseWriter, r *http.Request) {
	runStore, ok := h.Store.(loan.SweepRunStore)
	if !ok {
		writeError(w, http.StatusNotFound, "Sweep run records not available with this store", nil)
		return
	}

	runs, err := runStore.ListSweepRuns(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sweep runs", err)
		return
	}

	dtos := make([]SweepRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toSweepRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseMoney(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, &loan.ValidationError{Field: field, Message: "must not be empty"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &loan.ValidationError{Field: field, Message: "invalid decimal " + s}
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case loan.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, loan.ErrPlanInUse), loan.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	case loan.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
