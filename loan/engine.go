/*
engine.go - Engine wiring and the setup operation

PURPOSE:
  The Engine ties the pure calculation core to the injected collaborators
  (store, clock, dispatcher) and exposes the lifecycle operations:

    SetupLoan(terms)                -> initialized account
    RecordPayment(...)              -> updated account + ledger entry  (payment.go)
    RunPenaltySweep()               -> per-account deltas              (penalty.go)
    RunAutoLockSweep()              -> lock decisions                  (autolock.go)
    RunReminderSweep()              -> created reminders               (reminder.go)
    AmortizationSchedule(terms)     -> month records
    CompareMethods(p, rate, months) -> three quotes side by side

CONCURRENCY:
  Every mutation goes through mutateAccount: read, copy, mutate, write
  conditionally on the version read. A conflict means another writer (a
  payment vs. a sweep) got there first; the losing side re-reads and
  replays its mutation against fresh state. Sweeps never share this retry
  with each other across accounts; each account is independent.

SEE ALSO:
  - store.go: collaborator contracts
  - account.go: state machine rules the mutators maintain
*/
package loan

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// maxConflictRetries bounds how often a mutation is replayed after losing
// the optimistic-version race before the conflict is surfaced.
const maxConflictRetries = 3

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store      Store
	Clock      Clock
	Dispatcher Dispatcher
}

// NewEngine wires the engine with its collaborators. A nil clock gets the
// system clock; a nil dispatcher gets the logging default.
func NewEngine(store Store, clock Clock, dispatcher Dispatcher) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	if dispatcher == nil {
		dispatcher = LogDispatcher{Logf: log.Printf}
	}
	return &Engine{Store: store, Clock: clock, Dispatcher: dispatcher}
}

// mutateAccount reads the account, applies mutate to a copy, and writes it
// back conditionally on the version read, retrying on conflict. The mutate
// func sees fresh state on every attempt.
func (e *Engine) mutateAccount(ctx context.Context, id AccountID, mutate func(*LoanAccount) error) (LoanAccount, error) {
	var lastErr error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		account, err := e.Store.GetAccount(ctx, id)
		if err != nil {
			return LoanAccount{}, err
		}

		updated := account.Clone()
		if err := mutate(&updated); err != nil {
			return LoanAccount{}, err
		}
		updated.UpdatedAt = e.Clock.Now()

		err = e.Store.UpdateAccount(ctx, updated, account.Version)
		if err == nil {
			updated.Version = account.Version + 1
			return updated, nil
		}
		if !IsRetryable(err) {
			return LoanAccount{}, err
		}
		lastErr = err
	}
	return LoanAccount{}, lastErr
}

// =============================================================================
// ACCOUNT REGISTRATION
// =============================================================================

// DefaultAutoLockGraceDays is the grace window for new accounts: the lock
// policy trips on the day AFTER this many days overdue.
const DefaultAutoLockGraceDays = 3

// NewAccount is the registration input. Zero-value lock/reminder settings
// mean "use the defaults" (enabled, 3-day grace).
type NewAccount struct {
	Name              string
	AutoLockDisabled  bool
	AutoLockGraceDays int
	RemindersDisabled bool
}

// CreateAccount registers a client with an unconfigured loan record. Terms
// arrive later via SetupLoan.
func (e *Engine) CreateAccount(ctx context.Context, in NewAccount) (LoanAccount, error) {
	if in.Name == "" {
		return LoanAccount{}, invalidf("name", "must not be empty")
	}
	grace := in.AutoLockGraceDays
	if grace <= 0 {
		grace = DefaultAutoLockGraceDays
	}

	now := e.Clock.Now()
	account := LoanAccount{
		ID:                 NewAccountID(),
		Name:               in.Name,
		State:              StateUnconfigured,
		Principal:          zero,
		DownPayment:        zero,
		AnnualRatePercent:  zero,
		ProcessingFee:      zero,
		MonthlyInstallment: zero,
		TotalAmountDue:     zero,
		TotalPaid:          zero,
		OutstandingBalance: zero,
		LateFeesAccrued:    zero,
		AutoLockEnabled:    !in.AutoLockDisabled,
		AutoLockGraceDays:  grace,
		RemindersEnabled:   !in.RemindersDisabled,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := e.Store.CreateAccount(ctx, account); err != nil {
		return LoanAccount{}, err
	}
	return account, nil
}

// LockSettings are the per-account policy knobs. Nil fields are left as-is.
type LockSettings struct {
	AutoLockEnabled   *bool
	AutoLockGraceDays *int
	RemindersEnabled  *bool
}

// UpdateLockSettings applies the given settings to the account.
func (e *Engine) UpdateLockSettings(ctx context.Context, id AccountID, s LockSettings) (LoanAccount, error) {
	if s.AutoLockGraceDays != nil && *s.AutoLockGraceDays < 0 {
		return LoanAccount{}, invalidf("auto_lock_grace_days", "must not be negative, got %d", *s.AutoLockGraceDays)
	}
	return e.mutateAccount(ctx, id, func(a *LoanAccount) error {
		if s.AutoLockEnabled != nil {
			a.AutoLockEnabled = *s.AutoLockEnabled
		}
		if s.AutoLockGraceDays != nil {
			a.AutoLockGraceDays = *s.AutoLockGraceDays
		}
		if s.RemindersEnabled != nil {
			a.RemindersEnabled = *s.RemindersEnabled
		}
		return nil
	})
}

// =============================================================================
// SETUP - Unconfigured -> Active
// =============================================================================

// SetupLoan accepts terms for an existing account and populates its running
// totals from the reducing-balance quote (the system default). The first
// installment falls due one calendar month after setup.
func (e *Engine) SetupLoan(ctx context.Context, terms LoanTerms) (LoanAccount, error) {
	if err := ValidateTerms(terms); err != nil {
		return LoanAccount{}, err
	}

	now := e.Clock.Now()
	tenure, err := ResolveTenure(now, terms)
	if err != nil {
		return LoanAccount{}, err
	}

	financed := terms.FinancedPrincipal()
	quote, err := ReducingBalance(financed, terms.AnnualRatePercent, tenure)
	if err != nil {
		return LoanAccount{}, err
	}

	lateFee, processingFeePct, err := e.resolveFees(ctx, terms)
	if err != nil {
		return LoanAccount{}, err
	}

	return e.mutateAccount(ctx, terms.AccountID, func(a *LoanAccount) error {
		nextDue := AddMonths(now, 1)

		a.PlanID = terms.PlanID
		a.Principal = Round2(terms.Principal)
		a.DownPayment = Round2(terms.DownPayment)
		a.AnnualRatePercent = terms.AnnualRatePercent
		a.TenureMonths = tenure
		a.LateFeePercent = lateFee
		a.ProcessingFee = Round2(financed.Mul(processingFeePct).Div(hundred))

		a.MonthlyInstallment = quote.MonthlyInstallment
		a.TotalAmountDue = quote.TotalAmount
		a.TotalPaid = zero
		a.OutstandingBalance = quote.TotalAmount
		a.LateFeesAccrued = zero
		a.DaysOverdue = 0

		a.LoanStartDate = &now
		a.NextPaymentDue = &nextDue
		a.LastPaymentDate = nil
		a.LateAccruedThrough = nil
		a.IsLocked = false
		a.LockMessage = ""

		reconcileState(a, now)
		return nil
	})
}

// resolveFees returns the late-fee override (nil means "plan or default at
// accrual time") and the processing-fee percent, consulting the plan when
// the terms name one.
func (e *Engine) resolveFees(ctx context.Context, terms LoanTerms) (*decimal.Decimal, decimal.Decimal, error) {
	lateFee := terms.LateFeePercent
	processing := zero
	if terms.ProcessingFeePercent != nil {
		processing = *terms.ProcessingFeePercent
	}

	if terms.PlanID != nil {
		plan, err := e.Store.GetPlan(ctx, *terms.PlanID)
		if err != nil {
			return nil, zero, err
		}
		if lateFee == nil {
			v := plan.LateFeePercent
			lateFee = &v
		}
		if terms.ProcessingFeePercent == nil {
			processing = plan.ProcessingFeePercent
		}
	}
	if processing.IsNegative() {
		return nil, zero, invalidf("processing_fee_percent", "must not be negative")
	}
	if lateFee != nil && lateFee.IsNegative() {
		return nil, zero, invalidf("late_fee_percent", "must not be negative")
	}
	return lateFee, processing, nil
}

// lateFeeRate resolves the effective late-fee percent for an account:
// explicit override, then plan rate, then the 2%/month default.
func (e *Engine) lateFeeRate(ctx context.Context, a LoanAccount) decimal.Decimal {
	if a.LateFeePercent != nil {
		return *a.LateFeePercent
	}
	if a.PlanID != nil {
		if plan, err := e.Store.GetPlan(ctx, *a.PlanID); err == nil {
			return plan.LateFeePercent
		}
	}
	return DefaultLateFeePercent
}

// =============================================================================
// READ-SIDE OPERATIONS
// =============================================================================

// AmortizationSchedule expands an account's accepted terms into its table,
// with due dates anchored at the loan start.
func (e *Engine) AmortizationSchedule(ctx context.Context, id AccountID) (Schedule, error) {
	account, err := e.Store.GetAccount(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if account.LoanStartDate == nil {
		return Schedule{}, ErrLoanNotConfigured
	}
	financed := account.Principal.Sub(account.DownPayment)
	return BuildScheduleFrom(MethodReducingBalance, financed, account.AnnualRatePercent, account.TenureMonths, *account.LoanStartDate)
}

// CompareMethods returns all three calculator outputs side by side.
func (e *Engine) CompareMethods(principal decimal.Decimal, annualRatePercent decimal.Decimal, months int) (Comparison, error) {
	return Compare(principal, annualRatePercent, months)
}

// =============================================================================
// SWEEP PLUMBING
// =============================================================================

// forEachAccount iterates all accounts, applying fn fail-soft: one
// account's failure is logged and collected, the iteration continues. It
// stops between items once ctx is done ("stop iterating on shutdown").
func (e *Engine) forEachAccount(ctx context.Context, sweep string, fn func(LoanAccount) error) ([]error, error) {
	accounts, err := e.Store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	var itemErrs []error
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return itemErrs, err
		}
		if err := fn(account); err != nil {
			item := &SweepItemError{Sweep: sweep, AccountID: account.ID, Err: err}
			log.Printf("[%sSweep] %v", sweep, item)
			itemErrs = append(itemErrs, item)
		}
	}
	return itemErrs, nil
}

// overdueDays is the sweep-side days-overdue computation: whole days since
// the due date, floored, never negative.
func overdueDays(due time.Time, now time.Time) int {
	d := DaysBetween(due, now)
	if d < 0 {
		return 0
	}
	return d
}
