/*
Package loan provides the loan lifecycle and calculation engine.

PURPOSE:
  This package contains the domain types and algorithms for managing
  device-secured installment loans: installment arithmetic under three
  interest conventions, the derived lifecycle state machine, penalty
  accrual, auto-lock policy, and reminder eligibility.

KEY CONCEPTS IN THIS FILE (types.go):
  - LoanTerms: Immutable inputs accepted at setup
  - LoanPlan: Named rate/fee template accounts can inherit from
  - LoanAccount: The one mutable, versioned record per financed client
  - Payment: An immutable ledger entry (append-only, never edited)
  - Reminder: A scheduler-created notification record

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all money, rounded to cents at write points
  2. Versioning: every account mutation is conditional on the version token
  3. Nullability: optional fields are pointers, never zero-value sentinels
  4. Auditability: payments are append-only; corrections are new entries

SEE ALSO:
  - calculator.go: Installment quotes
  - account.go: Lifecycle state machine
  - store.go: Persistence and collaborator interfaces
*/
package loan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Two-decimal currency helpers
// =============================================================================

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	thirty  = decimal.NewFromInt(30)
	oneCent = decimal.NewFromFloat(0.01)
	zero    = decimal.Zero
	one     = decimal.NewFromInt(1)
)

// Round2 rounds a monetary value to two decimal places,
// half away from zero (banker's rounding is NOT used here).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MustDecimal parses a decimal literal; invalid input yields zero.
// Test helper semantics, mirrors the engine's tolerance for seed data.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type PlanID string
type PaymentID string
type ReminderID string

func NewAccountID() AccountID   { return AccountID(uuid.NewString()) }
func NewPlanID() PlanID         { return PlanID(uuid.NewString()) }
func NewPaymentID() PaymentID   { return PaymentID(uuid.NewString()) }
func NewReminderID() ReminderID { return ReminderID(uuid.NewString()) }

// =============================================================================
// LOAN TERMS - Immutable once accepted
// =============================================================================

// LoanTerms are the inputs accepted at setup. Invariants (enforced by
// Validate): Principal > 0, TenureMonths >= 1 (or DueDate set), Rate >= 0.
type LoanTerms struct {
	AccountID AccountID

	Principal         decimal.Decimal
	DownPayment       decimal.Decimal
	AnnualRatePercent decimal.Decimal

	// Exactly one of these drives tenure resolution. TenureMonths is used
	// when DueDate is nil; otherwise tenure is derived from the due date.
	TenureMonths int
	DueDate      *time.Time

	// Optional plan inheritance. When set, the plan supplies late-fee and
	// processing-fee percentages unless overridden here.
	PlanID               *PlanID
	ProcessingFeePercent *decimal.Decimal
	LateFeePercent       *decimal.Decimal
}

// FinancedPrincipal is the amount actually amortized: principal less the
// down payment collected up front.
func (t LoanTerms) FinancedPrincipal() decimal.Decimal {
	return t.Principal.Sub(t.DownPayment)
}

// =============================================================================
// LOAN PLAN - Named rate/fee template
// =============================================================================

// DefaultLateFeePercent applies when an account has no plan and no explicit
// late-fee rate: 2% of the installment per overdue month.
var DefaultLateFeePercent = decimal.NewFromInt(2)

type LoanPlan struct {
	ID                   PlanID
	Name                 string
	InterestRate         decimal.Decimal
	MinTenureMonths      int
	MaxTenureMonths      int
	ProcessingFeePercent decimal.Decimal
	LateFeePercent       decimal.Decimal
	Description          string
	Active               bool
	CreatedAt            time.Time
}

// =============================================================================
// ACCOUNT STATE - Lifecycle states (see account.go for transitions)
// =============================================================================

type AccountState string

const (
	StateUnconfigured AccountState = "unconfigured"
	StateActive       AccountState = "active"
	StateOverdue      AccountState = "overdue"
	StateLocked       AccountState = "locked"
	StatePaidOff      AccountState = "paid_off"
)

// Terminal reports whether no further lifecycle transitions apply.
func (s AccountState) Terminal() bool { return s == StatePaidOff }

// =============================================================================
// LOAN ACCOUNT - One mutable record per financed client
// =============================================================================

// LoanAccount is the single shared record mutated by the payment processor
// and the periodic sweeps. Every mutation must go through a conditional
// store update keyed on Version; plain read-modify-write is a bug.
type LoanAccount struct {
	ID   AccountID
	Name string

	PlanID *PlanID
	State  AccountState

	// Accepted terms (copied at setup, immutable afterwards)
	Principal            decimal.Decimal
	DownPayment          decimal.Decimal
	AnnualRatePercent    decimal.Decimal
	TenureMonths         int
	ProcessingFee        decimal.Decimal
	LateFeePercent       *decimal.Decimal

	// Derived running totals
	MonthlyInstallment decimal.Decimal
	TotalAmountDue     decimal.Decimal
	TotalPaid          decimal.Decimal
	OutstandingBalance decimal.Decimal
	LateFeesAccrued    decimal.Decimal
	DaysOverdue        int

	// Schedule anchors
	LoanStartDate   *time.Time
	LastPaymentDate *time.Time
	NextPaymentDue  *time.Time

	// Watermark for marginal penalty accrual: late fees have been charged
	// for the overdue period up to (and including) this instant. Nil means
	// nothing accrued since the account last became overdue.
	LateAccruedThrough *time.Time

	// Device lock. IsLocked is the policy-driven flag owned by this engine.
	// OperatorUnlocked is an explicit operator override recorded outside
	// the policy; the auto-lock evaluator never reads or writes it.
	IsLocked         bool
	LockMessage      string
	OperatorUnlocked bool

	AutoLockEnabled   bool
	AutoLockGraceDays int
	RemindersEnabled  bool

	// Optimistic concurrency token; incremented by the store on every
	// successful conditional update.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep-enough copy for mutate-then-conditionally-update.
// Pointer fields are re-pointed so the caller can modify them freely.
func (a LoanAccount) Clone() LoanAccount {
	c := a
	c.PlanID = clonePtr(a.PlanID)
	c.LateFeePercent = clonePtr(a.LateFeePercent)
	c.LoanStartDate = clonePtr(a.LoanStartDate)
	c.LastPaymentDate = clonePtr(a.LastPaymentDate)
	c.NextPaymentDue = clonePtr(a.NextPaymentDue)
	c.LateAccruedThrough = clonePtr(a.LateAccruedThrough)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// =============================================================================
// PAYMENT - Append-only ledger entry
// =============================================================================

type Payment struct {
	ID        PaymentID
	AccountID AccountID
	Amount    decimal.Decimal
	Date      time.Time
	Method    string
	Notes     string
	CreatedAt time.Time
}

// =============================================================================
// REMINDER - Scheduler-created notification record
// =============================================================================

type ReminderType string

const (
	ReminderDueToday    ReminderType = "payment_due_today"
	ReminderOverdue1Day ReminderType = "payment_overdue_1day"
	ReminderOverdue3Day ReminderType = "payment_overdue_3days"
	ReminderOverdue7Day ReminderType = "payment_overdue_7days"
)

type Reminder struct {
	ID            ReminderID
	AccountID     AccountID
	Type          ReminderType
	ScheduledDate time.Time
	Sent          bool
	SentAt        *time.Time
	Message       string
	CreatedAt     time.Time
}

// =============================================================================
// TIME HELPERS
// =============================================================================

// Clock is the injected time source. Sweeps and the payment processor never
// call time.Now directly; tests pin the clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock pins time for tests.
type FixedClock struct{ At time.Time }

func (c FixedClock) Now() time.Time { return c.At }

// DaysBetween returns whole days from 'from' to 'to', flooring toward
// negative infinity so that any elapsed fraction of a day past a deadline
// counts as zero, and an overdue period of 3 days 6 hours counts as 3.
func DaysBetween(from, to time.Time) int {
	hours := to.Sub(from).Hours()
	days := int(hours / 24)
	if hours < 0 && hours/24 != float64(days) {
		days--
	}
	return days
}

// AddMonths advances a date by whole calendar months (time.AddDate
// normalization applies: Jan 31 + 1 month = Mar 2/3).
func AddMonths(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) }
