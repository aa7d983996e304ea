/*
store.go - Persistence and collaborator interfaces

PURPOSE:
  Defines the contract between the engine and its injected collaborators:
  the record store, the notification dispatcher, and the time source
  (Clock, in types.go). The engine trusts the account it is given; tenant
  scoping happens in the caller, before any engine operation runs.

CONDITIONAL UPDATES:
  UpdateAccount is the ONLY way to mutate an account, and it is conditional
  on the version the caller read. Three writers share each account record
  (payment recording plus the two periodic sweeps); read-modify-write
  without the version check loses updates, e.g. a late fee computed against
  a pre-payment balance. Losers of the race get ErrVersionConflict and
  re-read.

APPEND-ONLY PAYMENTS:
  Payments have AppendPayment and reads. No update, no delete: a recorded
  payment is a ledger fact. Mistakes are corrected with new entries.

IMPLEMENTATIONS:
  - store/memory.go: in-memory, for tests and dev
  - ../store/sqlite: production SQLite

SEE ALSO:
  - engine.go: the operations built on these interfaces
*/
package loan

import (
	"context"
	"time"
)

// =============================================================================
// ACCOUNT STORE
// =============================================================================

// AccountStore persists LoanAccount records with optimistic versioning.
type AccountStore interface {
	// CreateAccount inserts a new account at version 1.
	CreateAccount(ctx context.Context, account LoanAccount) error

	// GetAccount returns the account or ErrAccountNotFound.
	GetAccount(ctx context.Context, id AccountID) (LoanAccount, error)

	// UpdateAccount writes the account iff the stored version equals
	// expectedVersion, then increments it. Returns ErrVersionConflict when
	// the check fails and ErrAccountNotFound when the row is missing.
	UpdateAccount(ctx context.Context, account LoanAccount, expectedVersion int64) error

	// ListAccounts returns every account. Sweeps iterate this and filter
	// in the engine; per-account failures must not abort the iteration.
	ListAccounts(ctx context.Context) ([]LoanAccount, error)
}

// =============================================================================
// PAYMENT LEDGER - append-only
// =============================================================================

type PaymentStore interface {
	// AppendPayment records a payment. This is the only write.
	AppendPayment(ctx context.Context, p Payment) error

	// PaymentsForAccount returns payments newest-first.
	PaymentsForAccount(ctx context.Context, id AccountID) ([]Payment, error)
}

// =============================================================================
// REMINDER STORE
// =============================================================================

type ReminderStore interface {
	CreateReminder(ctx context.Context, r Reminder) error

	// HasRecentReminder reports whether a reminder of the same type exists
	// for the account with ScheduledDate at or after 'since'. This is the
	// sole idempotence guard for the reminder sweep.
	HasRecentReminder(ctx context.Context, id AccountID, t ReminderType, since time.Time) (bool, error)

	// RemindersForAccount returns reminders newest-first.
	RemindersForAccount(ctx context.Context, id AccountID) ([]Reminder, error)

	// MarkReminderSent flips the sent flag and stamps sentAt.
	MarkReminderSent(ctx context.Context, id ReminderID, sentAt time.Time) error
}

// =============================================================================
// PLAN STORE
// =============================================================================

type PlanStore interface {
	CreatePlan(ctx context.Context, p LoanPlan) error
	GetPlan(ctx context.Context, id PlanID) (LoanPlan, error)
	ListPlans(ctx context.Context) ([]LoanPlan, error)
	UpdatePlan(ctx context.Context, p LoanPlan) error

	// DeletePlan removes a plan; returns ErrPlanInUse when accounts
	// reference it.
	DeletePlan(ctx context.Context, id PlanID) error
}

// Store is the full persistence surface the engine needs.
type Store interface {
	AccountStore
	PaymentStore
	ReminderStore
	PlanStore
}

// =============================================================================
// SWEEP RUN RECORDS - Per-run observability
// =============================================================================

// SweepRun records one scheduler pass of one sweep: what ran, when, and
// how many accounts succeeded/failed. Persisted so operators can see that
// the background jobs are alive and what they did.
type SweepRun struct {
	ID          string
	Sweep       string
	StartedAt   time.Time
	CompletedAt *time.Time
	Processed   int
	Failed      int
	Status      string // "running", "completed", "failed"
	Error       string
}

// SweepRunStore is an optional store capability. Stores that don't
// implement it simply run sweeps without persisted run records.
type SweepRunStore interface {
	SaveSweepRun(ctx context.Context, run SweepRun) error
	ListSweepRuns(ctx context.Context, limit int) ([]SweepRun, error)
}

// =============================================================================
// NOTIFICATION DISPATCHER
// =============================================================================

// Notification is a fully composed message. The engine never formats
// transport payloads; delivery mechanics live behind this interface.
type Notification struct {
	AccountID AccountID
	Title     string
	Body      string
	Metadata  map[string]string
}

type Dispatcher interface {
	// Dispatch hands the notification to the delivery system. A false
	// return means delivery was declined or failed; the engine records the
	// reminder as unsent but does not retry.
	Dispatch(ctx context.Context, n Notification) (bool, error)
}

// LogDispatcher is the default Dispatcher: it logs and reports success.
// Real deployments inject a push/email dispatcher from the outside.
type LogDispatcher struct {
	Logf func(format string, args ...any)
}

func (d LogDispatcher) Dispatch(_ context.Context, n Notification) (bool, error) {
	if d.Logf != nil {
		d.Logf("[Dispatch] account=%s title=%q body=%q", n.AccountID, n.Title, n.Body)
	}
	return true, nil
}
