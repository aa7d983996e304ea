/*
Package sqlite provides a SQLite-backed implementation of the loan storage
interfaces.

PURPOSE:
  Implements loan.Store (accounts, payments, reminders, plans) and
  loan.SweepRunStore using SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

OPTIMISTIC VERSIONING:
  Account mutations are a single conditional UPDATE:

    UPDATE accounts SET ..., version = version + 1
    WHERE id = ? AND version = ?

  Zero rows affected means either the row is gone (not found) or another
  writer won the race (version conflict). This is the concurrency guard
  between payment recording and the periodic sweeps; there is no
  read-modify-write anywhere.

APPEND-ONLY PAYMENTS:
  The payments table has INSERT and SELECT only. No UPDATE, no DELETE.
  Corrections are new entries.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/loans.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := loan.NewEngine(store, nil, nil)

SEE ALSO:
  - loan/store.go: interface definitions
  - loan/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/lending-engine/loan"
)

// timeLayout is RFC 3339 with fixed-width nanoseconds. Timestamps are
// stored as TEXT and compared lexicographically in SQL (ORDER BY, >=), so
// the format must be fixed width; RFC3339Nano trims trailing zeros and
// breaks that ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements loan.Store and loan.SweepRunStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Loan accounts: one versioned row per financed client
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		plan_id TEXT,
		state TEXT NOT NULL,
		principal TEXT NOT NULL,
		down_payment TEXT NOT NULL,
		annual_rate_percent TEXT NOT NULL,
		tenure_months INTEGER NOT NULL DEFAULT 0,
		processing_fee TEXT NOT NULL,
		late_fee_percent TEXT,
		monthly_installment TEXT NOT NULL,
		total_amount_due TEXT NOT NULL,
		total_paid TEXT NOT NULL,
		outstanding_balance TEXT NOT NULL,
		late_fees_accrued TEXT NOT NULL,
		days_overdue INTEGER NOT NULL DEFAULT 0,
		loan_start_date TEXT,
		last_payment_date TEXT,
		next_payment_due TEXT,
		late_accrued_through TEXT,
		is_locked BOOLEAN NOT NULL DEFAULT FALSE,
		lock_message TEXT NOT NULL DEFAULT '',
		operator_unlocked BOOLEAN NOT NULL DEFAULT FALSE,
		auto_lock_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		auto_lock_grace_days INTEGER NOT NULL DEFAULT 3,
		reminders_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Sweep hot path: overdue selection
	CREATE INDEX IF NOT EXISTS idx_accounts_next_due
		ON accounts(next_payment_due) WHERE next_payment_due IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_accounts_state
		ON accounts(state);
	CREATE INDEX IF NOT EXISTS idx_accounts_plan
		ON accounts(plan_id) WHERE plan_id IS NOT NULL;

	-- Payments (append-only ledger)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		method TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_account
		ON payments(account_id, paid_at DESC);

	-- Reminders
	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		reminder_type TEXT NOT NULL,
		scheduled_date TEXT NOT NULL,
		sent BOOLEAN NOT NULL DEFAULT FALSE,
		sent_at TEXT,
		message TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Dedup check: same (account, type) within the last day
	CREATE INDEX IF NOT EXISTS idx_reminders_account_type_date
		ON reminders(account_id, reminder_type, scheduled_date DESC);

	-- Loan plans
	CREATE TABLE IF NOT EXISTS loan_plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		interest_rate TEXT NOT NULL,
		min_tenure_months INTEGER NOT NULL DEFAULT 3,
		max_tenure_months INTEGER NOT NULL DEFAULT 36,
		processing_fee_percent TEXT NOT NULL,
		late_fee_percent TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Sweep runs (scheduler observability)
	CREATE TABLE IF NOT EXISTS sweep_runs (
		id TEXT PRIMARY KEY,
		sweep TEXT NOT NULL,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		processed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'running',
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_sweep_runs_sweep
		ON sweep_runs(sweep, started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACCOUNT STORE (loan.AccountStore interface)
// =============================================================================

const accountColumns = `id, name, plan_id, state, principal, down_payment,
	annual_rate_percent, tenure_months, processing_fee, late_fee_percent,
	monthly_installment, total_amount_due, total_paid, outstanding_balance,
	late_fees_accrued, days_overdue, loan_start_date, last_payment_date,
	next_payment_due, late_accrued_through, is_locked, lock_message,
	operator_unlocked, auto_lock_enabled, auto_lock_grace_days,
	reminders_enabled, version, created_at, updated_at`

// CreateAccount inserts a new account at version 1.
func (s *Store) CreateAccount(ctx context.Context, a loan.LoanAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Name, planIDOrNull(a.PlanID), a.State,
		a.Principal.String(), a.DownPayment.String(),
		a.AnnualRatePercent.String(), a.TenureMonths, a.ProcessingFee.String(),
		decimalOrNull(a.LateFeePercent),
		a.MonthlyInstallment.String(), a.TotalAmountDue.String(),
		a.TotalPaid.String(), a.OutstandingBalance.String(),
		a.LateFeesAccrued.String(), a.DaysOverdue,
		timeOrNull(a.LoanStartDate), timeOrNull(a.LastPaymentDate),
		timeOrNull(a.NextPaymentDue), timeOrNull(a.LateAccruedThrough),
		a.IsLocked, a.LockMessage, a.OperatorUnlocked,
		a.AutoLockEnabled, a.AutoLockGraceDays, a.RemindersEnabled,
		a.CreatedAt.UTC().Format(timeLayout),
		a.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetAccount returns the account or loan.ErrAccountNotFound.
func (s *Store) GetAccount(ctx context.Context, id loan.AccountID) (loan.LoanAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// UpdateAccount performs the conditional versioned write. The version
// check and increment happen in one statement; there is no window for a
// lost update.
func (s *Store) UpdateAccount(ctx context.Context, a loan.LoanAccount, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE accounts SET
			name = ?, plan_id = ?, state = ?,
			principal = ?, down_payment = ?, annual_rate_percent = ?,
			tenure_months = ?, processing_fee = ?, late_fee_percent = ?,
			monthly_installment = ?, total_amount_due = ?, total_paid = ?,
			outstanding_balance = ?, late_fees_accrued = ?, days_overdue = ?,
			loan_start_date = ?, last_payment_date = ?, next_payment_due = ?,
			late_accrued_through = ?, is_locked = ?, lock_message = ?,
			operator_unlocked = ?, auto_lock_enabled = ?, auto_lock_grace_days = ?,
			reminders_enabled = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		a.Name, planIDOrNull(a.PlanID), a.State,
		a.Principal.String(), a.DownPayment.String(), a.AnnualRatePercent.String(),
		a.TenureMonths, a.ProcessingFee.String(), decimalOrNull(a.LateFeePercent),
		a.MonthlyInstallment.String(), a.TotalAmountDue.String(), a.TotalPaid.String(),
		a.OutstandingBalance.String(), a.LateFeesAccrued.String(), a.DaysOverdue,
		timeOrNull(a.LoanStartDate), timeOrNull(a.LastPaymentDate), timeOrNull(a.NextPaymentDue),
		timeOrNull(a.LateAccruedThrough), a.IsLocked, a.LockMessage,
		a.OperatorUnlocked, a.AutoLockEnabled, a.AutoLockGraceDays,
		a.RemindersEnabled, a.UpdatedAt.UTC().Format(timeLayout),
		a.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing row from a lost race.
		var count int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM accounts WHERE id = ?", a.ID).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			return loan.ErrAccountNotFound
		}
		return loan.ErrVersionConflict
	}
	return nil
}

// ListAccounts returns every account, oldest first.
func (s *Store) ListAccounts(ctx context.Context) ([]loan.LoanAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []loan.LoanAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (loan.LoanAccount, error) {
	var (
		a                  loan.LoanAccount
		planID             sql.NullString
		principal          string
		downPayment        string
		annualRate         string
		processingFee      string
		lateFeePercent     sql.NullString
		monthlyInstallment string
		totalAmountDue     string
		totalPaid          string
		outstanding        string
		lateFeesAccrued    string
		loanStart          sql.NullString
		lastPayment        sql.NullString
		nextDue            sql.NullString
		accruedThrough     sql.NullString
		createdAt          string
		updatedAt          string
	)

	err := row.Scan(
		&a.ID, &a.Name, &planID, &a.State, &principal, &downPayment,
		&annualRate, &a.TenureMonths, &processingFee, &lateFeePercent,
		&monthlyInstallment, &totalAmountDue, &totalPaid, &outstanding,
		&lateFeesAccrued, &a.DaysOverdue, &loanStart, &lastPayment,
		&nextDue, &accruedThrough, &a.IsLocked, &a.LockMessage,
		&a.OperatorUnlocked, &a.AutoLockEnabled, &a.AutoLockGraceDays,
		&a.RemindersEnabled, &a.Version, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return a, loan.ErrAccountNotFound
	}
	if err != nil {
		return a, fmt.Errorf("failed to scan account: %w", err)
	}

	if planID.Valid {
		id := loan.PlanID(planID.String)
		a.PlanID = &id
	}
	a.Principal = parseDecimal(principal)
	a.DownPayment = parseDecimal(downPayment)
	a.AnnualRatePercent = parseDecimal(annualRate)
	a.ProcessingFee = parseDecimal(processingFee)
	if lateFeePercent.Valid {
		d := parseDecimal(lateFeePercent.String)
		a.LateFeePercent = &d
	}
	a.MonthlyInstallment = parseDecimal(monthlyInstallment)
	a.TotalAmountDue = parseDecimal(totalAmountDue)
	a.TotalPaid = parseDecimal(totalPaid)
	a.OutstandingBalance = parseDecimal(outstanding)
	a.LateFeesAccrued = parseDecimal(lateFeesAccrued)
	a.LoanStartDate = parseNullTime(loanStart)
	a.LastPaymentDate = parseNullTime(lastPayment)
	a.NextPaymentDue = parseNullTime(nextDue)
	a.LateAccruedThrough = parseNullTime(accruedThrough)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return a, nil
}

// =============================================================================
// PAYMENT LEDGER (loan.PaymentStore interface) - append-only
// =============================================================================

// AppendPayment records a payment. This is the only write on the table.
func (s *Store) AppendPayment(ctx context.Context, p loan.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, account_id, amount, paid_at, method, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AccountID, p.Amount.String(),
		p.Date.UTC().Format(timeLayout), p.Method, p.Notes,
		p.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

// PaymentsForAccount returns payments newest-first.
func (s *Store) PaymentsForAccount(ctx context.Context, id loan.AccountID) ([]loan.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, amount, paid_at, method, notes, created_at
		FROM payments WHERE account_id = ? ORDER BY paid_at DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []loan.Payment
	for rows.Next() {
		var (
			p      loan.Payment
			amount string
			paidAt string
			made   string
		)
		if err := rows.Scan(&p.ID, &p.AccountID, &amount, &paidAt, &p.Method, &p.Notes, &made); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Amount = parseDecimal(amount)
		p.Date, _ = time.Parse(time.RFC3339Nano, paidAt)
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, made)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// REMINDER STORE (loan.ReminderStore interface)
// =============================================================================

func (s *Store) CreateReminder(ctx context.Context, r loan.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, account_id, reminder_type, scheduled_date, sent, sent_at, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AccountID, r.Type,
		r.ScheduledDate.UTC().Format(timeLayout),
		r.Sent, timeOrNull(r.SentAt), r.Message,
		r.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	return nil
}

func (s *Store) HasRecentReminder(ctx context.Context, id loan.AccountID, t loan.ReminderType, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reminders
		WHERE account_id = ? AND reminder_type = ? AND scheduled_date >= ?`,
		id, t, since.UTC().Format(timeLayout),
	).Scan(&count)
	return count > 0, err
}

func (s *Store) RemindersForAccount(ctx context.Context, id loan.AccountID) ([]loan.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, reminder_type, scheduled_date, sent, sent_at, message, created_at
		FROM reminders WHERE account_id = ? ORDER BY scheduled_date DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []loan.Reminder
	for rows.Next() {
		var (
			r         loan.Reminder
			scheduled string
			sentAt    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Type, &scheduled, &r.Sent, &sentAt, &r.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.ScheduledDate, _ = time.Parse(time.RFC3339Nano, scheduled)
		r.SentAt = parseNullTime(sentAt)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

func (s *Store) MarkReminderSent(ctx context.Context, id loan.ReminderID, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE reminders SET sent = TRUE, sent_at = ? WHERE id = ?",
		sentAt.UTC().Format(timeLayout), id)
	return err
}

// =============================================================================
// PLAN STORE (loan.PlanStore interface)
// =============================================================================

func (s *Store) CreatePlan(ctx context.Context, p loan.LoanPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loan_plans (id, name, interest_rate, min_tenure_months, max_tenure_months,
			processing_fee_percent, late_fee_percent, description, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.InterestRate.String(), p.MinTenureMonths, p.MaxTenureMonths,
		p.ProcessingFeePercent.String(), p.LateFeePercent.String(),
		p.Description, p.Active, p.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id loan.PlanID) (loan.LoanPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanPlan(s.db.QueryRowContext(ctx, `
		SELECT id, name, interest_rate, min_tenure_months, max_tenure_months,
			processing_fee_percent, late_fee_percent, description, active, created_at
		FROM loan_plans WHERE id = ?`, id))
}

func (s *Store) ListPlans(ctx context.Context) ([]loan.LoanPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, interest_rate, min_tenure_months, max_tenure_months,
			processing_fee_percent, late_fee_percent, description, active, created_at
		FROM loan_plans ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []loan.LoanPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *Store) UpdatePlan(ctx context.Context, p loan.LoanPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE loan_plans SET name = ?, interest_rate = ?, min_tenure_months = ?,
			max_tenure_months = ?, processing_fee_percent = ?, late_fee_percent = ?,
			description = ?, active = ?
		WHERE id = ?`,
		p.Name, p.InterestRate.String(), p.MinTenureMonths, p.MaxTenureMonths,
		p.ProcessingFeePercent.String(), p.LateFeePercent.String(),
		p.Description, p.Active, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return loan.ErrPlanNotFound
	}
	return nil
}

func (s *Store) DeletePlan(ctx context.Context, id loan.PlanID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inUse int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE plan_id = ?", id).Scan(&inUse); err != nil {
		return err
	}
	if inUse > 0 {
		return loan.ErrPlanInUse
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM loan_plans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return loan.ErrPlanNotFound
	}
	return nil
}

func scanPlan(row rowScanner) (loan.LoanPlan, error) {
	var (
		p             loan.LoanPlan
		interestRate  string
		processingFee string
		lateFee       string
		createdAt     string
	)
	err := row.Scan(&p.ID, &p.Name, &interestRate, &p.MinTenureMonths, &p.MaxTenureMonths,
		&processingFee, &lateFee, &p.Description, &p.Active, &createdAt)
	if err == sql.ErrNoRows {
		return p, loan.ErrPlanNotFound
	}
	if err != nil {
		return p, fmt.Errorf("failed to scan plan: %w", err)
	}
	p.InterestRate = parseDecimal(interestRate)
	p.ProcessingFeePercent = parseDecimal(processingFee)
	p.LateFeePercent = parseDecimal(lateFee)
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return p, nil
}

// =============================================================================
// SWEEP RUNS (loan.SweepRunStore interface)
// =============================================================================

// SaveSweepRun upserts a run record (the scheduler writes it once as
// "running" and once more on completion).
func (s *Store) SaveSweepRun(ctx context.Context, run loan.SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sweep_runs (id, sweep, started_at, completed_at, processed, failed, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			processed = excluded.processed,
			failed = excluded.failed,
			status = excluded.status,
			error = excluded.error`,
		run.ID, run.Sweep, run.StartedAt.UTC().Format(timeLayout),
		timeOrNull(run.CompletedAt), run.Processed, run.Failed, run.Status, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save sweep run: %w", err)
	}
	return nil
}

func (s *Store) ListSweepRuns(ctx context.Context, limit int) ([]loan.SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sweep, started_at, completed_at, processed, failed, status, error
		FROM sweep_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep runs: %w", err)
	}
	defer rows.Close()

	var runs []loan.SweepRun
	for rows.Next() {
		var (
			run         loan.SweepRun
			startedAt   string
			completedAt sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Sweep, &startedAt, &completedAt,
			&run.Processed, &run.Failed, &run.Status, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan sweep run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		run.CompletedAt = parseNullTime(completedAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func planIDOrNull(id *loan.PlanID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}

func decimalOrNull(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func timeOrNull(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}
