// Package store provides loan.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/lending-engine/loan"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	accounts  map[loan.AccountID]loan.LoanAccount
	payments  map[loan.AccountID][]loan.Payment
	reminders map[loan.AccountID][]loan.Reminder
	plans     map[loan.PlanID]loan.LoanPlan
}

func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[loan.AccountID]loan.LoanAccount),
		payments:  make(map[loan.AccountID][]loan.Payment),
		reminders: make(map[loan.AccountID][]loan.Reminder),
		plans:     make(map[loan.PlanID]loan.LoanPlan),
	}
}

// =============================================================================
// ACCOUNTS - versioned conditional updates
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, account loan.LoanAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account.Version = 1
	m.accounts[account.ID] = account.Clone()
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id loan.AccountID) (loan.LoanAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return loan.LoanAccount{}, loan.ErrAccountNotFound
	}
	return account.Clone(), nil
}

// UpdateAccount applies the optimistic version check under the write lock,
// which is exactly what a conditional UPDATE gives the sqlite store.
func (m *Memory) UpdateAccount(_ context.Context, account loan.LoanAccount, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.accounts[account.ID]
	if !ok {
		return loan.ErrAccountNotFound
	}
	if current.Version != expectedVersion {
		return loan.ErrVersionConflict
	}

	account.Version = expectedVersion + 1
	m.accounts[account.ID] = account.Clone()
	return nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]loan.LoanAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]loan.LoanAccount, 0, len(m.accounts))
	for _, a := range m.accounts {
		result = append(result, a.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// PAYMENTS - append-only
// =============================================================================

func (m *Memory) AppendPayment(_ context.Context, p loan.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.payments[p.AccountID] = append(m.payments[p.AccountID], p)
	return nil
}

func (m *Memory) PaymentsForAccount(_ context.Context, id loan.AccountID) ([]loan.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]loan.Payment, len(m.payments[id]))
	copy(result, m.payments[id])
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

// =============================================================================
// REMINDERS
// =============================================================================

func (m *Memory) CreateReminder(_ context.Context, r loan.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reminders[r.AccountID] = append(m.reminders[r.AccountID], r)
	return nil
}

func (m *Memory) HasRecentReminder(_ context.Context, id loan.AccountID, t loan.ReminderType, since time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.reminders[id] {
		if r.Type == t && !r.ScheduledDate.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) RemindersForAccount(_ context.Context, id loan.AccountID) ([]loan.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]loan.Reminder, len(m.reminders[id]))
	copy(result, m.reminders[id])
	sort.Slice(result, func(i, j int) bool { return result[i].ScheduledDate.After(result[j].ScheduledDate) })
	return result, nil
}

func (m *Memory) MarkReminderSent(_ context.Context, id loan.ReminderID, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for accountID, list := range m.reminders {
		for i, r := range list {
			if r.ID == id {
				r.Sent = true
				r.SentAt = &sentAt
				m.reminders[accountID][i] = r
				return nil
			}
		}
	}
	return nil
}

// =============================================================================
// PLANS
// =============================================================================

func (m *Memory) CreatePlan(_ context.Context, p loan.LoanPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plans[p.ID] = p
	return nil
}

func (m *Memory) GetPlan(_ context.Context, id loan.PlanID) (loan.LoanPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plan, ok := m.plans[id]
	if !ok {
		return loan.LoanPlan{}, loan.ErrPlanNotFound
	}
	return plan, nil
}

func (m *Memory) ListPlans(_ context.Context) ([]loan.LoanPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]loan.LoanPlan, 0, len(m.plans))
	for _, p := range m.plans {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) UpdatePlan(_ context.Context, p loan.LoanPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[p.ID]; !ok {
		return loan.ErrPlanNotFound
	}
	m.plans[p.ID] = p
	return nil
}

func (m *Memory) DeletePlan(_ context.Context, id loan.PlanID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[id]; !ok {
		return loan.ErrPlanNotFound
	}
	for _, a := range m.accounts {
		if a.PlanID != nil && *a.PlanID == id {
			return loan.ErrPlanInUse
		}
	}
	delete(m.plans, id)
	return nil
}
