/*
autolock_test.go - Auto-lock policy tests

The grace boundary is strict: days overdue must EXCEED the grace window
before the lock trips. Day 3 of a 3-day grace stays unlocked; day 4 locks.
*/
package loan_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/lending-engine/loan"
)

func TestAutoLockSweep_GraceBoundary(t *testing.T) {
	t.Run("within grace stays unlocked", func(t *testing.T) {
		e, _, clock, _ := newTestEngine(t)
		account := setupActiveLoan(t, e)

		// Exactly 3 days overdue with a 3-day grace
		clock.at = account.NextPaymentDue.AddDate(0, 0, 3)
		decisions, _, err := e.RunAutoLockSweep(context.Background())
		require.NoError(t, err)
		require.Len(t, decisions, 1)

		assert.False(t, decisions[0].Locked)
		assert.Equal(t, 3, decisions[0].DaysOverdue)

		stored, err := e.Store.GetAccount(context.Background(), account.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsLocked)
		assert.Equal(t, 3, stored.DaysOverdue, "counter refreshed even without a lock")
		assert.Equal(t, loan.StateOverdue, stored.State)
	})

	t.Run("past grace locks", func(t *testing.T) {
		e, _, clock, _ := newTestEngine(t)
		account := setupActiveLoan(t, e)

		clock.at = account.NextPaymentDue.AddDate(0, 0, 4)
		decisions, _, err := e.RunAutoLockSweep(context.Background())
		require.NoError(t, err)
		require.Len(t, decisions, 1)

		assert.True(t, decisions[0].Locked)
		assert.Equal(t, 4, decisions[0].DaysOverdue)

		stored, err := e.Store.GetAccount(context.Background(), account.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsLocked)
		assert.Equal(t, loan.StateLocked, stored.State)
		assert.True(t, strings.Contains(stored.LockMessage, "4 days overdue"), "message = %q", stored.LockMessage)
		assert.True(t, strings.Contains(stored.LockMessage, "172.55"), "message = %q", stored.LockMessage)
	})
}

func TestAutoLockSweep_AlreadyLockedOnlyRefreshesCounter(t *testing.T) {
	e, _, clock, _ := newTestEngine(t)
	account := setupActiveLoan(t, e)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 5)
	_, _, err := e.RunAutoLockSweep(context.Background())
	require.NoError(t, err)

	firstLock, err := e.Store.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 9)
	decisions, _, err := e.RunAutoLockSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.False(t, decisions[0].Locked, "no re-lock of a locked account")

	stored, err := e.Store.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, stored.DaysOverdue)
	assert.Equal(t, firstLock.LockMessage, stored.LockMessage, "message from the original lock kept")
}

func TestAutoLockSweep_DisabledAccountNeverLocks(t *testing.T) {
	e, _, clock, _ := newTestEngine(t)
	account := setupActiveLoan(t, e)

	enabled := false
	_, err := e.UpdateLockSettings(context.Background(), account.ID, loan.LockSettings{
		AutoLockEnabled: &enabled,
	})
	require.NoError(t, err)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 30)
	decisions, _, err := e.RunAutoLockSweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, decisions)

	stored, err := e.Store.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsLocked)
}

func TestAutoLockSweep_CustomGrace(t *testing.T) {
	e, _, clock, _ := newTestEngine(t)
	account := setupActiveLoan(t, e)

	grace := 7
	_, err := e.UpdateLockSettings(context.Background(), account.ID, loan.LockSettings{
		AutoLockGraceDays: &grace,
	})
	require.NoError(t, err)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 7)
	decisions, _, err := e.RunAutoLockSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.False(t, decisions[0].Locked)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 8)
	decisions, _, err = e.RunAutoLockSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].Locked)
}

func TestSetOperatorUnlock_OverrideLeavesPolicyFlag(t *testing.T) {
	// GIVEN: A policy-locked account
	// WHEN: An operator records an unlock override
	// THEN: The override flag flips; the policy lock and state stay

	e, _, clock, _ := newTestEngine(t)
	account := setupActiveLoan(t, e)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 10)
	_, _, err := e.RunAutoLockSweep(context.Background())
	require.NoError(t, err)

	unlocked, err := e.SetOperatorUnlock(context.Background(), account.ID, true)
	require.NoError(t, err)
	assert.True(t, unlocked.OperatorUnlocked)
	assert.True(t, unlocked.IsLocked, "policy flag untouched")
	assert.Equal(t, loan.StateLocked, unlocked.State)

	revoked, err := e.SetOperatorUnlock(context.Background(), account.ID, false)
	require.NoError(t, err)
	assert.False(t, revoked.OperatorUnlocked)
}
