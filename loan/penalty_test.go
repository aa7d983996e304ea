/*
penalty_test.go - Late-fee accrual sweep tests

The key property under test is marginal accrual: however often the sweep
runs, each overdue day is charged exactly once.
*/
package loan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/lending-engine/loan"
)

func TestPenaltySweep_ChargesProRatedFee(t *testing.T) {
	// GIVEN: A loan 10 days past its due date, default 2%/month rate
	// WHEN: The penalty sweep runs
	// THEN: fee = 172.55 * 2 * (10/30) / 100 = 1.15

	e, _, clock, _ := newTestEngine(t)
	account := setupActiveLoan(t, e)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 10)
	deltas, _, err := e.RunPenaltySweep(context.Background())
	require.NoError(t, err)
	require.Len(t, deltas, 1)

	assert.Equal(t, 10, deltas[0].DaysOverdue)
	assert.Equal(t, 10, deltas[0].MarginalDays)
	assert.Equal(t, "1.15", deltas[0].LateFee.StringFixed(2))
	assert.Equal(t, "1.15", deltas[0].LateFeesAccrued.StringFixed(2))

	stored, err := e.Store.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.15", stored.LateFeesAccrued.StringFixed(2))
	assert.Equal(t, 10, stored.DaysOverdue)
	assert.Equal(t, loan.StateOverdue, stored.State)
}

func TestPenaltySweep_SecondRunSameDayChargesNothing(t *testing.T) {
	// GIVEN: The sweep already charged 10 overdue days
	// WHEN: It runs again at the same instant
	// THEN: Zero marginal days, no additional fee

	e, _, clock, _ := newTestEngine(t)
	account := setupActiveLoan(t, e)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 10)
	_, _, err := e.RunPenaltySweep(context.Background())
	require.NoError(t, err)

	deltas, _, err := e.RunPenaltySweep(context.Background())
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, 0, deltas[0].MarginalDays)
	assert.Equal(t, "0.00", deltas[0].LateFee.StringFixed(2))
	assert.Equal(t, "1.15", deltas[0].LateFeesAccrued.StringFixed(2), "total unchanged")
}

func TestPenaltySweep_LaterRunChargesOnlyNewDays(t *testing.T) {
	// GIVEN: 10 days charged at the first run
	// WHEN: The sweep runs again 5 days later
	// THEN: Only the 5 new days are charged: 172.55 * 2 * (5/30) / 100 = 0.58

	e, _, clock, _ := newTestEngine(t)
	account := setupActiveLoan(t, e)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 10)
	_, _, err := e.RunPenaltySweep(context.Background())
	require.NoError(t, err)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 15)
	deltas, _, err := e.RunPenaltySweep(context.Background())
	require.NoError(t, err)
	require.Len(t, deltas, 1)

	assert.Equal(t, 15, deltas[0].DaysOverdue, "overwritten, not accumulated")
	assert.Equal(t, 5, deltas[0].MarginalDays)
	assert.Equal(t, "0.58", deltas[0].LateFee.StringFixed(2))
	assert.Equal(t, "1.73", deltas[0].LateFeesAccrued.StringFixed(2))
}

func TestPenaltySweep_PaymentResetsWatermark(t *testing.T) {
	// GIVEN: Fees accrued, then a payment advances the due date
	// WHEN: The new due date lapses and the sweep runs
	// THEN: Accrual starts over from the new due date

	e, _, clock, _ := newTestEngine(t)
	account := setupActiveLoan(t, e)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 10)
	_, _, err := e.RunPenaltySweep(context.Background())
	require.NoError(t, err)

	paid, _, err := e.RecordPayment(context.Background(), account.ID, loan.PaymentInput{
		Amount: loan.MustDecimal("172.55"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, paid.DaysOverdue)
	assert.Nil(t, paid.LateAccruedThrough)

	clock.at = paid.NextPaymentDue.AddDate(0, 0, 3)
	deltas, _, err := e.RunPenaltySweep(context.Background())
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, 3, deltas[0].MarginalDays)
}

func TestPenaltySweep_SkipsIneligibleAccounts(t *testing.T) {
	e, _, clock, _ := newTestEngine(t)
	ctx := context.Background()

	// Unconfigured account: never swept
	_, err := e.CreateAccount(ctx, loan.NewAccount{Name: "Unconfigured"})
	require.NoError(t, err)

	// Paid off before its due date: terminal, never swept
	settled := setupActiveLoan(t, e)
	_, _, err = e.RecordPayment(ctx, settled.ID, loan.PaymentInput{Amount: loan.MustDecimal("1100")})
	require.NoError(t, err)

	active := setupActiveLoan(t, e)

	clock.at = testStart.Add(1) // before any due date
	deltas, _, err := e.RunPenaltySweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, deltas)

	// Past the due date only the active account accrues
	clock.at = active.NextPaymentDue.AddDate(0, 0, 2)
	deltas, _, err = e.RunPenaltySweep(ctx)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, active.ID, deltas[0].AccountID)
}

func TestPenaltySweep_LockedAccountKeepsAccruing(t *testing.T) {
	// GIVEN: The lock policy tripped at 10 days overdue
	// WHEN: The penalty sweep runs at 40 days
	// THEN: Fees accrue through the lock: 172.55 * 2 * (40/30) / 100 = 4.60

	e, _, clock, _ := newTestEngine(t)
	account := setupActiveLoan(t, e)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 10)
	decisions, _, err := e.RunAutoLockSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	require.True(t, decisions[0].Locked)

	clock.at = account.NextPaymentDue.AddDate(0, 0, 40)
	deltas, _, err := e.RunPenaltySweep(context.Background())
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, 40, deltas[0].DaysOverdue)
	assert.Equal(t, "4.60", deltas[0].LateFee.StringFixed(2))

	stored, err := e.Store.GetAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.StateLocked, stored.State, "accrual does not unlock")
	assert.Equal(t, "4.60", stored.LateFeesAccrued.StringFixed(2))
	assert.Equal(t, 40, stored.DaysOverdue)
}
