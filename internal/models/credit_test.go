package club

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func account(limit, used int64, active bool) CreditAccount {
	l := decimal.NewFromInt(limit)
	u := decimal.NewFromInt(used)
	return CreditAccount{
		User:    "user1",
		Limit:   l,
		Balance: l.Sub(u),
		Used:    u,
		Active:  active,
	}
}

func requireInvariant(t *testing.T, acc CreditAccount) {
	t.Helper()
	require.True(t, acc.Balance.Add(acc.Used).Equal(acc.Limit), "balance=%s used=%s limit=%s", acc.Balance, acc.Used, acc.Limit)
	require.True(t, acc.Balance.Sign() >= 0)
	require.True(t, acc.Used.Sign() >= 0)
}

func TestCharge(t *testing.T) {
	acc := account(1000, 0, true)

	err := acc.Charge(decimal.NewFromInt(300))
	require.NoError(t, err)
	require.True(t, acc.Balance.Equal(decimal.NewFromInt(700)))
	require.True(t, acc.Used.Equal(decimal.NewFromInt(300)))
	requireInvariant(t, acc)

	err = acc.Charge(decimal.NewFromInt(700))
	require.NoError(t, err)
	require.True(t, acc.Balance.IsZero())
	requireInvariant(t, acc)
}

func TestChargeErrors(t *testing.T) {
	tests := []struct {
		name     string
		acc      CreditAccount
		amount   int64
		expected error
	}{
		{"insufficient", account(1000, 800, true), 300, ErrInsufficientCredit},
		{"inactive", account(1000, 0, false), 100, ErrAccountInactive},
		{"zero amount", account(1000, 0, true), 0, ErrInvalidAmount},
		{"negative amount", account(1000, 0, true), -50, ErrInvalidAmount},
	}

	for _, ts := range tests {
		before := ts.acc
		err := ts.acc.Charge(decimal.NewFromInt(ts.amount))
		require.ErrorIs(t, err, ts.expected, ts.name)
		// счет не изменился
		require.True(t, ts.acc.Balance.Equal(before.Balance), ts.name)
		require.True(t, ts.acc.Used.Equal(before.Used), ts.name)
	}
}

func TestResetCycle(t *testing.T) {
	now := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)

	acc := account(1000, 600, true)
	acc.LastReset = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, acc.ResetCycle(now))
	require.True(t, acc.Balance.Equal(acc.Limit))
	require.True(t, acc.Used.IsZero())
	require.Equal(t, now, acc.LastReset)
	requireInvariant(t, acc)

	// повторный сброс в том же месяце - no-op
	acc.Used = decimal.NewFromInt(100)
	acc.Balance = acc.Limit.Sub(acc.Used)
	require.False(t, acc.ResetCycle(now.Add(24*time.Hour)))
	require.True(t, acc.Used.Equal(decimal.NewFromInt(100)))
}

func TestResetCycleFirstTime(t *testing.T) {
	acc := account(500, 200, true)
	require.True(t, acc.LastReset.IsZero())
	require.True(t, acc.ResetCycle(time.Now()))
	require.True(t, acc.Balance.Equal(decimal.NewFromInt(500)))
}

func TestAdjust(t *testing.T) {
	tests := []struct {
		name         string
		used         int64
		delta        int64
		expectedUsed int64
		expectedErr  error
	}{
		{"decrease", 500, -200, 300, nil},
		{"increase", 500, 200, 700, nil},
		{"clamp to zero", 100, -500, 0, nil},
		{"over limit", 800, 300, 800, ErrInvalidAdjustment},
	}

	for _, ts := range tests {
		acc := account(1000, ts.used, true)
		err := acc.Adjust(decimal.NewFromInt(ts.delta))
		if ts.expectedErr != nil {
			require.ErrorIs(t, err, ts.expectedErr, ts.name)
			require.True(t, acc.Used.Equal(decimal.NewFromInt(ts.used)), ts.name)
			continue
		}
		require.NoError(t, err, ts.name)
		require.True(t, acc.Used.Equal(decimal.NewFromInt(ts.expectedUsed)), ts.name)
		requireInvariant(t, acc)
	}
}

func TestSetLimit(t *testing.T) {
	acc := account(1000, 400, true)

	err := acc.SetLimit(decimal.NewFromInt(2000))
	require.NoError(t, err)
	require.True(t, acc.Balance.Equal(decimal.NewFromInt(1600)))
	requireInvariant(t, acc)

	// лимит меньше задолженности
	err = acc.SetLimit(decimal.NewFromInt(300))
	require.ErrorIs(t, err, ErrInvalidAmount)

	err = acc.SetLimit(decimal.NewFromInt(-1))
	require.ErrorIs(t, err, ErrInvalidAmount)
}
