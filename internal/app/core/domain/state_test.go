package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDeposit(t *testing.T) {
	st := NewState()

	require.NoError(t, st.ApplyDeposit(10, "caller", "alice", 100_000_000, 42))

	assert.Equal(t, uint64(100_000_000), st.BalanceOf("alice"))
	assert.True(t, st.IsCredited(42))
	assert.Equal(t, DepositSilverBonus, st.SilverPot)
	assert.Equal(t, DepositGoldBonus, st.GoldPot)
	assert.Equal(t, DepositHighScoreBonus, st.HighScorePot)
	require.Len(t, st.Logs, 4)
	assert.Equal(t, ActionRecordDeposit, st.Logs[0].Action)
	assert.Equal(t, Identity("caller"), st.Logs[0].Caller)
	require.NotNil(t, st.Logs[0].BlockIndex)
	assert.Equal(t, uint64(42), *st.Logs[0].BlockIndex)
	assert.Equal(t, ActionAutoAddSilver, st.Logs[1].Action)
	assert.Equal(t, ActionAutoAddGold, st.Logs[2].Action)
	assert.Equal(t, ActionAutoAddHighScore, st.Logs[3].Action)
	assert.Nil(t, st.Logs[3].BlockIndex)
}

func TestApplyDepositRejectsCreditedBlock(t *testing.T) {
	st := NewState()
	require.NoError(t, st.ApplyDeposit(1, "c", "alice", 5, 7))

	err := st.ApplyDeposit(2, "c", "alice", 9, 7)
	require.ErrorIs(t, err, ErrAlreadyCredited)
	assert.Equal(t, uint64(5), st.BalanceOf("alice"))
	assert.Len(t, st.Logs, 4)
}

func TestApplyDepositOverflowLeavesStateUntouched(t *testing.T) {
	st := NewState()
	st.Balances["alice"] = math.MaxUint64

	require.ErrorIs(t, st.ApplyDeposit(1, "c", "alice", 1, 3), ErrBalanceOverflow)
	assert.False(t, st.IsCredited(3))
	assert.Zero(t, st.SilverPot)
	assert.Empty(t, st.Logs)

	st.Balances["alice"] = 0
	st.GoldPot = math.MaxUint64
	require.ErrorIs(t, st.ApplyDeposit(1, "c", "alice", 1, 3), ErrPotOverflow)
	assert.Zero(t, st.BalanceOf("alice"))
	assert.False(t, st.IsCredited(3))
}

func TestApplyWithdraw(t *testing.T) {
	st := NewState()
	st.Balances["bob"] = 100

	require.ErrorIs(t, st.ApplyWithdraw(1, "bob", 101, 9), ErrInsufficientBalance)
	require.NoError(t, st.ApplyWithdraw(1, "bob", 40, 9))
	assert.Equal(t, uint64(60), st.BalanceOf("bob"))
	require.Len(t, st.Logs, 1)
	assert.Equal(t, ActionWithdraw, st.Logs[0].Action)
}

func TestPots(t *testing.T) {
	st := NewState()
	require.NoError(t, st.AddToPot(PotSilver, 10))
	require.NoError(t, st.AddToPot(PotGold, 20))
	require.NoError(t, st.AddToPot(PotHighScore, 30))
	assert.Equal(t, uint64(30), st.TotalPot())

	require.ErrorIs(t, st.AddToPot(Pot(9), 1), ErrUnknownPot)

	st.SilverPot = math.MaxUint64
	require.ErrorIs(t, st.AddToPot(PotSilver, 1), ErrPotOverflow)
	assert.Equal(t, uint64(math.MaxUint64), st.TotalPot())

	for _, p := range []Pot{PotSilver, PotGold, PotHighScore} {
		reseed, err := ReseedAmount(p)
		require.NoError(t, err)
		require.NoError(t, st.SetPot(p, reseed))
		got, err := st.PotAmount(p)
		require.NoError(t, err)
		assert.Equal(t, reseed, got)
	}
	assert.Equal(t, SilverReseed+GoldReseed, st.TotalPot())
}

func TestCloneIsIndependent(t *testing.T) {
	st := NewState()
	require.NoError(t, st.ApplyDeposit(1, "c", "alice", 5, 7))

	cp := st.Clone()
	cp.Balances["alice"] = 999
	cp.CreditedBlocks[8] = struct{}{}
	*cp.Logs[0].BlockIndex = 100
	cp.Logs = append(cp.Logs, LogEntry{Action: "x"})

	assert.Equal(t, uint64(5), st.BalanceOf("alice"))
	assert.False(t, st.IsCredited(8))
	assert.Equal(t, uint64(7), *st.Logs[0].BlockIndex)
	assert.Len(t, st.Logs, 4)
}

func TestLogsOf(t *testing.T) {
	st := NewState()
	st.AppendLog(NewLogEntry(1, "a", ActionAddGold, 1, nil))
	st.AppendLog(NewLogEntry(2, "b", ActionAddGold, 2, nil))
	st.AppendLog(NewLogEntry(3, "a", ActionAddSilver, 3, nil))

	logs := st.LogsOf("a")
	require.Len(t, logs, 2)
	assert.Equal(t, uint64(1), logs[0].Timestamp)
	assert.Equal(t, uint64(3), logs[1].Timestamp)
	assert.Empty(t, st.LogsOf("nobody"))
}

func TestPendingReservations(t *testing.T) {
	p := NewPending()
	require.NoError(t, p.ReserveBlock(1))
	require.ErrorIs(t, p.ReserveBlock(1), ErrAlreadyInFlight)
	p.ReleaseBlock(1)
	require.NoError(t, p.ReserveBlock(1))

	require.NoError(t, p.Hold("u", 100, 60))
	require.ErrorIs(t, p.Hold("u", 100, 41), ErrInsufficientBalance)
	require.NoError(t, p.Hold("u", 100, 40))
	p.ReleaseHold("u", 60)
	assert.Equal(t, uint64(40), p.Held["u"])
	p.ReleaseHold("u", 40)
	_, ok := p.Held["u"]
	assert.False(t, ok)
}
