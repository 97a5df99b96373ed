package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-custody/internal/app/metrics"
	"github.com/JoeShih716/go-mem-custody/pkg/logger"
)

func TestGate(t *testing.T) {
	gate := usecase.NewGate([]string{" admin ", "", "ops"})
	assert.True(t, gate.IsAllowed("admin"))
	assert.True(t, gate.IsAllowed("ops"))
	assert.False(t, gate.IsAllowed(""))
	assert.False(t, gate.IsAllowed("mallory"))

	var nilGate *usecase.Gate
	assert.False(t, nilGate.IsAllowed("admin"))
}

func TestPrivilegedOperationsRejectOutsiders(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	core, store := newCore(t, ledger)

	for _, pot := range []domain.Pot{domain.PotSilver, domain.PotGold, domain.PotHighScore} {
		assert.False(t, core.AddToPot(ctx, "mallory", pot, 10))
		assert.False(t, core.ResetPot(ctx, "mallory", pot))
	}
	_, err := core.Transfer(ctx, "mallory", usecase.TransferArgs{To: "mallory", Amount: 1})
	require.ErrorIs(t, err, domain.ErrNotAllowed)
	assert.Empty(t, ledger.transferRequests())

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.SilverPot)
	assert.Zero(t, snap.GoldPot)
	assert.Zero(t, snap.HighScorePot)
	assert.Empty(t, snap.Logs)
}

func TestPotManagement(t *testing.T) {
	ctx := context.Background()
	core, _ := newCore(t, newFakeLedger())

	require.True(t, core.AddToPot(ctx, admin, domain.PotSilver, 10))
	require.True(t, core.AddToPot(ctx, admin, domain.PotGold, 20))
	require.True(t, core.AddToPot(ctx, admin, domain.PotHighScore, 30))
	assert.False(t, core.AddToPot(ctx, admin, domain.Pot(42), 1))

	total, err := core.GetTotalPot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), total)

	require.True(t, core.ResetPot(ctx, admin, domain.PotSilver))
	require.True(t, core.ResetPot(ctx, admin, domain.PotGold))
	require.True(t, core.ResetPot(ctx, admin, domain.PotHighScore))

	silver, _ := core.GetPot(ctx, domain.PotSilver)
	gold, _ := core.GetPot(ctx, domain.PotGold)
	high, _ := core.GetPot(ctx, domain.PotHighScore)
	assert.Equal(t, uint64(25_000_000), silver)
	assert.Equal(t, uint64(250_000_000), gold)
	assert.Zero(t, high)

	logs, err := core.GetLogs(ctx)
	require.NoError(t, err)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
		assert.Equal(t, admin, l.Caller)
		assert.Nil(t, l.BlockIndex)
	}
	assert.Equal(t, []string{
		domain.ActionAddSilver, domain.ActionAddGold, domain.ActionAddHighScorePot,
		domain.ActionResetSilver, domain.ActionResetGold, domain.ActionResetHighScorePot,
	}, actions)
	assert.Equal(t, uint64(25_000_000), logs[3].Amount)
	assert.Zero(t, logs[5].Amount)
}

func TestCustodianTransfer(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	core, store := newCore(t, ledger)
	fund(t, core, ledger, "alice", 100, 1)

	var sub domain.Subaccount
	sub[0] = 7
	idx, err := core.Transfer(ctx, admin, usecase.TransferArgs{To: "treasury", ToSubaccount: &sub, Amount: 5_000})
	require.NoError(t, err)

	reqs := ledger.transferRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, domain.NewAccountIdentifier("treasury", sub), reqs[0].To)
	assert.Equal(t, uint64(5_000), reqs[0].Amount)

	_, err = core.Transfer(ctx, admin, usecase.TransferArgs{To: "treasury", Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAccount("treasury"), ledger.transferRequests()[1].To)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	// 託管轉帳不動任何餘額
	assert.Equal(t, map[domain.Identity]uint64{"alice": 100}, snap.Balances)
	last := snap.Logs[4]
	assert.Equal(t, domain.ActionTransfer, last.Action)
	assert.Equal(t, admin, last.Caller)
	require.NotNil(t, last.BlockIndex)
	assert.Equal(t, idx, *last.BlockIndex)

	ledger.reject = &domain.LedgerTransferError{Kind: domain.LedgerErrBadFee}
	_, err = core.Transfer(ctx, admin, usecase.TransferArgs{To: "treasury", Amount: 1})
	require.ErrorIs(t, err, domain.ErrLedgerRejected)
}

// brokenStore 在 failUpdates 之後所有 Update 都失敗
type brokenStore struct {
	*memory.MutexStore
	failUpdates bool
}

func (b *brokenStore) Update(ctx context.Context, fn func(st *domain.State, pending *domain.Pending) error) error {
	if b.failUpdates {
		return errors.New("store unavailable")
	}
	return b.MutexStore.Update(ctx, fn)
}

func counterValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := metrics.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	return 0
}

func TestTransferLogFailureIsCounted(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	store := &brokenStore{MutexStore: memory.NewMutexStore(), failUpdates: true}
	core := usecase.NewCoreUseCase(store, ledger, usecase.NewGate([]string{string(admin)}), usecase.Options{
		Self:   serviceID,
		Logger: logger.Discard(),
	})

	before := counterValue(t, "custody_transfer_log_failures_total")
	idx, err := core.Transfer(ctx, admin, usecase.TransferArgs{To: "treasury", Amount: 1})
	// 帳本已轉出，呼叫端仍拿到區塊索引
	require.NoError(t, err)
	require.Len(t, ledger.transferRequests(), 1)
	assert.Equal(t, before+1, counterValue(t, "custody_transfer_log_failures_total"))

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Logs)

	store.failUpdates = false
	_, err = core.Transfer(ctx, admin, usecase.TransferArgs{To: "treasury", Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, before+1, counterValue(t, "custody_transfer_log_failures_total"))
	snap, err = store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Logs, 1)
	assert.NotEqual(t, idx, *snap.Logs[0].BlockIndex)
}
