package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/usecase"
)

func newStores(t *testing.T) map[string]usecase.StateStore {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoopStore(16)
	loop.Start(ctx)
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})
	return map[string]usecase.StateStore{
		"mutex": NewMutexStore(),
		"loop":  loop,
	}
}

func TestStoreUpdateAndView(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Update(ctx, func(st *domain.State, _ *domain.Pending) error {
				return st.ApplyDeposit(1, "c", "alice", 10, 1)
			}))

			var balance uint64
			require.NoError(t, store.View(ctx, func(st *domain.State) {
				balance = st.BalanceOf("alice")
			}))
			assert.Equal(t, uint64(10), balance)
		})
	}
}

func TestStoreUpdateErrorIsReturned(t *testing.T) {
	boom := errors.New("boom")
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Update(context.Background(), func(*domain.State, *domain.Pending) error {
				return boom
			})
			require.ErrorIs(t, err, boom)
		})
	}
}

func TestStoreConcurrentUpdatesAreSerialized(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := 0; i < 200; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = store.Update(ctx, func(st *domain.State, _ *domain.Pending) error {
						st.Balances["counter"]++
						return nil
					})
				}()
			}
			wg.Wait()

			snap, err := store.Snapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(200), snap.BalanceOf("counter"))
		})
	}
}

func TestStoreSnapshotAndReplace(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed := domain.NewState()
			seed.Balances["bob"] = 7
			seed.GoldPot = 3
			require.NoError(t, store.Replace(ctx, seed))

			// Replace 持有複本，外部修改不影響
			seed.Balances["bob"] = 100

			require.NoError(t, store.Update(ctx, func(_ *domain.State, p *domain.Pending) error {
				return p.ReserveBlock(5)
			}))

			snap, err := store.Snapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(7), snap.BalanceOf("bob"))
			assert.Equal(t, uint64(3), snap.GoldPot)

			snap.Balances["bob"] = 0
			var balance uint64
			require.NoError(t, store.View(ctx, func(st *domain.State) { balance = st.BalanceOf("bob") }))
			assert.Equal(t, uint64(7), balance)

			// Replace 會清空 Pending
			require.NoError(t, store.Replace(ctx, snap))
			require.NoError(t, store.Update(ctx, func(_ *domain.State, p *domain.Pending) error {
				return p.ReserveBlock(5)
			}))
		})
	}
}

func TestLoopStoreStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoopStore(4)
	loop.Start(ctx)

	require.NoError(t, loop.Update(context.Background(), func(st *domain.State, _ *domain.Pending) error {
		st.SilverPot = 9
		return nil
	}))

	_, err := loop.SnapshotStopped()
	require.Error(t, err)

	cancel()
	<-loop.Done()

	err = loop.View(context.Background(), func(*domain.State) {})
	require.ErrorIs(t, err, ErrEngineStopped)

	snap, err := loop.SnapshotStopped()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), snap.SilverPot)
}
