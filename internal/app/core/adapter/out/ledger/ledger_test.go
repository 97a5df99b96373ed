package ledger_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/adapter/out/ledger"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/usecase"
	pkggrpc "github.com/JoeShih716/go-mem-custody/pkg/grpc"
	"github.com/JoeShih716/go-mem-custody/pkg/logger"
)

const (
	custody domain.Identity = "custody-service"
	alice   domain.Identity = "alice"
)

// startSimulator 以 bufconn 啟動帳本模擬器，回傳指向它的 GrpcLedger
func startSimulator(t *testing.T) (*ledger.Simulator, *ledger.GrpcLedger) {
	t.Helper()
	sim := ledger.NewSimulator(0)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	ledger.RegisterLedgerServer(srv, sim)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	pool := pkggrpc.NewPool(pkggrpc.WithDialOptions(
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	))
	t.Cleanup(func() { _ = pool.Close() })

	gw, err := ledger.NewGrpcLedger(pool, "passthrough:///bufnet", custody, 5*time.Second)
	require.NoError(t, err)
	return sim, gw
}

func TestQueryBlocksOverGrpc(t *testing.T) {
	sim, gw := startSimulator(t)
	ctx := context.Background()

	idx := sim.Mint(domain.DefaultAccount(alice), 1_000_000)

	resp, err := gw.QueryBlocks(ctx, domain.QueryBlocksRequest{Start: idx, Length: 1})
	require.NoError(t, err)
	require.Len(t, resp.Blocks, 1)
	op := resp.Blocks[0].Transaction.Operation
	require.NotNil(t, op)
	assert.Equal(t, domain.OperationMint, op.Kind)
	assert.Equal(t, domain.DefaultAccount(alice), op.To)
	assert.Equal(t, uint64(1_000_000), op.Amount)

	resp, err = gw.QueryBlocks(ctx, domain.QueryBlocksRequest{Start: 99, Length: 1})
	require.NoError(t, err)
	assert.Empty(t, resp.Blocks)
	assert.Equal(t, uint64(1), resp.ChainLength)
}

func TestTransferUsesCallerMetadata(t *testing.T) {
	sim, gw := startSimulator(t)
	ctx := context.Background()
	sim.Mint(domain.DefaultAccount(custody), 100_000)

	resp, err := gw.Transfer(ctx, domain.LedgerTransferRequest{
		Amount: 50_000,
		Fee:    ledger.DefaultFee,
		To:     domain.DefaultAccount(alice),
	})
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.BlockIndex)

	assert.Equal(t, uint64(40_000), sim.BalanceOf(domain.DefaultAccount(custody)))
	assert.Equal(t, uint64(50_000), sim.BalanceOf(domain.DefaultAccount(alice)))
}

func TestTransferRejections(t *testing.T) {
	sim, gw := startSimulator(t)
	ctx := context.Background()
	sim.Mint(domain.DefaultAccount(custody), 15_000)

	resp, err := gw.Transfer(ctx, domain.LedgerTransferRequest{Amount: 1, Fee: 1, To: domain.DefaultAccount(alice)})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, domain.LedgerErrBadFee, resp.Error.Kind)

	resp, err = gw.Transfer(ctx, domain.LedgerTransferRequest{Amount: 10_000, Fee: ledger.DefaultFee, To: domain.DefaultAccount(alice)})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, domain.LedgerErrInsufficientFunds, resp.Error.Kind)
	assert.Equal(t, uint64(15_000), sim.BalanceOf(domain.DefaultAccount(custody)))
}

func TestTransferCallFailsWhenLedgerDown(t *testing.T) {
	pool := pkggrpc.NewPool(pkggrpc.WithDialOptions(
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return nil, net.ErrClosed
		}),
	))
	defer pool.Close()
	gw, err := ledger.NewGrpcLedger(pool, "passthrough:///down", custody, 200*time.Millisecond)
	require.NoError(t, err)

	_, err = gw.Transfer(context.Background(), domain.LedgerTransferRequest{Fee: ledger.DefaultFee})
	assert.Error(t, err)
}

// 存款 -> 提款 的完整流程，帳本經由 gRPC
func TestDepositWithdrawRoundTripOverGrpc(t *testing.T) {
	sim, gw := startSimulator(t)
	ctx := context.Background()

	store := memory.NewMutexStore()
	core := usecase.NewCoreUseCase(store, gw, usecase.NewGate(nil), usecase.Options{
		Self:   custody,
		Logger: logger.Discard(),
	})

	sim.Mint(domain.DefaultAccount(alice), 1_000_000)
	paid := sim.TransferFrom(alice, domain.LedgerTransferRequest{
		Amount: 600_000,
		Fee:    ledger.DefaultFee,
		To:     domain.DefaultAccount(custody),
	})
	require.Nil(t, paid.Error)
	block := *paid.BlockIndex

	assert.True(t, core.RecordDeposit(ctx, alice, alice, 600_000, block))
	assert.False(t, core.RecordDeposit(ctx, alice, alice, 600_000, block))

	balance, err := core.GetBalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(600_000), balance)

	_, err = core.Withdraw(ctx, alice, 500_000)
	require.NoError(t, err)

	balance, err = core.GetBalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), balance)
	assert.Equal(t, uint64(1_000_000-600_000-ledger.DefaultFee+500_000), sim.BalanceOf(domain.DefaultAccount(alice)))
	assert.Equal(t, uint64(600_000-500_000-ledger.DefaultFee), sim.BalanceOf(domain.DefaultAccount(custody)))
}

func TestEmbeddedGateway(t *testing.T) {
	sim := ledger.NewSimulator(0)
	gw := sim.Gateway(custody)
	sim.Mint(domain.DefaultAccount(custody), 20_000)

	resp, err := gw.Transfer(context.Background(), domain.LedgerTransferRequest{
		Amount: 10_000,
		Fee:    ledger.DefaultFee,
		To:     domain.DefaultAccount(alice),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.BlockIndex)
	assert.Equal(t, uint64(2), sim.ChainLength())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gw.QueryBlocks(ctx, domain.QueryBlocksRequest{Start: 0, Length: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

