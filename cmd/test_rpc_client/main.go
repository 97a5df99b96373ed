package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	grpc_adapter "github.com/JoeShih716/go-mem-custody/internal/app/core/adapter/in/grpc"
	ledger_adapter "github.com/JoeShih716/go-mem-custody/internal/app/core/adapter/out/ledger"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	pkggrpc "github.com/JoeShih716/go-mem-custody/pkg/grpc"
)

// 壓測同一個區塊被同時 recordDeposit 的情況，預期只有 1 次成功
// 需要先啟動 ledger_sim (並 mint 給 -user) 與 custody
func main() {
	custodyAddr := flag.String("custody", "localhost:50051", "custody gRPC address")
	ledgerAddr := flag.String("ledger", "localhost:50052", "ledger gRPC address")
	service := flag.String("service", "custody-service", "custody service identity on the ledger")
	user := flag.String("user", "alice", "depositing identity (must hold funds on the ledger)")
	token := flag.String("token", os.Getenv("CUSTODY_TOKEN"), "custody API token (empty calls anonymously)")
	amount := flag.Uint64("amount", 100_000_000, "deposit amount")
	concurrency := flag.Int("concurrency", 1000, "concurrent recordDeposit calls")
	flag.Parse()

	pool := pkggrpc.NewPool()
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	// 1. 以使用者身分在帳本上轉帳給託管服務
	userLedger, err := ledger_adapter.NewGrpcLedger(pool, *ledgerAddr, domain.Identity(*user), 10*time.Second)
	if err != nil {
		log.Fatalf("did not connect ledger: %v", err)
	}
	resp, err := userLedger.Transfer(ctx, domain.LedgerTransferRequest{
		Amount: *amount,
		Fee:    ledger_adapter.DefaultFee,
		To:     domain.DefaultAccount(domain.Identity(*service)),
	})
	if err != nil {
		log.Fatalf("ledger transfer failed: %v", err)
	}
	if resp.Error != nil {
		log.Fatalf("ledger rejected transfer: %v", resp.Error)
	}
	block := *resp.BlockIndex
	fmt.Printf("Paid %d to %s in block %d\n", *amount, *service, block)

	// 2. 同時送出大量 recordDeposit
	conn, err := pool.GetConnection(*custodyAddr)
	if err != nil {
		log.Fatalf("did not connect custody: %v", err)
	}
	client := grpc_adapter.NewCustodyClient(conn, *token)

	var (
		wg        sync.WaitGroup
		successes atomic.Int64
		failures  atomic.Int64
	)
	wg.Add(*concurrency)
	startTime := time.Now()
	for i := 0; i < *concurrency; i++ {
		go func(idx int) {
			defer wg.Done()
			callCtx := metadata.AppendToOutgoingContext(ctx, pkggrpc.RequestIDMetadataKey, uuid.NewString())
			ok, err := client.RecordDeposit(callCtx, domain.Identity(*user), *amount, block)
			if err != nil {
				failures.Add(1)
				if idx%100 == 0 {
					log.Printf("recordDeposit %d failed: %v", idx, err)
				}
				return
			}
			if ok {
				successes.Add(1)
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(startTime)

	balance, err := client.GetMyBalance(ctx)
	if err != nil {
		log.Fatalf("getMyBalance failed: %v", err)
	}

	fmt.Printf("Completed %d requests in %v\n", *concurrency, elapsed)
	fmt.Printf("Succeeded: %d (expected 1), transport errors: %d\n", successes.Load(), failures.Load())
	fmt.Printf("Balance of %s: %d\n", *user, balance)
}
