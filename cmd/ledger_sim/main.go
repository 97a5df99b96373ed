package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"google.golang.org/grpc"

	ledger_adapter "github.com/JoeShih716/go-mem-custody/internal/app/core/adapter/out/ledger"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/pkg/logger"
)

// 本地開發用的帳本模擬器
// 例: go run ./cmd/ledger_sim -listen :50052 -mint alice=1000000000,bob=500000000
func main() {
	listen := flag.String("listen", ":50052", "gRPC listen address")
	fee := flag.Uint64("fee", ledger_adapter.DefaultFee, "required transfer fee")
	mint := flag.String("mint", "", "initial balances, identity=amount separated by commas")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: *level, Format: "text"}, os.Stdout)
	if err != nil {
		panic(err)
	}

	sim := ledger_adapter.NewSimulator(*fee)
	for _, pair := range strings.Split(*mint, ",") {
		if pair == "" {
			continue
		}
		owner, amountText, ok := strings.Cut(pair, "=")
		if !ok {
			log.Fatalf("invalid -mint entry %q", pair)
		}
		amount, err := strconv.ParseUint(amountText, 10, 64)
		if err != nil {
			log.Fatalf("invalid -mint amount %q: %v", amountText, err)
		}
		account := domain.DefaultAccount(domain.Identity(owner))
		index := sim.Mint(account, amount)
		log.WithField("owner", owner).WithField("account", account.String()).
			WithField("block_index", index).Infof("minted %d", amount)
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	s := grpc.NewServer()
	ledger_adapter.RegisterLedgerServer(s, sim)

	go func() {
		log.Infof("Starting ledger simulator on %s (fee %d)", *listen, *fee)
		if err := s.Serve(lis); err != nil {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.GracefulStop()
	log.Infof("Ledger simulator exited, chain length %d", sim.ChainLength())
}
