package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpc_adapter "github.com/JoeShih716/go-mem-custody/internal/app/core/adapter/in/grpc"
	file_adapter "github.com/JoeShih716/go-mem-custody/internal/app/core/adapter/out/file"
	ledger_adapter "github.com/JoeShih716/go-mem-custody/internal/app/core/adapter/out/ledger"
	memory_adapter "github.com/JoeShih716/go-mem-custody/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-mem-custody/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/snapshot"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/usecase"
	"github.com/JoeShih716/go-mem-custody/internal/app/metrics"
	"github.com/JoeShih716/go-mem-custody/internal/config"
	pkggrpc "github.com/JoeShih716/go-mem-custody/pkg/grpc"
	"github.com/JoeShih716/go-mem-custody/pkg/logger"
	"github.com/JoeShih716/go-mem-custody/pkg/mysql"
)

// engine 狀態引擎加上關機時取出最終狀態的方法
type engine interface {
	usecase.StateStore
	// stop 停止引擎並回傳最終狀態
	stop(ctx context.Context) (*domain.State, error)
}

type mutexEngine struct {
	*memory_adapter.MutexStore
}

func (e mutexEngine) stop(ctx context.Context) (*domain.State, error) {
	return e.Snapshot(ctx)
}

type loopEngine struct {
	*memory_adapter.LoopStore
	cancel context.CancelFunc
}

func (e loopEngine) stop(ctx context.Context) (*domain.State, error) {
	// 先讓核心迴圈處理完輸送帶上的請求
	e.cancel()
	select {
	case <-e.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return e.SnapshotStopped()
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log, err := logger.New(cfg.Log, os.Stdout)
	if err != nil {
		logrus.Fatalf("Failed to init logger: %v", err)
	}

	// 2. 初始化快照儲存
	storage, closeStorage, err := openStorage(cfg, log)
	if err != nil {
		log.Fatalf("Failed to open snapshot storage: %v", err)
	}
	defer closeStorage()
	snapshots := snapshot.NewManager(storage, log)

	// 3. 還原狀態 (目前格式 -> 舊格式 -> 空狀態)
	ctx := context.Background()
	restored, source, err := snapshots.Restore(ctx)
	if err != nil {
		log.WithError(err).Error("Snapshot storage unreadable, starting empty")
	}
	log.WithField("source", source.String()).Info("State restored")

	// 4. 初始化狀態引擎
	store := newEngine(cfg.Engine)
	if err := store.Replace(ctx, restored); err != nil {
		log.Fatalf("Failed to load state into engine: %v", err)
	}

	// 5. 初始化外部帳本
	pool := pkggrpc.NewPool()
	defer pool.Close()
	ledger, err := newLedger(cfg, pool, log)
	if err != nil {
		log.Fatalf("Failed to init ledger gateway: %v", err)
	}

	// 6. 初始化 UseCase
	core := usecase.NewCoreUseCase(store, ledger, usecase.NewGate(cfg.Service.Privileged), usecase.Options{
		Self:        domain.Identity(cfg.Service.Identity),
		TransferFee: cfg.Service.TransferFee,
		Logger:      log,
	})

	// 7. 啟動 gRPC Server (Driving Adapter)
	lis, err := net.Listen("tcp", cfg.GRPC.Listen)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	opts := grpc_adapter.Interceptors(grpc_adapter.InterceptorConfig{
		Logger:    log,
		Auth:      authConfig(cfg.GRPC.Auth),
		RateLimit: cfg.GRPC.RateLimit,
		RateBurst: cfg.GRPC.RateBurst,
	})
	creds, err := grpc_adapter.ServerCreds(grpc_adapter.TLSConfig{
		CertFile:     cfg.GRPC.TLS.CertFile,
		KeyFile:      cfg.GRPC.TLS.KeyFile,
		ClientCAFile: cfg.GRPC.TLS.ClientCAFile,
	})
	if err != nil {
		log.Fatalf("Failed to load gRPC TLS credentials: %v", err)
	}
	if creds != nil {
		opts = append(opts, creds)
	} else {
		log.Warn("gRPC TLS disabled, API tokens travel in plaintext")
	}
	if len(cfg.GRPC.Auth.Tokens) == 0 && len(cfg.GRPC.Auth.ClientCNs) == 0 {
		log.Warn("No gRPC credentials configured, every caller is anonymous")
	}
	s := grpc.NewServer(opts...)
	grpc_adapter.RegisterCustodyServer(s, grpc_adapter.NewGrpcServer(core))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus(grpc_adapter.ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		log.Infof("Starting gRPC server on %s", cfg.GRPC.Listen)
		if err := s.Serve(lis); err != nil {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	// 8. Metrics
	var metricsServer *http.Server
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Infof("Starting metrics server on %s", cfg.Metrics.Listen)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Graceful Shutdown: 停止接收請求 -> 停止引擎 -> 寫入快照
	healthServer.Shutdown()
	s.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var merr *multierror.Error
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	final, err := store.stop(shutdownCtx)
	if err != nil {
		merr = multierror.Append(merr, err)
	} else if err := snapshots.Save(shutdownCtx, final); err != nil {
		merr = multierror.Append(merr, err)
	}
	if err := merr.ErrorOrNil(); err != nil {
		log.WithError(err).Error("Shutdown finished with errors")
		return
	}
	log.Info("Server exited")
}

func authConfig(cfg config.AuthConfig) grpc_adapter.AuthConfig {
	out := grpc_adapter.AuthConfig{
		Tokens:      make(map[string]domain.Identity, len(cfg.Tokens)),
		CommonNames: make(map[string]domain.Identity, len(cfg.ClientCNs)),
	}
	for token, id := range cfg.TokenMap() {
		out.Tokens[token] = domain.Identity(id)
	}
	for cn, id := range cfg.CommonNameMap() {
		out.CommonNames[cn] = domain.Identity(id)
	}
	return out
}

func newEngine(cfg config.EngineConfig) engine {
	switch cfg.Type {
	case config.EngineLoop:
		ctx, cancel := context.WithCancel(context.Background())
		store := memory_adapter.NewLoopStore(cfg.Buffer)
		store.Start(ctx)
		return loopEngine{LoopStore: store, cancel: cancel}
	default:
		return mutexEngine{MutexStore: memory_adapter.NewMutexStore()}
	}
}

func newLedger(cfg *config.Config, pool *pkggrpc.Pool, log *logrus.Logger) (usecase.LedgerGateway, error) {
	self := domain.Identity(cfg.Service.Identity)
	if cfg.Ledger.Mode == config.LedgerEmbedded {
		log.Warn("Using embedded ledger simulator, deposits are not backed by a real ledger")
		return ledger_adapter.NewSimulator(cfg.Service.TransferFee).Gateway(self), nil
	}
	return ledger_adapter.NewGrpcLedger(pool, cfg.Ledger.Target, self, cfg.Ledger.Timeout)
}

func openStorage(cfg *config.Config, log *logrus.Logger) (snapshot.Storage, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageMySQL:
		dbClient, err := mysql.NewClient(cfg.MySQL, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Connected to MySQL successfully")
		storage := mysql_adapter.NewSnapshotStorage(dbClient.DB(), cfg.Storage.Keep)
		if err := storage.Migrate(context.Background()); err != nil {
			dbClient.Close()
			return nil, nil, err
		}
		return storage, func() { _ = dbClient.Close() }, nil
	default:
		storage, err := file_adapter.Open(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return storage, func() { _ = storage.Close() }, nil
	}
}
