package ledger

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	pkggrpc "github.com/JoeShih716/go-mem-custody/pkg/grpc"
)

// GrpcLedger 透過 gRPC 呼叫外部帳本，實作 usecase.LedgerGateway
type GrpcLedger struct {
	conn    grpc.ClientConnInterface
	self    domain.Identity
	timeout time.Duration
}

// NewGrpcLedger 從連線池取得連線並建立 GrpcLedger
//
// 參數:
//
//	pool: *pkggrpc.Pool - gRPC 連線池
//	target: string - 帳本地址
//	self: domain.Identity - 本服務的身分，會放進每個呼叫的 metadata
//	timeout: time.Duration - 單次呼叫的逾時，0 表示只依賴呼叫端的 ctx
func NewGrpcLedger(pool *pkggrpc.Pool, target string, self domain.Identity, timeout time.Duration) (*GrpcLedger, error) {
	conn, err := pool.GetConnection(target)
	if err != nil {
		return nil, fmt.Errorf("connect ledger %s: %w", target, err)
	}
	return &GrpcLedger{conn: conn, self: self, timeout: timeout}, nil
}

// QueryBlocks 查詢區塊
func (l *GrpcLedger) QueryBlocks(ctx context.Context, req domain.QueryBlocksRequest) (*domain.QueryBlocksResponse, error) {
	ctx, cancel := l.callContext(ctx)
	defer cancel()

	resp := new(domain.QueryBlocksResponse)
	if err := l.conn.Invoke(ctx, MethodQueryBlocks, &req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Transfer 從本服務的帳戶轉出
// 呼叫失敗回傳 error，帳本拒絕則放在 resp.Error
func (l *GrpcLedger) Transfer(ctx context.Context, req domain.LedgerTransferRequest) (*domain.LedgerTransferResponse, error) {
	ctx, cancel := l.callContext(ctx)
	defer cancel()

	resp := new(domain.LedgerTransferResponse)
	if err := l.conn.Invoke(ctx, MethodTransfer, &req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (l *GrpcLedger) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = pkggrpc.WithCaller(ctx, string(l.self))
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}
