package ledger

import (
	"context"

	"google.golang.org/grpc"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	pkggrpc "github.com/JoeShih716/go-mem-custody/pkg/grpc"
)

// ServiceName 帳本的 gRPC 服務名稱
const ServiceName = "ledger.v1.Ledger"

var (
	MethodQueryBlocks = pkggrpc.FullMethod(ServiceName, "QueryBlocks")
	MethodTransfer    = pkggrpc.FullMethod(ServiceName, "Transfer")
)

// LedgerServer 帳本服務端需要實作的方法
// Transfer 的付款人是 metadata 中的呼叫者
type LedgerServer interface {
	QueryBlocks(ctx context.Context, req *domain.QueryBlocksRequest) (*domain.QueryBlocksResponse, error)
	Transfer(ctx context.Context, req *domain.LedgerTransferRequest) (*domain.LedgerTransferResponse, error)
}

// ServiceDesc 帳本服務描述
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		pkggrpc.UnaryMethod(ServiceName, "QueryBlocks", LedgerServer.QueryBlocks),
		pkggrpc.UnaryMethod(ServiceName, "Transfer", LedgerServer.Transfer),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterLedgerServer 註冊帳本服務
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&ServiceDesc, srv)
}
