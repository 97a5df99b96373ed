package grpc

import (
	"context"

	"google.golang.org/grpc"

	pkggrpc "github.com/JoeShih716/go-mem-custody/pkg/grpc"
)

// ServiceName 託管服務的 gRPC 服務名稱
const ServiceName = "custody.v1.Custody"

// CustodyServer 託管服務的所有入口
type CustodyServer interface {
	RecordDeposit(context.Context, *RecordDepositRequest) (*BoolResponse, error)
	Withdraw(context.Context, *WithdrawRequest) (*TransferResult, error)
	Transfer(context.Context, *TransferRequest) (*TransferResult, error)

	GetBalanceOf(context.Context, *BalanceOfRequest) (*AmountResponse, error)
	GetMyBalance(context.Context, *Empty) (*AmountResponse, error)
	GetLogs(context.Context, *Empty) (*LogsResponse, error)
	GetUserLogs(context.Context, *UserLogsRequest) (*LogsResponse, error)

	GetSilverPot(context.Context, *Empty) (*AmountResponse, error)
	GetGoldPot(context.Context, *Empty) (*AmountResponse, error)
	GetHighScorePot(context.Context, *Empty) (*AmountResponse, error)
	GetTotalPot(context.Context, *Empty) (*AmountResponse, error)

	AddToSilverPot(context.Context, *AmountRequest) (*BoolResponse, error)
	AddToGoldPot(context.Context, *AmountRequest) (*BoolResponse, error)
	AddToHighScorePot(context.Context, *AmountRequest) (*BoolResponse, error)
	ResetSilverPot(context.Context, *Empty) (*BoolResponse, error)
	ResetGoldPot(context.Context, *Empty) (*BoolResponse, error)
	ResetHighScorePot(context.Context, *Empty) (*BoolResponse, error)
}

// 方法名稱 (camelCase)
const (
	MethodRecordDeposit     = "recordDeposit"
	MethodWithdraw          = "withdraw"
	MethodTransfer          = "transfer"
	MethodGetBalanceOf      = "getBalanceOf"
	MethodGetMyBalance      = "getMyBalance"
	MethodGetLogs           = "getLogs"
	MethodGetUserLogs       = "getUserLogs"
	MethodGetSilverPot      = "getSilverPot"
	MethodGetGoldPot        = "getGoldPot"
	MethodGetHighScorePot   = "getHighScorePot"
	MethodGetTotalPot       = "getTotalPot"
	MethodAddToSilverPot    = "addToSilverPot"
	MethodAddToGoldPot      = "addToGoldPot"
	MethodAddToHighScorePot = "addToHighScorePot"
	MethodResetSilverPot    = "resetSilverPot"
	MethodResetGoldPot      = "resetGoldPot"
	MethodResetHighScorePot = "resetHighScorePot"
)

// ServiceDesc 託管服務描述
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CustodyServer)(nil),
	Methods: []grpc.MethodDesc{
		pkggrpc.UnaryMethod(ServiceName, MethodRecordDeposit, CustodyServer.RecordDeposit),
		pkggrpc.UnaryMethod(ServiceName, MethodWithdraw, CustodyServer.Withdraw),
		pkggrpc.UnaryMethod(ServiceName, MethodTransfer, CustodyServer.Transfer),
		pkggrpc.UnaryMethod(ServiceName, MethodGetBalanceOf, CustodyServer.GetBalanceOf),
		pkggrpc.UnaryMethod(ServiceName, MethodGetMyBalance, CustodyServer.GetMyBalance),
		pkggrpc.UnaryMethod(ServiceName, MethodGetLogs, CustodyServer.GetLogs),
		pkggrpc.UnaryMethod(ServiceName, MethodGetUserLogs, CustodyServer.GetUserLogs),
		pkggrpc.UnaryMethod(ServiceName, MethodGetSilverPot, CustodyServer.GetSilverPot),
		pkggrpc.UnaryMethod(ServiceName, MethodGetGoldPot, CustodyServer.GetGoldPot),
		pkggrpc.UnaryMethod(ServiceName, MethodGetHighScorePot, CustodyServer.GetHighScorePot),
		pkggrpc.UnaryMethod(ServiceName, MethodGetTotalPot, CustodyServer.GetTotalPot),
		pkggrpc.UnaryMethod(ServiceName, MethodAddToSilverPot, CustodyServer.AddToSilverPot),
		pkggrpc.UnaryMethod(ServiceName, MethodAddToGoldPot, CustodyServer.AddToGoldPot),
		pkggrpc.UnaryMethod(ServiceName, MethodAddToHighScorePot, CustodyServer.AddToHighScorePot),
		pkggrpc.UnaryMethod(ServiceName, MethodResetSilverPot, CustodyServer.ResetSilverPot),
		pkggrpc.UnaryMethod(ServiceName, MethodResetGoldPot, CustodyServer.ResetGoldPot),
		pkggrpc.UnaryMethod(ServiceName, MethodResetHighScorePot, CustodyServer.ResetHighScorePot),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterCustodyServer 註冊託管服務
func RegisterCustodyServer(s grpc.ServiceRegistrar, srv CustodyServer) {
	s.RegisterService(&ServiceDesc, srv)
}
