package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/usecase"
)

// GrpcServer 託管服務的 Driving Adapter
// 呼叫者身分來自 metadata (見 CallerFromContext)
type GrpcServer struct {
	core *usecase.CoreUseCase
}

var _ CustodyServer = (*GrpcServer)(nil)

func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

func (s *GrpcServer) RecordDeposit(ctx context.Context, req *RecordDepositRequest) (*BoolResponse, error) {
	ok := s.core.RecordDeposit(ctx, CallerFromContext(ctx), req.User, req.Amount, req.BlockIndex)
	return &BoolResponse{Ok: ok}, nil
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *WithdrawRequest) (*TransferResult, error) {
	blockIndex, err := s.core.Withdraw(ctx, CallerFromContext(ctx), req.Amount)
	return transferResult(blockIndex, err), nil
}

func (s *GrpcServer) Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	blockIndex, err := s.core.Transfer(ctx, CallerFromContext(ctx), usecase.TransferArgs{
		To:           req.To,
		ToSubaccount: req.ToSubaccount,
		Amount:       req.Amount,
	})
	return transferResult(blockIndex, err), nil
}

func (s *GrpcServer) GetBalanceOf(ctx context.Context, req *BalanceOfRequest) (*AmountResponse, error) {
	return amountResponse(s.core.GetBalanceOf(ctx, req.User))
}

func (s *GrpcServer) GetMyBalance(ctx context.Context, _ *Empty) (*AmountResponse, error) {
	return amountResponse(s.core.GetMyBalance(ctx, CallerFromContext(ctx)))
}

func (s *GrpcServer) GetLogs(ctx context.Context, _ *Empty) (*LogsResponse, error) {
	logs, err := s.core.GetLogs(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &LogsResponse{Logs: logs}, nil
}

func (s *GrpcServer) GetUserLogs(ctx context.Context, req *UserLogsRequest) (*LogsResponse, error) {
	logs, err := s.core.GetUserLogs(ctx, req.User)
	if err != nil {
		return nil, toStatus(err)
	}
	return &LogsResponse{Logs: logs}, nil
}

func (s *GrpcServer) GetSilverPot(ctx context.Context, _ *Empty) (*AmountResponse, error) {
	return amountResponse(s.core.GetPot(ctx, domain.PotSilver))
}

func (s *GrpcServer) GetGoldPot(ctx context.Context, _ *Empty) (*AmountResponse, error) {
	return amountResponse(s.core.GetPot(ctx, domain.PotGold))
}

func (s *GrpcServer) GetHighScorePot(ctx context.Context, _ *Empty) (*AmountResponse, error) {
	return amountResponse(s.core.GetPot(ctx, domain.PotHighScore))
}

func (s *GrpcServer) GetTotalPot(ctx context.Context, _ *Empty) (*AmountResponse, error) {
	return amountResponse(s.core.GetTotalPot(ctx))
}

func (s *GrpcServer) AddToSilverPot(ctx context.Context, req *AmountRequest) (*BoolResponse, error) {
	return &BoolResponse{Ok: s.core.AddToPot(ctx, CallerFromContext(ctx), domain.PotSilver, req.Amount)}, nil
}

func (s *GrpcServer) AddToGoldPot(ctx context.Context, req *AmountRequest) (*BoolResponse, error) {
	return &BoolResponse{Ok: s.core.AddToPot(ctx, CallerFromContext(ctx), domain.PotGold, req.Amount)}, nil
}

func (s *GrpcServer) AddToHighScorePot(ctx context.Context, req *AmountRequest) (*BoolResponse, error) {
	return &BoolResponse{Ok: s.core.AddToPot(ctx, CallerFromContext(ctx), domain.PotHighScore, req.Amount)}, nil
}

func (s *GrpcServer) ResetSilverPot(ctx context.Context, _ *Empty) (*BoolResponse, error) {
	return &BoolResponse{Ok: s.core.ResetPot(ctx, CallerFromContext(ctx), domain.PotSilver)}, nil
}

func (s *GrpcServer) ResetGoldPot(ctx context.Context, _ *Empty) (*BoolResponse, error) {
	return &BoolResponse{Ok: s.core.ResetPot(ctx, CallerFromContext(ctx), domain.PotGold)}, nil
}

func (s *GrpcServer) ResetHighScorePot(ctx context.Context, _ *Empty) (*BoolResponse, error) {
	return &BoolResponse{Ok: s.core.ResetPot(ctx, CallerFromContext(ctx), domain.PotHighScore)}, nil
}

// transferResult 業務錯誤放進回應 (Soft Failure)
func transferResult(blockIndex uint64, err error) *TransferResult {
	if err != nil {
		return &TransferResult{Err: err.Error()}
	}
	return &TransferResult{Ok: &blockIndex}
}

func amountResponse(amount uint64, err error) (*AmountResponse, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return &AmountResponse{Amount: amount}, nil
}

// toStatus 查詢失敗只會是狀態引擎或 ctx 的問題
func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, domain.ErrUnknownPot):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}
