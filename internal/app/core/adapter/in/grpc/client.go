package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	pkggrpc "github.com/JoeShih716/go-mem-custody/pkg/grpc"
)

// CustodyClient 託管服務的客戶端，每個呼叫都帶上 API token
// 伺服器依 token (或 mTLS 憑證) 決定呼叫者身分
type CustodyClient struct {
	conn  grpc.ClientConnInterface
	token string
}

// NewCustodyClient 建立客戶端，token 為空時以匿名身分呼叫
func NewCustodyClient(conn grpc.ClientConnInterface, token string) *CustodyClient {
	return &CustodyClient{conn: conn, token: token}
}

// WithToken 回傳使用另一個 token 的客戶端 (共用連線)
func (c *CustodyClient) WithToken(token string) *CustodyClient {
	return &CustodyClient{conn: c.conn, token: token}
}

func invoke[Resp any](ctx context.Context, c *CustodyClient, method string, req any) (*Resp, error) {
	if c.token != "" {
		ctx = pkggrpc.WithBearerToken(ctx, c.token)
	}
	resp := new(Resp)
	if err := c.conn.Invoke(ctx, pkggrpc.FullMethod(ServiceName, method), req, resp, grpc.CallContentSubtype(pkggrpc.JSONCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *CustodyClient) RecordDeposit(ctx context.Context, user domain.Identity, amount, blockIndex uint64) (bool, error) {
	resp, err := invoke[BoolResponse](ctx, c, MethodRecordDeposit, &RecordDepositRequest{User: user, Amount: amount, BlockIndex: blockIndex})
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (c *CustodyClient) Withdraw(ctx context.Context, amount uint64) (*TransferResult, error) {
	return invoke[TransferResult](ctx, c, MethodWithdraw, &WithdrawRequest{Amount: amount})
}

func (c *CustodyClient) Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	return invoke[TransferResult](ctx, c, MethodTransfer, req)
}

func (c *CustodyClient) GetBalanceOf(ctx context.Context, user domain.Identity) (uint64, error) {
	return c.amount(ctx, MethodGetBalanceOf, &BalanceOfRequest{User: user})
}

func (c *CustodyClient) GetMyBalance(ctx context.Context) (uint64, error) {
	return c.amount(ctx, MethodGetMyBalance, &Empty{})
}

func (c *CustodyClient) GetLogs(ctx context.Context) ([]domain.LogEntry, error) {
	resp, err := invoke[LogsResponse](ctx, c, MethodGetLogs, &Empty{})
	if err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

func (c *CustodyClient) GetUserLogs(ctx context.Context, user domain.Identity) ([]domain.LogEntry, error) {
	resp, err := invoke[LogsResponse](ctx, c, MethodGetUserLogs, &UserLogsRequest{User: user})
	if err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

// GetPot 依獎池呼叫對應的 getXxxPot
func (c *CustodyClient) GetPot(ctx context.Context, pot domain.Pot) (uint64, error) {
	method, ok := map[domain.Pot]string{
		domain.PotSilver:    MethodGetSilverPot,
		domain.PotGold:      MethodGetGoldPot,
		domain.PotHighScore: MethodGetHighScorePot,
	}[pot]
	if !ok {
		return 0, domain.ErrUnknownPot
	}
	return c.amount(ctx, method, &Empty{})
}

func (c *CustodyClient) GetTotalPot(ctx context.Context) (uint64, error) {
	return c.amount(ctx, MethodGetTotalPot, &Empty{})
}

// AddToPot 依獎池呼叫對應的 addToXxxPot
func (c *CustodyClient) AddToPot(ctx context.Context, pot domain.Pot, amount uint64) (bool, error) {
	method, ok := map[domain.Pot]string{
		domain.PotSilver:    MethodAddToSilverPot,
		domain.PotGold:      MethodAddToGoldPot,
		domain.PotHighScore: MethodAddToHighScorePot,
	}[pot]
	if !ok {
		return false, domain.ErrUnknownPot
	}
	return c.ok(ctx, method, &AmountRequest{Amount: amount})
}

// ResetPot 依獎池呼叫對應的 resetXxxPot
func (c *CustodyClient) ResetPot(ctx context.Context, pot domain.Pot) (bool, error) {
	method, ok := map[domain.Pot]string{
		domain.PotSilver:    MethodResetSilverPot,
		domain.PotGold:      MethodResetGoldPot,
		domain.PotHighScore: MethodResetHighScorePot,
	}[pot]
	if !ok {
		return false, domain.ErrUnknownPot
	}
	return c.ok(ctx, method, &Empty{})
}

func (c *CustodyClient) amount(ctx context.Context, method string, req any) (uint64, error) {
	resp, err := invoke[AmountResponse](ctx, c, method, req)
	if err != nil {
		return 0, err
	}
	return resp.Amount, nil
}

func (c *CustodyClient) ok(ctx context.Context, method string, req any) (bool, error) {
	resp, err := invoke[BoolResponse](ctx, c, method, req)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}
