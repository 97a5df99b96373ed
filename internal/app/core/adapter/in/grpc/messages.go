package grpc

import "github.com/JoeShih716/go-mem-custody/internal/app/core/domain"

// 以下為託管服務的請求 / 回應訊息，經由 JSON codec 傳輸
// 業務失敗一律放在回應內 (Soft Failure)，不轉成 gRPC status

type Empty struct{}

type RecordDepositRequest struct {
	User       domain.Identity `json:"user"`
	Amount     uint64          `json:"amount"`
	BlockIndex uint64          `json:"block_index"`
}

type WithdrawRequest struct {
	Amount uint64 `json:"amount"`
}

type TransferRequest struct {
	To           domain.Identity    `json:"to"`
	ToSubaccount *domain.Subaccount `json:"to_subaccount,omitempty"`
	Amount       uint64             `json:"amount"`
}

type BalanceOfRequest struct {
	User domain.Identity `json:"user"`
}

type UserLogsRequest struct {
	User domain.Identity `json:"user"`
}

type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

type BoolResponse struct {
	Ok bool `json:"ok"`
}

type AmountResponse struct {
	Amount uint64 `json:"amount"`
}

type LogsResponse struct {
	Logs []domain.LogEntry `json:"logs"`
}

// TransferResult 轉帳結果，Ok 與 Err 只會有一個有值
type TransferResult struct {
	Ok  *uint64 `json:"ok,omitempty"`
	Err string  `json:"err,omitempty"`
}

// Succeeded 是否成功
func (r *TransferResult) Succeeded() bool {
	return r != nil && r.Ok != nil
}
