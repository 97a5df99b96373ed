package usecase

import (
	"context"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
)

// LedgerGateway 外部帳本的介面 (查詢區塊 / 轉帳)
// 每次呼叫都是一個暫停點：等待回應期間其他請求可以先執行
type LedgerGateway interface {
	// QueryBlocks 查詢區塊，回傳 error 代表呼叫本身失敗
	QueryBlocks(ctx context.Context, req domain.QueryBlocksRequest) (*domain.QueryBlocksResponse, error)
	// Transfer 轉帳
	// error != nil: 呼叫沒有完成
	// resp.Error != nil: 帳本拒絕
	// 其餘: resp.BlockIndex 為新區塊
	Transfer(ctx context.Context, req domain.LedgerTransferRequest) (*domain.LedgerTransferResponse, error)
}

// StateStore 權威狀態的存放處
// Update 的 fn 回傳 error 時必須沒有修改任何東西 (全有或全無)
type StateStore interface {
	// View 唯讀存取
	View(ctx context.Context, fn func(st *domain.State)) error
	// Update 讀寫存取，fn 執行期間不會有其他 Update 交錯
	Update(ctx context.Context, fn func(st *domain.State, pending *domain.Pending) error) error
	// Snapshot 回傳狀態的深拷貝
	Snapshot(ctx context.Context) (*domain.State, error)
	// Replace 以 st 取代目前狀態 (重啟後還原用)，同時清空 Pending
	Replace(ctx context.Context, st *domain.State) error
}
