package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/internal/app/metrics"
)

// Verifier 向帳本查詢區塊並確認它是一筆合格的存款
// 只讀不寫，所有狀態修改由呼叫端負責
type Verifier struct {
	ledger LedgerGateway
	store  StateStore
	self   domain.Identity
}

// NewVerifier 建立 Verifier，self 為本服務在帳本上的身分
func NewVerifier(ledger LedgerGateway, store StateStore, self domain.Identity) *Verifier {
	return &Verifier{
		ledger: ledger,
		store:  store,
		self:   self,
	}
}

// VerifyDeposit 驗證 user 是否以 blockIndex 這個區塊轉了 amount 給本服務
//
// 參數:
//
//	ctx: 上下文
//	user: 宣稱的付款人
//	amount: 宣稱的金額
//	blockIndex: 區塊
//
// 回傳:
//
//	error: domain 的驗證錯誤之一，nil 表示通過
func (v *Verifier) VerifyDeposit(ctx context.Context, user domain.Identity, amount, blockIndex uint64) error {
	var credited bool
	if err := v.store.View(ctx, func(st *domain.State) {
		credited = st.IsCredited(blockIndex)
	}); err != nil {
		return err
	}
	if credited {
		return domain.ErrAlreadyCredited
	}

	started := time.Now()
	resp, err := v.ledger.QueryBlocks(ctx, domain.QueryBlocksRequest{Start: blockIndex, Length: 1})
	if err != nil {
		metrics.ObserveLedgerCall("query_blocks", "error", started)
		return fmt.Errorf("%w: %v", domain.ErrLedgerQueryFailed, err)
	}
	metrics.ObserveLedgerCall("query_blocks", "ok", started)

	if resp == nil || len(resp.Blocks) == 0 {
		return domain.ErrBlockNotFound
	}
	op := resp.Blocks[0].Transaction.Operation
	if op == nil {
		return domain.ErrOperationMissing
	}
	if op.Kind != domain.OperationTransfer {
		return domain.ErrNotATransfer
	}

	if op.To != domain.DefaultAccount(v.self) {
		return domain.ErrWrongDestination
	}
	if op.From != domain.DefaultAccount(user) {
		return domain.ErrWrongSource
	}
	if op.Amount != amount {
		return domain.ErrAmountMismatch
	}
	return nil
}
