package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/internal/app/metrics"
)

// Withdraw 將 caller 的餘額透過帳本轉回 caller 的預設帳戶
//
// 流程:
//
//	1. 檢查可用餘額 (餘額 - 提款中) 並保留金額，不足直接回傳 ErrInsufficientBalance
//	2. 呼叫帳本轉帳 (暫停點)
//	3. 釋放保留，只有帳本回傳新區塊時才扣款並記錄
//
// 回傳:
//
//	uint64: 帳本區塊
//	error: ErrInsufficientBalance / ErrLedgerRejected / ErrCallFailed
func (c *CoreUseCase) Withdraw(ctx context.Context, caller domain.Identity, amount uint64) (uint64, error) {
	log := c.log.WithFields(logrus.Fields{
		"caller": caller,
		"amount": amount,
	})

	err := c.store.Update(ctx, func(st *domain.State, pending *domain.Pending) error {
		return pending.Hold(caller, st.BalanceOf(caller), amount)
	})
	if err != nil {
		metrics.RecordWithdraw(transferReason(err))
		log.WithError(err).Info("withdraw rejected")
		return 0, err
	}

	blockIndex, transferErr := c.ledgerTransfer(ctx, domain.LedgerTransferRequest{
		Memo:   0,
		Amount: amount,
		Fee:    c.fee,
		To:     domain.DefaultAccount(caller),
	})

	err = c.store.Update(context.WithoutCancel(ctx), func(st *domain.State, pending *domain.Pending) error {
		pending.ReleaseHold(caller, amount)
		if transferErr != nil {
			return transferErr
		}
		return st.ApplyWithdraw(c.timestamp(), caller, amount, blockIndex)
	})
	if err != nil {
		metrics.RecordWithdraw(transferReason(err))
		log.WithError(err).Warn("withdraw failed")
		return 0, err
	}

	metrics.RecordWithdraw("ok")
	log.WithField("block_index", blockIndex).Info("withdraw completed")
	return blockIndex, nil
}

// ledgerTransfer 呼叫帳本並把巢狀結果轉成 error
func (c *CoreUseCase) ledgerTransfer(ctx context.Context, req domain.LedgerTransferRequest) (uint64, error) {
	started := time.Now()
	resp, err := c.ledger.Transfer(ctx, req)
	if err != nil {
		metrics.ObserveLedgerCall("transfer", "call_failed", started)
		return 0, fmt.Errorf("%w: %v", domain.ErrCallFailed, err)
	}
	if resp == nil {
		metrics.ObserveLedgerCall("transfer", "call_failed", started)
		return 0, fmt.Errorf("%w: empty ledger response", domain.ErrCallFailed)
	}
	if resp.Error != nil {
		metrics.ObserveLedgerCall("transfer", "rejected", started)
		return 0, fmt.Errorf("%w: %s", domain.ErrLedgerRejected, resp.Error.Error())
	}
	if resp.BlockIndex == nil {
		metrics.ObserveLedgerCall("transfer", "call_failed", started)
		return 0, fmt.Errorf("%w: ledger returned no block index", domain.ErrCallFailed)
	}
	metrics.ObserveLedgerCall("transfer", "ok", started)
	return *resp.BlockIndex, nil
}

func transferReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrLedgerRejected):
		return "ledger_rejected"
	case errors.Is(err, domain.ErrCallFailed):
		return "call_failed"
	case errors.Is(err, domain.ErrNotAllowed):
		return "not_allowed"
	default:
		return "internal"
	}
}
