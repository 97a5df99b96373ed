package usecase

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/internal/app/metrics"
)

// RecordDeposit 驗證並入帳一筆存款，只回傳成功與否
// 拒絕原因只會出現在 log 與 metrics
func (c *CoreUseCase) RecordDeposit(ctx context.Context, caller, user domain.Identity, amount, blockIndex uint64) bool {
	return c.Deposit(ctx, caller, user, amount, blockIndex) == nil
}

// Deposit 驗證並入帳一筆存款
//
// 流程:
//
//	1. 同步佔用 blockIndex (已入帳 / 驗證中 直接拒絕)
//	2. 查詢帳本並驗證 (暫停點)
//	3. 釋放佔用，驗證通過則在同一個 Update 內完成入帳
//
// 回傳:
//
//	error: domain 的驗證錯誤，nil 表示已入帳
func (c *CoreUseCase) Deposit(ctx context.Context, caller, user domain.Identity, amount, blockIndex uint64) error {
	log := c.log.WithFields(logrus.Fields{
		"caller":      caller,
		"user":        user,
		"amount":      amount,
		"block_index": blockIndex,
	})

	err := c.store.Update(ctx, func(st *domain.State, pending *domain.Pending) error {
		if st.IsCredited(blockIndex) {
			return domain.ErrAlreadyCredited
		}
		return pending.ReserveBlock(blockIndex)
	})
	if err != nil {
		c.rejectDeposit(log, err)
		return err
	}

	verifyErr := c.verifier.VerifyDeposit(ctx, user, amount, blockIndex)

	// 佔用一定要釋放，即使 ctx 已取消
	var pots [3]uint64
	err = c.store.Update(context.WithoutCancel(ctx), func(st *domain.State, pending *domain.Pending) error {
		pending.ReleaseBlock(blockIndex)
		if verifyErr != nil {
			return verifyErr
		}
		if err := st.ApplyDeposit(c.timestamp(), caller, user, amount, blockIndex); err != nil {
			return err
		}
		pots = [3]uint64{st.SilverPot, st.GoldPot, st.HighScorePot}
		return nil
	})
	if err != nil {
		c.rejectDeposit(log, err)
		return err
	}

	metrics.RecordDeposit("ok")
	metrics.SetPot(domain.PotSilver.String(), pots[0])
	metrics.SetPot(domain.PotGold.String(), pots[1])
	metrics.SetPot(domain.PotHighScore.String(), pots[2])
	log.Info("deposit credited")
	return nil
}

func (c *CoreUseCase) rejectDeposit(log *logrus.Entry, err error) {
	metrics.RecordDeposit(depositReason(err))
	log.WithError(err).Warn("deposit rejected")
}

func depositReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyCredited):
		return "already_credited"
	case errors.Is(err, domain.ErrAlreadyInFlight):
		return "already_in_flight"
	case errors.Is(err, domain.ErrLedgerQueryFailed):
		return "ledger_query_failed"
	case errors.Is(err, domain.ErrBlockNotFound):
		return "block_not_found"
	case errors.Is(err, domain.ErrOperationMissing):
		return "operation_missing"
	case errors.Is(err, domain.ErrNotATransfer):
		return "not_a_transfer"
	case errors.Is(err, domain.ErrWrongDestination):
		return "wrong_destination"
	case errors.Is(err, domain.ErrWrongSource):
		return "wrong_source"
	case errors.Is(err, domain.ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, domain.ErrBalanceOverflow), errors.Is(err, domain.ErrPotOverflow):
		return "overflow"
	default:
		return "internal"
	}
}
