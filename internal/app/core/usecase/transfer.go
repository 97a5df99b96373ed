package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/internal/app/metrics"
)

// TransferArgs 託管轉帳參數
type TransferArgs struct {
	To           domain.Identity
	ToSubaccount *domain.Subaccount
	Amount       uint64
}

// Transfer 託管人手動轉帳，不讀寫任何使用者餘額，只留下稽核紀錄
//
// 回傳:
//
//	uint64: 帳本區塊
//	error: ErrNotAllowed / ErrLedgerRejected / ErrCallFailed
func (c *CoreUseCase) Transfer(ctx context.Context, caller domain.Identity, args TransferArgs) (uint64, error) {
	log := c.log.WithFields(logrus.Fields{
		"caller": caller,
		"to":     args.To,
		"amount": args.Amount,
	})
	if !c.gate.IsAllowed(caller) {
		metrics.RecordTransfer("not_allowed")
		log.Warn("transfer rejected: caller not allowed")
		return 0, domain.ErrNotAllowed
	}

	sub := domain.DefaultSubaccount
	if args.ToSubaccount != nil {
		sub = *args.ToSubaccount
	}
	blockIndex, err := c.ledgerTransfer(ctx, domain.LedgerTransferRequest{
		Memo:   0,
		Amount: args.Amount,
		Fee:    c.fee,
		To:     domain.NewAccountIdentifier(args.To, sub),
	})
	if err != nil {
		metrics.RecordTransfer(transferReason(err))
		log.WithError(err).Warn("transfer failed")
		return 0, err
	}

	err = c.store.Update(context.WithoutCancel(ctx), func(st *domain.State, _ *domain.Pending) error {
		st.AppendLog(domain.NewLogEntry(c.timestamp(), caller, domain.ActionTransfer, args.Amount, &blockIndex))
		return nil
	})
	if err != nil {
		// 帳本已經轉出，不能回報失敗 (呼叫端重試會再轉一次)
		// 以計數器告警，block_index 供人工補登
		metrics.RecordTransferLogFailure()
		log.WithError(err).WithFields(logrus.Fields{
			"block_index": blockIndex,
			"action":      domain.ActionTransfer,
		}).Error("transfer settled on ledger but audit log append failed")
	}

	metrics.RecordTransfer("ok")
	log.WithField("block_index", blockIndex).Info("transfer completed")
	return blockIndex, nil
}
