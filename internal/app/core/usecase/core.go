package usecase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
)

// DefaultTransferFee 帳本固定手續費 (最小單位)
const DefaultTransferFee uint64 = 10_000

// Options CoreUseCase 的設定
type Options struct {
	// Self 本服務在帳本上的身分，存款必須轉到它的預設帳戶
	Self domain.Identity
	// TransferFee 每次轉帳付給帳本的手續費
	TransferFee uint64
	// Now 時鐘，測試可替換
	Now func() time.Time
	// Logger 可為 nil
	Logger *logrus.Logger
}

// CoreUseCase 是核心業務邏輯層
type CoreUseCase struct {
	store    StateStore
	ledger   LedgerGateway
	verifier *Verifier
	gate     *Gate
	self     domain.Identity
	fee      uint64
	now      func() time.Time
	log      *logrus.Entry
}

// NewCoreUseCase 建立 CoreUseCase
//
// 參數:
//
//	store: 權威狀態
//	ledger: 外部帳本
//	gate: 特權白名單
//	opts: 其他設定
func NewCoreUseCase(store StateStore, ledger LedgerGateway, gate *Gate, opts Options) *CoreUseCase {
	if opts.TransferFee == 0 {
		opts.TransferFee = DefaultTransferFee
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CoreUseCase{
		store:    store,
		ledger:   ledger,
		verifier: NewVerifier(ledger, store, opts.Self),
		gate:     gate,
		self:     opts.Self,
		fee:      opts.TransferFee,
		now:      opts.Now,
		log:      logger.WithField("component", "custody"),
	}
}

func (c *CoreUseCase) timestamp() uint64 {
	return uint64(c.now().UnixNano())
}

// GetBalanceOf 取得使用者餘額，不存在時為 0
func (c *CoreUseCase) GetBalanceOf(ctx context.Context, user domain.Identity) (uint64, error) {
	var balance uint64
	err := c.store.View(ctx, func(st *domain.State) {
		balance = st.BalanceOf(user)
	})
	return balance, err
}

// GetMyBalance 取得呼叫者自己的餘額
func (c *CoreUseCase) GetMyBalance(ctx context.Context, caller domain.Identity) (uint64, error) {
	return c.GetBalanceOf(ctx, caller)
}

// GetLogs 取得所有稽核紀錄 (依寫入順序)
func (c *CoreUseCase) GetLogs(ctx context.Context) ([]domain.LogEntry, error) {
	var logs []domain.LogEntry
	err := c.store.View(ctx, func(st *domain.State) {
		logs = make([]domain.LogEntry, 0, len(st.Logs))
		for _, e := range st.Logs {
			logs = append(logs, domain.NewLogEntry(e.Timestamp, e.Caller, e.Action, e.Amount, e.BlockIndex))
		}
	})
	return logs, err
}

// GetUserLogs 取得 caller 為 user 的稽核紀錄
func (c *CoreUseCase) GetUserLogs(ctx context.Context, user domain.Identity) ([]domain.LogEntry, error) {
	var logs []domain.LogEntry
	err := c.store.View(ctx, func(st *domain.State) {
		logs = st.LogsOf(user)
	})
	return logs, err
}

// GetPot 取得單一獎池
func (c *CoreUseCase) GetPot(ctx context.Context, pot domain.Pot) (uint64, error) {
	var (
		amount uint64
		potErr error
	)
	if err := c.store.View(ctx, func(st *domain.State) {
		amount, potErr = st.PotAmount(pot)
	}); err != nil {
		return 0, err
	}
	return amount, potErr
}

// GetTotalPot 銀池 + 金池
func (c *CoreUseCase) GetTotalPot(ctx context.Context) (uint64, error) {
	var total uint64
	err := c.store.View(ctx, func(st *domain.State) {
		total = st.TotalPot()
	})
	return total, err
}
