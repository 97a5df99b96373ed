package domain

import "errors"

// 存款驗證錯誤 (不改變任何狀態)
var (
	// ErrAlreadyCredited 區塊已經入帳過
	ErrAlreadyCredited = errors.New("block_index already credited")

	// ErrAlreadyInFlight 同一個區塊正在驗證中
	ErrAlreadyInFlight = errors.New("block_index verification already in flight")

	// ErrLedgerQueryFailed 帳本查詢本身失敗
	ErrLedgerQueryFailed = errors.New("ledger query failed")

	// ErrBlockNotFound 帳本沒有回傳區塊
	ErrBlockNotFound = errors.New("block not found")

	// ErrOperationMissing 區塊沒有操作
	ErrOperationMissing = errors.New("operation missing")

	// ErrNotATransfer 區塊不是轉帳
	ErrNotATransfer = errors.New("block is not a transfer")

	// ErrWrongDestination 收款方不是本服務
	ErrWrongDestination = errors.New("destination is not this service")

	// ErrWrongSource 付款方不是宣稱的使用者
	ErrWrongSource = errors.New("source does not match user")

	// ErrAmountMismatch 金額不符
	ErrAmountMismatch = errors.New("amount mismatch")
)

// 轉帳錯誤 (提款 / 託管轉帳)
var (
	// ErrInsufficientBalance 餘額不足
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrLedgerRejected 帳本拒絕轉帳
	ErrLedgerRejected = errors.New("ledger error")

	// ErrCallFailed 呼叫帳本失敗 (未完成)
	ErrCallFailed = errors.New("call failed")
)

var (
	// ErrNotAllowed 呼叫者不在白名單
	ErrNotAllowed = errors.New("not authorised")

	// ErrBalanceOverflow 餘額超過 uint64
	ErrBalanceOverflow = errors.New("balance overflow")

	// ErrPotOverflow 獎池超過 uint64
	ErrPotOverflow = errors.New("pot overflow")

	// ErrUnknownPot 不認識的獎池
	ErrUnknownPot = errors.New("unknown pot")
)
