package domain

// 外部帳本 (token ledger) 的資料結構
// 帳本本身不屬於本服務，這裡只描述查詢與轉帳兩個呼叫會用到的欄位

// OperationKind 區塊內操作的種類
type OperationKind string

const (
	OperationTransfer OperationKind = "transfer"
	OperationMint     OperationKind = "mint"
	OperationBurn     OperationKind = "burn"
	OperationApprove  OperationKind = "approve"
)

// Operation 區塊記錄的操作
// 只有 Transfer 會用到 From / To / Fee
type Operation struct {
	Kind   OperationKind     `json:"kind"`
	From   AccountIdentifier `json:"from"`
	To     AccountIdentifier `json:"to"`
	Amount uint64            `json:"amount"`
	Fee    uint64            `json:"fee"`
}

// Transaction 區塊內的交易
type Transaction struct {
	Memo          uint64     `json:"memo"`
	Operation     *Operation `json:"operation,omitempty"`
	CreatedAtTime *uint64    `json:"created_at_time,omitempty"`
}

// Block 帳本上的一個區塊
type Block struct {
	ParentHash  string      `json:"parent_hash,omitempty"`
	Transaction Transaction `json:"transaction"`
	Timestamp   uint64      `json:"timestamp"`
}

// QueryBlocksRequest 查詢區塊 (Length 固定為 1)
type QueryBlocksRequest struct {
	Start  uint64 `json:"start"`
	Length uint64 `json:"length"`
}

// QueryBlocksResponse 查詢結果，可能包含 0 或 1 個區塊
type QueryBlocksResponse struct {
	ChainLength     uint64  `json:"chain_length"`
	FirstBlockIndex uint64  `json:"first_block_index"`
	Blocks          []Block `json:"blocks"`
}

// LedgerTransferRequest 送往帳本的轉帳請求
type LedgerTransferRequest struct {
	Memo           uint64            `json:"memo"`
	Amount         uint64            `json:"amount"`
	Fee            uint64            `json:"fee"`
	FromSubaccount *Subaccount       `json:"from_subaccount,omitempty"`
	To             AccountIdentifier `json:"to"`
	CreatedAtTime  *uint64           `json:"created_at_time,omitempty"`
}

// LedgerTransferResponse 帳本回應
// BlockIndex 與 Error 只會有一個有值 (內層結果)
type LedgerTransferResponse struct {
	BlockIndex *uint64              `json:"block_index,omitempty"`
	Error      *LedgerTransferError `json:"error,omitempty"`
}

// LedgerTransferError 帳本拒絕轉帳的原因
type LedgerTransferError struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

func (e *LedgerTransferError) Error() string {
	if e.Message == "" {
		return e.Kind
	}
	return e.Kind + ": " + e.Message
}

// 帳本常見的拒絕原因
const (
	LedgerErrBadFee            = "BadFee"
	LedgerErrInsufficientFunds = "InsufficientFunds"
	LedgerErrTxTooOld          = "TxTooOld"
	LedgerErrTxDuplicate       = "TxDuplicate"
)
