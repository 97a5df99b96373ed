package domain

// 稽核紀錄的 action 名稱
const (
	ActionRecordDeposit     = "recordDeposit"
	ActionAutoAddSilver     = "autoAddSilver"
	ActionAutoAddGold       = "autoAddGold"
	ActionAutoAddHighScore  = "autoAddHighScore"
	ActionWithdraw          = "withdraw"
	ActionTransfer          = "transfer"
	ActionAddSilver         = "addSilver"
	ActionAddGold           = "addGold"
	ActionAddHighScorePot   = "addHighScorePot"
	ActionResetSilver       = "resetSilver"
	ActionResetGold         = "resetGold"
	ActionResetHighScorePot = "resetHighScorePot"
)

// LogEntry 一筆稽核紀錄，寫入後不再修改
type LogEntry struct {
	// Timestamp: Unix 奈秒
	Timestamp  uint64   `json:"timestamp"`
	Caller     Identity `json:"caller"`
	Action     string   `json:"action"`
	Amount     uint64   `json:"amount"`
	BlockIndex *uint64  `json:"block_index,omitempty"`
}

// NewLogEntry 建立稽核紀錄，blockIndex 可為 nil
func NewLogEntry(ts uint64, caller Identity, action string, amount uint64, blockIndex *uint64) LogEntry {
	entry := LogEntry{
		Timestamp: ts,
		Caller:    caller,
		Action:    action,
		Amount:    amount,
	}
	if blockIndex != nil {
		idx := *blockIndex
		entry.BlockIndex = &idx
	}
	return entry
}
