package domain

import (
	"math"
	"math/bits"
	"slices"
)

// Pot 獎池
type Pot uint8

const (
	PotSilver Pot = iota + 1
	PotGold
	PotHighScore
)

func (p Pot) String() string {
	switch p {
	case PotSilver:
		return "silver"
	case PotGold:
		return "gold"
	case PotHighScore:
		return "high_score"
	default:
		return "unknown"
	}
}

// 每筆成功存款自動加進獎池的金額 (最小單位)
const (
	DepositSilverBonus    uint64 = 1_500_000
	DepositGoldBonus      uint64 = 2_000_000
	DepositHighScoreBonus uint64 = 1_000_000
)

// 獎池重置後的金額
const (
	SilverReseed    uint64 = 25_000_000
	GoldReseed      uint64 = 250_000_000
	HighScoreReseed uint64 = 0
)

// ReseedAmount 回傳獎池重置的目標值
func ReseedAmount(p Pot) (uint64, error) {
	switch p {
	case PotSilver:
		return SilverReseed, nil
	case PotGold:
		return GoldReseed, nil
	case PotHighScore:
		return HighScoreReseed, nil
	}
	return 0, ErrUnknownPot
}

// State 整個服務唯一的權威狀態
//
// 結構:
//
//	Balances: 使用者餘額，沒有 key 代表 0
//	CreditedBlocks: 已入帳過的區塊 (每個區塊最多一次)
//	Logs: 稽核紀錄 (只追加)
//	SilverPot / GoldPot / HighScorePot: 三個獨立計數器
type State struct {
	Balances       map[Identity]uint64
	CreditedBlocks map[uint64]struct{}
	Logs           []LogEntry
	SilverPot      uint64
	GoldPot        uint64
	HighScorePot   uint64
}

// NewState 建立空狀態 (第一次啟動)
func NewState() *State {
	return &State{
		Balances:       make(map[Identity]uint64),
		CreditedBlocks: make(map[uint64]struct{}),
		Logs:           make([]LogEntry, 0),
	}
}

// BalanceOf 取得餘額
func (s *State) BalanceOf(id Identity) uint64 {
	return s.Balances[id]
}

// IsCredited 區塊是否已入帳
func (s *State) IsCredited(blockIndex uint64) bool {
	_, ok := s.CreditedBlocks[blockIndex]
	return ok
}

// PotAmount 取得獎池金額
func (s *State) PotAmount(p Pot) (uint64, error) {
	ptr, err := s.pot(p)
	if err != nil {
		return 0, err
	}
	return *ptr, nil
}

// TotalPot 銀池 + 金池 (不含高分池)，超過上限時回傳最大值
func (s *State) TotalPot() uint64 {
	sum, carry := bits.Add64(s.SilverPot, s.GoldPot, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

// AppendLog 追加稽核紀錄
func (s *State) AppendLog(entry LogEntry) {
	s.Logs = append(s.Logs, entry)
}

// LogsOf 回傳 caller 為 id 的紀錄 (複本)
func (s *State) LogsOf(id Identity) []LogEntry {
	out := make([]LogEntry, 0)
	for _, entry := range s.Logs {
		if entry.Caller == id {
			out = append(out, entry)
		}
	}
	return out
}

// ApplyDeposit 一次完成存款入帳
// 先檢查所有加法是否溢位，確認都可以之後才修改狀態，失敗時狀態不變
//
// 參數:
//
//	ts: 紀錄時間 (Unix 奈秒)
//	caller: 發起呼叫的身分 (寫入稽核紀錄)
//	user: 入帳的使用者
//	amount: 金額
//	blockIndex: 作為證明的區塊
//
// 回傳:
//
//	error: ErrAlreadyCredited / ErrBalanceOverflow / ErrPotOverflow
func (s *State) ApplyDeposit(ts uint64, caller, user Identity, amount, blockIndex uint64) error {
	if s.IsCredited(blockIndex) {
		return ErrAlreadyCredited
	}
	balance, carry := bits.Add64(s.Balances[user], amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}
	silver, c1 := bits.Add64(s.SilverPot, DepositSilverBonus, 0)
	gold, c2 := bits.Add64(s.GoldPot, DepositGoldBonus, 0)
	highScore, c3 := bits.Add64(s.HighScorePot, DepositHighScoreBonus, 0)
	if c1|c2|c3 != 0 {
		return ErrPotOverflow
	}

	s.Balances[user] = balance
	s.CreditedBlocks[blockIndex] = struct{}{}
	s.SilverPot, s.GoldPot, s.HighScorePot = silver, gold, highScore

	s.AppendLog(NewLogEntry(ts, caller, ActionRecordDeposit, amount, &blockIndex))
	s.AppendLog(NewLogEntry(ts, caller, ActionAutoAddSilver, DepositSilverBonus, nil))
	s.AppendLog(NewLogEntry(ts, caller, ActionAutoAddGold, DepositGoldBonus, nil))
	s.AppendLog(NewLogEntry(ts, caller, ActionAutoAddHighScore, DepositHighScoreBonus, nil))
	return nil
}

// ApplyWithdraw 提款成功後扣款並記錄
func (s *State) ApplyWithdraw(ts uint64, caller Identity, amount, blockIndex uint64) error {
	balance := s.Balances[caller]
	if amount > balance {
		return ErrInsufficientBalance
	}
	s.Balances[caller] = balance - amount
	s.AppendLog(NewLogEntry(ts, caller, ActionWithdraw, amount, &blockIndex))
	return nil
}

// AddToPot 增加獎池
func (s *State) AddToPot(p Pot, amount uint64) error {
	ptr, err := s.pot(p)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(*ptr, amount, 0)
	if carry != 0 {
		return ErrPotOverflow
	}
	*ptr = sum
	return nil
}

// SetPot 直接設定獎池金額
func (s *State) SetPot(p Pot, amount uint64) error {
	ptr, err := s.pot(p)
	if err != nil {
		return err
	}
	*ptr = amount
	return nil
}

func (s *State) pot(p Pot) (*uint64, error) {
	switch p {
	case PotSilver:
		return &s.SilverPot, nil
	case PotGold:
		return &s.GoldPot, nil
	case PotHighScore:
		return &s.HighScorePot, nil
	}
	return nil, ErrUnknownPot
}

// Clone 深拷貝，快照與回傳給外部時使用
func (s *State) Clone() *State {
	out := &State{
		Balances:       make(map[Identity]uint64, len(s.Balances)),
		CreditedBlocks: make(map[uint64]struct{}, len(s.CreditedBlocks)),
		Logs:           make([]LogEntry, 0, len(s.Logs)),
		SilverPot:      s.SilverPot,
		GoldPot:        s.GoldPot,
		HighScorePot:   s.HighScorePot,
	}
	for id, bal := range s.Balances {
		out.Balances[id] = bal
	}
	for idx := range s.CreditedBlocks {
		out.CreditedBlocks[idx] = struct{}{}
	}
	for _, entry := range s.Logs {
		out.Logs = append(out.Logs, NewLogEntry(entry.Timestamp, entry.Caller, entry.Action, entry.Amount, entry.BlockIndex))
	}
	return out
}

// SortedCreditedBlocks 依序回傳已入帳區塊
func (s *State) SortedCreditedBlocks() []uint64 {
	out := make([]uint64, 0, len(s.CreditedBlocks))
	for idx := range s.CreditedBlocks {
		out = append(out, idx)
	}
	slices.Sort(out)
	return out
}

// Pending 執行期暫存，不會被快照
//
//	InFlight: 正在驗證中的區塊 (存款查詢帳本期間先佔位)
//	Held: 每個身分正在提款中的金額
type Pending struct {
	InFlight map[uint64]struct{}
	Held     map[Identity]uint64
}

// NewPending 建立空的 Pending
func NewPending() *Pending {
	return &Pending{
		InFlight: make(map[uint64]struct{}),
		Held:     make(map[Identity]uint64),
	}
}

// ReserveBlock 佔用區塊，已在驗證中則回傳 ErrAlreadyInFlight
func (p *Pending) ReserveBlock(blockIndex uint64) error {
	if _, ok := p.InFlight[blockIndex]; ok {
		return ErrAlreadyInFlight
	}
	p.InFlight[blockIndex] = struct{}{}
	return nil
}

// ReleaseBlock 釋放區塊佔用
func (p *Pending) ReleaseBlock(blockIndex uint64) {
	delete(p.InFlight, blockIndex)
}

// Hold 保留提款金額，available = balance - 已保留
func (p *Pending) Hold(id Identity, balance, amount uint64) error {
	held := p.Held[id]
	if held > balance || amount > balance-held {
		return ErrInsufficientBalance
	}
	p.Held[id] = held + amount
	return nil
}

// ReleaseHold 釋放保留
func (p *Pending) ReleaseHold(id Identity, amount uint64) {
	held := p.Held[id]
	if amount >= held {
		delete(p.Held, id)
		return
	}
	p.Held[id] = held - amount
}
