package snapshot

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
)

// CurrentVersion 目前的快照格式版本，State 有不相容的變更時要加一
const CurrentVersion uint8 = 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic(err)
	}
}

// logEntryRecord 稽核紀錄在快照內的樣子 (v0 / v1 相同)
type logEntryRecord struct {
	Timestamp  uint64  `cbor:"timestamp"`
	Caller     string  `cbor:"caller"`
	Action     string  `cbor:"action"`
	Amount     uint64  `cbor:"amount_e8s"`
	BlockIndex *uint64 `cbor:"block_index,omitempty"`
}

// stateV1 目前的狀態格式
type stateV1 struct {
	Balances       map[string]uint64 `cbor:"balances"`
	CreditedBlocks []uint64          `cbor:"credited_blocks"`
	Logs           []logEntryRecord  `cbor:"logs"`
	SilverPot      uint64            `cbor:"silver_pot_e8s"`
	GoldPot        uint64            `cbor:"gold_pot_e8s"`
	HighScorePot   uint64            `cbor:"high_score_pot_e8s"`
}

// stateV0 舊格式，沒有獎池欄位
type stateV0 struct {
	Balances       map[string]uint64 `cbor:"balances"`
	CreditedBlocks []uint64          `cbor:"credited_blocks"`
	Logs           []logEntryRecord  `cbor:"logs"`
}

// taggedV1 (version, state)
type taggedV1 struct {
	_       struct{} `cbor:",toarray"`
	Version uint8
	State   stateV1
}

// legacyV0 (state,)
type legacyV0 struct {
	_     struct{} `cbor:",toarray"`
	State stateV0
}

// Encode 以目前版本編碼
func Encode(st *domain.State) ([]byte, error) {
	return encMode.Marshal(taggedV1{Version: CurrentVersion, State: toV1(st)})
}

// decodeCurrent 解析 (version, state)
func decodeCurrent(data []byte) (*domain.State, uint8, error) {
	var tagged taggedV1
	if err := decMode.Unmarshal(data, &tagged); err != nil {
		return nil, 0, err
	}
	if tagged.Version == 0 || tagged.Version > CurrentVersion {
		return nil, tagged.Version, fmt.Errorf("unsupported snapshot version %d", tagged.Version)
	}
	return fromV1(tagged.State), tagged.Version, nil
}

// decodeLegacy 解析舊格式並升級，獎池預設為 0
func decodeLegacy(data []byte) (*domain.State, error) {
	var legacy legacyV0
	if err := decMode.Unmarshal(data, &legacy); err != nil {
		return nil, err
	}
	return fromV1(upgradeV0(legacy.State)), nil
}

func upgradeV0(v0 stateV0) stateV1 {
	return stateV1{
		Balances:       v0.Balances,
		CreditedBlocks: v0.CreditedBlocks,
		Logs:           v0.Logs,
	}
}

func toV1(st *domain.State) stateV1 {
	out := stateV1{
		Balances:       make(map[string]uint64, len(st.Balances)),
		CreditedBlocks: st.SortedCreditedBlocks(),
		Logs:           make([]logEntryRecord, 0, len(st.Logs)),
		SilverPot:      st.SilverPot,
		GoldPot:        st.GoldPot,
		HighScorePot:   st.HighScorePot,
	}
	for id, bal := range st.Balances {
		out.Balances[id.String()] = bal
	}
	for _, e := range st.Logs {
		out.Logs = append(out.Logs, logEntryRecord{
			Timestamp:  e.Timestamp,
			Caller:     e.Caller.String(),
			Action:     e.Action,
			Amount:     e.Amount,
			BlockIndex: e.BlockIndex,
		})
	}
	return out
}

func fromV1(v1 stateV1) *domain.State {
	st := domain.NewState()
	for id, bal := range v1.Balances {
		st.Balances[domain.Identity(id)] = bal
	}
	for _, idx := range v1.CreditedBlocks {
		st.CreditedBlocks[idx] = struct{}{}
	}
	for _, e := range v1.Logs {
		st.AppendLog(domain.NewLogEntry(e.Timestamp, domain.Identity(e.Caller), e.Action, e.Amount, e.BlockIndex))
	}
	st.SilverPot = v1.SilverPot
	st.GoldPot = v1.GoldPot
	st.HighScorePot = v1.HighScorePot
	return st
}
