package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
)

var (
	// ErrNoSnapshot Storage 裡沒有快照
	ErrNoSnapshot = errors.New("no snapshot stored")

	errEmpty = errors.New("empty snapshot")
)

// Storage 快照的永久儲存
type Storage interface {
	// Save 寫入一份快照 (取代之前的)
	Save(ctx context.Context, payload []byte) error
	// Load 讀取最新的快照，沒有時回傳 ErrNoSnapshot
	Load(ctx context.Context) ([]byte, error)
}

// Source 還原結果的來源
type Source int

const (
	// SourceFresh 沒有可用的快照，從空狀態開始
	SourceFresh Source = iota
	// SourceCurrent 以目前格式還原
	SourceCurrent
	// SourceLegacy 以舊格式還原並升級
	SourceLegacy
)

func (s Source) String() string {
	switch s {
	case SourceCurrent:
		return "current"
	case SourceLegacy:
		return "legacy"
	default:
		return "fresh"
	}
}

// Manager 升級時的狀態存取
type Manager struct {
	storage Storage
	log     *logrus.Entry
}

// NewManager 建立 Manager
func NewManager(storage Storage, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		storage: storage,
		log:     logger.WithField("component", "snapshot"),
	}
}

// Save 關機 (升級) 前把整個狀態連同版本寫入 Storage
func (m *Manager) Save(ctx context.Context, st *domain.State) error {
	payload, err := Encode(st)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := m.storage.Save(ctx, payload); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	m.log.WithFields(logrus.Fields{
		"version":  CurrentVersion,
		"bytes":    len(payload),
		"balances": len(st.Balances),
		"logs":     len(st.Logs),
	}).Info("snapshot saved")
	return nil
}

// Restore 重啟時還原狀態
// 依序嘗試: 目前格式 -> 舊格式 (獎池補 0) -> 空狀態
// 失敗的格式不會留下任何部分結果
//
// 回傳:
//
//	*domain.State: 還原後的狀態 (一定不為 nil)
//	Source: 來源
//	error: 只有 Storage 讀取失敗 (非 ErrNoSnapshot) 時不為 nil，此時仍回傳空狀態
func (m *Manager) Restore(ctx context.Context) (*domain.State, Source, error) {
	payload, err := m.storage.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		m.log.Info("no snapshot, fresh start")
		return domain.NewState(), SourceFresh, nil
	}
	if err != nil {
		m.log.WithError(err).Error("load snapshot failed, fresh start")
		return domain.NewState(), SourceFresh, fmt.Errorf("load snapshot: %w", err)
	}

	st, source, err := Decode(payload)
	if err != nil {
		m.log.WithError(err).Error("snapshot not decodable, fresh start")
		return st, source, nil
	}
	m.log.WithFields(logrus.Fields{
		"source":   source.String(),
		"balances": len(st.Balances),
		"logs":     len(st.Logs),
	}).Info("snapshot restored")
	return st, source, nil
}

// Decode 依序嘗試所有格式，全部失敗時回傳空狀態與合併的錯誤
func Decode(payload []byte) (*domain.State, Source, error) {
	if len(payload) == 0 {
		return domain.NewState(), SourceFresh, errEmpty
	}
	st, _, currentErr := decodeCurrent(payload)
	if currentErr == nil {
		return st, SourceCurrent, nil
	}
	st, legacyErr := decodeLegacy(payload)
	if legacyErr == nil {
		return st, SourceLegacy, nil
	}
	var merr *multierror.Error
	merr = multierror.Append(merr,
		fmt.Errorf("current format: %w", currentErr),
		fmt.Errorf("legacy format: %w", legacyErr),
	)
	return domain.NewState(), SourceFresh, merr.ErrorOrNil()
}
