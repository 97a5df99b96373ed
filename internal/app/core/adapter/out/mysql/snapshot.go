package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/snapshot"
)

// sqlSnapshot 對應資料庫的 state_snapshots 表
type sqlSnapshot struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Version   uint8  `gorm:"not null"`
	Payload   []byte `gorm:"type:longblob;not null"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"` // 自動寫入時間
}

func (*sqlSnapshot) TableName() string {
	return "state_snapshots"
}

// SnapshotStorage 以 MySQL 保存快照
// 每次 Save 追加一列，Load 取 id 最大的一列
type SnapshotStorage struct {
	db   *gorm.DB
	keep int64
}

// NewSnapshotStorage 建立 SnapshotStorage
//
// 參數:
//
//	db: *gorm.DB - 資料庫連線 (通常來自 pkg/mysql.Client.DB())
//	keep: int - 保留最近幾份快照，<= 0 表示全部保留
func NewSnapshotStorage(db *gorm.DB, keep int) *SnapshotStorage {
	return &SnapshotStorage{db: db, keep: int64(keep)}
}

// Migrate 建立或更新資料表
func (s *SnapshotStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&sqlSnapshot{})
}

// Save 寫入一份新快照，並清掉超過保留數量的舊快照
func (s *SnapshotStorage) Save(ctx context.Context, payload []byte) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := sqlSnapshot{Version: snapshot.CurrentVersion, Payload: payload}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		if s.keep <= 0 || row.ID <= s.keep {
			return nil
		}
		if err := tx.Where("id <= ?", row.ID-s.keep).Delete(&sqlSnapshot{}).Error; err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
		return nil
	})
}

// Load 讀取最新的快照
func (s *SnapshotStorage) Load(ctx context.Context) ([]byte, error) {
	var row sqlSnapshot
	err := s.db.WithContext(ctx).Order("id desc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, snapshot.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return row.Payload, nil
}
