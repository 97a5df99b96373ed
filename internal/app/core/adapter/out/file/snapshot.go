package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/snapshot"
	"github.com/JoeShih716/go-mem-custody/pkg/wal"
)

// record WAL 中的一筆快照
type record struct {
	Version uint8  `json:"version"`
	Payload []byte `json:"payload"`
}

// SnapshotStorage 以 WAL 檔案保存快照
// Save 先寫進同目錄的暫存檔並刷入硬碟，再以 rename 取代正式檔案
// 任何時間點當機，正式檔案不是舊快照就是新快照
type SnapshotStorage struct {
	mu   sync.Mutex
	path string
}

// Open 開啟 (或建立) 快照檔案
func Open(path string) (*SnapshotStorage, error) {
	w, err := wal.Open(path, wal.FileModePrivate)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close snapshot file %s: %w", path, err)
	}
	return &SnapshotStorage{path: path}, nil
}

// Save 寫入新快照
func (s *SnapshotStorage) Save(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	cleanup := func() {
		_ = os.Remove(tmp)
	}
	// 上次未完成的暫存檔
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale snapshot temp file: %w", err)
	}

	w, err := wal.Open(tmp, wal.FileModePrivate)
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	if err := w.Write(record{Version: snapshot.CurrentVersion, Payload: payload}); err != nil {
		w.Close()
		cleanup()
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := w.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return syncDir(filepath.Dir(s.path))
}

// Load 讀取最後一筆完整的快照
func (s *SnapshotStorage) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := wal.Open(s.path, wal.FileModePrivate)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer w.Close()

	var last *record
	err = w.ReadAll(func(raw []byte) error {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		last = &r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	if last == nil {
		return nil, snapshot.ErrNoSnapshot
	}
	return last.Payload, nil
}

// Close 保留給呼叫端統一關閉，檔案只在 Save / Load 期間開啟
func (s *SnapshotStorage) Close() error {
	return nil
}

// syncDir 讓 rename 本身也刷入硬碟
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open snapshot dir: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync snapshot dir: %w", err)
	}
	return nil
}
