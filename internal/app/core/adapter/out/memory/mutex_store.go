package memory

import (
	"context"
	"sync"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/usecase"
)

// MutexStore 是一個使用 Mutex 保護的狀態存放處
//
// 結構:
//
//	state: 權威狀態
//	pending: 執行期暫存 (驗證中區塊 / 提款保留)
//	mu: RWMutex，View 取讀鎖，Update 取寫鎖
type MutexStore struct {
	mu      sync.RWMutex
	state   *domain.State
	pending *domain.Pending
}

// NewMutexStore 建立一個空的 MutexStore
func NewMutexStore() *MutexStore {
	return &MutexStore{
		state:   domain.NewState(),
		pending: domain.NewPending(),
	}
}

// View 唯讀存取
func (m *MutexStore) View(ctx context.Context, fn func(st *domain.State)) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.state)
	return nil
}

// Update 讀寫存取
func (m *MutexStore) Update(ctx context.Context, fn func(st *domain.State, pending *domain.Pending) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state, m.pending)
}

// Snapshot 回傳深拷貝
func (m *MutexStore) Snapshot(ctx context.Context) (*domain.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone(), nil
}

// Replace 以 st 的複本取代目前狀態
func (m *MutexStore) Replace(ctx context.Context, st *domain.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st.Clone()
	m.pending = domain.NewPending()
	return nil
}

var _ usecase.StateStore = (*MutexStore)(nil)
