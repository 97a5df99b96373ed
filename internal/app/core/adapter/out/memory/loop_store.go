package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/internal/app/core/usecase"
)

// ErrEngineStopped 核心迴圈已停止
var ErrEngineStopped = errors.New("state engine stopped")

// stateRequest 包裝要在核心迴圈內執行的函式，讓呼叫端可以等待結果
type stateRequest struct {
	fn     func(st *domain.State, pending *domain.Pending) error
	Result chan error
}

// LoopStore 單一 goroutine 擁有狀態，所有讀寫都排進輸送帶依序執行
// 不需要任何鎖
type LoopStore struct {
	state   *domain.State
	pending *domain.Pending
	// 輸送帶
	requests chan *stateRequest
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	done        chan struct{}
	startOnce   sync.Once
}

// NewLoopStore 建立 LoopStore，需要呼叫 Start 才會開始處理
//
// 參數:
//
//	buffer: 輸送帶容量
func NewLoopStore(buffer int) *LoopStore {
	if buffer <= 0 {
		buffer = 1000
	}
	return &LoopStore{
		state:    domain.NewState(),
		pending:  domain.NewPending(),
		requests: make(chan *stateRequest, buffer),
		requestPool: sync.Pool{
			New: func() interface{} {
				return &stateRequest{
					Result: make(chan error, 1),
				}
			},
		},
		done: make(chan struct{}),
	}
}

// Start 啟動核心迴圈 (非同步)，ctx 取消後處理完剩下的請求再結束
func (l *LoopStore) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		go l.run(ctx)
	})
}

// Done 核心迴圈結束後關閉
func (l *LoopStore) Done() <-chan struct{} {
	return l.done
}

func (l *LoopStore) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的請求處理完
			l.drain()
			return
		case req := <-l.requests:
			req.Result <- req.fn(l.state, l.pending)
		}
	}
}

func (l *LoopStore) drain() {
	for {
		select {
		case req := <-l.requests:
			req.Result <- req.fn(l.state, l.pending)
		default:
			return
		}
	}
}

// post 放入輸送帶並等待結果
// PostRequest(等待) -> Channel -> Run Loop -> fn -> Result Channel -> PostRequest(收到結果)
func (l *LoopStore) post(ctx context.Context, fn func(st *domain.State, pending *domain.Pending) error) error {
	req := l.requestPool.Get().(*stateRequest)
	req.fn = fn
	select {
	case <-req.Result:
	default:
	}

	select {
	case <-l.done:
		return ErrEngineStopped
	default:
	}

	select {
	case l.requests <- req:
	case <-l.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// 已進入輸送帶，不能因為 ctx 取消就離開，否則 fn 執行結果會遺失
	select {
	case err := <-req.Result:
		req.fn = nil
		l.requestPool.Put(req)
		return err
	case <-l.done:
		// 迴圈結束前可能已經在 drain 處理過
		select {
		case err := <-req.Result:
			return err
		default:
			return ErrEngineStopped
		}
	}
}

// View 唯讀存取
func (l *LoopStore) View(ctx context.Context, fn func(st *domain.State)) error {
	return l.post(ctx, func(st *domain.State, _ *domain.Pending) error {
		fn(st)
		return nil
	})
}

// Update 讀寫存取
func (l *LoopStore) Update(ctx context.Context, fn func(st *domain.State, pending *domain.Pending) error) error {
	return l.post(ctx, fn)
}

// Snapshot 回傳深拷貝
func (l *LoopStore) Snapshot(ctx context.Context) (*domain.State, error) {
	var out *domain.State
	err := l.post(ctx, func(st *domain.State, _ *domain.Pending) error {
		out = st.Clone()
		return nil
	})
	return out, err
}

// SnapshotStopped 核心迴圈結束後直接讀取狀態 (關機存檔用)
func (l *LoopStore) SnapshotStopped() (*domain.State, error) {
	select {
	case <-l.done:
		return l.state.Clone(), nil
	default:
		return nil, errors.New("state engine still running")
	}
}

// Replace 以 st 的複本取代目前狀態
func (l *LoopStore) Replace(ctx context.Context, st *domain.State) error {
	cp := st.Clone()
	return l.post(ctx, func(_ *domain.State, _ *domain.Pending) error {
		l.state = cp
		l.pending = domain.NewPending()
		return nil
	})
}

var _ usecase.StateStore = (*LoopStore)(nil)
