package usecase_test

import (
	"context"
	"sync"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
)

const serviceID domain.Identity = "custody-service"

// fakeLedger 可程式化的帳本
// hold 不為 nil 時，每個呼叫會先送出 entered 再等待 hold
type fakeLedger struct {
	mu        sync.Mutex
	blocks    map[uint64]domain.Block
	queryErr  error
	next      uint64
	reject    *domain.LedgerTransferError
	callErr   error
	queries   int
	transfers []domain.LedgerTransferRequest

	hold    chan struct{}
	entered chan struct{}
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		blocks: make(map[uint64]domain.Block),
		next:   1000,
	}
}

func (f *fakeLedger) addTransfer(index uint64, from, to domain.Identity, amount uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[index] = domain.Block{
		Transaction: domain.Transaction{
			Operation: &domain.Operation{
				Kind:   domain.OperationTransfer,
				From:   domain.DefaultAccount(from),
				To:     domain.DefaultAccount(to),
				Amount: amount,
				Fee:    10_000,
			},
		},
	}
}

func (f *fakeLedger) setBlock(index uint64, block domain.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[index] = block
}

func (f *fakeLedger) wait(ctx context.Context) error {
	if f.hold == nil {
		return nil
	}
	f.entered <- struct{}{}
	select {
	case <-f.hold:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeLedger) QueryBlocks(ctx context.Context, req domain.QueryBlocksRequest) (*domain.QueryBlocksResponse, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	resp := &domain.QueryBlocksResponse{FirstBlockIndex: req.Start}
	if block, ok := f.blocks[req.Start]; ok {
		resp.Blocks = []domain.Block{block}
	}
	return resp, nil
}

func (f *fakeLedger) Transfer(ctx context.Context, req domain.LedgerTransferRequest) (*domain.LedgerTransferResponse, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, req)
	if f.callErr != nil {
		return nil, f.callErr
	}
	if f.reject != nil {
		return &domain.LedgerTransferResponse{Error: f.reject}, nil
	}
	idx := f.next
	f.next++
	return &domain.LedgerTransferResponse{BlockIndex: &idx}, nil
}

func (f *fakeLedger) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func (f *fakeLedger) transferRequests() []domain.LedgerTransferRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.LedgerTransferRequest(nil), f.transfers...)
}
