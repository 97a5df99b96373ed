package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	pkggrpc "github.com/JoeShih716/go-mem-custody/pkg/grpc"
)

// DefaultFee 模擬帳本要求的固定手續費
const DefaultFee uint64 = 10_000

// Simulator 記憶體內的帳本，供開發與測試使用
// 區塊索引從 0 開始，每個 Mint / Transfer 產生一個新區塊
type Simulator struct {
	mu       sync.Mutex
	fee      uint64
	now      func() time.Time
	accounts map[domain.AccountIdentifier]uint64
	blocks   []domain.Block
}

// NewSimulator 建立 Simulator，fee 為 0 時使用 DefaultFee
func NewSimulator(fee uint64) *Simulator {
	if fee == 0 {
		fee = DefaultFee
	}
	return &Simulator{
		fee:      fee,
		now:      time.Now,
		accounts: make(map[domain.AccountIdentifier]uint64),
	}
}

// Mint 憑空發行 amount 到 to，回傳區塊索引
func (s *Simulator) Mint(to domain.AccountIdentifier, amount uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[to] += amount
	return s.appendLocked(domain.Transaction{
		Operation: &domain.Operation{
			Kind:   domain.OperationMint,
			To:     to,
			Amount: amount,
		},
	})
}

// TransferFrom 由 owner 的帳戶 (預設或指定子帳戶) 轉出
func (s *Simulator) TransferFrom(owner domain.Identity, req domain.LedgerTransferRequest) *domain.LedgerTransferResponse {
	sub := domain.DefaultSubaccount
	if req.FromSubaccount != nil {
		sub = *req.FromSubaccount
	}
	from := domain.NewAccountIdentifier(owner, sub)

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Fee != s.fee {
		return reject(domain.LedgerErrBadFee, "expected fee %d", s.fee)
	}
	balance := s.accounts[from]
	if balance < req.Amount || balance-req.Amount < req.Fee {
		return reject(domain.LedgerErrInsufficientFunds, "balance %d", balance)
	}

	s.accounts[from] = balance - req.Amount - req.Fee
	s.accounts[req.To] += req.Amount
	index := s.appendLocked(domain.Transaction{
		Memo: req.Memo,
		Operation: &domain.Operation{
			Kind:   domain.OperationTransfer,
			From:   from,
			To:     req.To,
			Amount: req.Amount,
			Fee:    req.Fee,
		},
		CreatedAtTime: req.CreatedAtTime,
	})
	return &domain.LedgerTransferResponse{BlockIndex: &index}
}

// AppendBlock 直接附加任意區塊 (測試用)，回傳區塊索引
func (s *Simulator) AppendBlock(tx domain.Transaction) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(tx)
}

// BalanceOf 帳戶餘額
func (s *Simulator) BalanceOf(account domain.AccountIdentifier) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[account]
}

// ChainLength 目前的區塊數
func (s *Simulator) ChainLength() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.blocks))
}

// QueryBlocks 實作 LedgerServer，回傳 [Start, Start+Length) 內存在的區塊
func (s *Simulator) QueryBlocks(ctx context.Context, req *domain.QueryBlocksRequest) (*domain.QueryBlocksResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &domain.QueryBlocksResponse{
		ChainLength:     uint64(len(s.blocks)),
		FirstBlockIndex: req.Start,
		Blocks:          []domain.Block{},
	}
	for i := req.Start; i < uint64(len(s.blocks)) && i-req.Start < req.Length; i++ {
		resp.Blocks = append(resp.Blocks, s.blocks[i])
	}
	return resp, nil
}

// Transfer 實作 LedgerServer，付款人為 metadata 中的呼叫者
func (s *Simulator) Transfer(ctx context.Context, req *domain.LedgerTransferRequest) (*domain.LedgerTransferResponse, error) {
	caller, ok := pkggrpc.CallerFromIncoming(ctx)
	if !ok {
		caller = string(domain.AnonymousIdentity)
	}
	return s.TransferFrom(domain.Identity(caller), *req), nil
}

// Gateway 以 owner 身分直接呼叫 Simulator 的 usecase.LedgerGateway (不經網路)
func (s *Simulator) Gateway(owner domain.Identity) *EmbeddedLedger {
	return &EmbeddedLedger{sim: s, owner: owner}
}

func (s *Simulator) appendLocked(tx domain.Transaction) uint64 {
	index := uint64(len(s.blocks))
	var parent string
	if index > 0 {
		parent = blockHash(index - 1)
	}
	s.blocks = append(s.blocks, domain.Block{
		ParentHash:  parent,
		Transaction: tx,
		Timestamp:   uint64(s.now().UnixNano()),
	})
	return index
}

// EmbeddedLedger 行程內的 LedgerGateway
type EmbeddedLedger struct {
	sim   *Simulator
	owner domain.Identity
}

// QueryBlocks 查詢區塊
func (e *EmbeddedLedger) QueryBlocks(ctx context.Context, req domain.QueryBlocksRequest) (*domain.QueryBlocksResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.sim.QueryBlocks(ctx, &req)
}

// Transfer 以 owner 身分轉帳
func (e *EmbeddedLedger) Transfer(ctx context.Context, req domain.LedgerTransferRequest) (*domain.LedgerTransferResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.sim.TransferFrom(e.owner, req), nil
}
