package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
)

func reject(kind, format string, args ...any) *domain.LedgerTransferResponse {
	return &domain.LedgerTransferResponse{
		Error: &domain.LedgerTransferError{
			Kind:    kind,
			Message: fmt.Sprintf(format, args...),
		},
	}
}

// blockHash 模擬用的區塊雜湊，只依索引決定
func blockHash(index uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], index)
	sum := sha256.Sum256(buf[:])
	return hex.EncodeToString(sum[:])
}
