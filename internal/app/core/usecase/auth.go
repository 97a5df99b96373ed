package usecase

import (
	"strings"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
)

// Gate 特權操作的白名單檢查，啟動時決定，執行期間不可修改
type Gate struct {
	allowed map[string]struct{}
}

// NewGate 以身分清單建立白名單
func NewGate(identities []string) *Gate {
	allowed := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}
	return &Gate{allowed: allowed}
}

// IsAllowed 以文字形式比對
func (g *Gate) IsAllowed(caller domain.Identity) bool {
	if g == nil {
		return false
	}
	_, ok := g.allowed[caller.String()]
	return ok
}
