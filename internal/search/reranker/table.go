package reranker

import (
	"fmt"

	"github.com/lk2023060901/activity-search/internal/search/types"
)

// Table 档位到重排策略的固定映射，启动时构建一次
type Table struct {
	fast     Reranker
	balanced Reranker
	thorough Reranker
}

// NewTable 三个策略都必须提供
func NewTable(fast, balanced, thorough Reranker) (*Table, error) {
	if fast == nil || balanced == nil || thorough == nil {
		return nil, fmt.Errorf("reranker table requires all of fast, balanced and thorough")
	}
	return &Table{fast: fast, balanced: balanced, thorough: thorough}, nil
}

// For 返回档位对应的策略，未知档位返回 ErrUnknownMode
func (t *Table) For(mode types.Mode) (Reranker, error) {
	switch mode {
	case types.ModeFast:
		return t.fast, nil
	case types.ModeBalanced:
		return t.balanced, nil
	case types.ModeThorough:
		return t.thorough, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
