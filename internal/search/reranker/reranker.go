package reranker

import (
	"context"

	"github.com/lk2023060901/activity-search/internal/search/types"
)

// ErrUnknownMode 未知档位，配置错误
var ErrUnknownMode = types.ErrUnknownMode

// Reranker 重排序接口。实现不得修改入参候选，返回带 RerankScore 的副本
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []*types.Candidate, topK int) ([]*types.Candidate, error)
}

// Passthrough 直通重排序器（fast 档位），保持原顺序与分数
type Passthrough struct{}

// NewPassthrough 创建直通重排序器
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Rerank 直接返回原结果的副本
func (Passthrough) Rerank(_ context.Context, _ string, candidates []*types.Candidate, _ int) ([]*types.Candidate, error) {
	return types.CloneAll(candidates), nil
}
