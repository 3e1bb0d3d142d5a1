package retrieval

import (
	"context"
	"fmt"

	"github.com/lk2023060901/activity-search/internal/search/types"
)

// VectorPath 向量近邻检索
type VectorPath struct {
	index types.VectorIndex
}

// NewVectorPath 创建向量路径
func NewVectorPath(index types.VectorIndex) *VectorPath {
	return &VectorPath{index: index}
}

func (p *VectorPath) Name() types.PathName { return types.PathVector }

func (p *VectorPath) NeedsEmbedding() bool { return true }

// Search 一次 ANN 查询，分数直接使用索引返回的相似度
func (p *VectorPath) Search(ctx context.Context, req *Request) ([]*types.Candidate, error) {
	hits, err := p.index.Query(ctx, req.WorkspaceID, req.Embedding.Values, req.TopK, req.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector index: %w", err)
	}

	c := newCollector(types.PathVector, req.TopK)
	for _, h := range hits {
		c.add(h.DocumentID, h.Score)
	}
	return c.candidates(), nil
}
