package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/lk2023060901/activity-search/internal/search/types"
)

// EntityPath 基于查询文本中抽取出的实体键做精确查找，不依赖 embedding
type EntityPath struct {
	store     types.EntityStore
	extractor types.EntityExtractor
}

// NewEntityPath 创建实体路径
func NewEntityPath(store types.EntityStore, extractor types.EntityExtractor) *EntityPath {
	return &EntityPath{store: store, extractor: extractor}
}

func (p *EntityPath) Name() types.PathName { return types.PathEntity }

func (p *EntityPath) NeedsEmbedding() bool { return false }

// Search 返回实体关联的文档，按实体权重降序
func (p *EntityPath) Search(ctx context.Context, req *Request) ([]*types.Candidate, error) {
	keys := p.extractor.Extract(req.Text)
	if len(keys) == 0 {
		return nil, ErrSkipped
	}

	hits, err := p.store.LookupByKeys(ctx, req.WorkspaceID, keys, req.Filters, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup entities: %w", err)
	}

	// 返回的切片属于 store，排序前先复制
	hits = append([]types.EntityHit(nil), hits...)
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Weight != hits[j].Weight {
			return hits[i].Weight > hits[j].Weight
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})

	c := newCollector(types.PathEntity, req.TopK)
	for _, h := range hits {
		c.add(h.DocumentID, h.Weight)
	}
	return c.candidates(), nil
}
