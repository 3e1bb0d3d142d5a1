package retrieval

import (
	"context"
	"fmt"

	"github.com/lk2023060901/activity-search/internal/search/types"
)

// DefaultClusterCount 默认取最近的聚类数
const DefaultClusterCount = 3

// ClusterPath 最近主题聚类的代表文档，提供语义邻域上下文
type ClusterPath struct {
	store    types.ClusterStore
	clusters int
}

// NewClusterPath 创建聚类路径
func NewClusterPath(store types.ClusterStore, clusters int) *ClusterPath {
	if clusters <= 0 {
		clusters = DefaultClusterCount
	}
	return &ClusterPath{store: store, clusters: clusters}
}

func (p *ClusterPath) Name() types.PathName { return types.PathCluster }

func (p *ClusterPath) NeedsEmbedding() bool { return true }

// Search 文档分数取所属聚类的相似度，多个聚类包含同一文档时取最大
func (p *ClusterPath) Search(ctx context.Context, req *Request) ([]*types.Candidate, error) {
	hits, err := p.store.NearestClusters(ctx, req.WorkspaceID, req.Embedding.Values, p.clusters, req.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearest clusters: %w", err)
	}
	if len(hits) == 0 {
		return nil, ErrSkipped
	}

	c := newCollector(types.PathCluster, req.TopK)
	for _, h := range hits {
		for _, id := range h.RepresentativeDocumentIDs {
			c.add(id, h.Similarity)
		}
	}
	return c.candidates(), nil
}
