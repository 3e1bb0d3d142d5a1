package retrieval

import (
	"context"
	"errors"
	"sort"

	"github.com/lk2023060901/activity-search/internal/search/types"
)

var (
	// ErrSkipped 路径正常跳过（无可抽取键、无聚类、无成员画像）
	ErrSkipped = errors.New("retrieval path skipped")
	// ErrNoEmbedding 查询向量不可用，依赖向量的路径降级为空
	ErrNoEmbedding = errors.New("query embedding unavailable")
)

// Request 单次检索的路径输入
type Request struct {
	WorkspaceID string
	Text        string
	Filters     types.Filters
	TopK        int
	// Embedding 仅 Stage 2 路径使用，embedding 失败时为 nil
	Embedding *types.EmbeddingVector
}

// Path 一种检索策略
type Path interface {
	Name() types.PathName
	NeedsEmbedding() bool
	// Search 返回该路径的候选；ErrSkipped 表示正常跳过
	Search(ctx context.Context, req *Request) ([]*types.Candidate, error)
}

// collector dedups hits inside a single path, keeping the max score per
// document, and returns at most limit candidates by score.
type collector struct {
	path  types.PathName
	limit int
	order []*types.Candidate
	byID  map[string]*types.Candidate
}

func newCollector(path types.PathName, limit int) *collector {
	return &collector{path: path, limit: limit, byID: make(map[string]*types.Candidate)}
}

func (c *collector) add(documentID string, score float64) {
	if documentID == "" {
		return
	}
	if cand, ok := c.byID[documentID]; ok {
		cand.Record(c.path, score)
		return
	}
	cand := types.NewCandidate(documentID, c.path, score)
	c.byID[documentID] = cand
	c.order = append(c.order, cand)
}

func (c *collector) candidates() []*types.Candidate {
	sort.SliceStable(c.order, func(i, j int) bool {
		si, sj := c.order[i].PathScores[c.path], c.order[j].PathScores[c.path]
		if si != sj {
			return si > sj
		}
		return c.order[i].DocumentID < c.order[j].DocumentID
	})
	if c.limit > 0 && len(c.order) > c.limit {
		c.order = c.order[:c.limit]
	}
	return c.order
}
