package types

import (
	"context"
	"errors"
	"time"
)

// ErrNoData is returned by a store when the workspace has nothing of that kind
// (no clusters computed, no actor profiles, no vector collection). Paths treat
// it as a normal skip.
var ErrNoData = errors.New("workspace has no data for this path")

// VectorHit 向量索引命中
type VectorHit struct {
	DocumentID string
	Score      float64
	Metadata   map[string]string
}

// VectorIndex 租户向量索引
type VectorIndex interface {
	Query(ctx context.Context, namespace string, vector []float32, topK int, filters Filters) ([]VectorHit, error)
}

// EntityHit 实体关联文档
type EntityHit struct {
	DocumentID string
	EntityKey  string
	Weight     float64
}

// EntityStore 结构化实体存储
type EntityStore interface {
	LookupByKeys(ctx context.Context, workspaceID string, keys []string, filters Filters, limit int) ([]EntityHit, error)
}

// ClusterHit 最近的主题聚类
type ClusterHit struct {
	ClusterID                 string
	Similarity                float64
	RepresentativeDocumentIDs []string
}

// ClusterStore 预计算主题聚类。返回的代表文档已按 filters 过滤
type ClusterStore interface {
	NearestClusters(ctx context.Context, workspaceID string, vector []float32, n int, filters Filters) ([]ClusterHit, error)
}

// ActorMatch 查询命中的成员
type ActorMatch struct {
	ActorID     string
	Handle      string
	Confidence  float64
	DocumentIDs []string
}

// ActorStore 成员画像
type ActorStore interface {
	MatchActors(ctx context.Context, workspaceID, queryText string, filters Filters) ([]ActorMatch, error)
}

// Document 富化用的文档元数据
type Document struct {
	ID         string
	Title      string
	Body       string
	Type       string
	Source     string
	OccurredAt time.Time
}

// EnrichmentStore 只对最终页调用一次
type EnrichmentStore interface {
	FetchByIDs(ctx context.Context, workspaceID string, ids []string) (map[string]*Document, error)
}

// TextStore 为重排窗口提供正文
type TextStore interface {
	FetchTexts(ctx context.Context, workspaceID string, ids []string) (map[string]string, error)
}

// EntityExtractor turns raw query text into entity lookup keys.
type EntityExtractor interface {
	Extract(text string) []string
}
