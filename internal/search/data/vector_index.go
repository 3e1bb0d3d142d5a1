package data

import (
	"context"
	"strconv"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/pkg/milvus"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"go.uber.org/zap"
)

// Milvus collection 字段
const (
	FieldDocumentID = "document_id"
	FieldSource     = "source"
	FieldOccurredAt = "occurred_at"
	FieldEmbedding  = "embedding"
)

type annSearcher interface {
	SearchOne(ctx context.Context, req *milvus.SearchRequest) ([]milvus.Hit, error)
}

// MilvusVectorIndex 每个工作区一个 collection，使用 COSINE 度量
type MilvusVectorIndex struct {
	searcher annSearcher
	prefix   string
	logger   *logger.Logger
}

// NewMilvusVectorIndex 创建向量索引
func NewMilvusVectorIndex(cli *milvus.Client, lgr *logger.Logger) *MilvusVectorIndex {
	return newVectorIndex(cli, cli.GetConfig().CollectionPrefix, lgr)
}

func newVectorIndex(searcher annSearcher, prefix string, lgr *logger.Logger) *MilvusVectorIndex {
	if lgr == nil {
		lgr = logger.L()
	}
	return &MilvusVectorIndex{searcher: searcher, prefix: prefix, logger: lgr}
}

// Query 在 namespace 对应的 collection 上做 ANN 搜索。collection 不存在视为无数据
func (v *MilvusVectorIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, filters types.Filters) ([]types.VectorHit, error) {
	if len(vector) == 0 {
		return nil, milvus.ErrInvalidVectorData
	}
	collection := milvus.CollectionName(v.prefix, namespace)

	hits, err := v.searcher.SearchOne(ctx, &milvus.SearchRequest{
		Collection:   collection,
		VectorField:  FieldEmbedding,
		Vector:       vector,
		TopK:         topK,
		Expr:         filterExpr(filters),
		IDField:      FieldDocumentID,
		OutputFields: []string{FieldSource, FieldOccurredAt},
	})
	if err != nil {
		if milvus.IsNotFound(err) {
			v.logger.Debug("vector collection missing", zap.String("collection", collection))
			return nil, types.ErrNoData
		}
		return nil, err
	}

	out := make([]types.VectorHit, 0, len(hits))
	for _, h := range hits {
		score := float64(h.Score)
		if score < 0 {
			score = 0
		}
		out = append(out, types.VectorHit{DocumentID: h.ID, Score: score, Metadata: h.Fields})
	}
	return out, nil
}

// filterExpr 把过滤条件翻译成 Milvus 布尔表达式，时间字段存 unix 秒
func filterExpr(f types.Filters) string {
	f = f.Normalized()
	var sources []interface{}
	for _, s := range f.SourceTypes {
		sources = append(sources, s)
	}
	var after, before string
	if f.After != nil {
		after = milvus.BuildExprCompare(FieldOccurredAt, ">=", strconv.FormatInt(f.After.Unix(), 10))
	}
	if f.Before != nil {
		before = milvus.BuildExprCompare(FieldOccurredAt, "<=", strconv.FormatInt(f.Before.Unix(), 10))
	}
	return milvus.BuildExprAnd(milvus.BuildExprIn(FieldSource, sources), after, before)
}
