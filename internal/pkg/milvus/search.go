package milvus

import (
	"context"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"go.uber.org/zap"
)

// SearchRequest 单向量 ANN 搜索请求
type SearchRequest struct {
	Collection   string
	VectorField  string
	Vector       []float32
	TopK         int
	Expr         string
	OutputFields []string
	// IDField names the string column holding the external document id.
	IDField string
}

// Hit 单条命中
type Hit struct {
	ID     string
	Score  float32
	Fields map[string]string
}

// SearchOne 对单个向量执行 ANN 搜索
func (c *Client) SearchOne(ctx context.Context, req *SearchRequest) ([]Hit, error) {
	cli := c.GetClient()
	if cli == nil {
		return nil, ErrClientClosed
	}
	if req.Collection == "" {
		return nil, ErrInvalidCollectionName
	}
	if len(req.Vector) == 0 {
		return nil, ErrInvalidVectorData
	}
	if req.IDField == "" {
		return nil, ErrInvalidFieldName
	}

	outputs := append([]string{req.IDField}, req.OutputFields...)
	opt := milvusclient.NewSearchOption(req.Collection, req.TopK, []entity.Vector{entity.FloatVector(req.Vector)}).
		WithOutputFields(outputs...)
	if req.VectorField != "" {
		opt = opt.WithANNSField(req.VectorField)
	}
	if req.Expr != "" {
		opt = opt.WithFilter(req.Expr)
	}

	var resultSets []milvusclient.ResultSet
	err := c.execWithRetry(ctx, "Search", func(ctx context.Context) error {
		var err error
		resultSets, err = cli.Search(ctx, opt)
		return err
	})
	if err != nil {
		c.logger.Debug("search failed",
			zap.String("collection", req.Collection),
			zap.Error(err))
		return nil, WrapError("Search", err, req.Collection, req.VectorField)
	}

	var hits []Hit
	for _, rs := range resultSets {
		ids := rs.GetColumn(req.IDField)
		if ids == nil {
			continue
		}
		for i := 0; i < rs.ResultCount; i++ {
			id, err := ids.GetAsString(i)
			if err != nil || id == "" {
				continue
			}
			hit := Hit{ID: id, Score: rs.Scores[i]}
			if len(req.OutputFields) > 0 {
				hit.Fields = make(map[string]string, len(req.OutputFields))
				for _, name := range req.OutputFields {
					if col := rs.GetColumn(name); col != nil {
						if v, err := col.GetAsString(i); err == nil {
							hit.Fields[name] = v
						}
					}
				}
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}
