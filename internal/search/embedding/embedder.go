package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/cache"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"go.uber.org/zap"
)

// ProviderSource resolves the long-lived provider for a model.
type ProviderSource interface {
	Get(model types.ModelRef) (Provider, error)
}

// QueryEmbedder 带缓存的查询向量化
type QueryEmbedder struct {
	providers ProviderSource
	cache     *cache.EmbeddingCache
	logger    *logger.Logger
}

// NewQueryEmbedder 创建 QueryEmbedder，embCache 可为 nil
func NewQueryEmbedder(providers ProviderSource, embCache *cache.EmbeddingCache, lgr *logger.Logger) *QueryEmbedder {
	if lgr == nil {
		lgr = logger.L()
	}
	return &QueryEmbedder{
		providers: providers,
		cache:     embCache,
		logger:    lgr.Named("query_embedder"),
	}
}

// Embed 对查询生成向量。查询先归一化，再查缓存，未命中时调用一次 provider 并异步回写缓存
func (e *QueryEmbedder) Embed(ctx context.Context, query string, model types.ModelRef) (types.EmbeddingVector, error) {
	normalized := cache.NormalizeQuery(query)
	if normalized == "" {
		return types.EmbeddingVector{}, ErrEmptyQuery
	}

	if e.cache != nil {
		if v, ok := e.cache.Get(ctx, normalized, model); ok {
			e.logger.Debug("embedding cache hit", zap.String("model", model.Key()))
			return v, nil
		}
	}

	provider, err := e.providers.Get(model)
	if err != nil {
		return types.EmbeddingVector{}, fmt.Errorf("failed to get embedding provider: %w", err)
	}

	start := time.Now()
	vectors, err := provider.Embed(ctx, []string{normalized})
	if err != nil {
		return types.EmbeddingVector{}, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return types.EmbeddingVector{}, fmt.Errorf("provider returned no embedding")
	}

	v := types.EmbeddingVector{Values: vectors[0], Model: model}
	if !v.Compatible(model) {
		return types.EmbeddingVector{}, fmt.Errorf("%w: want %d got %d",
			ErrDimensionMismatch, model.Dimension, len(v.Values))
	}

	e.logger.Debug("query embedded",
		zap.String("model", model.Key()),
		zap.Duration("duration", time.Since(start)))

	if e.cache != nil {
		e.cache.Put(normalized, v)
	}
	return v, nil
}
