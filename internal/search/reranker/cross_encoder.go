package reranker

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"go.uber.org/zap"
)

// CrossEncoderConfig balanced 档位参数
type CrossEncoderConfig struct {
	MaxDocumentTokens int     `mapstructure:"max_document_tokens"`
	Encoding          string  `mapstructure:"encoding"`
	MinRelevance      float64 `mapstructure:"min_relevance"`
	MinResults        int     `mapstructure:"min_results"`
}

// DefaultCrossEncoderConfig 默认配置
func DefaultCrossEncoderConfig() *CrossEncoderConfig {
	return &CrossEncoderConfig{
		MaxDocumentTokens: DefaultMaxDocumentTokens,
		Encoding:          "cl100k_base",
		MinRelevance:      0.1,
		MinResults:        3,
	}
}

// CrossEncoder 远程 cross-encoder 重排
type CrossEncoder struct {
	provider  Provider
	truncator *Truncator
	cfg       CrossEncoderConfig
	logger    *logger.Logger
}

// NewCrossEncoder 创建 cross-encoder 重排器
func NewCrossEncoder(provider Provider, cfg *CrossEncoderConfig, lgr *logger.Logger) (*CrossEncoder, error) {
	if provider == nil {
		return nil, fmt.Errorf("rerank provider is required")
	}
	if cfg == nil {
		cfg = DefaultCrossEncoderConfig()
	}
	if lgr == nil {
		lgr = logger.L()
	}
	return &CrossEncoder{
		provider:  provider,
		truncator: NewTruncator(cfg.Encoding, cfg.MaxDocumentTokens),
		cfg:       *cfg,
		logger:    lgr.Named("cross_encoder"),
	}, nil
}

// Rerank 只请求 topK 个打分结果；达到阈值的结果不足 MinResults 时放宽阈值补足，不重新请求
func (r *CrossEncoder) Rerank(ctx context.Context, query string, candidates []*types.Candidate, topK int) ([]*types.Candidate, error) {
	if len(candidates) == 0 {
		return []*types.Candidate{}, nil
	}
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = r.truncator.Truncate(documentText(c))
	}

	start := time.Now()
	results, err := r.provider.Rerank(ctx, query, documents, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to rerank with %s: %w", r.provider.Name(), err)
	}

	seen := make(map[int]struct{}, len(results))
	accepted := make([]*types.Candidate, 0, len(results))
	var rejected []*types.Candidate
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(candidates) {
			continue
		}
		if _, dup := seen[res.Index]; dup {
			continue
		}
		seen[res.Index] = struct{}{}

		c := candidates[res.Index].Clone()
		c.SetRerankScore(res.RelevanceScore)
		if res.RelevanceScore >= r.cfg.MinRelevance {
			accepted = append(accepted, c)
		} else {
			rejected = append(rejected, c)
		}
	}
	types.SortByFinalScore(accepted)

	minResults := r.cfg.MinResults
	if minResults > topK {
		minResults = topK
	}
	widened := 0
	if len(accepted) < minResults {
		types.SortByFinalScore(rejected)
		for _, c := range rejected {
			if len(accepted) >= minResults {
				break
			}
			accepted = append(accepted, c)
			widened++
		}
		// 服务返回不足时，按合并分顺序补入未打分的候选，排在已打分结果之后
		for i, c := range candidates {
			if len(accepted) >= minResults {
				break
			}
			if _, ok := seen[i]; ok {
				continue
			}
			cp := c.Clone()
			cp.SetRerankScore(0)
			accepted = append(accepted, cp)
			widened++
		}
	}

	r.logger.Debug("reranked candidates",
		zap.String("provider", string(r.provider.Name())),
		zap.Int("original_count", len(candidates)),
		zap.Int("top_k", topK),
		zap.Int("reranked_count", len(accepted)),
		zap.Int("widened", widened),
		zap.Duration("duration", time.Since(start)))

	return accepted, nil
}

// documentText 正文缺失时退化为文档 ID，保证请求里每个位置都有内容
func documentText(c *types.Candidate) string {
	if c.Text != "" {
		return c.Text
	}
	return c.DocumentID
}
