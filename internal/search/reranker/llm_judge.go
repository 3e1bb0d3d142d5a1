package reranker

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"go.uber.org/zap"
)

// LLMJudgeConfig thorough 档位参数
type LLMJudgeConfig struct {
	// Weight LLM 分数所占比例，其余为合并分
	Weight float64 `mapstructure:"weight"`
	// SkipBelow 收窄后候选少于该值时不调用 LLM
	SkipBelow         int `mapstructure:"skip_below"`
	MaxDocumentTokens int `mapstructure:"max_document_tokens"`
}

// DefaultLLMJudgeConfig 默认配置
func DefaultLLMJudgeConfig() *LLMJudgeConfig {
	return &LLMJudgeConfig{
		Weight:            0.7,
		SkipBelow:         3,
		MaxDocumentTokens: DefaultMaxDocumentTokens,
	}
}

// Validate 验证配置
func (c *LLMJudgeConfig) Validate() error {
	if c.Weight <= 0.5 || c.Weight > 1 {
		return fmt.Errorf("judge weight must be in (0.5, 1], got %v", c.Weight)
	}
	if c.SkipBelow < 0 {
		return fmt.Errorf("skip_below must not be negative")
	}
	return nil
}

// LLMJudge 先经 cross-encoder 收窄，再由 LLM 按评分标准重新打分，并与合并分线性混合
type LLMJudge struct {
	base      Reranker
	judge     Judge
	truncator *Truncator
	cfg       LLMJudgeConfig
	logger    *logger.Logger
}

// NewLLMJudge 创建 LLM judge 重排器
func NewLLMJudge(base Reranker, judge Judge, cfg *LLMJudgeConfig, lgr *logger.Logger) (*LLMJudge, error) {
	if base == nil || judge == nil {
		return nil, fmt.Errorf("llm judge requires a base reranker and a judge")
	}
	if cfg == nil {
		cfg = DefaultLLMJudgeConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lgr == nil {
		lgr = logger.L()
	}
	return &LLMJudge{
		base:      base,
		judge:     judge,
		truncator: NewTruncator("", cfg.MaxDocumentTokens),
		cfg:       *cfg,
		logger:    lgr.Named("llm_judge"),
	}, nil
}

// Rerank cross-encoder 失败时整体失败；LLM 失败时返回 cross-encoder 的结果
func (r *LLMJudge) Rerank(ctx context.Context, query string, candidates []*types.Candidate, topK int) ([]*types.Candidate, error) {
	narrowed, err := r.base.Rerank(ctx, query, candidates, topK)
	if err != nil {
		return nil, err
	}
	if len(narrowed) < r.cfg.SkipBelow {
		r.logger.Debug("skip llm judge for small set", zap.Int("count", len(narrowed)))
		return narrowed, nil
	}

	documents := make([]string, len(narrowed))
	for i, c := range narrowed {
		documents[i] = r.truncator.Truncate(documentText(c))
	}

	start := time.Now()
	scores, err := r.judge.Score(ctx, query, documents)
	if err != nil {
		r.logger.Warn("llm judge failed, keeping cross-encoder order",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return narrowed, nil
	}

	for i, c := range narrowed {
		llm, ok := scores[i]
		if !ok {
			// 漏评的文档用 cross-encoder 分数代替
			if c.RerankScore == nil {
				continue
			}
			llm = *c.RerankScore
		}
		c.SetRerankScore(r.cfg.Weight*llm + (1-r.cfg.Weight)*c.MergedScore)
	}
	types.SortByFinalScore(narrowed)

	r.logger.Debug("llm judge blended scores",
		zap.Int("count", len(narrowed)),
		zap.Int("scored", len(scores)),
		zap.Duration("duration", time.Since(start)))
	return narrowed, nil
}
