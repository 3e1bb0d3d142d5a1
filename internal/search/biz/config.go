package biz

import (
	"fmt"
	"time"

	"github.com/lk2023060901/activity-search/internal/search/hybrid"
	"github.com/lk2023060901/activity-search/internal/search/types"
)

// Budget 单个档位的时间预算
type Budget struct {
	Total     time.Duration `mapstructure:"total"`
	Embedding time.Duration `mapstructure:"embedding"`
	Path      time.Duration `mapstructure:"path"`
	// Rerank 为 0 表示不单独限时（fast 档不重排）
	Rerank time.Duration `mapstructure:"rerank"`
}

// Budgets 三个档位的预算，fast 最紧，thorough 最宽
type Budgets struct {
	Fast     Budget `mapstructure:"fast"`
	Balanced Budget `mapstructure:"balanced"`
	Thorough Budget `mapstructure:"thorough"`
}

// For 返回档位对应的预算
func (b Budgets) For(mode types.Mode) Budget {
	switch mode {
	case types.ModeBalanced:
		return b.Balanced
	case types.ModeThorough:
		return b.Thorough
	default:
		return b.Fast
	}
}

// DefaultBudgets 默认预算
func DefaultBudgets() Budgets {
	return Budgets{
		Fast: Budget{
			Total:     300 * time.Millisecond,
			Embedding: 200 * time.Millisecond,
			Path:      150 * time.Millisecond,
		},
		Balanced: Budget{
			Total:     1500 * time.Millisecond,
			Embedding: 400 * time.Millisecond,
			Path:      300 * time.Millisecond,
			Rerank:    800 * time.Millisecond,
		},
		Thorough: Budget{
			Total:     4 * time.Second,
			Embedding: 800 * time.Millisecond,
			Path:      500 * time.Millisecond,
			Rerank:    3 * time.Second,
		},
	}
}

// Config 检索流水线配置
type Config struct {
	DefaultMode    string         `mapstructure:"default_mode"`
	DefaultLimit   int            `mapstructure:"default_limit"`
	MaxLimit       int            `mapstructure:"max_limit"`
	MaxQueryLength int            `mapstructure:"max_query_length"`
	PathTopK       int            `mapstructure:"path_top_k"`
	RerankWindow   int            `mapstructure:"rerank_window"`
	EmbeddingModel types.ModelRef `mapstructure:"embedding_model"`
	Budgets        Budgets        `mapstructure:"budgets"`
	Merge          hybrid.Policy  `mapstructure:"merge"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		DefaultMode:    string(types.ModeBalanced),
		DefaultLimit:   10,
		MaxLimit:       100,
		MaxQueryLength: 1000,
		PathTopK:       50,
		RerankWindow:   50,
		EmbeddingModel: types.ModelRef{Provider: "openai", Name: "text-embedding-3-small", Dimension: 1536},
		Budgets:        DefaultBudgets(),
		Merge:          hybrid.DefaultPolicy(),
	}
}

// SetDefaults 填充零值
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.DefaultMode == "" {
		c.DefaultMode = d.DefaultMode
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.MaxQueryLength <= 0 {
		c.MaxQueryLength = d.MaxQueryLength
	}
	if c.PathTopK <= 0 {
		c.PathTopK = d.PathTopK
	}
	if c.RerankWindow <= 0 {
		c.RerankWindow = d.RerankWindow
	}
	if c.EmbeddingModel.Name == "" {
		c.EmbeddingModel = d.EmbeddingModel
	}
	setBudgetDefaults(&c.Budgets.Fast, d.Budgets.Fast)
	setBudgetDefaults(&c.Budgets.Balanced, d.Budgets.Balanced)
	setBudgetDefaults(&c.Budgets.Thorough, d.Budgets.Thorough)
	c.Merge.SetDefaults()
}

func setBudgetDefaults(b *Budget, d Budget) {
	if b.Total <= 0 {
		b.Total = d.Total
	}
	if b.Embedding <= 0 {
		b.Embedding = d.Embedding
	}
	if b.Path <= 0 {
		b.Path = d.Path
	}
	if b.Rerank <= 0 {
		b.Rerank = d.Rerank
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if _, err := types.ParseMode(c.DefaultMode); err != nil {
		return fmt.Errorf("invalid default_mode: %w", err)
	}
	if c.DefaultLimit <= 0 || c.MaxLimit <= 0 || c.DefaultLimit > c.MaxLimit {
		return fmt.Errorf("default_limit must be in (0, max_limit]")
	}
	if c.PathTopK <= 0 || c.RerankWindow <= 0 {
		return fmt.Errorf("path_top_k and rerank_window must be positive")
	}
	if c.EmbeddingModel.Name == "" || c.EmbeddingModel.Dimension < 0 {
		return fmt.Errorf("invalid embedding_model")
	}
	for _, mode := range types.AllModes {
		b := c.Budgets.For(mode)
		if b.Total <= 0 || b.Embedding <= 0 || b.Path <= 0 || b.Rerank < 0 {
			return fmt.Errorf("budget for mode %s must be positive", mode)
		}
	}
	if err := c.Merge.Validate(); err != nil {
		return fmt.Errorf("invalid merge policy: %w", err)
	}
	return nil
}
