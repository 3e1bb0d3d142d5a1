package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ProviderConfig 单个 embedding 服务的连接配置
type ProviderConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	RetryAttempts uint          `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	// MaxIdleConns 长连接池大小
	MaxIdleConns int `mapstructure:"max_idle_conns"`
}

// SetDefaults 填充默认值
func (c *ProviderConfig) SetDefaults() {
	// 默认只请求一次，重试需显式配置
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 25 * time.Millisecond
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 32
	}
}

// Validate 验证配置
func (c *ProviderConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	return nil
}

// OpenAIProvider OpenAI 兼容的 embedding 客户端，一个 ModelRef 一个实例
type OpenAIProvider struct {
	client *openai.Client
	model  types.ModelRef
	cfg    ProviderConfig
	logger *logger.Logger
}

// NewOpenAIProvider 创建 OpenAI 兼容 provider
func NewOpenAIProvider(cfg ProviderConfig, model types.ModelRef, lgr *logger.Logger) (*OpenAIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid embedding config: %w", err)
	}
	if model.Name == "" {
		model.Name = string(openai.SmallEmbedding3)
	}
	cfg.SetDefaults()

	if lgr == nil {
		lgr = logger.L()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConns,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	lgr.Info("embedding provider created",
		zap.String("provider", model.Provider),
		zap.String("model", model.Name),
		zap.Int("dimension", model.Dimension))

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		cfg:    cfg,
		logger: lgr.Named("embedding"),
	}, nil
}

// Model 返回绑定模型
func (p *OpenAIProvider) Model() types.ModelRef {
	return p.model
}

// Embed 批量生成向量
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      openai.EmbeddingModel(p.model.Name),
		Dimensions: p.model.Dimension,
	}

	var out [][]float32
	start := time.Now()
	err := retry.Do(
		func() error {
			resp, err := p.client.CreateEmbeddings(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to create embeddings: %w", err)
			}
			if len(resp.Data) != len(texts) {
				return retry.Unrecoverable(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
			}
			vectors := make([][]float32, len(texts))
			for _, d := range resp.Data {
				if d.Index < 0 || d.Index >= len(texts) {
					return retry.Unrecoverable(fmt.Errorf("embedding index %d out of range", d.Index))
				}
				vectors[d.Index] = d.Embedding
			}
			out = vectors
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(p.cfg.RetryAttempts),
		retry.Delay(p.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("retrying embedding request",
				zap.Uint("attempt", n+1),
				zap.Uint("max_attempts", p.cfg.RetryAttempts),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}

	if p.model.Dimension > 0 {
		for _, v := range out {
			if len(v) != p.model.Dimension {
				return nil, fmt.Errorf("%w: model %s want %d got %d",
					ErrDimensionMismatch, p.model.Name, p.model.Dimension, len(v))
			}
		}
	}

	p.logger.Debug("embeddings created",
		zap.Int("count", len(out)),
		zap.Duration("duration", time.Since(start)))
	return out, nil
}

// isTransient 只对限流、5xx 和网络错误重试
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}
