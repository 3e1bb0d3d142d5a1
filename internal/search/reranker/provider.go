package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"go.uber.org/zap"
)

// RerankProvider 重排序提供商
type RerankProvider string

const (
	// RerankProviderJina Jina AI Reranker
	RerankProviderJina RerankProvider = "jina"
	// RerankProviderVoyage Voyage AI Reranker
	RerankProviderVoyage RerankProvider = "voyage"
	// RerankProviderCohere Cohere Reranker
	RerankProviderCohere RerankProvider = "cohere"
	// RerankProviderSiliconFlow SiliconFlow Reranker
	RerankProviderSiliconFlow RerankProvider = "siliconflow"
)

// RerankResult 重排序结果
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Provider 远程 cross-encoder 重排服务
type Provider interface {
	// Rerank 只请求 topN 个结果
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error)
	Name() RerankProvider
}

// ProviderConfig 重排服务配置
type ProviderConfig struct {
	Provider RerankProvider `mapstructure:"provider"`
	APIKey   string         `mapstructure:"api_key"`
	BaseURL  string         `mapstructure:"base_url"`
	Model    string         `mapstructure:"model"`
	// Timeout 兜底超时，正常由请求 context 控制
	Timeout time.Duration `mapstructure:"timeout"`
}

// dialect 各厂商请求/响应字段差异
type dialect struct {
	baseURL     string
	model       string
	topField    string
	resultField string
}

var dialects = map[RerankProvider]dialect{
	RerankProviderJina:        {baseURL: "https://api.jina.ai/v1", model: "jina-reranker-v2-base-multilingual", topField: "top_n", resultField: "results"},
	RerankProviderVoyage:      {baseURL: "https://api.voyageai.com/v1", model: "rerank-1", topField: "top_k", resultField: "data"},
	RerankProviderSiliconFlow: {baseURL: "https://api.siliconflow.cn/v1", model: "BAAI/bge-reranker-v2-m3", topField: "top_n", resultField: "results"},
	RerankProviderCohere:      {baseURL: "https://api.cohere.com/v2", model: "rerank-v3.5", topField: "top_n", resultField: "results"},
}

// Validate 验证配置
func (c *ProviderConfig) Validate() error {
	if _, ok := dialects[c.Provider]; !ok {
		return fmt.Errorf("unsupported rerank provider %q", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	return nil
}

// HTTPProvider JSON over HTTP 的重排客户端，进程内长期复用一个 http.Client
type HTTPProvider struct {
	name    RerankProvider
	apiKey  string
	baseURL string
	model   string
	dialect dialect
	logger  *logger.Logger
	client  *http.Client
}

// NewProvider 创建重排服务客户端
func NewProvider(cfg ProviderConfig, lgr *logger.Logger) (*HTTPProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := dialects[cfg.Provider]
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.baseURL
	}
	if cfg.Model == "" {
		cfg.Model = d.model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if lgr == nil {
		lgr = logger.L()
	}

	return &HTTPProvider{
		name:    cfg.Provider,
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		dialect: d,
		logger:  lgr.Named("rerank_provider"),
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Name 返回提供商名称
func (p *HTTPProvider) Name() RerankProvider {
	return p.name
}

// Rerank 调用远程 /rerank
func (p *HTTPProvider) Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error) {
	if len(documents) == 0 {
		return []RerankResult{}, nil
	}
	if topN <= 0 || topN > len(documents) {
		topN = len(documents)
	}

	reqBody := map[string]interface{}{
		"model":     p.model,
		"query":     query,
		"documents": documents,
	}
	reqBody[p.dialect.topField] = topN
	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/rerank", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank API returned status %d: %s", resp.StatusCode, string(body))
	}

	var respBody map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	raw, ok := respBody[p.dialect.resultField]
	if !ok {
		return nil, fmt.Errorf("rerank response missing %q", p.dialect.resultField)
	}
	var results []RerankResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", p.dialect.resultField, err)
	}

	p.logger.Debug("rerank provider call",
		zap.String("provider", string(p.name)),
		zap.String("model", p.model),
		zap.Int("documents", len(documents)),
		zap.Int("top_n", topN),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))
	return results, nil
}
