package conf

import (
	"fmt"
	"strings"

	"github.com/lk2023060901/activity-search/internal/pkg/database"
	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/pkg/milvus"
	"github.com/lk2023060901/activity-search/internal/pkg/redis"
	"github.com/lk2023060901/activity-search/internal/pkg/workerpool"
	"github.com/lk2023060901/activity-search/internal/search/biz"
	"github.com/lk2023060901/activity-search/internal/search/cache"
	"github.com/lk2023060901/activity-search/internal/search/embedding"
	"github.com/lk2023060901/activity-search/internal/search/reranker"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 SEARCH_SERVER_PORT
const EnvPrefix = "SEARCH"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  database.Config `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Milvus    milvus.Config   `mapstructure:"milvus"`
	Log       logger.Config   `mapstructure:"log"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Rerank    RerankConfig    `mapstructure:"rerank"`
	Judge     JudgeConfig     `mapstructure:"judge"`
	Search    SearchConfig    `mapstructure:"search"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RedisConfig 未启用时两层缓存退回进程内 LRU
type RedisConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	redis.Config `mapstructure:",squash"`
}

// EmbeddingConfig providers 以 provider 名称为 key（openai、siliconflow 等 OpenAI 兼容服务）
type EmbeddingConfig struct {
	Providers map[string]embedding.ProviderConfig `mapstructure:"providers"`
}

type RerankConfig struct {
	reranker.ProviderConfig `mapstructure:",squash"`
	CrossEncoder            reranker.CrossEncoderConfig `mapstructure:"cross_encoder"`
}

type JudgeConfig struct {
	reranker.JudgeConfig `mapstructure:",squash"`
	Blend                reranker.LLMJudgeConfig `mapstructure:"blend"`
}

// SearchConfig 检索流水线配置
type SearchConfig struct {
	biz.Config `mapstructure:",squash"`

	Cache                     cache.Config      `mapstructure:"cache"`
	Pool                      workerpool.Config `mapstructure:"pool"`
	ClusterCount              int               `mapstructure:"cluster_count"`
	RepresentativesPerCluster int               `mapstructure:"representatives_per_cluster"`
	DocumentsPerActor         int               `mapstructure:"documents_per_actor"`
	SnippetLength             int               `mapstructure:"snippet_length"`
}

// DefaultConfig 默认配置，配置文件中出现的字段覆盖这里的值
func DefaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: *database.DefaultConfig(),
		Redis:    RedisConfig{Config: *redis.DefaultConfig()},
		Milvus:   *milvus.DefaultConfig(),
		Log:      *logger.DefaultConfig(),
		Rerank: RerankConfig{
			ProviderConfig: reranker.ProviderConfig{Provider: reranker.RerankProviderJina},
			CrossEncoder:   *reranker.DefaultCrossEncoderConfig(),
		},
		Judge: JudgeConfig{Blend: *reranker.DefaultLLMJudgeConfig()},
		Search: SearchConfig{
			Config: *biz.DefaultConfig(),
			Cache:  *cache.DefaultConfig(),
			Pool:   *workerpool.DefaultConfig(),
		},
	}
}

// LoadConfig 读取 YAML 配置，环境变量可覆盖（key 中的 . 替换为 _）
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// SetDefaults 填充零值
func (c *Config) SetDefaults() {
	c.Milvus.SetDefaults()
	c.Search.Config.SetDefaults()
	c.Search.Cache.SetDefaults()
	if c.Search.Pool.Workers <= 0 {
		c.Search.Pool.Workers = workerpool.DefaultConfig().Workers
	}
	for name, p := range c.Embedding.Providers {
		p.SetDefaults()
		c.Embedding.Providers[name] = p
	}
}

// Validate 启动时校验，balanced/thorough 档位依赖的凭据缺失直接失败
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.Redis.Enabled {
		if err := c.Redis.Config.Validate(); err != nil {
			return err
		}
	}
	// Milvus 地址为空时向量路径关闭
	if c.Milvus.Address != "" {
		if err := c.Milvus.Validate(); err != nil {
			return err
		}
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Search.Config.Validate(); err != nil {
		return err
	}

	model := c.Search.EmbeddingModel
	p, ok := c.Embedding.Providers[model.Provider]
	if !ok {
		return fmt.Errorf("embedding provider %q is not configured", model.Provider)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("embedding provider %q: %w", model.Provider, err)
	}

	if err := c.Rerank.ProviderConfig.Validate(); err != nil {
		return fmt.Errorf("rerank: %w", err)
	}
	if err := c.Judge.JudgeConfig.Validate(); err != nil {
		return fmt.Errorf("judge: %w", err)
	}
	if err := c.Judge.Blend.Validate(); err != nil {
		return fmt.Errorf("judge blend: %w", err)
	}
	return nil
}

// Addr HTTP 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
