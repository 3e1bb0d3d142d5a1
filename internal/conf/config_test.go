package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lk2023060901/activity-search/internal/search/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9090
database:
  host: db.internal
  dbname: activity
embedding:
  providers:
    openai:
      api_key: sk-embed
rerank:
  provider: jina
  api_key: jina-key
judge:
  api_key: sk-judge
  model: gpt-4o-mini
search:
  default_mode: fast
  max_limit: 50
  budgets:
    fast:
      total: 250ms
  cache:
    result_ttl: 30s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	// 未出现在文件中的字段保留默认值
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "sk-embed", cfg.Embedding.Providers["openai"].APIKey)
	assert.Equal(t, uint(1), cfg.Embedding.Providers["openai"].RetryAttempts)

	assert.Equal(t, "fast", cfg.Search.DefaultMode)
	assert.Equal(t, 50, cfg.Search.MaxLimit)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Search.Budgets.Fast.Total)
	assert.Equal(t, 200*time.Millisecond, cfg.Search.Budgets.Fast.Embedding)
	assert.Equal(t, 30*time.Second, cfg.Search.Cache.ResultTTL)
	assert.Equal(t, 0.7, cfg.Judge.Blend.Weight)
	assert.Equal(t, "sk-judge", cfg.Judge.APIKey)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SEARCH_SERVER_PORT", "7070")
	t.Setenv("SEARCH_RERANK_API_KEY", "from-env")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Rerank.APIKey)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Embedding.Providers = map[string]embedding.ProviderConfig{"openai": {APIKey: "k"}}
		cfg.Rerank.APIKey = "k"
		cfg.Judge.APIKey = "k"
		cfg.SetDefaults()
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"missing embedding provider", func(c *Config) { c.Embedding.Providers = nil }},
		{"missing rerank key", func(c *Config) { c.Rerank.APIKey = "" }},
		{"unknown rerank provider", func(c *Config) { c.Rerank.Provider = "nope" }},
		{"missing judge key", func(c *Config) { c.Judge.APIKey = "" }},
		{"judge weight", func(c *Config) { c.Judge.Blend.Weight = 0.4 }},
		{"redis without addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }},
		{"bad default mode", func(c *Config) { c.Search.DefaultMode = "slow" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMilvusOptional(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.Providers = map[string]embedding.ProviderConfig{"openai": {APIKey: "k"}}
	cfg.Rerank.APIKey = "k"
	cfg.Judge.APIKey = "k"
	cfg.Milvus.Address = ""
	assert.NoError(t, cfg.Validate())
}
