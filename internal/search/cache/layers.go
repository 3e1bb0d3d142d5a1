package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/pkg/workerpool"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"go.uber.org/zap"
)

// Config 两层缓存配置
type Config struct {
	EmbeddingTTL    time.Duration `mapstructure:"embedding_ttl"`
	ResultTTL       time.Duration `mapstructure:"result_ttl"`
	EmbeddingPrefix string        `mapstructure:"embedding_prefix"`
	ResultPrefix    string        `mapstructure:"result_prefix"`
	// ReadTimeout bounds a cache read on the request path.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds a detached cache write.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MemorySize   int           `mapstructure:"memory_size"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		EmbeddingTTL:    24 * time.Hour,
		ResultTTL:       3 * time.Minute,
		EmbeddingPrefix: "search:emb:",
		ResultPrefix:    "search:res:",
		ReadTimeout:     50 * time.Millisecond,
		WriteTimeout:    time.Second,
		MemorySize:      10000,
	}
}

// SetDefaults fills zero values from DefaultConfig.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.EmbeddingTTL <= 0 {
		c.EmbeddingTTL = d.EmbeddingTTL
	}
	if c.ResultTTL <= 0 {
		c.ResultTTL = d.ResultTTL
	}
	if c.EmbeddingPrefix == "" {
		c.EmbeddingPrefix = d.EmbeddingPrefix
	}
	if c.ResultPrefix == "" {
		c.ResultPrefix = d.ResultPrefix
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MemorySize <= 0 {
		c.MemorySize = d.MemorySize
	}
}

// layer holds what both caches share: a store, a detached writer and the
// read/write bounds.
type layer struct {
	store  Store
	pool   *workerpool.Pool
	ttl    time.Duration
	prefix string
	cfg    *Config
	logger *logger.Logger
}

func (l *layer) read(ctx context.Context, key string, dst interface{}) bool {
	readCtx, cancel := context.WithTimeout(ctx, l.cfg.ReadTimeout)
	defer cancel()

	data, err := l.store.Get(readCtx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			l.logger.Debug("cache read failed, treating as miss", zap.String("cache_key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		l.logger.Debug("cache entry undecodable, treating as miss", zap.String("cache_key", key), zap.Error(err))
		return false
	}
	return true
}

// writeDetached never blocks or fails the caller; failures surface only in logs.
func (l *layer) writeDetached(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		l.logger.Debug("cache entry not encodable", zap.String("cache_key", key), zap.Error(err))
		return
	}

	write := func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.cfg.WriteTimeout)
		defer cancel()
		if err := l.store.Set(ctx, key, data, l.ttl); err != nil {
			l.logger.Debug("cache write failed", zap.String("cache_key", key), zap.Error(err))
		}
	}
	if l.pool == nil {
		go write()
		return
	}
	l.pool.Go("cache-write", write)
}

// EmbeddingCache maps (normalized query, model) to a vector.
type EmbeddingCache struct {
	layer
}

// NewEmbeddingCache creates the embedding cache layer.
func NewEmbeddingCache(store Store, pool *workerpool.Pool, cfg *Config, log *logger.Logger) *EmbeddingCache {
	cfg = withDefaults(cfg)
	if log == nil {
		log = logger.L()
	}
	return &EmbeddingCache{layer{
		store: store, pool: pool, ttl: cfg.EmbeddingTTL, prefix: cfg.EmbeddingPrefix,
		cfg: cfg, logger: log.Named("embedding_cache"),
	}}
}

// Get returns a cached vector. Entries from a different model or dimension
// are misses.
func (c *EmbeddingCache) Get(ctx context.Context, normalizedQuery string, model types.ModelRef) (types.EmbeddingVector, bool) {
	var v types.EmbeddingVector
	if !c.read(ctx, EmbeddingKey(c.prefix, normalizedQuery, model), &v) {
		return types.EmbeddingVector{}, false
	}
	if !v.Compatible(model) {
		return types.EmbeddingVector{}, false
	}
	return v, true
}

// Put stores a vector in the background.
func (c *EmbeddingCache) Put(normalizedQuery string, v types.EmbeddingVector) {
	c.writeDetached(EmbeddingKey(c.prefix, normalizedQuery, v.Model), v)
}

// ResultCache maps a full request to its enriched ranked response.
type ResultCache struct {
	layer
}

// NewResultCache creates the result cache layer.
func NewResultCache(store Store, pool *workerpool.Pool, cfg *Config, log *logger.Logger) *ResultCache {
	cfg = withDefaults(cfg)
	if log == nil {
		log = logger.L()
	}
	return &ResultCache{layer{
		store: store, pool: pool, ttl: cfg.ResultTTL, prefix: cfg.ResultPrefix,
		cfg: cfg, logger: log.Named("result_cache"),
	}}
}

// Get returns the cached response for q.
func (c *ResultCache) Get(ctx context.Context, q *types.Query) (*types.SearchResponse, bool) {
	var resp types.SearchResponse
	if !c.read(ctx, ResultKey(c.prefix, q), &resp) {
		return nil, false
	}
	return &resp, true
}

// Put stores resp for q in the background.
func (c *ResultCache) Put(q *types.Query, resp *types.SearchResponse) {
	c.writeDetached(ResultKey(c.prefix, q), resp)
}

func withDefaults(cfg *Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	cp := *cfg
	cp.SetDefaults()
	return &cp
}
