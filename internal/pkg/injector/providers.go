package injector

import (
	"time"

	"github.com/lk2023060901/activity-search/internal/conf"
	"github.com/lk2023060901/activity-search/internal/data"
	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/pkg/workerpool"
	"github.com/lk2023060901/activity-search/internal/search/biz"
	"github.com/lk2023060901/activity-search/internal/search/cache"
	searchdata "github.com/lk2023060901/activity-search/internal/search/data"
	"github.com/lk2023060901/activity-search/internal/search/embedding"
	"github.com/lk2023060901/activity-search/internal/search/enrich"
	"github.com/lk2023060901/activity-search/internal/search/extract"
	"github.com/lk2023060901/activity-search/internal/search/reranker"
	"github.com/lk2023060901/activity-search/internal/search/retrieval"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"go.uber.org/zap"
)

// poolDrainTimeout 关闭时等待在途缓存写入的上限
const poolDrainTimeout = 3 * time.Second

// Data layer helpers

func provideData(config *conf.Config, log *logger.Logger) (*data.Data, func(), error) {
	return data.NewData(config, log)
}

func provideObservationRepo(d *data.Data) *searchdata.ObservationRepo {
	return searchdata.NewObservationRepo(d.DB)
}

// Cache helpers

func provideWorkerPool(config *conf.Config, log *logger.Logger) (*workerpool.Pool, func(), error) {
	pool, err := workerpool.New(&config.Search.Pool, log.Named("workerpool").Logger)
	if err != nil {
		return nil, nil, err
	}
	return pool, func() { pool.Shutdown(poolDrainTimeout) }, nil
}

// provideCacheStore Redis 启用时两层缓存共享 Redis，否则使用进程内 LRU
func provideCacheStore(d *data.Data, config *conf.Config) (cache.Store, error) {
	if d.Redis != nil {
		return cache.NewRedisStore(d.Redis), nil
	}
	return cache.NewMemoryStore(config.Search.Cache.MemorySize)
}

func provideEmbeddingCache(store cache.Store, pool *workerpool.Pool, config *conf.Config, log *logger.Logger) *cache.EmbeddingCache {
	return cache.NewEmbeddingCache(store, pool, &config.Search.Cache, log)
}

func provideResultCache(store cache.Store, pool *workerpool.Pool, config *conf.Config, log *logger.Logger) *cache.ResultCache {
	return cache.NewResultCache(store, pool, &config.Search.Cache, log)
}

// Pipeline helpers

func provideEmbeddingRegistry(config *conf.Config, log *logger.Logger) *embedding.Registry {
	return embedding.NewRegistry(config.Embedding.Providers, log)
}

// providePaths Milvus 不可用时向量路径保持 nil，检索时按跳过处理
func providePaths(d *data.Data, config *conf.Config, log *logger.Logger) biz.Paths {
	paths := biz.Paths{
		Entity:  retrieval.NewEntityPath(searchdata.NewEntityRepo(d.DB), extract.NewExtractor()),
		Cluster: retrieval.NewClusterPath(searchdata.NewClusterRepo(d.DB, config.Search.RepresentativesPerCluster), config.Search.ClusterCount),
		Actor:   retrieval.NewActorPath(searchdata.NewActorRepo(d.DB, config.Search.DocumentsPerActor)),
	}
	if d.Milvus != nil {
		paths.Vector = retrieval.NewVectorPath(searchdata.NewMilvusVectorIndex(d.Milvus, log))
	} else {
		log.Warn("milvus unavailable, vector path disabled")
	}
	return paths
}

// provideRerankers fast 直通，balanced 为 cross-encoder，thorough 在 cross-encoder 之上叠加 LLM judge
func provideRerankers(config *conf.Config, log *logger.Logger) (*reranker.Table, error) {
	provider, err := reranker.NewProvider(config.Rerank.ProviderConfig, log)
	if err != nil {
		return nil, err
	}
	crossEncoder, err := reranker.NewCrossEncoder(provider, &config.Rerank.CrossEncoder, log)
	if err != nil {
		return nil, err
	}
	judge, err := reranker.NewOpenAIJudge(&config.Judge.JudgeConfig, log)
	if err != nil {
		return nil, err
	}
	llmJudge, err := reranker.NewLLMJudge(crossEncoder, judge, &config.Judge.Blend, log)
	if err != nil {
		return nil, err
	}

	log.Info("rerankers ready",
		zap.String("provider", string(provider.Name())),
		zap.String("judge_model", config.Judge.Model))
	return reranker.NewTable(reranker.NewPassthrough(), crossEncoder, llmJudge)
}

func provideEnricher(store types.EnrichmentStore, config *conf.Config, log *logger.Logger) *enrich.Enricher {
	return enrich.NewEnricher(store, config.Search.SnippetLength, log)
}

// Use case helpers

func provideSearchConfig(config *conf.Config) *biz.Config {
	return &config.Search.Config
}
