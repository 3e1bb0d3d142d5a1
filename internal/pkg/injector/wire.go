//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"
	"github.com/lk2023060901/activity-search/internal/conf"
	"github.com/lk2023060901/activity-search/internal/data"
	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/biz"
	searchdata "github.com/lk2023060901/activity-search/internal/search/data"
	"github.com/lk2023060901/activity-search/internal/search/embedding"
	"github.com/lk2023060901/activity-search/internal/search/retrieval"
	"github.com/lk2023060901/activity-search/internal/search/service"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"github.com/lk2023060901/activity-search/internal/server"
)

// ProviderSet is the Wire provider set for all dependencies
var ProviderSet = wire.NewSet(
	// Data layer
	dataProviderSet,

	// Caches and background pool
	cacheProviderSet,

	// Retrieval, rerank and enrichment
	pipelineProviderSet,

	// Use cases
	useCaseProviderSet,

	// HTTP services
	httpServiceProviderSet,

	// Servers
	serverProviderSet,
)

// Data layer providers
var dataProviderSet = wire.NewSet(
	provideData,
	provideObservationRepo,
	wire.Bind(new(types.TextStore), new(*searchdata.ObservationRepo)),
	wire.Bind(new(types.EnrichmentStore), new(*searchdata.ObservationRepo)),
)

// Cache providers
var cacheProviderSet = wire.NewSet(
	provideWorkerPool,
	provideCacheStore,
	provideEmbeddingCache,
	provideResultCache,
)

// Pipeline providers
var pipelineProviderSet = wire.NewSet(
	provideEmbeddingRegistry,
	wire.Bind(new(embedding.ProviderSource), new(*embedding.Registry)),
	embedding.NewQueryEmbedder,
	wire.Bind(new(biz.Embedder), new(*embedding.QueryEmbedder)),
	providePaths,
	retrieval.NewRunner,
	provideRerankers,
	provideEnricher,
)

// Use case providers
var useCaseProviderSet = wire.NewSet(
	provideSearchConfig,
	biz.NewSearchUseCase,
)

// HTTP service providers
var httpServiceProviderSet = wire.NewSet(
	wire.Bind(new(service.Searcher), new(*biz.SearchUseCase)),
	service.NewSearchService,
)

// Server providers
var serverProviderSet = wire.NewSet(
	wire.Bind(new(server.HealthChecker), new(*data.Data)),
	server.NewHTTPServer,
)

// InitializeApp initializes the application with Wire
func InitializeApp(config *conf.Config, log *logger.Logger) (*App, func(), error) {
	wire.Build(ProviderSet, newApp)
	return nil, nil, nil
}
