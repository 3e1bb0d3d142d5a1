package biz

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/lk2023060901/activity-search/internal/pkg/errors"
	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/cache"
	"github.com/lk2023060901/activity-search/internal/search/enrich"
	"github.com/lk2023060901/activity-search/internal/search/hybrid"
	"github.com/lk2023060901/activity-search/internal/search/reranker"
	"github.com/lk2023060901/activity-search/internal/search/retrieval"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var workspacePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Embedder 查询向量化
type Embedder interface {
	Embed(ctx context.Context, query string, model types.ModelRef) (types.EmbeddingVector, error)
}

// Paths 四条检索路径，未配置的路径视为跳过
type Paths struct {
	Vector  retrieval.Path
	Entity  retrieval.Path
	Cluster retrieval.Path
	Actor   retrieval.Path
}

func (p Paths) byName(name types.PathName) retrieval.Path {
	switch name {
	case types.PathVector:
		return p.Vector
	case types.PathEntity:
		return p.Entity
	case types.PathCluster:
		return p.Cluster
	case types.PathActor:
		return p.Actor
	}
	return nil
}

// SearchUseCase 检索流水线：缓存 → 两阶段召回 → 合并 → 重排 → 富化
type SearchUseCase struct {
	cfg       *Config
	embedder  Embedder
	paths     Paths
	runner    *retrieval.Runner
	rerankers *reranker.Table
	texts     types.TextStore
	enricher  *enrich.Enricher
	results   *cache.ResultCache
	logger    *logger.Logger
}

// NewSearchUseCase 创建检索用例。results 为 nil 时不缓存结果
func NewSearchUseCase(
	cfg *Config,
	embedder Embedder,
	paths Paths,
	runner *retrieval.Runner,
	rerankers *reranker.Table,
	texts types.TextStore,
	enricher *enrich.Enricher,
	results *cache.ResultCache,
	lgr *logger.Logger,
) (*SearchUseCase, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cp := *cfg
	cp.SetDefaults()
	if err := cp.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search config: %w", err)
	}
	if embedder == nil || rerankers == nil || enricher == nil || texts == nil {
		return nil, apperrors.New(apperrors.ErrSearchUnavailable, "embedder, rerankers, text store and enricher are required")
	}
	if lgr == nil {
		lgr = logger.L()
	}
	if runner == nil {
		runner = retrieval.NewRunner(lgr)
	}
	return &SearchUseCase{
		cfg:       &cp,
		embedder:  embedder,
		paths:     paths,
		runner:    runner,
		rerankers: rerankers,
		texts:     texts,
		enricher:  enricher,
		results:   results,
		logger:    lgr.Named("search"),
	}, nil
}

// Search 执行一次检索。只有请求本身非法或调用方取消时返回错误，
// 其余故障一律降级。
func (uc *SearchUseCase) Search(ctx context.Context, in *types.Query) (*types.SearchResponse, error) {
	start := time.Now()
	log := uc.logger.WithContext(ctx)

	q, err := uc.prepare(in)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrSearchCancelled)
	}

	if uc.results != nil {
		if resp, ok := uc.results.Get(ctx, q); ok {
			resp.Meta.Cached = true
			resp.Latency = types.LatencyBreakdown{Total: types.Millis(time.Since(start))}
			log.Debug("result cache hit", zap.String("mode", string(q.Mode)))
			return resp, nil
		}
	}

	budget := uc.cfg.Budgets.For(q.Mode)
	reqCtx, cancel := context.WithTimeout(ctx, budget.Total)
	defer cancel()

	rec := uc.retrieve(reqCtx, q, budget)
	merged := hybrid.Merge(rec.results, uc.cfg.Merge)

	rerankStart := time.Now()
	ranked, rerankDegraded := uc.rerank(reqCtx, q, merged, budget)
	rerankMs := types.Millis(time.Since(rerankStart))

	enrichStart := time.Now()
	items, complete := uc.enricher.Enrich(reqCtx, q.WorkspaceID, page(ranked, q.Offset, q.Limit))
	enrichMs := types.Millis(time.Since(enrichStart))

	if ctx.Err() != nil {
		log.Info("search cancelled by caller", zap.Duration("elapsed", time.Since(start)))
		return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrSearchCancelled)
	}

	pathsUsed := make([]types.PathName, 0, len(types.AllPaths))
	pathFailed := false
	for _, r := range rec.results {
		if r.Contributed() {
			pathsUsed = append(pathsUsed, r.Path)
		}
		if !r.OK {
			pathFailed = true
		}
	}

	resp := &types.SearchResponse{
		Data: items,
		Meta: types.ResponseMeta{
			Total:     len(merged),
			Limit:     q.Limit,
			Offset:    q.Offset,
			Mode:      q.Mode,
			PathsUsed: pathsUsed,
			Degraded:  pathFailed || rerankDegraded || !complete,
		},
		Latency: types.LatencyBreakdown{
			Embedding:  rec.embeddingMs,
			Retrieval:  rec.retrievalMs,
			Rerank:     rerankMs,
			Enrichment: enrichMs,
			Total:      types.Millis(time.Since(start)),
		},
	}

	// 不完整的响应不进缓存
	if uc.results != nil && !resp.Meta.Degraded && reqCtx.Err() == nil {
		uc.results.Put(q, resp)
	}

	log.Info("search completed",
		zap.String("mode", string(q.Mode)),
		zap.Int("total", resp.Meta.Total),
		zap.Int("returned", len(items)),
		zap.Any("paths_used", pathsUsed),
		zap.Bool("degraded", resp.Meta.Degraded),
		zap.Int64("latency_ms", resp.Latency.Total))
	return resp, nil
}

// prepare 校验请求并补齐默认值，返回副本
func (uc *SearchUseCase) prepare(in *types.Query) (*types.Query, error) {
	if in == nil {
		return nil, apperrors.New(apperrors.ErrSearchInvalidQuery, "query is required")
	}
	q := *in

	if !workspacePattern.MatchString(q.WorkspaceID) {
		return nil, apperrors.New(apperrors.ErrSearchInvalidWorkspace, q.WorkspaceID)
	}

	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, apperrors.New(apperrors.ErrSearchInvalidQuery, "query text is empty")
	}
	if len([]rune(q.Text)) > uc.cfg.MaxQueryLength {
		return nil, apperrors.New(apperrors.ErrSearchInvalidQuery, fmt.Sprintf("query exceeds %d characters", uc.cfg.MaxQueryLength))
	}

	if q.Mode == "" {
		q.Mode = types.Mode(uc.cfg.DefaultMode)
	}
	mode, err := types.ParseMode(string(q.Mode))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSearchInvalidMode)
	}
	q.Mode = mode

	if q.Limit == 0 {
		q.Limit = uc.cfg.DefaultLimit
	}
	if q.Limit < 0 || q.Limit > uc.cfg.MaxLimit || q.Offset < 0 {
		return nil, apperrors.New(apperrors.ErrSearchInvalidPaging,
			fmt.Sprintf("limit must be in [1, %d] and offset non-negative", uc.cfg.MaxLimit))
	}

	if err := q.Filters.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSearchInvalidFilters)
	}
	q.Filters = q.Filters.Normalized()
	return &q, nil
}

type retrievalOutcome struct {
	results     []types.RetrievalPathResult
	embeddingMs int64
	retrievalMs int64
}

// retrieve 两阶段扇出。Stage 1: embedding ∥ entity ∥ actor；
// Stage 2: 拿到向量后 vector ∥ cluster，不等待 Stage 1 的其他路径。
func (uc *SearchUseCase) retrieve(ctx context.Context, q *types.Query, budget Budget) retrievalOutcome {
	start := time.Now()
	topK := uc.cfg.PathTopK
	if w := q.Window(); w > topK {
		topK = w
	}
	base := retrieval.Request{
		WorkspaceID: q.WorkspaceID,
		Text:        q.Text,
		Filters:     q.Filters,
		TopK:        topK,
	}

	// 每条路径只写自己的槽位
	results := make([]types.RetrievalPathResult, len(types.AllPaths))
	runPath := func(i int, req *retrieval.Request) {
		name := types.AllPaths[i]
		p := uc.paths.byName(name)
		if p == nil {
			results[i] = types.RetrievalPathResult{Path: name, OK: true, Skipped: true}
			return
		}
		results[i] = uc.runner.Run(ctx, p, req, budget.Path)
	}

	var (
		g           errgroup.Group
		embeddingMs int64
	)
	for i, name := range types.AllPaths {
		if name.NeedsEmbedding() {
			continue
		}
		i := i
		g.Go(func() error {
			req := base
			runPath(i, &req)
			return nil
		})
	}

	g.Go(func() error {
		embStart := time.Now()
		embCtx, cancel := context.WithTimeout(ctx, budget.Embedding)
		vec, err := uc.embedder.Embed(embCtx, q.Text, uc.cfg.EmbeddingModel)
		cancel()
		embeddingMs = types.Millis(time.Since(embStart))

		req := base
		if err != nil {
			uc.logger.WithContext(ctx).Warn("query embedding failed, semantic paths degraded",
				zap.Int64("latency_ms", embeddingMs),
				zap.Error(err))
		} else {
			req.Embedding = &vec
		}

		var stage2 errgroup.Group
		for i, name := range types.AllPaths {
			if !name.NeedsEmbedding() {
				continue
			}
			i := i
			stage2.Go(func() error {
				r := req
				runPath(i, &r)
				return nil
			})
		}
		return stage2.Wait()
	})

	_ = g.Wait()
	return retrievalOutcome{
		results:     results,
		embeddingMs: embeddingMs,
		retrievalMs: types.Millis(time.Since(start)),
	}
}

// rerank 只对重排窗口内的候选补正文并重排，重排器未返回的候选按合并分接在后面。
// 任何失败都退回合并分顺序
func (uc *SearchUseCase) rerank(ctx context.Context, q *types.Query, merged []*types.Candidate, budget Budget) ([]*types.Candidate, bool) {
	if len(merged) == 0 {
		return merged, false
	}
	log := uc.logger.WithContext(ctx)

	r, err := uc.rerankers.For(q.Mode)
	if err != nil {
		log.Warn("no reranker for mode", zap.String("mode", string(q.Mode)), zap.Error(err))
		return merged, true
	}

	window := uc.cfg.RerankWindow
	if w := q.Window(); w > window {
		window = w
	}
	if window > len(merged) {
		window = len(merged)
	}
	head := types.CloneAll(merged[:window])

	rctx := ctx
	if budget.Rerank > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, budget.Rerank)
		defer cancel()
	}

	if q.Mode != types.ModeFast {
		if err := uc.hydrate(rctx, q.WorkspaceID, head); err != nil {
			log.Warn("rerank text hydration failed, keeping merged order", zap.Error(err))
			return merged, true
		}
	}

	start := time.Now()
	out, err := r.Rerank(rctx, q.Text, head, q.Window())
	if err != nil {
		log.Warn("rerank failed, keeping merged order",
			zap.String("mode", string(q.Mode)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return merged, true
	}
	return appendUnranked(out, merged), false
}

// appendUnranked 重排结果之后按合并分顺序补上未返回的候选，保证分页与 meta.total 一致
func appendUnranked(ranked, merged []*types.Candidate) []*types.Candidate {
	if len(ranked) >= len(merged) {
		return ranked
	}
	seen := make(map[string]struct{}, len(ranked))
	for _, c := range ranked {
		seen[c.DocumentID] = struct{}{}
	}
	out := make([]*types.Candidate, 0, len(merged))
	out = append(out, ranked...)
	for _, c := range merged {
		if _, ok := seen[c.DocumentID]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// hydrate 一次批量取正文，缺失的文档保持空文本
func (uc *SearchUseCase) hydrate(ctx context.Context, workspaceID string, cands []*types.Candidate) error {
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.DocumentID
	}
	texts, err := uc.texts.FetchTexts(ctx, workspaceID, ids)
	if err != nil {
		return err
	}
	for _, c := range cands {
		c.Text = texts[c.DocumentID]
	}
	return nil
}

func page(ranked []*types.Candidate, offset, limit int) []*types.Candidate {
	if offset >= len(ranked) {
		return nil
	}
	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end]
}
