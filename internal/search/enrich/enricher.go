package enrich

import (
	"context"
	"time"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"go.uber.org/zap"
)

// Enricher 只为最终页补全标题、摘要等元数据
type Enricher struct {
	store    types.EnrichmentStore
	snippets *SnippetRenderer
	logger   *logger.Logger
}

// NewEnricher 创建 Enricher
func NewEnricher(store types.EnrichmentStore, snippetLength int, lgr *logger.Logger) *Enricher {
	if lgr == nil {
		lgr = logger.L()
	}
	return &Enricher{
		store:    store,
		snippets: NewSnippetRenderer(snippetLength),
		logger:   lgr.Named("enrich"),
	}
}

// Enrich 对 page 发起一次批量查询。存储失败时返回仅含 id/score 的结果，complete 为 false
func (e *Enricher) Enrich(ctx context.Context, workspaceID string, page []*types.Candidate) (items []types.ResultItem, complete bool) {
	items = make([]types.ResultItem, len(page))
	if len(page) == 0 {
		return items, true
	}

	ids := make([]string, len(page))
	for i, c := range page {
		ids[i] = c.DocumentID
		items[i] = types.ResultItem{
			ID:    c.DocumentID,
			Score: c.FinalScore(),
			Paths: append([]types.PathName(nil), c.SourcePaths...),
		}
	}

	start := time.Now()
	docs, err := e.store.FetchByIDs(ctx, workspaceID, ids)
	if err != nil {
		e.logger.Warn("enrichment failed, returning bare results",
			zap.String("workspace_id", workspaceID),
			zap.Int("count", len(ids)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return items, false
	}

	missing := 0
	for i := range items {
		doc, ok := docs[items[i].ID]
		if !ok || doc == nil {
			missing++
			continue
		}
		items[i].Title = doc.Title
		items[i].Snippet = e.snippets.Render(doc.Body)
		items[i].Source = doc.Source
		items[i].Type = doc.Type
		if !doc.OccurredAt.IsZero() {
			t := doc.OccurredAt.UTC()
			items[i].OccurredAt = &t
		}
	}
	if missing > 0 {
		e.logger.Debug("documents missing during enrichment",
			zap.String("workspace_id", workspaceID),
			zap.Int("missing", missing))
	}
	return items, true
}
