package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/activity-search/internal/pkg/errors"
	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	got  *types.Query
	resp *types.SearchResponse
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, q *types.Query) (*types.SearchResponse, error) {
	f.got = q
	return f.resp, f.err
}

func newRouter(s Searcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewSearchService(s, logger.NewNop()).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSearchHandler(t *testing.T) {
	fake := &fakeSearcher{resp: &types.SearchResponse{
		Data: []types.ResultItem{{ID: "obs_1", Title: "Fix login", Snippet: "retry", Score: 0.9, Source: "github", Type: "pr"}},
		Meta: types.ResponseMeta{Total: 1, Limit: 5, Mode: types.ModeFast, PathsUsed: []types.PathName{types.PathEntity}},
		Latency: types.LatencyBreakdown{
			Embedding: 3, Retrieval: 12, Rerank: 0, Total: 20,
		},
	}}
	r := newRouter(fake)

	w := post(r, "/api/v1/workspaces/acme/search",
		`{"query":"what did @sarah fix","mode":"fast","limit":5,"filters":{"source_types":["github"],"after":"2024-01-01T00:00:00Z"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "miss", w.Header().Get(CacheHeader))

	require.NotNil(t, fake.got)
	assert.Equal(t, "acme", fake.got.WorkspaceID)
	assert.Equal(t, "what did @sarah fix", fake.got.Text)
	assert.Equal(t, types.ModeFast, fake.got.Mode)
	assert.Equal(t, 5, fake.got.Limit)
	assert.Equal(t, []string{"github"}, fake.got.Filters.SourceTypes)
	require.NotNil(t, fake.got.Filters.After)
	assert.Equal(t, 2024, fake.got.Filters.After.Year())

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "data")
	assert.Contains(t, body, "meta")
	assert.Contains(t, body, "latency")

	var resp types.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "obs_1", resp.Data[0].ID)
	assert.Equal(t, []types.PathName{types.PathEntity}, resp.Meta.PathsUsed)
	assert.Equal(t, int64(20), resp.Latency.Total)
}

func TestSearchHandlerCacheHeader(t *testing.T) {
	fake := &fakeSearcher{resp: &types.SearchResponse{Meta: types.ResponseMeta{Cached: true}}}
	w := post(newRouter(fake), "/api/v1/workspaces/acme/search", `{"query":"deploys"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hit", w.Header().Get(CacheHeader))
}

func TestSearchHandlerErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantHTTP int
		wantCode int
	}{
		{name: "missing query", body: `{"mode":"fast"}`, wantHTTP: http.StatusBadRequest, wantCode: apperrors.ErrSearchInvalidQuery},
		{name: "malformed json", body: `{"query":`, wantHTTP: http.StatusBadRequest, wantCode: apperrors.ErrSearchInvalidQuery},
		{
			name:     "unknown mode",
			body:     `{"query":"x","mode":"turbo"}`,
			err:      apperrors.New(apperrors.ErrSearchInvalidMode, "turbo"),
			wantHTTP: http.StatusBadRequest,
			wantCode: apperrors.ErrSearchInvalidMode,
		},
		{
			name:     "cancelled",
			body:     `{"query":"x"}`,
			err:      apperrors.Wrap(context.Canceled, apperrors.ErrSearchCancelled),
			wantHTTP: http.StatusRequestTimeout,
			wantCode: apperrors.ErrSearchCancelled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(newRouter(&fakeSearcher{err: tt.err}), "/api/v1/workspaces/acme/search", tt.body)
			require.Equal(t, tt.wantHTTP, w.Code)

			var env struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Equal(t, tt.wantCode, env.Code)
			assert.NotEmpty(t, env.Message)
		})
	}
}
