package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/pkg/workerpool"
	"github.com/lk2023060901/activity-search/internal/search/cache"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testModel = types.ModelRef{Provider: "openai", Name: "text-embedding-3-small", Dimension: 3}

// fakeEmbeddingServer mimics the /embeddings endpoint of an OpenAI compatible API.
func fakeEmbeddingServer(t *testing.T, dim int, failFirst int32) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		if n <= failFirst {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}

		var body struct {
			Input      []string `json:"input"`
			Model      string   `json:"model"`
			Dimensions int      `json:"dimensions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		data := make([]map[string]interface{}, len(body.Input))
		for i := range body.Input {
			vec := make([]float32, dim)
			for j := range vec {
				vec[j] = float32(i+1) / float32(j+2)
			}
			data[i] = map[string]interface{}{"object": "embedding", "index": i, "embedding": vec}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  body.Model,
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAIProviderEmbed(t *testing.T) {
	srv, calls := fakeEmbeddingServer(t, 3, 0)
	p, err := NewOpenAIProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL}, testModel, logger.NewNop())
	require.NoError(t, err)

	out, err := p.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, out[0], 3)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestOpenAIProviderRetriesTransientErrors(t *testing.T) {
	srv, calls := fakeEmbeddingServer(t, 3, 1)
	p, err := NewOpenAIProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL, RetryAttempts: 3, RetryDelay: time.Millisecond}, testModel, logger.NewNop())
	require.NoError(t, err)

	out, err := p.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestOpenAIProviderCallsOnceByDefault(t *testing.T) {
	srv, calls := fakeEmbeddingServer(t, 3, 1)
	p, err := NewOpenAIProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL}, testModel, logger.NewNop())
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestOpenAIProviderDimensionMismatch(t *testing.T) {
	srv, _ := fakeEmbeddingServer(t, 5, 0)
	p, err := NewOpenAIProvider(ProviderConfig{APIKey: "k", BaseURL: srv.URL}, testModel, logger.NewNop())
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestOpenAIProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(ProviderConfig{}, testModel, logger.NewNop())
	assert.Error(t, err)
}

func TestRegistryReusesProviderPerModel(t *testing.T) {
	r := NewRegistry(map[string]ProviderConfig{"openai": {APIKey: "k", BaseURL: "http://127.0.0.1:1"}}, logger.NewNop())

	a, err := r.Get(testModel)
	require.NoError(t, err)
	b, err := r.Get(testModel)
	require.NoError(t, err)
	assert.Same(t, a, b)

	wider := testModel
	wider.Dimension = 1536
	c, err := r.Get(wider)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())

	_, err = r.Get(types.ModelRef{Provider: "nope", Name: "x"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

type countingProvider struct {
	model types.ModelRef
	calls int32
	err   error
	dim   int
}

func (p *countingProvider) Model() types.ModelRef { return p.model }

func (p *countingProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, p.dim)
		out[i][0] = 1
	}
	return out, nil
}

func newQueryEmbedder(t *testing.T, p *countingProvider) (*QueryEmbedder, *workerpool.Pool) {
	t.Helper()
	pool, err := workerpool.New(&workerpool.Config{Workers: 2}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { pool.Shutdown(time.Second) })

	store, err := cache.NewMemoryStore(16)
	require.NoError(t, err)

	reg := NewRegistry(nil, logger.NewNop())
	require.NoError(t, reg.Register(p))

	ec := cache.NewEmbeddingCache(store, pool, nil, logger.NewNop())
	return NewQueryEmbedder(reg, ec, logger.NewNop()), pool
}

func TestQueryEmbedderCachesNormalizedQuery(t *testing.T) {
	p := &countingProvider{model: testModel, dim: 3}
	e, pool := newQueryEmbedder(t, p)
	ctx := context.Background()

	v, err := e.Embed(ctx, "Fix  Login", testModel)
	require.NoError(t, err)
	assert.Equal(t, testModel, v.Model)
	require.True(t, pool.Wait(time.Second))

	v2, err := e.Embed(ctx, "  fix login ", testModel)
	require.NoError(t, err)
	assert.Equal(t, v.Values, v2.Values)
	assert.EqualValues(t, 1, atomic.LoadInt32(&p.calls))
}

func TestQueryEmbedderProviderFailure(t *testing.T) {
	p := &countingProvider{model: testModel, dim: 3, err: errors.New("boom")}
	e, _ := newQueryEmbedder(t, p)

	_, err := e.Embed(context.Background(), "fix login", testModel)
	assert.Error(t, err)
}

func TestQueryEmbedderRejectsWrongDimension(t *testing.T) {
	p := &countingProvider{model: testModel, dim: 4}
	e, pool := newQueryEmbedder(t, p)

	_, err := e.Embed(context.Background(), "fix login", testModel)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	require.True(t, pool.Wait(time.Second))
	assert.EqualValues(t, 0, pool.Stats().Submitted)
}

func TestQueryEmbedderEmptyQuery(t *testing.T) {
	p := &countingProvider{model: testModel, dim: 3}
	e, _ := newQueryEmbedder(t, p)

	_, err := e.Embed(context.Background(), "   ", testModel)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.EqualValues(t, 0, atomic.LoadInt32(&p.calls))
}

func TestQueryEmbedderWithoutCache(t *testing.T) {
	p := &countingProvider{model: testModel, dim: 3}
	reg := NewRegistry(nil, logger.NewNop())
	require.NoError(t, reg.Register(p))
	e := NewQueryEmbedder(reg, nil, logger.NewNop())

	_, err := e.Embed(context.Background(), "a", testModel)
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "a", testModel)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&p.calls))
}
