package reranker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func merged(ids ...string) []*types.Candidate {
	out := make([]*types.Candidate, len(ids))
	for i, id := range ids {
		c := types.NewCandidate(id, types.PathVector, 1-float64(i)*0.1)
		c.MergedScore = 1 - float64(i)*0.1
		c.Text = "text of " + id
		out[i] = c
	}
	return out
}

func order(cands []*types.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.DocumentID
	}
	return out
}

type fakeProvider struct {
	results []RerankResult
	err     error
	topN    int
	docs    []string
}

func (f *fakeProvider) Name() RerankProvider { return "fake" }

func (f *fakeProvider) Rerank(_ context.Context, _ string, documents []string, topN int) ([]RerankResult, error) {
	f.topN = topN
	f.docs = documents
	return f.results, f.err
}

type fakeJudge struct {
	scores map[int]float64
	err    error
	calls  int
}

func (f *fakeJudge) Score(context.Context, string, []string) (map[int]float64, error) {
	f.calls++
	return f.scores, f.err
}

func TestPassthroughIsIdentity(t *testing.T) {
	in := merged("a", "b", "c")
	out, err := NewPassthrough().Rerank(context.Background(), "q", in, 2)
	require.NoError(t, err)
	assert.Equal(t, order(in), order(out))
	for i := range in {
		assert.Equal(t, in[i].MergedScore, out[i].FinalScore())
		assert.NotSame(t, in[i], out[i])
	}
}

func TestTableDispatch(t *testing.T) {
	fast, balanced, thorough := NewPassthrough(), &CrossEncoder{}, &LLMJudge{}
	table, err := NewTable(fast, balanced, thorough)
	require.NoError(t, err)

	got, err := table.For(types.ModeFast)
	require.NoError(t, err)
	assert.Same(t, fast, got)
	got, err = table.For(types.ModeBalanced)
	require.NoError(t, err)
	assert.Same(t, balanced, got)
	got, err = table.For(types.ModeThorough)
	require.NoError(t, err)
	assert.Same(t, thorough, got)

	_, err = table.For("turbo")
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = NewTable(fast, nil, thorough)
	assert.Error(t, err)
}

func TestCrossEncoderRequestsOnlyTopK(t *testing.T) {
	p := &fakeProvider{results: []RerankResult{{Index: 2, RelevanceScore: 0.9}, {Index: 0, RelevanceScore: 0.5}}}
	ce, err := NewCrossEncoder(p, &CrossEncoderConfig{MinRelevance: 0.1, MinResults: 1}, logger.NewNop())
	require.NoError(t, err)

	in := merged("a", "b", "c", "d")
	out, err := ce.Rerank(context.Background(), "q", in, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.topN)
	assert.Len(t, p.docs, 4)
	assert.Equal(t, []string{"c", "a"}, order(out))
	assert.Equal(t, 0.9, out[0].FinalScore())
	assert.Nil(t, in[2].RerankScore)
}

func TestCrossEncoderTruncatesDocuments(t *testing.T) {
	p := &fakeProvider{results: []RerankResult{{Index: 0, RelevanceScore: 0.9}}}
	ce, err := NewCrossEncoder(p, &CrossEncoderConfig{MaxDocumentTokens: 8, MinResults: 1}, logger.NewNop())
	require.NoError(t, err)

	in := merged("a")
	in[0].Text = strings.Repeat("deploy rollback incident ", 200)
	_, err = ce.Rerank(context.Background(), "q", in, 1)
	require.NoError(t, err)
	require.Len(t, p.docs, 1)
	assert.Less(t, len(p.docs[0]), 200)
	assert.True(t, strings.HasPrefix(p.docs[0], "deploy"))
}

func TestCrossEncoderWidensAcceptance(t *testing.T) {
	p := &fakeProvider{results: []RerankResult{
		{Index: 0, RelevanceScore: 0.02},
		{Index: 1, RelevanceScore: 0.6},
		{Index: 2, RelevanceScore: 0.05},
	}}
	ce, err := NewCrossEncoder(p, &CrossEncoderConfig{MinRelevance: 0.3, MinResults: 3}, logger.NewNop())
	require.NoError(t, err)

	out, err := ce.Rerank(context.Background(), "q", merged("a", "b", "c", "d"), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, order(out))
}

func TestCrossEncoderWidensWithUnscored(t *testing.T) {
	p := &fakeProvider{results: []RerankResult{{Index: 3, RelevanceScore: 0.8}}}
	ce, err := NewCrossEncoder(p, &CrossEncoderConfig{MinRelevance: 0.3, MinResults: 3}, logger.NewNop())
	require.NoError(t, err)

	out, err := ce.Rerank(context.Background(), "q", merged("a", "b", "c", "d"), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "a", "b"}, order(out))
}

func TestCrossEncoderDropsBelowThresholdWhenEnough(t *testing.T) {
	p := &fakeProvider{results: []RerankResult{
		{Index: 0, RelevanceScore: 0.9},
		{Index: 1, RelevanceScore: 0.8},
		{Index: 2, RelevanceScore: 0.01},
	}}
	ce, err := NewCrossEncoder(p, &CrossEncoderConfig{MinRelevance: 0.3, MinResults: 2}, logger.NewNop())
	require.NoError(t, err)

	out, err := ce.Rerank(context.Background(), "q", merged("a", "b", "c"), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order(out))
}

func TestCrossEncoderProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("503")}
	ce, err := NewCrossEncoder(p, nil, logger.NewNop())
	require.NoError(t, err)

	_, err = ce.Rerank(context.Background(), "q", merged("a"), 1)
	assert.Error(t, err)
}

func TestLLMJudgeBlends(t *testing.T) {
	p := &fakeProvider{results: []RerankResult{
		{Index: 0, RelevanceScore: 0.9},
		{Index: 1, RelevanceScore: 0.8},
		{Index: 2, RelevanceScore: 0.7},
	}}
	ce, err := NewCrossEncoder(p, &CrossEncoderConfig{MinResults: 1}, logger.NewNop())
	require.NoError(t, err)
	j := &fakeJudge{scores: map[int]float64{0: 0, 1: 1, 2: 1.0 / 3}}
	lj, err := NewLLMJudge(ce, j, nil, logger.NewNop())
	require.NoError(t, err)

	out, err := lj.Rerank(context.Background(), "q", merged("a", "b", "c"), 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"b", "c", "a"}, order(out))
	// b: 0.7*1 + 0.3*0.9
	assert.InDelta(t, 0.97, out[0].FinalScore(), 1e-9)
	// a keeps 30% of its merge score even though the judge gave it 0
	assert.InDelta(t, 0.3, out[2].FinalScore(), 1e-9)
}

func TestLLMJudgeSkipsSmallSets(t *testing.T) {
	p := &fakeProvider{results: []RerankResult{{Index: 0, RelevanceScore: 0.9}, {Index: 1, RelevanceScore: 0.8}}}
	ce, err := NewCrossEncoder(p, &CrossEncoderConfig{MinResults: 1}, logger.NewNop())
	require.NoError(t, err)
	j := &fakeJudge{}
	lj, err := NewLLMJudge(ce, j, &LLMJudgeConfig{Weight: 0.7, SkipBelow: 3}, logger.NewNop())
	require.NoError(t, err)

	out, err := lj.Rerank(context.Background(), "q", merged("a", "b"), 2)
	require.NoError(t, err)
	assert.Equal(t, 0, j.calls)
	assert.Equal(t, []string{"a", "b"}, order(out))
}

func TestLLMJudgeFailureKeepsCrossEncoderOrder(t *testing.T) {
	p := &fakeProvider{results: []RerankResult{
		{Index: 2, RelevanceScore: 0.9}, {Index: 1, RelevanceScore: 0.8}, {Index: 0, RelevanceScore: 0.7},
	}}
	ce, err := NewCrossEncoder(p, &CrossEncoderConfig{MinResults: 1}, logger.NewNop())
	require.NoError(t, err)
	lj, err := NewLLMJudge(ce, &fakeJudge{err: errors.New("rate limited")}, nil, logger.NewNop())
	require.NoError(t, err)

	out, err := lj.Rerank(context.Background(), "q", merged("a", "b", "c"), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, order(out))
}

func TestLLMJudgeConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultLLMJudgeConfig().Validate())
	assert.Error(t, (&LLMJudgeConfig{Weight: 0.4}).Validate())
	assert.Error(t, (&LLMJudgeConfig{Weight: 1.2}).Validate())
}

func TestHTTPProviderDialects(t *testing.T) {
	tests := []struct {
		provider    RerankProvider
		topField    string
		resultField string
	}{
		{RerankProviderJina, "top_n", "results"},
		{RerankProviderSiliconFlow, "top_n", "results"},
		{RerankProviderCohere, "top_n", "results"},
		{RerankProviderVoyage, "top_k", "data"},
	}
	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			var got map[string]interface{}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/rerank", r.URL.Path)
				assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"model":        "m",
					tt.resultField: []map[string]interface{}{{"index": 1, "relevance_score": 0.75}},
				})
			}))
			defer srv.Close()

			p, err := NewProvider(ProviderConfig{Provider: tt.provider, APIKey: "k", BaseURL: srv.URL}, logger.NewNop())
			require.NoError(t, err)

			res, err := p.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 2)
			require.NoError(t, err)
			assert.Equal(t, []RerankResult{{Index: 1, RelevanceScore: 0.75}}, res)
			assert.EqualValues(t, 2, got[tt.topField])
			assert.Equal(t, "q", got["query"])
		})
	}
}

func TestHTTPProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewProvider(ProviderConfig{Provider: RerankProviderJina, APIKey: "k", BaseURL: srv.URL}, logger.NewNop())
	require.NoError(t, err)
	_, err = p.Rerank(context.Background(), "q", []string{"a"}, 1)
	assert.Error(t, err)
}

func TestProviderConfigValidate(t *testing.T) {
	assert.Error(t, (&ProviderConfig{Provider: "acme", APIKey: "k"}).Validate())
	assert.Error(t, (&ProviderConfig{Provider: RerankProviderJina}).Validate())
	assert.NoError(t, (&ProviderConfig{Provider: RerankProviderCohere, APIKey: "k"}).Validate())
}

func TestParseJudgeScores(t *testing.T) {
	scores, err := parseJudgeScores(`{"scores":[{"index":0,"score":3},{"index":1,"score":1.5},{"index":2,"score":9},{"index":7,"score":2}]}`, 3)
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{0: 1, 1: 0.5, 2: 1}, scores)

	_, err = parseJudgeScores("not json", 3)
	assert.Error(t, err)
	_, err = parseJudgeScores(`{"scores":[]}`, 3)
	assert.Error(t, err)
}

func TestOpenAIJudgeScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)
		format, _ := req["response_format"].(map[string]interface{})
		assert.Equal(t, "json_object", format["type"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "c1",
			"object": "chat.completion",
			"model":  "judge",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": `{"scores":[{"index":0,"score":2},{"index":1,"score":0}]}`,
				},
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	j, err := NewOpenAIJudge(&JudgeConfig{APIKey: "k", BaseURL: srv.URL, Model: "judge"}, logger.NewNop())
	require.NoError(t, err)

	scores, err := j.Score(context.Background(), "q", []string{"a", "b"})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, scores[0], 1e-9)
	assert.Equal(t, 0.0, scores[1])
}

func TestTruncatorShortTextUnchanged(t *testing.T) {
	tr := NewTruncator("", 50)
	assert.Equal(t, "fix login bug", tr.Truncate("  fix login bug "))
	assert.Equal(t, "", tr.Truncate("   "))
}
