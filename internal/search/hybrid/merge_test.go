package hybrid

import (
	"testing"

	"github.com/lk2023060901/activity-search/internal/search/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pathResult(path types.PathName, scores map[string]float64) types.RetrievalPathResult {
	res := types.RetrievalPathResult{Path: path, OK: true}
	for id, s := range scores {
		res.Candidates = append(res.Candidates, types.NewCandidate(id, path, s))
	}
	return res
}

func ids(cands []*types.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.DocumentID
	}
	return out
}

func TestMergeDedup(t *testing.T) {
	merged := Merge([]types.RetrievalPathResult{
		pathResult(types.PathVector, map[string]float64{"obs_42": 0.8}),
		pathResult(types.PathEntity, map[string]float64{"obs_42": 0.6}),
	}, DefaultPolicy())

	require.Len(t, merged, 1)
	assert.Equal(t, "obs_42", merged[0].DocumentID)
	assert.Equal(t, []types.PathName{types.PathVector, types.PathEntity}, merged[0].SourcePaths)
	assert.Equal(t, 0.8, merged[0].PathScores[types.PathVector])
	assert.Equal(t, 0.6, merged[0].PathScores[types.PathEntity])
}

func TestMergeCorroborationBoost(t *testing.T) {
	merged := Merge([]types.RetrievalPathResult{
		pathResult(types.PathVector, map[string]float64{"both": 0.6, "single": 0.6}),
		pathResult(types.PathEntity, map[string]float64{"both": 0.5}),
	}, DefaultPolicy())

	require.Len(t, merged, 2)
	assert.Equal(t, []string{"both", "single"}, ids(merged))
	assert.Greater(t, merged[0].MergedScore, merged[1].MergedScore)
}

func TestMergeStrongSingleBeatsWeakPair(t *testing.T) {
	merged := Merge([]types.RetrievalPathResult{
		pathResult(types.PathVector, map[string]float64{"strong": 0.9, "weak": 0.4}),
		pathResult(types.PathActor, map[string]float64{"weak": 0.4}),
		pathResult(types.PathCluster, map[string]float64{"weak": 0.4}),
	}, DefaultPolicy())

	assert.Equal(t, []string{"strong", "weak"}, ids(merged))
}

func TestMergeBonusIsCapped(t *testing.T) {
	all := map[string]float64{"x": 0.5}
	merged := Merge([]types.RetrievalPathResult{
		pathResult(types.PathVector, all),
		pathResult(types.PathEntity, all),
		pathResult(types.PathCluster, all),
		pathResult(types.PathActor, all),
	}, Policy{CorroborationBonus: 0.1, MaxBonus: 0.15})

	require.Len(t, merged, 1)
	assert.InDelta(t, 0.65, merged[0].MergedScore, 1e-9)
}

func TestMergeNormalizesCounterScales(t *testing.T) {
	merged := Merge([]types.RetrievalPathResult{
		pathResult(types.PathEntity, map[string]float64{"busy": 40, "quiet": 10}),
		pathResult(types.PathVector, map[string]float64{"sim": 0.7}),
	}, DefaultPolicy())

	require.Len(t, merged, 3)
	assert.Equal(t, []string{"busy", "sim", "quiet"}, ids(merged))
	assert.Equal(t, 1.0, merged[0].NormalizedScores[types.PathEntity])
	assert.Equal(t, 0.25, merged[2].NormalizedScores[types.PathEntity])
	assert.Equal(t, 0.7, merged[1].NormalizedScores[types.PathVector])
}

func TestMergeCeilingOverride(t *testing.T) {
	policy := DefaultPolicy()
	policy.Ceilings = map[types.PathName]float64{types.PathEntity: 2}
	merged := Merge([]types.RetrievalPathResult{
		pathResult(types.PathEntity, map[string]float64{"a": 1}),
	}, policy)

	assert.Equal(t, 0.5, merged[0].MergedScore)
}

func TestMergeSkipsFailedPaths(t *testing.T) {
	failed := pathResult(types.PathEntity, map[string]float64{"ghost": 1})
	failed.OK = false

	merged := Merge([]types.RetrievalPathResult{
		failed,
		pathResult(types.PathVector, map[string]float64{"a": 0.9, "b": 0.5}),
		pathResult(types.PathCluster, map[string]float64{"c": 0.7}),
		pathResult(types.PathActor, map[string]float64{"b": 0.6}),
	}, DefaultPolicy())

	assert.Equal(t, []string{"a", "c", "b"}, ids(merged))
	for _, c := range merged {
		assert.False(t, c.Has(types.PathEntity))
	}
}

func TestMergeDeterministic(t *testing.T) {
	input := []types.RetrievalPathResult{
		pathResult(types.PathVector, map[string]float64{"d": 0.5, "c": 0.5, "b": 0.5, "a": 0.5}),
		pathResult(types.PathEntity, map[string]float64{"e": 0.5}),
	}
	first := Merge(input, DefaultPolicy())
	for i := 0; i < 20; i++ {
		again := Merge(input, DefaultPolicy())
		assert.Equal(t, ids(first), ids(again))
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(first))
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	in := pathResult(types.PathVector, map[string]float64{"a": 0.5})
	Merge([]types.RetrievalPathResult{in, pathResult(types.PathEntity, map[string]float64{"a": 0.4})}, DefaultPolicy())

	assert.Equal(t, []types.PathName{types.PathVector}, in.Candidates[0].SourcePaths)
	assert.Zero(t, in.Candidates[0].MergedScore)
}

func TestMergeRRF(t *testing.T) {
	policy := DefaultPolicy()
	policy.Fusion = FusionRRF
	merged := Merge([]types.RetrievalPathResult{
		pathResult(types.PathVector, map[string]float64{"a": 0.9, "b": 0.8}),
		pathResult(types.PathEntity, map[string]float64{"b": 5}),
	}, policy)

	require.Len(t, merged, 2)
	assert.Equal(t, "b", merged[0].DocumentID)
	assert.InDelta(t, 61.0/62+1.0, merged[0].MergedScore, 1e-9)
	assert.InDelta(t, 1.0, merged[1].MergedScore, 1e-9)
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge(nil, DefaultPolicy()))
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.Fusion = "sum"
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.Ceilings = map[types.PathName]float64{"bm25": 1}
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.MaxBonus = -1
	assert.Error(t, bad.Validate())
}
