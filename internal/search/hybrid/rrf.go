package hybrid

import (
	"sort"
)

// DefaultRRFK RRF 常数，论文推荐 60
const DefaultRRFK = 60

// RRFResult RRF 融合后的结果
type RRFResult struct {
	ID       string
	RRFScore float64
	Rank     int
}

// ReciprocalRankFusion RRF 算法实现
// RRF 公式: score = Σ(1 / (k + rank))，rankings 每个元素是一路按相关度降序的文档 ID
func ReciprocalRankFusion(rankings [][]string, k int) []*RRFResult {
	if k <= 0 {
		k = DefaultRRFK
	}

	rrfScores := make(map[string]*RRFResult)
	for _, ranking := range rankings {
		for rank, id := range ranking {
			if _, exists := rrfScores[id]; !exists {
				rrfScores[id] = &RRFResult{ID: id}
			}
			// rank 从 0 开始，所以 rank+1 才是真正的排名
			rrfScores[id].RRFScore += 1.0 / float64(k+rank+1)
		}
	}

	fused := make([]*RRFResult, 0, len(rrfScores))
	for _, r := range rrfScores {
		fused = append(fused, r)
	}

	// 同分按 ID 升序，保证结果确定
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].RRFScore != fused[j].RRFScore {
			return fused[i].RRFScore > fused[j].RRFScore
		}
		return fused[i].ID < fused[j].ID
	})

	for i := range fused {
		fused[i].Rank = i + 1
	}
	return fused
}
