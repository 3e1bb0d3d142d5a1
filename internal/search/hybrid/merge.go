package hybrid

import (
	"fmt"
	"sort"

	"github.com/lk2023060901/activity-search/internal/search/types"
)

// Fusion 多路分数合并策略
type Fusion string

const (
	// FusionMaxBonus 归一化后取最大值，再加多路佐证奖励
	FusionMaxBonus Fusion = "max_bonus"
	// FusionRRF 按各路排名做 RRF
	FusionRRF Fusion = "rrf"
)

// Policy 合并参数
type Policy struct {
	Fusion             Fusion                     `mapstructure:"fusion"`
	CorroborationBonus float64                    `mapstructure:"corroboration_bonus"`
	MaxBonus           float64                    `mapstructure:"max_bonus"`
	RRFK               int                        `mapstructure:"rrf_k"`
	Ceilings           map[types.PathName]float64 `mapstructure:"ceilings"`
}

// DefaultPolicy 默认合并策略
func DefaultPolicy() Policy {
	return Policy{
		Fusion:             FusionMaxBonus,
		CorroborationBonus: 0.05,
		MaxBonus:           0.15,
		RRFK:               DefaultRRFK,
	}
}

// SetDefaults 填充默认值
func (p *Policy) SetDefaults() {
	d := DefaultPolicy()
	if p.Fusion == "" {
		p.Fusion = d.Fusion
	}
	if p.RRFK <= 0 {
		p.RRFK = d.RRFK
	}
}

// Validate 验证策略
func (p Policy) Validate() error {
	switch p.Fusion {
	case FusionMaxBonus, FusionRRF:
	default:
		return fmt.Errorf("unknown fusion %q", p.Fusion)
	}
	if p.CorroborationBonus < 0 || p.MaxBonus < 0 {
		return fmt.Errorf("corroboration bonus must not be negative")
	}
	for path, c := range p.Ceilings {
		if path.Rank() == len(types.AllPaths) {
			return fmt.Errorf("unknown path %q in ceilings", path)
		}
		if c <= 0 {
			return fmt.Errorf("ceiling for %s must be positive", path)
		}
	}
	return nil
}

func (p Policy) ceiling(path types.PathName) float64 {
	if c, ok := p.Ceilings[path]; ok && c > 0 {
		return c
	}
	return 1.0
}

// Merge 按 documentId 去重合并各路结果，纯函数，不修改输入
func Merge(results []types.RetrievalPathResult, policy Policy) []*types.Candidate {
	policy.SetDefaults()

	byID := make(map[string]*types.Candidate)
	observedMax := make(map[types.PathName]float64, len(types.AllPaths))
	rankings := make([][]string, 0, len(results))

	for _, res := range results {
		if !res.OK || len(res.Candidates) == 0 {
			continue
		}
		for _, in := range res.Candidates {
			score, ok := in.PathScores[res.Path]
			if !ok {
				continue
			}
			if score > observedMax[res.Path] {
				observedMax[res.Path] = score
			}
			if cand, exists := byID[in.DocumentID]; exists {
				cand.Record(res.Path, score)
				continue
			}
			byID[in.DocumentID] = types.NewCandidate(in.DocumentID, res.Path, score)
		}
	}

	merged := make([]*types.Candidate, 0, len(byID))
	for _, cand := range byID {
		cand.NormalizedScores = make(map[types.PathName]float64, len(cand.PathScores))
		for path, raw := range cand.PathScores {
			cand.NormalizedScores[path] = normalize(raw, policy.ceiling(path), observedMax[path])
		}
		merged = append(merged, cand)
	}

	switch policy.Fusion {
	case FusionRRF:
		for _, path := range types.AllPaths {
			if r := rankPath(merged, path); len(r) > 0 {
				rankings = append(rankings, r)
			}
		}
		// 乘以 k+1，使单路第一名得分为 1.0
		scale := float64(policy.RRFK + 1)
		fused := ReciprocalRankFusion(rankings, policy.RRFK)
		for _, r := range fused {
			byID[r.ID].MergedScore = r.RRFScore * scale
		}
	default:
		for _, cand := range merged {
			cand.MergedScore = maxBonus(cand, policy)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].MergedScore != merged[j].MergedScore {
			return merged[i].MergedScore > merged[j].MergedScore
		}
		return merged[i].DocumentID < merged[j].DocumentID
	})
	return merged
}

// normalize 按 max(ceiling, observedMax) 缩放到 [0,1]。已在可比尺度上的分数原样通过
func normalize(raw, ceiling, observedMax float64) float64 {
	denom := ceiling
	if observedMax > denom {
		denom = observedMax
	}
	if denom <= 0 {
		return 0
	}
	v := raw / denom
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func maxBonus(c *types.Candidate, p Policy) float64 {
	best := 0.0
	for _, v := range c.NormalizedScores {
		if v > best {
			best = v
		}
	}
	bonus := p.CorroborationBonus * float64(len(c.NormalizedScores)-1)
	if bonus > p.MaxBonus {
		bonus = p.MaxBonus
	}
	return best + bonus
}

// rankPath 该路径内按原始分降序排列的文档 ID
func rankPath(cands []*types.Candidate, path types.PathName) []string {
	var hits []*types.Candidate
	for _, c := range cands {
		if c.Has(path) {
			hits = append(hits, c)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		si, sj := hits[i].PathScores[path], hits[j].PathScores[path]
		if si != sj {
			return si > sj
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})
	ids := make([]string, len(hits))
	for i, c := range hits {
		ids[i] = c.DocumentID
	}
	return ids
}
