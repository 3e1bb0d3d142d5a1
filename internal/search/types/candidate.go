package types

import "sort"

// Candidate 单次请求内的候选文档投影，从不持久化
type Candidate struct {
	DocumentID string `json:"documentId"`
	// SourcePaths 按 AllPaths 顺序排列
	SourcePaths []PathName `json:"sourcePaths"`
	// PathScores 各路径原始分（尺度各异）
	PathScores map[PathName]float64 `json:"pathScores"`
	// NormalizedScores 各路径归一化到 [0,1] 后的分数，由 Merge 填充
	NormalizedScores map[PathName]float64 `json:"normalizedScores,omitempty"`
	MergedScore      float64              `json:"mergedScore"`
	RerankScore      *float64             `json:"rerankScore,omitempty"`
	// Text 仅在重排窗口内填充
	Text string `json:"-"`
}

// NewCandidate creates a candidate surfaced by one path.
func NewCandidate(documentID string, path PathName, score float64) *Candidate {
	return &Candidate{
		DocumentID:  documentID,
		SourcePaths: []PathName{path},
		PathScores:  map[PathName]float64{path: score},
	}
}

// Has reports whether path surfaced the candidate.
func (c *Candidate) Has(path PathName) bool {
	_, ok := c.PathScores[path]
	return ok
}

// Record adds a path score. Repeated hits from the same path keep the maximum;
// scores from other paths are never overwritten.
func (c *Candidate) Record(path PathName, score float64) {
	if c.PathScores == nil {
		c.PathScores = make(map[PathName]float64, len(AllPaths))
	}
	if prev, ok := c.PathScores[path]; ok {
		if score > prev {
			c.PathScores[path] = score
		}
		return
	}
	c.PathScores[path] = score
	c.SourcePaths = append(c.SourcePaths, path)
	sort.Slice(c.SourcePaths, func(i, j int) bool {
		return c.SourcePaths[i].Rank() < c.SourcePaths[j].Rank()
	})
}

// FinalScore 排序使用的分数：有重排分用重排分，否则用合并分
func (c *Candidate) FinalScore() float64 {
	if c.RerankScore != nil {
		return *c.RerankScore
	}
	return c.MergedScore
}

// SetRerankScore stores a reranker score.
func (c *Candidate) SetRerankScore(s float64) {
	c.RerankScore = &s
}

// Clone 深拷贝
func (c *Candidate) Clone() *Candidate {
	cp := *c
	cp.SourcePaths = append([]PathName(nil), c.SourcePaths...)
	cp.PathScores = make(map[PathName]float64, len(c.PathScores))
	for k, v := range c.PathScores {
		cp.PathScores[k] = v
	}
	if c.NormalizedScores != nil {
		cp.NormalizedScores = make(map[PathName]float64, len(c.NormalizedScores))
		for k, v := range c.NormalizedScores {
			cp.NormalizedScores[k] = v
		}
	}
	if c.RerankScore != nil {
		s := *c.RerankScore
		cp.RerankScore = &s
	}
	return &cp
}

// CloneAll deep-copies a candidate list.
func CloneAll(in []*Candidate) []*Candidate {
	out := make([]*Candidate, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// SortByFinalScore orders by final score descending, merged score descending,
// then document id ascending. The sort is total, so equal inputs give equal output.
func SortByFinalScore(cands []*Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if fa, fb := a.FinalScore(), b.FinalScore(); fa != fb {
			return fa > fb
		}
		if a.MergedScore != b.MergedScore {
			return a.MergedScore > b.MergedScore
		}
		return a.DocumentID < b.DocumentID
	})
}

// RetrievalPathResult 单条路径单次请求的结果
type RetrievalPathResult struct {
	Path       PathName     `json:"path"`
	Candidates []*Candidate `json:"candidates"`
	LatencyMs  int64        `json:"latencyMs"`
	// OK 为 false 表示路径失败或超时，Candidates 必为空
	OK bool `json:"ok"`
	// Skipped 表示路径正常跳过（无抽取键、无聚类、无成员画像等）
	Skipped bool  `json:"skipped,omitempty"`
	Err     error `json:"-"`
}

// Contributed reports whether the path succeeded with at least one candidate.
func (r RetrievalPathResult) Contributed() bool {
	return r.OK && len(r.Candidates) > 0
}
