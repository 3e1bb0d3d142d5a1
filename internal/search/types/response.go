package types

import "time"

// SearchResponse 对外响应结构
type SearchResponse struct {
	Data    []ResultItem     `json:"data"`
	Meta    ResponseMeta     `json:"meta"`
	Latency LatencyBreakdown `json:"latency"`
}

// ResultItem 单条结果
type ResultItem struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet"`
	Score      float64    `json:"score"`
	Source     string     `json:"source"`
	Type       string     `json:"type"`
	OccurredAt *time.Time `json:"occurredAt,omitempty"`
	Paths      []PathName `json:"paths,omitempty"`
}

// ResponseMeta 分页与诊断信息
type ResponseMeta struct {
	Total     int        `json:"total"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	Mode      Mode       `json:"mode"`
	PathsUsed []PathName `json:"pathsUsed"`
	Cached    bool       `json:"cached"`
	// Degraded 表示有路径失败、重排降级或富化不完整
	Degraded bool `json:"degraded"`
}

// LatencyBreakdown 各阶段耗时（毫秒）
type LatencyBreakdown struct {
	Embedding  int64 `json:"embedding"`
	Retrieval  int64 `json:"retrieval"`
	Rerank     int64 `json:"rerank"`
	Enrichment int64 `json:"enrichment"`
	Total      int64 `json:"total"`
}

// Millis converts a duration to whole milliseconds.
func Millis(d time.Duration) int64 {
	return d.Milliseconds()
}
