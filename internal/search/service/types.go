package service

import (
	"time"

	"github.com/lk2023060901/activity-search/internal/search/types"
)

// SearchRequest 检索请求体
type SearchRequest struct {
	Query   string          `json:"query" binding:"required"`
	Mode    string          `json:"mode"`  // 可选，fast / balanced / thorough，不传使用默认档位
	Limit   int             `json:"limit"` // 可选，不传使用默认值
	Offset  int             `json:"offset"`
	Filters *FiltersRequest `json:"filters,omitempty"` // 可选
}

// FiltersRequest 结构化过滤条件
type FiltersRequest struct {
	SourceTypes []string   `json:"source_types"`
	After       *time.Time `json:"after"`
	Before      *time.Time `json:"before"`
}

func (r *SearchRequest) toQuery(workspaceID string) *types.Query {
	q := &types.Query{
		WorkspaceID: workspaceID,
		Text:        r.Query,
		Mode:        types.Mode(r.Mode),
		Limit:       r.Limit,
		Offset:      r.Offset,
	}
	if r.Filters != nil {
		q.Filters = types.Filters{
			SourceTypes: r.Filters.SourceTypes,
			After:       r.Filters.After,
			Before:      r.Filters.Before,
		}
	}
	return q
}
