package types

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Filters 结构化过滤条件
type Filters struct {
	SourceTypes []string   `json:"sourceTypes,omitempty"`
	After       *time.Time `json:"after,omitempty"`
	Before      *time.Time `json:"before,omitempty"`
}

// ErrInvalidFilters 过滤条件非法
var ErrInvalidFilters = errors.New("invalid filters")

// Normalized returns a copy with lower-cased, de-duplicated, sorted source
// types and UTC timestamps.
func (f Filters) Normalized() Filters {
	out := Filters{}
	if len(f.SourceTypes) > 0 {
		seen := make(map[string]bool, len(f.SourceTypes))
		for _, s := range f.SourceTypes {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out.SourceTypes = append(out.SourceTypes, s)
		}
		sort.Strings(out.SourceTypes)
	}
	if f.After != nil {
		t := f.After.UTC()
		out.After = &t
	}
	if f.Before != nil {
		t := f.Before.UTC()
		out.Before = &t
	}
	return out
}

// Validate rejects an inverted date range.
func (f Filters) Validate() error {
	if f.After != nil && f.Before != nil && f.After.After(*f.Before) {
		return ErrInvalidFilters
	}
	return nil
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return len(f.SourceTypes) == 0 && f.After == nil && f.Before == nil
}

// Canonical 稳定的序列化形式，用作缓存键的一部分
func (f Filters) Canonical() string {
	n := f.Normalized()
	var b strings.Builder
	b.WriteString("src=")
	b.WriteString(strings.Join(n.SourceTypes, ","))
	b.WriteString(";after=")
	if n.After != nil {
		b.WriteString(n.After.Format(time.RFC3339Nano))
	}
	b.WriteString(";before=")
	if n.Before != nil {
		b.WriteString(n.Before.Format(time.RFC3339Nano))
	}
	return b.String()
}

// Allows reports whether a document with the given source and timestamp passes.
func (f Filters) Allows(source string, occurredAt time.Time) bool {
	if len(f.SourceTypes) > 0 {
		ok := false
		for _, s := range f.SourceTypes {
			if strings.EqualFold(s, source) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.After != nil && occurredAt.Before(*f.After) {
		return false
	}
	if f.Before != nil && occurredAt.After(*f.Before) {
		return false
	}
	return true
}

// Query 一次检索的不可变输入
type Query struct {
	WorkspaceID string
	Text        string
	Filters     Filters
	Limit       int
	Offset      int
	Mode        Mode
}

// Window is the number of ranked results needed to serve the page.
func (q *Query) Window() int {
	return q.Offset + q.Limit
}

// ModelRef 嵌入模型标识，维度是身份的一部分
type ModelRef struct {
	Provider  string `json:"provider"`
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
}

// Key 唯一标识一组模型参数
func (m ModelRef) Key() string {
	return m.Provider + "/" + m.Name + "/" + strconv.Itoa(m.Dimension)
}

// EmbeddingVector 查询向量
type EmbeddingVector struct {
	Values []float32 `json:"values"`
	Model  ModelRef  `json:"model"`
}

// Compatible reports whether v was produced by exactly the model m.
func (v EmbeddingVector) Compatible(m ModelRef) bool {
	if v.Model != m || len(v.Values) == 0 {
		return false
	}
	return m.Dimension == 0 || len(v.Values) == m.Dimension
}
