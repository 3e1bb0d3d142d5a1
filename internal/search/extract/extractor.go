package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Kind 实体类型
type Kind string

const (
	KindHandle   Kind = "handle"    // @sarah
	KindIssueRef Kind = "issue_ref" // #123
	KindRepoRef  Kind = "repo_ref"  // owner/repo#123
	KindRoute    Kind = "route"     // GET /api/users
	KindCommit   Kind = "commit"    // a1b2c3d
	KindIssueKey Kind = "issue_key" // LIN-42
)

// Entity 抽取到的实体
type Entity struct {
	Kind Kind
	Key  string
}

type rule struct {
	kind  Kind
	re    *regexp.Regexp
	group int
	key   func(text string, m []int) string
	valid func(key string) bool
}

// Extractor 基于规则的实体键抽取器
type Extractor struct {
	rules []rule
}

// NewExtractor 创建抽取器
func NewExtractor() *Extractor {
	lower := func(group int) func(string, []int) string {
		return func(text string, m []int) string {
			return strings.ToLower(text[m[2*group]:m[2*group+1]])
		}
	}
	return &Extractor{
		rules: []rule{
			{
				kind:  KindRepoRef,
				re:    regexp.MustCompile(`(?:^|[^\w/.-])([A-Za-z0-9][\w.-]*/[\w.-]+#\d+)\b`),
				group: 1,
				key:   lower(1),
			},
			{
				kind:  KindIssueRef,
				re:    regexp.MustCompile(`(?:^|[^\w/&])(#\d+)\b`),
				group: 1,
				key:   lower(1),
			},
			{
				kind:  KindHandle,
				re:    regexp.MustCompile(`(?:^|[^\w@.])(@[A-Za-z0-9][A-Za-z0-9_-]{0,38})`),
				group: 1,
				key:   lower(1),
			},
			{
				kind:  KindRoute,
				re:    regexp.MustCompile(`(?i)\b(GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS)\s+(/[^\s?#"'` + "`" + `]*)`),
				group: 0,
				key: func(text string, m []int) string {
					method := strings.ToUpper(text[m[2]:m[3]])
					path := strings.TrimRight(text[m[4]:m[5]], ".,;:!?)")
					return strings.ToLower(method + " " + path)
				},
			},
			{
				kind:  KindIssueKey,
				re:    regexp.MustCompile(`\b([A-Z][A-Z0-9]{1,9}-\d+)\b`),
				group: 1,
				key:   lower(1),
			},
			{
				kind:  KindCommit,
				re:    regexp.MustCompile(`(?i)\b([0-9a-f]{7,40})\b`),
				group: 1,
				key:   lower(1),
				valid: looksLikeSHA,
			},
		},
	}
}

type match struct {
	start, end int
	entity     Entity
}

// ExtractEntities 按出现顺序返回去重后的实体，重叠时保留起点更早、跨度更长的匹配
func (e *Extractor) ExtractEntities(text string) []Entity {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var matches []match
	for _, r := range e.rules {
		for _, m := range r.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2*r.group], m[2*r.group+1]
			if start < 0 {
				continue
			}
			key := r.key(text, m)
			if r.valid != nil && !r.valid(key) {
				continue
			}
			matches = append(matches, match{start: start, end: end, entity: Entity{Kind: r.kind, Key: key}})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].end > matches[j].end
	})

	seen := make(map[string]struct{}, len(matches))
	out := make([]Entity, 0, len(matches))
	covered := -1
	for _, m := range matches {
		if m.start < covered {
			continue
		}
		covered = m.end
		if _, dup := seen[m.entity.Key]; dup {
			continue
		}
		seen[m.entity.Key] = struct{}{}
		out = append(out, m.entity)
	}
	return out
}

// Extract 返回实体查找键
func (e *Extractor) Extract(text string) []string {
	entities := e.ExtractEntities(text)
	if len(entities) == 0 {
		return nil
	}
	keys := make([]string, len(entities))
	for i, ent := range entities {
		keys[i] = ent.Key
	}
	return keys
}

// looksLikeSHA 需同时包含数字和字母，避免把纯数字或普通单词当成提交哈希
func looksLikeSHA(s string) bool {
	var digit, letter bool
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digit = true
		case c >= 'a' && c <= 'f':
			letter = true
		}
	}
	return digit && letter
}
