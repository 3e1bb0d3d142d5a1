package milvus

import (
	"fmt"
	"regexp"
	"strings"
)

var collectionNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]`)

// CollectionName 将租户标识转换为合法的 collection 名称
func CollectionName(prefix, workspaceID string) string {
	return prefix + collectionNameSanitizer.ReplaceAllString(workspaceID, "_")
}

// QuoteString 转义并加引号，用于表达式中的字符串字面量
func QuoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// BuildExprIn 构建 IN 表达式
func BuildExprIn(field string, values []interface{}) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case string:
			parts[i] = QuoteString(val)
		default:
			parts[i] = fmt.Sprintf("%v", val)
		}
	}
	return fmt.Sprintf("%s in [%s]", field, strings.Join(parts, ", "))
}

// BuildExprCompare 构建比较表达式，例如 occurred_at >= 1700000000
func BuildExprCompare(field, op string, value interface{}) string {
	return fmt.Sprintf("%s %s %v", field, op, value)
}

// BuildExprAnd 构建 AND 表达式，忽略空表达式
func BuildExprAnd(exprs ...string) string {
	var parts []string
	for _, e := range exprs {
		if e != "" {
			parts = append(parts, e)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, ") && (") + ")"
}
