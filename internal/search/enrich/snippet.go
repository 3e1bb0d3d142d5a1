package enrich

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	goldmarktext "github.com/yuin/goldmark/text"
)

// DefaultSnippetLength 摘要最大字符数（rune）
const DefaultSnippetLength = 240

// SnippetRenderer 将 Markdown 正文渲染为纯文本摘要
type SnippetRenderer struct {
	md     goldmark.Markdown
	length int
}

// NewSnippetRenderer 创建摘要渲染器
func NewSnippetRenderer(length int) *SnippetRenderer {
	if length <= 0 {
		length = DefaultSnippetLength
	}
	return &SnippetRenderer{md: goldmark.New(), length: length}
}

// Render 解析 Markdown AST 提取可见文本，折叠空白后按词边界截断
func (r *SnippetRenderer) Render(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	source := []byte(body)
	doc := r.md.Parser().Parse(goldmarktext.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				sb.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.AutoLink:
			sb.Write(node.Label(source))
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return cut(strings.Join(strings.Fields(sb.String()), " "), r.length)
}

// cut 超长时在词边界截断并追加省略号
func cut(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)[:limit]
	end := len(runes)
	for i := end - 1; i > limit/2; i-- {
		if unicode.IsSpace(runes[i]) {
			end = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:end]), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) + "…"
}
