package reranker

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultMaxDocumentTokens 送入重排的文档截断长度
const DefaultMaxDocumentTokens = 300

// Truncator 按 token 预算截断文档；编码器不可用时按单词近似
type Truncator struct {
	encoding  *tiktoken.Tiktoken
	maxTokens int
}

// NewTruncator 创建截断器，encoding 为空时用 cl100k_base
func NewTruncator(encoding string, maxTokens int) *Truncator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxDocumentTokens
	}
	if encoding == "" {
		encoding = "cl100k_base"
	}
	t := &Truncator{maxTokens: maxTokens}
	if enc, err := tiktoken.GetEncoding(encoding); err == nil {
		t.encoding = enc
	}
	return t
}

// Truncate 返回不超过预算的前缀
func (t *Truncator) Truncate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if t.encoding != nil {
		tokens := t.encoding.Encode(text, nil, nil)
		if len(tokens) <= t.maxTokens {
			return text
		}
		return t.encoding.Decode(tokens[:t.maxTokens])
	}

	// 约 0.75 词/token
	maxWords := t.maxTokens * 3 / 4
	if maxWords < 1 {
		maxWords = 1
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ")
}
