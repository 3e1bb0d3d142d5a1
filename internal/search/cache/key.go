package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/lk2023060901/activity-search/internal/search/types"
)

// NormalizeQuery lower-cases, trims and collapses internal whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func digest(parts interface{}) string {
	// json.Marshal of a struct of strings and ints cannot fail
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// EmbeddingKey derives the embedding cache key from the normalized query and
// the full model identity.
func EmbeddingKey(prefix, normalizedQuery string, model types.ModelRef) string {
	return prefix + digest(struct {
		Q         string `json:"q"`
		Provider  string `json:"p"`
		Model     string `json:"m"`
		Dimension int    `json:"d"`
	}{normalizedQuery, model.Provider, model.Name, model.Dimension})
}

// ResultKey derives the result cache key. The workspace is both hashed and kept
// as a readable key segment, so no two tenants can share an entry.
func ResultKey(prefix string, q *types.Query) string {
	return prefix + q.WorkspaceID + ":" + digest(struct {
		Workspace string `json:"w"`
		Q         string `json:"q"`
		Mode      string `json:"mode"`
		Limit     int    `json:"l"`
		Offset    int    `json:"o"`
		Filters   string `json:"f"`
	}{q.WorkspaceID, NormalizeQuery(q.Text), string(q.Mode), q.Limit, q.Offset, q.Filters.Canonical()})
}
