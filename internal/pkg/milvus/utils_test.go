package milvus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildExprIn(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		values []interface{}
		want   string
	}{
		{"empty", "source_type", nil, ""},
		{"strings", "source_type", []interface{}{"github", "linear"}, `source_type in ["github", "linear"]`},
		{"numbers", "id", []interface{}{1, 2}, `id in [1, 2]`},
		{"escaped", "source_type", []interface{}{`a"b`}, `source_type in ["a\"b"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildExprIn(tt.field, tt.values))
		})
	}
}

func TestBuildExprAnd(t *testing.T) {
	assert.Equal(t, "", BuildExprAnd())
	assert.Equal(t, "a > 1", BuildExprAnd("", "a > 1"))
	assert.Equal(t, "(a > 1) && (b < 2)", BuildExprAnd("a > 1", "", "b < 2"))
	assert.Equal(t, "occurred_at >= 10", BuildExprCompare("occurred_at", ">=", 10))
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "activity_ws_1", CollectionName("activity_", "ws-1"))
	assert.Equal(t, "activity_acme", CollectionName("activity_", "acme"))
}
