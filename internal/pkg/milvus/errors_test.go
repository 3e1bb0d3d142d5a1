package milvus

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError("Search", nil, "c", ""))

	err := WrapError("Search", errors.New("boom"), "activity_ws", "embedding")
	assert.Equal(t, "milvus: Search failed for collection=activity_ws, field=embedding: boom", err.Error())

	var me *Error
	assert.True(t, errors.As(err, &me))
	assert.Same(t, err, WrapError("Search", err, "other", ""))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("rpc: %w", context.DeadlineExceeded)))
	assert.True(t, IsTimeout(ErrOperationTimeout))
	assert.True(t, IsConnectionError(errors.New("dial tcp: connection refused")))
	assert.True(t, IsNotFound(errors.New("collection not found[collection=x]")))
	assert.False(t, isRetryable(errors.New("invalid expression")))
	assert.False(t, IsTimeout(nil))
}
