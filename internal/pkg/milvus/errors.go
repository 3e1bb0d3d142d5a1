package milvus

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultRetries    = 1
	DefaultRetryDelay = 20 * time.Millisecond
)

var (
	ErrInvalidConfig         = errors.New("milvus: invalid config")
	ErrClientClosed          = errors.New("milvus: client is closed")
	ErrInvalidCollectionName = errors.New("milvus: invalid collection name")
	ErrInvalidVectorData     = errors.New("milvus: invalid vector data")
	ErrInvalidFieldName      = errors.New("milvus: invalid field name")
	ErrConnectionFailed      = errors.New("milvus: connection failed")
	ErrOperationTimeout      = errors.New("milvus: operation timeout")
)

// Error represents a Milvus error with additional context
type Error struct {
	Op         string
	Collection string
	Field      string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("milvus: %s failed", e.Op)
	if e.Collection != "" {
		msg += " for collection=" + e.Collection
	}
	if e.Field != "" {
		msg += ", field=" + e.Field
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with operation and collection context
func WrapError(op string, err error, collection, field string) error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) && me.Op == op {
		return err
	}
	return &Error{Op: op, Collection: collection, Field: field, Err: err}
}

// IsNotFound reports a missing collection, partition or index.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(strings.ToLower(err.Error()), "not found", "not exist", "doesn't exist")
}

// IsTimeout checks if the error is a timeout error
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOperationTimeout) {
		return true
	}
	return containsAny(strings.ToLower(err.Error()), "timeout", "timed out", "deadline exceeded")
}

// IsConnectionError checks if the error is a connection error
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectionFailed) {
		return true
	}
	return containsAny(strings.ToLower(err.Error()), "connection", "dial", "unavailable", "unreachable")
}

func isRetryable(err error) bool {
	return IsTimeout(err) || IsConnectionError(err)
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
