package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsExistingCode(t *testing.T) {
	base := New(ErrSearchInvalidMode, "mode=turbo")
	wrapped := Wrap(fmt.Errorf("dispatch: %w", base), ErrInternalServer)

	assert.Equal(t, ErrSearchInvalidMode, wrapped.Code)
	assert.True(t, Is(wrapped, ErrSearchInvalidMode))
	assert.Nil(t, Wrap(nil, ErrInternalServer))
}

func TestExtractCodeAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		status int
	}{
		{"workspace", New(ErrSearchInvalidWorkspace), ErrSearchInvalidWorkspace, http.StatusBadRequest},
		{"cancelled", New(ErrSearchCancelled), ErrSearchCancelled, http.StatusRequestTimeout},
		{"plain error", errors.New("x"), ErrInternalServer, http.StatusInternalServerError},
		{"unknown code", &AppError{Code: 424242}, 424242, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ExtractCode(tt.err))
			assert.Equal(t, tt.status, GetHTTPStatus(ExtractCode(tt.err)))
		})
	}
}

func TestGetDetails(t *testing.T) {
	assert.Equal(t, "limit", GetDetails(New(ErrSearchInvalidPaging, "limit")))
	assert.Equal(t, "boom", GetDetails(Wrap(errors.New("boom"), ErrInternalServer)))
	assert.Equal(t, "plain", GetDetails(errors.New("plain")))
	assert.Equal(t, "Unknown search mode: turbo", FormatError(ErrSearchInvalidMode, "turbo"))
}
