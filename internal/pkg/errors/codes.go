package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

const (
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008
	ErrTimeout         = 1009

	// Search errors (6000-6999)
	ErrSearchInvalidWorkspace = 6000
	ErrSearchInvalidQuery     = 6001
	ErrSearchInvalidMode      = 6002
	ErrSearchInvalidPaging    = 6003
	ErrSearchInvalidFilters   = 6004
	ErrSearchCancelled        = 6005
	ErrSearchUnavailable      = 6006
)

var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},
	ErrTimeout:         {ErrTimeout, http.StatusGatewayTimeout, "Request timed out"},

	ErrSearchInvalidWorkspace: {ErrSearchInvalidWorkspace, http.StatusBadRequest, "Invalid workspace identity"},
	ErrSearchInvalidQuery:     {ErrSearchInvalidQuery, http.StatusBadRequest, "Invalid search query"},
	ErrSearchInvalidMode:      {ErrSearchInvalidMode, http.StatusBadRequest, "Unknown search mode"},
	ErrSearchInvalidPaging:    {ErrSearchInvalidPaging, http.StatusBadRequest, "Invalid pagination window"},
	ErrSearchInvalidFilters:   {ErrSearchInvalidFilters, http.StatusBadRequest, "Invalid search filters"},
	ErrSearchCancelled:        {ErrSearchCancelled, http.StatusRequestTimeout, "Search cancelled"},
	ErrSearchUnavailable:      {ErrSearchUnavailable, http.StatusServiceUnavailable, "Search pipeline unavailable"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsClientError checks if the code represents a client error (4xx)
func IsClientError(code int) bool {
	status := GetHTTPStatus(code)
	return status >= 400 && status < 500
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
