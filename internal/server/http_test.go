package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lk2023060901/activity-search/internal/conf"
	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/service"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHealth map[string]string

func (h staticHealth) HealthCheck(context.Context) map[string]string { return h }

type stubSearcher struct{}

func (stubSearcher) Search(_ context.Context, q *types.Query) (*types.SearchResponse, error) {
	return nil, errors.New("backend down")
}

func newTestServer(health HealthChecker) *HTTPServer {
	svc := service.NewSearchService(stubSearcher{}, logger.NewNop())
	return NewHTTPServer(conf.DefaultConfig(), logger.NewNop(), health, svc)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		health staticHealth
		code   int
		status string
	}{
		{"all ok", staticHealth{"database": "ok", "redis": "ok"}, http.StatusOK, "ok"},
		{"database down", staticHealth{"database": "connection refused"}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(tt.health)
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.code, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body["status"])
		})
	}
}

func TestSearchRouteMounted(t *testing.T) {
	srv := newTestServer(staticHealth{"database": "ok"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workspaces/ws1/search", strings.NewReader(`{"query":"auth"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))
}
