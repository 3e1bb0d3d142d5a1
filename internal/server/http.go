package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/activity-search/internal/conf"
	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/service"
	"go.uber.org/zap"
)

// HealthChecker 依赖组件连通性，值为 "ok" 或错误信息
type HealthChecker interface {
	HealthCheck(ctx context.Context) map[string]string
}

type HTTPServer struct {
	server        *http.Server
	logger        *logger.Logger
	searchService *service.SearchService
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	health HealthChecker,
	searchService *service.SearchService,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLogger(log, "/health"))

	// Health check
	router.GET("/health", healthHandler(health))

	// API routes
	api := router.Group("/api/v1")
	searchService.RegisterRoutes(api)

	return &HTTPServer{
		server: &http.Server{
			Addr:              config.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger:        log.Named("http"),
		searchService: searchService,
	}
}

func healthHandler(health HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		components := health.HealthCheck(ctx)
		code := http.StatusOK
		status := "ok"
		for _, v := range components {
			if v != "ok" {
				code = http.StatusServiceUnavailable
				status = "degraded"
			}
		}
		c.JSON(code, gin.H{
			"status":     status,
			"components": components,
			"time":       time.Now().Format(time.RFC3339),
		})
	}
}

// Handler 暴露路由，供测试直接驱动
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
