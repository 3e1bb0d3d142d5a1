package service

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/activity-search/internal/pkg/errors"
	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/pkg/response"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"go.uber.org/zap"
)

// CacheHeader 标记响应是否来自结果缓存
const CacheHeader = "X-Search-Cache"

// Searcher 检索用例
type Searcher interface {
	Search(ctx context.Context, q *types.Query) (*types.SearchResponse, error)
}

type SearchService struct {
	searcher Searcher
	logger   *logger.Logger
}

func NewSearchService(searcher Searcher, lgr *logger.Logger) *SearchService {
	if lgr == nil {
		lgr = logger.L()
	}
	return &SearchService{searcher: searcher, logger: lgr.Named("search_service")}
}

func (s *SearchService) RegisterRoutes(r *gin.RouterGroup) {
	workspaces := r.Group("/workspaces/:workspace_id")
	{
		workspaces.POST("/search", s.Search)
	}
}

// Search 执行检索，成功时直接返回检索响应结构
func (s *SearchService) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrSearchInvalidQuery, err.Error())
		return
	}

	workspaceID := c.Param("workspace_id")
	ctx := logger.WithWorkspaceID(c.Request.Context(), workspaceID)

	resp, err := s.searcher.Search(ctx, req.toQuery(workspaceID))
	if err != nil {
		if apperrors.IsClientError(apperrors.ExtractCode(err)) {
			s.logger.WithContext(ctx).Debug("search rejected", zap.Error(err))
		} else {
			s.logger.WithContext(ctx).Error("search failed", zap.Error(err))
		}
		response.HandleError(c, err)
		return
	}

	if resp.Meta.Cached {
		c.Header(CacheHeader, "hit")
	} else {
		c.Header(CacheHeader, "miss")
	}
	c.JSON(http.StatusOK, resp)
}
