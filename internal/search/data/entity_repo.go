package data

import (
	"context"
	"fmt"

	"github.com/lk2023060901/activity-search/internal/pkg/database"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"gorm.io/gorm"
)

// EntityRepo 实体索引仓储
type EntityRepo struct {
	db *database.DB
}

// NewEntityRepo 创建实体仓储
func NewEntityRepo(db *database.DB) *EntityRepo {
	return &EntityRepo{db: db}
}

type entityHitRow struct {
	DocumentID string
	EntityKey  string
	Weight     float64
}

// LookupByKeys 按实体 key 查找关联文档，按权重降序
func (r *EntityRepo) LookupByKeys(ctx context.Context, workspaceID string, keys []string, filters types.Filters, limit int) ([]types.EntityHit, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var rows []entityHitRow
	if err := r.lookupQuery(r.db.WithContext(ctx).GetDB(), workspaceID, keys, filters, limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to lookup entities: %w", err)
	}

	hits := make([]types.EntityHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, types.EntityHit{
			DocumentID: row.DocumentID,
			EntityKey:  row.EntityKey,
			Weight:     row.Weight,
		})
	}
	return hits, nil
}

func (r *EntityRepo) lookupQuery(db *gorm.DB, workspaceID string, keys []string, filters types.Filters, limit int) *gorm.DB {
	return db.Table("entity_observations AS eo").
		Select("eo.observation_id AS document_id, e.key AS entity_key, eo.weight AS weight").
		Joins("JOIN entities AS e ON e.id = eo.entity_id").
		Joins(joinObservations("eo")).
		Where("eo.workspace_id = ?", workspaceID).
		Where("e.key IN ?", keys).
		Scopes(observationFilters("o", filters), database.LimitTo(limit)).
		Order("eo.weight DESC").
		Order("eo.observation_id ASC")
}
