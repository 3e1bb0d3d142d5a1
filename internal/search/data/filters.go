package data

import (
	"github.com/lk2023060901/activity-search/internal/search/types"
	"gorm.io/gorm"
)

// observationFilters 把过滤条件作用在别名为 alias 的 observations 表上
func observationFilters(alias string, f types.Filters) func(db *gorm.DB) *gorm.DB {
	f = f.Normalized()
	return func(db *gorm.DB) *gorm.DB {
		if len(f.SourceTypes) > 0 {
			db = db.Where("LOWER("+alias+".source) IN ?", f.SourceTypes)
		}
		if f.After != nil {
			db = db.Where(alias+".occurred_at >= ?", *f.After)
		}
		if f.Before != nil {
			db = db.Where(alias+".occurred_at <= ?", *f.Before)
		}
		return db
	}
}

// joinObservations joins the observations row for observation_id on table alias.
func joinObservations(alias string) string {
	return "JOIN observations AS o ON o.workspace_id = " + alias + ".workspace_id AND o.external_id = " + alias + ".observation_id"
}
