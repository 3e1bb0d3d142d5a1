package data

import (
	"context"
	"fmt"

	"github.com/lk2023060901/activity-search/internal/pkg/database"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultRepresentativesPerCluster 每个聚类最多返回的代表文档数
const DefaultRepresentativesPerCluster = 20

// ClusterRepo 主题聚类仓储，centroid 存在 pgvector 列上
type ClusterRepo struct {
	db                 *database.DB
	representativesCap int
}

// NewClusterRepo 创建聚类仓储
func NewClusterRepo(db *database.DB, representatives int) *ClusterRepo {
	if representatives <= 0 {
		representatives = DefaultRepresentativesPerCluster
	}
	return &ClusterRepo{db: db, representativesCap: representatives}
}

type clusterRow struct {
	ID         string
	Similarity float64
}

type memberRow struct {
	ClusterID     string
	ObservationID string
}

// NearestClusters 按余弦距离返回最近的 n 个聚类及其代表文档
func (r *ClusterRepo) NearestClusters(ctx context.Context, workspaceID string, vector []float32, n int, filters types.Filters) ([]types.ClusterHit, error) {
	db := r.db.WithContext(ctx).GetDB()

	var clusters []clusterRow
	if err := r.nearestQuery(db, workspaceID, vector, n).Scan(&clusters).Error; err != nil {
		return nil, fmt.Errorf("failed to query nearest clusters: %w", err)
	}
	if len(clusters) == 0 {
		return nil, types.ErrNoData
	}

	ids := make([]string, len(clusters))
	for i, c := range clusters {
		ids[i] = c.ID
	}

	var members []memberRow
	if err := r.membersQuery(db, workspaceID, ids, filters).Scan(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to load cluster members: %w", err)
	}

	return groupMembers(clusters, members, r.representativesCap), nil
}

func (r *ClusterRepo) nearestQuery(db *gorm.DB, workspaceID string, vector []float32, n int) *gorm.DB {
	vec := pgvector.NewVector(vector)
	return db.Model(&ClusterPO{}).
		Select("id, 1 - (centroid <=> ?) AS similarity", vec).
		Where("workspace_id = ?", workspaceID).
		Clauses(clause.OrderBy{Expression: clause.Expr{SQL: "centroid <=> ?", Vars: []interface{}{vec}}}).
		Scopes(database.LimitTo(n))
}

func (r *ClusterRepo) membersQuery(db *gorm.DB, workspaceID string, clusterIDs []string, filters types.Filters) *gorm.DB {
	return db.Table("topic_cluster_members AS m").
		Select("m.cluster_id AS cluster_id, m.observation_id AS observation_id").
		Joins(joinObservations("m")).
		Where("m.workspace_id = ?", workspaceID).
		Where("m.cluster_id IN ?", clusterIDs).
		Scopes(observationFilters("o", filters)).
		Order("m.cluster_id").
		Order("m.rank ASC")
}

// groupMembers 保持聚类的相似度顺序，成员按 rank 截断
func groupMembers(clusters []clusterRow, members []memberRow, capPerCluster int) []types.ClusterHit {
	byCluster := make(map[string][]string, len(clusters))
	for _, m := range members {
		if len(byCluster[m.ClusterID]) >= capPerCluster {
			continue
		}
		byCluster[m.ClusterID] = append(byCluster[m.ClusterID], m.ObservationID)
	}

	hits := make([]types.ClusterHit, 0, len(clusters))
	for _, c := range clusters {
		sim := c.Similarity
		if sim < 0 {
			sim = 0
		}
		hits = append(hits, types.ClusterHit{
			ClusterID:                 c.ID,
			Similarity:                sim,
			RepresentativeDocumentIDs: byCluster[c.ID],
		})
	}
	return hits
}
