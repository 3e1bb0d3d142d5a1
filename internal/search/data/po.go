package data

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// ObservationPO 工程活动记录（commit、PR、部署、issue）
type ObservationPO struct {
	ID          string    `gorm:"type:uuid;primarykey;default:gen_random_uuid()"`
	WorkspaceID string    `gorm:"column:workspace_id;size:64;not null;uniqueIndex:uk_obs_ws_external,priority:1"`
	ExternalID  string    `gorm:"column:external_id;size:128;not null;uniqueIndex:uk_obs_ws_external,priority:2"`
	Title       string    `gorm:"column:title;size:500;not null"`
	Body        string    `gorm:"column:body;type:text"`
	Type        string    `gorm:"column:type;size:50;not null;index:idx_obs_type"`
	Source      string    `gorm:"column:source;size:50;not null;index:idx_obs_source"`
	OccurredAt  time.Time `gorm:"column:occurred_at;not null;index:idx_obs_occurred_at"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (ObservationPO) TableName() string {
	return "observations"
}

// EntityPO 抽取出的实体（@handle、#123、路由等），key 统一小写
type EntityPO struct {
	ID              string    `gorm:"type:uuid;primarykey;default:gen_random_uuid()"`
	WorkspaceID     string    `gorm:"column:workspace_id;size:64;not null;uniqueIndex:uk_entity_ws_key,priority:1"`
	Key             string    `gorm:"column:key;size:255;not null;uniqueIndex:uk_entity_ws_key,priority:2"`
	Kind            string    `gorm:"column:kind;size:32;not null"`
	OccurrenceCount int64     `gorm:"column:occurrence_count;not null;default:0"`
	LastSeenAt      time.Time `gorm:"column:last_seen_at"`
}

func (EntityPO) TableName() string {
	return "entities"
}

// EntityObservationPO 实体与记录的关联，weight 由上游按出现次数和时效计算
type EntityObservationPO struct {
	EntityID      string  `gorm:"column:entity_id;type:uuid;primarykey"`
	ObservationID string  `gorm:"column:observation_id;size:128;primarykey"`
	WorkspaceID   string  `gorm:"column:workspace_id;size:64;not null;index:idx_eo_ws"`
	Weight        float64 `gorm:"column:weight;not null;default:0"`
}

func (EntityObservationPO) TableName() string {
	return "entity_observations"
}

// ClusterPO 预计算的主题聚类
type ClusterPO struct {
	ID          string          `gorm:"type:uuid;primarykey;default:gen_random_uuid()"`
	WorkspaceID string          `gorm:"column:workspace_id;size:64;not null;index:idx_cluster_ws"`
	Label       string          `gorm:"column:label;size:255"`
	Centroid    pgvector.Vector `gorm:"column:centroid;type:vector;not null"`
	Size        int             `gorm:"column:size;not null;default:0"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (ClusterPO) TableName() string {
	return "topic_clusters"
}

// ClusterMemberPO 聚类的代表文档，rank 越小越有代表性
type ClusterMemberPO struct {
	ClusterID     string `gorm:"column:cluster_id;type:uuid;primarykey"`
	ObservationID string `gorm:"column:observation_id;size:128;primarykey"`
	WorkspaceID   string `gorm:"column:workspace_id;size:64;not null"`
	Rank          int    `gorm:"column:rank;not null;default:0"`
}

func (ClusterMemberPO) TableName() string {
	return "topic_cluster_members"
}

// ActorProfilePO 成员画像
type ActorProfilePO struct {
	ID          string   `gorm:"type:uuid;primarykey;default:gen_random_uuid()"`
	WorkspaceID string   `gorm:"column:workspace_id;size:64;not null;index:idx_actor_ws"`
	DisplayName string   `gorm:"column:display_name;size:255"`
	Handles     []string `gorm:"column:handles;type:jsonb;serializer:json"`
}

func (ActorProfilePO) TableName() string {
	return "actor_profiles"
}

// ActorObservationPO 成员与记录的关联
type ActorObservationPO struct {
	ActorID       string  `gorm:"column:actor_id;type:uuid;primarykey"`
	ObservationID string  `gorm:"column:observation_id;size:128;primarykey"`
	WorkspaceID   string  `gorm:"column:workspace_id;size:64;not null"`
	Weight        float64 `gorm:"column:weight;not null;default:0"`
}

func (ActorObservationPO) TableName() string {
	return "actor_observations"
}

// Models 需要迁移的全部表
func Models() []interface{} {
	return []interface{}{
		&ObservationPO{},
		&EntityPO{},
		&EntityObservationPO{},
		&ClusterPO{},
		&ClusterMemberPO{},
		&ActorProfilePO{},
		&ActorObservationPO{},
	}
}
