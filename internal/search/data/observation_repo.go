package data

import (
	"context"
	"fmt"

	"github.com/lk2023060901/activity-search/internal/pkg/database"
	"github.com/lk2023060901/activity-search/internal/search/types"
)

// ObservationRepo 活动记录仓储，负责富化和重排正文
type ObservationRepo struct {
	db *database.DB
}

// NewObservationRepo 创建活动记录仓储
func NewObservationRepo(db *database.DB) *ObservationRepo {
	return &ObservationRepo{db: db}
}

// FetchByIDs 批量获取文档元数据，缺失的 id 不出现在结果中
func (r *ObservationRepo) FetchByIDs(ctx context.Context, workspaceID string, ids []string) (map[string]*types.Document, error) {
	out := make(map[string]*types.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var pos []ObservationPO
	err := r.db.WithContext(ctx).GetDB().
		Scopes(database.ForWorkspace(workspaceID)).
		Where("external_id IN ?", ids).
		Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observations: %w", err)
	}

	for i := range pos {
		doc := r.toDomain(&pos[i])
		out[doc.ID] = doc
	}
	return out, nil
}

// FetchTexts 返回 title + body 作为重排输入
func (r *ObservationRepo) FetchTexts(ctx context.Context, workspaceID string, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var pos []ObservationPO
	err := r.db.WithContext(ctx).GetDB().
		Select("external_id", "title", "body").
		Scopes(database.ForWorkspace(workspaceID)).
		Where("external_id IN ?", ids).
		Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observation texts: %w", err)
	}

	for _, po := range pos {
		out[po.ExternalID] = documentText(po.Title, po.Body)
	}
	return out, nil
}

func documentText(title, body string) string {
	switch {
	case body == "":
		return title
	case title == "":
		return body
	}
	return title + "\n" + body
}

func (r *ObservationRepo) toDomain(po *ObservationPO) *types.Document {
	return &types.Document{
		ID:         po.ExternalID,
		Title:      po.Title,
		Body:       po.Body,
		Type:       po.Type,
		Source:     po.Source,
		OccurredAt: po.OccurredAt,
	}
}
