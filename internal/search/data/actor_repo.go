package data

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lk2023060901/activity-search/internal/pkg/database"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"gorm.io/gorm"
)

// DefaultDocumentsPerActor 每个命中成员最多返回的文档数
const DefaultDocumentsPerActor = 50

// 命中置信度
const (
	confidenceMention   = 1.0
	confidenceHandle    = 0.9
	confidenceFullName  = 0.85
	confidenceFirstName = 0.6
)

// ActorRepo 成员画像仓储
type ActorRepo struct {
	db           *database.DB
	docsPerActor int
}

// NewActorRepo 创建成员仓储
func NewActorRepo(db *database.DB, docsPerActor int) *ActorRepo {
	if docsPerActor <= 0 {
		docsPerActor = DefaultDocumentsPerActor
	}
	return &ActorRepo{db: db, docsPerActor: docsPerActor}
}

type actorDocRow struct {
	ActorID       string
	ObservationID string
}

// MatchActors 把查询文本与成员的 handle 和姓名匹配，返回命中成员及其文档
func (r *ActorRepo) MatchActors(ctx context.Context, workspaceID, queryText string, filters types.Filters) ([]types.ActorMatch, error) {
	db := r.db.WithContext(ctx).GetDB()

	var profiles []ActorProfilePO
	if err := db.Scopes(database.ForWorkspace(workspaceID)).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to load actor profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, types.ErrNoData
	}

	matches := matchProfiles(profiles, queryText)
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ActorID
	}

	var rows []actorDocRow
	if err := r.documentsQuery(db, workspaceID, ids, filters).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load actor documents: %w", err)
	}

	docs := make(map[string][]string, len(matches))
	for _, row := range rows {
		if len(docs[row.ActorID]) >= r.docsPerActor {
			continue
		}
		docs[row.ActorID] = append(docs[row.ActorID], row.ObservationID)
	}
	for i := range matches {
		matches[i].DocumentIDs = docs[matches[i].ActorID]
	}
	return matches, nil
}

func (r *ActorRepo) documentsQuery(db *gorm.DB, workspaceID string, actorIDs []string, filters types.Filters) *gorm.DB {
	return db.Table("actor_observations AS ao").
		Select("ao.actor_id AS actor_id, ao.observation_id AS observation_id").
		Joins(joinObservations("ao")).
		Where("ao.workspace_id = ?", workspaceID).
		Where("ao.actor_id IN ?", actorIDs).
		Scopes(observationFilters("o", filters)).
		Order("ao.actor_id").
		Order("ao.weight DESC").
		Order("o.occurred_at DESC")
}

// matchProfiles 对每个成员取最高置信度的命中方式，结果按置信度降序
func matchProfiles(profiles []ActorProfilePO, queryText string) []types.ActorMatch {
	tokens := queryTokens(queryText)
	if len(tokens) == 0 {
		return nil
	}
	joined := " " + strings.Join(tokens, " ") + " "
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}

	var out []types.ActorMatch
	for _, p := range profiles {
		best := 0.0
		handle := ""
		for _, h := range p.Handles {
			h = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
			if h == "" {
				continue
			}
			if _, ok := set["@"+h]; ok && best < confidenceMention {
				best, handle = confidenceMention, h
			} else if _, ok := set[h]; ok && best < confidenceHandle {
				best, handle = confidenceHandle, h
			}
		}

		name := strings.Join(strings.Fields(strings.ToLower(p.DisplayName)), " ")
		if name != "" {
			if strings.Contains(name, " ") && strings.Contains(joined, " "+name+" ") && best < confidenceFullName {
				best = confidenceFullName
			} else if first := strings.Fields(name)[0]; len(first) >= 3 && best < confidenceFirstName {
				if _, ok := set[first]; ok {
					best = confidenceFirstName
				}
			}
		}

		if best == 0 {
			continue
		}
		if handle == "" && len(p.Handles) > 0 {
			handle = strings.ToLower(strings.TrimPrefix(p.Handles[0], "@"))
		}
		out = append(out, types.ActorMatch{ActorID: p.ID, Handle: handle, Confidence: best})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ActorID < out[j].ActorID
	})
	return out
}

// queryTokens 小写分词并去掉首尾标点和所有格 's
func queryTokens(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,?!:;\"()[]{}<>")
		f = strings.TrimSuffix(strings.TrimSuffix(f, "'s"), "’s")
		f = strings.Trim(f, "'")
		if f != "" && f != "@" {
			out = append(out, f)
		}
	}
	return out
}
