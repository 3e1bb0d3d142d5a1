package retrieval

import (
	"context"
	"fmt"
	"math"

	"github.com/lk2023060901/activity-search/internal/search/types"
)

// actorDecay 同一成员文档列表按位置衰减
const actorDecay = 0.95

// ActorPath 查询文本中的姓名/handle 与成员画像匹配
type ActorPath struct {
	store types.ActorStore
}

// NewActorPath 创建成员路径
func NewActorPath(store types.ActorStore) *ActorPath {
	return &ActorPath{store: store}
}

func (p *ActorPath) Name() types.PathName { return types.PathActor }

func (p *ActorPath) NeedsEmbedding() bool { return false }

// Search 文档分数 = 匹配置信度 * 0.95^位置
func (p *ActorPath) Search(ctx context.Context, req *Request) ([]*types.Candidate, error) {
	matches, err := p.store.MatchActors(ctx, req.WorkspaceID, req.Text, req.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to match actors: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrSkipped
	}

	c := newCollector(types.PathActor, req.TopK)
	for _, m := range matches {
		for i, id := range m.DocumentIDs {
			c.add(id, m.Confidence*math.Pow(actorDecay, float64(i)))
		}
	}
	return c.candidates(), nil
}
