package scorer

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// RolloutScorer 是按浏览者的灰度分流装饰器：Gate 命中走 On，
// 否则走 Off。用于缓存/微批/个性化打分的渐进放量。
//
// 约束：On 与 Off 必须拥有同一组候选字段（Update 语义一致），
// 否则灰度内外的候选会携带不同字段。
type RolloutScorer struct {
	// Gate 按浏览者判定是否命中灰度
	Gate func(viewerID int64) bool

	On  pipeline.Scorer
	Off pipeline.Scorer
}

func (s *RolloutScorer) Name() string {
	return "scorer.rollout(" + s.On.Name() + "|" + s.Off.Name() + ")"
}

func (s *RolloutScorer) Score(
	ctx context.Context,
	query *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) ([]*core.PostCandidate, error) {
	return s.pick(query.ViewerID).Score(ctx, query, candidates)
}

func (s *RolloutScorer) Update(candidate *core.PostCandidate, scored *core.PostCandidate) {
	// On/Off 的 Update 语义一致，固定委托 On
	s.On.Update(candidate, scored)
}

func (s *RolloutScorer) pick(viewerID int64) pipeline.Scorer {
	if s.Gate != nil && s.Gate(viewerID) {
		return s.On
	}
	return s.Off
}

var _ pipeline.Scorer = (*RolloutScorer)(nil)
