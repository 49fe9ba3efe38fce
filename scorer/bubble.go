package scorer

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// DiversityBoostScorer 给浏览者兴趣圈外的候选加乘，对冲信息茧房：
// 候选主题与浏览者兴趣主题的重叠率低于 BubbleOverlapThreshold 时
// 视为圈外内容，最终分乘 Boost。
//
// 浏览者没有兴趣主题、或候选没有主题标签时不做判定（乘数 1.0）。
type DiversityBoostScorer struct {
	// Boost 是圈外内容的加乘系数；<= 0 时用 DefaultDiversityBoost
	Boost float64
}

func (s *DiversityBoostScorer) Name() string { return "scorer.diversity_boost" }

func (s *DiversityBoostScorer) Score(
	_ context.Context,
	query *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) ([]*core.PostCandidate, error) {
	boost := s.Boost
	if boost <= 0 {
		boost = DefaultDiversityBoost
	}

	scored := make([]*core.PostCandidate, len(candidates))
	for i, c := range candidates {
		m := 1.0
		if outsideBubble(c, query) {
			m = boost
		}
		scored[i] = &core.PostCandidate{DiversityBoost: core.Float64(m)}
	}
	return scored, nil
}

// Update 把加乘系数应用到最终分上；未打分的候选不动。
func (s *DiversityBoostScorer) Update(candidate *core.PostCandidate, scored *core.PostCandidate) {
	if scored.DiversityBoost == nil || candidate.WeightedScore == nil {
		return
	}
	candidate.SetWeightedScore(*candidate.WeightedScore * *scored.DiversityBoost)
}

func outsideBubble(c *core.PostCandidate, query *core.ScoredPostsQuery) bool {
	if len(query.InterestTopics) == 0 || len(c.Topics) == 0 {
		return false
	}

	interests := make(map[string]struct{}, len(query.InterestTopics))
	for _, topic := range query.InterestTopics {
		interests[topic] = struct{}{}
	}
	overlap := 0
	for _, topic := range c.Topics {
		if _, ok := interests[topic]; ok {
			overlap++
		}
	}
	return float64(overlap)/float64(len(c.Topics)) < BubbleOverlapThreshold
}

var _ pipeline.Scorer = (*DiversityBoostScorer)(nil)
