package scorer

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// WeightedScorer 是纯函数式的静态加权打分器：
// 打分向量（nil 概率按 0）与静态权重向量做内积，视频权重经资格门槛
// 后参与，最后做两分支偏移归一化。
//
// 新鲜度与多样性不在此公式内，由 FreshnessScorer / AuthorDiversityScorer
// 作为独立的乘法调整阶段实现。
type WeightedScorer struct {
	// Offset 是归一化偏移量（默认 0）
	Offset float64
}

func (s *WeightedScorer) Name() string { return "scorer.weighted" }

func (s *WeightedScorer) Score(
	_ context.Context,
	_ *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) ([]*core.PostCandidate, error) {
	scored := make([]*core.PostCandidate, len(candidates))
	for i, c := range candidates {
		weighted := s.computeWeightedScore(c)
		scored[i] = &core.PostCandidate{
			WeightedScore: core.Float64(normalizeScore(weighted)),
		}
	}
	return scored, nil
}

func (s *WeightedScorer) Update(candidate *core.PostCandidate, scored *core.PostCandidate) {
	candidate.WeightedScore = scored.WeightedScore
}

func (s *WeightedScorer) computeWeightedScore(c *core.PostCandidate) float64 {
	scores := c.Scores.Vector()
	weights := baseWeights(vqvWeightEligibility(c))

	combined := 0.0
	for i := range scores {
		combined += scores[i] * weights[i]
	}
	return offsetScore(combined, s.Offset)
}

// vqvWeightEligibility：视频权重只对时长超过门槛的候选生效，否则贡献 0。
func vqvWeightEligibility(c *core.PostCandidate) float64 {
	if c.HasVideoLongerThan(MinVideoDurationMS) {
		return VideoQualityViewWeight
	}
	return 0
}

var _ pipeline.Scorer = (*WeightedScorer)(nil)
