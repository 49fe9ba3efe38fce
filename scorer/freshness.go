package scorer

import (
	"context"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/snowflake"
)

// FreshnessScorer 按帖子年龄对加权分做指数衰减：帖子 ID 是雪花 ID，
// 创建时间直接从 ID 解出，不需要额外水化。
//
// 解不出年龄（未来 ID）或尚无加权分的候选原样跳过。
type FreshnessScorer struct {
	// Now 供测试注入，缺省 time.Now
	Now func() time.Time
}

func (s *FreshnessScorer) Name() string { return "scorer.freshness" }

func (s *FreshnessScorer) Score(
	_ context.Context,
	_ *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) ([]*core.PostCandidate, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	scored := make([]*core.PostCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = &core.PostCandidate{WeightedScore: c.WeightedScore}
		if c.WeightedScore == nil {
			continue
		}
		age, ok := snowflake.Age(c.PostID, now)
		if !ok {
			continue
		}
		decayed := ScoreWithFreshness(*c.WeightedScore, age.Hours())
		scored[i].WeightedScore = core.Float64(decayed)
	}
	return scored, nil
}

func (s *FreshnessScorer) Update(candidate *core.PostCandidate, scored *core.PostCandidate) {
	candidate.WeightedScore = scored.WeightedScore
}

var _ pipeline.Scorer = (*FreshnessScorer)(nil)
