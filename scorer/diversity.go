package scorer

import (
	"context"
	"sort"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// AuthorDiversityScorer 抑制同作者刷屏：把每个作者的候选按加权分
// 降序排名，作者的第 n 条乘以 decay^(n-1)。每个作者最强的一条不受
// 影响，后续条目几何衰减。
//
// DiversityBoost 记录实际施加的乘数，供下游观测与调试。
type AuthorDiversityScorer struct{}

func (s *AuthorDiversityScorer) Name() string { return "scorer.author_diversity" }

func (s *AuthorDiversityScorer) Score(
	_ context.Context,
	_ *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) ([]*core.PostCandidate, error) {
	// 各作者的候选下标按加权分降序
	byAuthor := make(map[int64][]int)
	for i, c := range candidates {
		byAuthor[c.AuthorID] = append(byAuthor[c.AuthorID], i)
	}

	scored := make([]*core.PostCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = &core.PostCandidate{
			WeightedScore:  c.WeightedScore,
			DiversityBoost: core.Float64(1.0),
		}
	}

	for _, indices := range byAuthor {
		sort.SliceStable(indices, func(a, b int) bool {
			return candidates[indices[a]].Score() > candidates[indices[b]].Score()
		})
		for rank, idx := range indices {
			c := candidates[idx]
			if c.WeightedScore == nil {
				continue
			}
			penalized := ApplyDiversityPenalty(*c.WeightedScore, rank+1)
			boost := 1.0
			if *c.WeightedScore != 0 {
				boost = penalized / *c.WeightedScore
			}
			scored[idx].WeightedScore = core.Float64(penalized)
			scored[idx].DiversityBoost = core.Float64(boost)
		}
	}
	return scored, nil
}

func (s *AuthorDiversityScorer) Update(candidate *core.PostCandidate, scored *core.PostCandidate) {
	candidate.WeightedScore = scored.WeightedScore
	candidate.DiversityBoost = scored.DiversityBoost
}

var _ pipeline.Scorer = (*AuthorDiversityScorer)(nil)
