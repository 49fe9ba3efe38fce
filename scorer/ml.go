package scorer

import (
	"context"
	"fmt"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// MLScorer 把外部 ML 推理依赖接入 Scorer 契约：调用 core.ScoringService
// 为每个候选填充互动概率向量。
//
// 这是链路上最慢、最贵的一步：生产部署应当用 CachedScorer / BatchedScorer
// 包裹本 Scorer（两个装饰器可任意顺序叠放）。
type MLScorer struct {
	Service core.ScoringService
}

func (s *MLScorer) Name() string { return "scorer.ml" }

func (s *MLScorer) Score(
	ctx context.Context,
	query *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) ([]*core.PostCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	scored, err := s.Service.Score(ctx, query, candidates)
	if err != nil {
		return nil, fmt.Errorf("scoring service: %w", err)
	}
	// 依赖契约：不重排、不丢弃
	if len(scored) != len(candidates) {
		return nil, core.NewDomainError(core.ModuleScorer, core.ErrorCodeInternalError,
			fmt.Sprintf("scoring service returned %d results for %d candidates", len(scored), len(candidates)))
	}
	return scored, nil
}

func (s *MLScorer) Update(candidate *core.PostCandidate, scored *core.PostCandidate) {
	candidate.Scores = scored.Scores
}

var _ pipeline.Scorer = (*MLScorer)(nil)
