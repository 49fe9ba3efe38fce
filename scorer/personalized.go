package scorer

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/personalize"
	"github.com/rushteam/feedkit/pipeline"
)

// PersonalizedWeightedScorer 与 WeightedScorer 同公式，但每个权重先经
// 浏览者聚类画像调制：
//   - favorite/reply/retweet 乘互动乘数
//   - photo-expand 乘图片偏好
//   - 视频权重乘视频偏好再翻倍（已知视频偏好者信号更强）
//   - 互动乘数 > 1.2 时 share 族权重再乘 1.5
//   - 负反馈权重乘 1 + 10·负反馈敏感率（敏感浏览者保护力度更大）
//
// 归一化与 WeightedScorer 完全一致（使用静态权重和）。
type PersonalizedWeightedScorer struct {
	Clusters *personalize.UserClusteringService

	// Offset 是归一化偏移量（默认 0）
	Offset float64
}

func (s *PersonalizedWeightedScorer) Name() string { return "scorer.personalized" }

func (s *PersonalizedWeightedScorer) Score(
	_ context.Context,
	query *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) ([]*core.PostCandidate, error) {
	cluster := s.Clusters.Profile(query.ViewerID)

	scored := make([]*core.PostCandidate, len(candidates))
	for i, c := range candidates {
		weighted := s.computePersonalizedScore(c, cluster)
		scored[i] = &core.PostCandidate{
			WeightedScore: core.Float64(normalizeScore(weighted)),
		}
	}
	return scored, nil
}

func (s *PersonalizedWeightedScorer) Update(candidate *core.PostCandidate, scored *core.PostCandidate) {
	candidate.WeightedScore = scored.WeightedScore
}

func (s *PersonalizedWeightedScorer) computePersonalizedScore(
	c *core.PostCandidate,
	cluster personalize.ClusterProfile,
) float64 {
	shareMultiplier := 1.0
	if cluster.EngagementMultiplier > 1.2 {
		shareMultiplier = 1.5
	}
	negativeMultiplier := 1.0 + cluster.NegativeFeedbackRate*10.0

	scores := c.Scores.Vector()
	weights := [core.NumEngagementActions]float64{
		FavoriteWeight * cluster.EngagementMultiplier,
		ReplyWeight * cluster.EngagementMultiplier,
		RetweetWeight * cluster.EngagementMultiplier,
		PhotoExpandWeight * cluster.ImagePreference,
		ClickWeight,
		ProfileClickWeight,
		personalizedVQVWeight(c, cluster),
		ShareWeight * shareMultiplier,
		ShareViaDMWeight * shareMultiplier,
		ShareViaCopyLinkWeight * shareMultiplier,
		DwellWeight,
		QuoteWeight,
		QuotedClickWeight,
		ContinuousDwellWeight,
		FollowAuthorWeight,
		NotInterestedWeight * negativeMultiplier,
		BlockAuthorWeight * negativeMultiplier,
		MuteAuthorWeight * negativeMultiplier,
		ReportWeight * negativeMultiplier,
	}

	combined := 0.0
	for i := range scores {
		combined += scores[i] * weights[i]
	}
	return offsetScore(combined, s.Offset)
}

// personalizedVQVWeight：视频资格门槛之上，权重乘视频偏好并相对
// 非个性化版本翻倍。
func personalizedVQVWeight(c *core.PostCandidate, cluster personalize.ClusterProfile) float64 {
	if c.HasVideoLongerThan(MinVideoDurationMS) {
		return VideoQualityViewWeight * cluster.VideoPreference * 2.0
	}
	return 0
}

var _ pipeline.Scorer = (*PersonalizedWeightedScorer)(nil)
