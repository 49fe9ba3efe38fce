// Package scorer 实现排序分计算：静态加权、聚类个性化加权、
// ML 打分及其缓存/微批装饰器，以及新鲜度/作者多样性调整。
package scorer

import "github.com/rushteam/feedkit/core"

// 互动权重常量。负反馈行为携带负权重；为 0 的权重保留位置，
// 便于与打分向量下标一一对应。
const (
	FavoriteWeight         = 1.0
	ReplyWeight            = 27.0
	RetweetWeight          = 1.0
	PhotoExpandWeight      = 0.0
	ClickWeight            = 0.0
	ProfileClickWeight     = 12.0
	VideoQualityViewWeight = 0.3
	ShareWeight            = 0.0
	ShareViaDMWeight       = 0.0
	ShareViaCopyLinkWeight = 0.0
	DwellWeight            = 0.0
	QuoteWeight            = 0.0
	QuotedClickWeight      = 0.0
	ContinuousDwellWeight  = 0.0
	FollowAuthorWeight     = 0.0

	NotInterestedWeight = -74.0
	BlockAuthorWeight   = 0.0
	MuteAuthorWeight    = 0.0
	ReportWeight        = -369.0
)

// PositiveWeightsSum 是全部非负权重之和（含视频权重），
// NegativeWeightsSum 是负权重绝对值之和。两者用于负分归一化。
const (
	PositiveWeightsSum = FavoriteWeight + ReplyWeight + RetweetWeight +
		PhotoExpandWeight + ClickWeight + ProfileClickWeight +
		VideoQualityViewWeight + ShareWeight + ShareViaDMWeight +
		ShareViaCopyLinkWeight + DwellWeight + QuoteWeight +
		QuotedClickWeight + ContinuousDwellWeight + FollowAuthorWeight

	NegativeWeightsSum = -NotInterestedWeight - BlockAuthorWeight -
		MuteAuthorWeight - ReportWeight
)

// NegativeScoresOffset 是归一化的可配置偏移量默认值。
const NegativeScoresOffset = 0.0

// MinVideoDurationMS 是视频权重生效的最小视频时长（毫秒）。
const MinVideoDurationMS = 2000

// FreshnessHalfLifeHours 是新鲜度衰减半衰期（小时）。
const FreshnessHalfLifeHours = 6.0

// AuthorDiversityDecay 是同作者重复出现的衰减系数：
// 第 n 条同作者帖子乘 decay^(n-1)。
const AuthorDiversityDecay = 0.8

// DefaultDiversityBoost 是圈外内容的加乘系数默认值，
// BubbleOverlapThreshold 是判定圈外的主题重叠率上限。
const (
	DefaultDiversityBoost  = 1.3
	BubbleOverlapThreshold = 0.3
)

// baseWeights 返回与 EngagementScores.Vector 下标对齐的静态权重数组。
// vqvWeight 依据视频资格门槛动态传入。
func baseWeights(vqvWeight float64) [core.NumEngagementActions]float64 {
	return [core.NumEngagementActions]float64{
		FavoriteWeight,
		ReplyWeight,
		RetweetWeight,
		PhotoExpandWeight,
		ClickWeight,
		ProfileClickWeight,
		vqvWeight,
		ShareWeight,
		ShareViaDMWeight,
		ShareViaCopyLinkWeight,
		DwellWeight,
		QuoteWeight,
		QuotedClickWeight,
		ContinuousDwellWeight,
		FollowAuthorWeight,
		NotInterestedWeight,
		BlockAuthorWeight,
		MuteAuthorWeight,
		ReportWeight,
	}
}
