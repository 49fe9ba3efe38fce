// Package feedkit 是一个个性化信息流排序工具包（Feed Ranking Kit）。
//
// 设计要点：
// - Pipeline-first: 排序逻辑通过 Stage 串联（Hydrate → Source → Filter →
//   Score → Select → SideEffect），Pipeline 只持有接口，Stage 可插拔
// - 装饰器组合: 缓存（CachedScorer）与微批（BatchedScorer）包裹任意
//   Scorer，对慢速 ML 依赖做吞吐优化，叠放顺序任意
// - 聚类个性化: 浏览者行为聚类画像调制打分权重，灰度开关渐进放量
package feedkit

import (
	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// 轻量 facade：便于用户直接 import "feedkit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type PostCandidate = core.PostCandidate
type ScoredPostsQuery = core.ScoredPostsQuery
type EngagementScores = core.EngagementScores
