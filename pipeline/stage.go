package pipeline

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// 本文件定义排序链路的全部 Stage 契约。
//
// 设计原则：
//   - 每类 Stage 一个能力接口，Pipeline 只持有接口的有序集合，
//     从不依赖具体实现（可插拔、可编排、可观测）
//   - Scorer 之间只通过各自声明拥有的字段通信，单次调用无状态
//   - 装饰器（缓存、微批）实现同一个 Scorer 接口做组合，不做继承

// QueryHydrator 在候选生成前补全请求上下文（允许改写 query 自有字段）。
type QueryHydrator interface {
	Name() string
	Hydrate(ctx context.Context, query *core.ScoredPostsQuery) error
}

// Source 产出原始候选集。多个 Source 由 Pipeline 并发执行并拼接结果。
type Source interface {
	Name() string
	Fetch(ctx context.Context, query *core.ScoredPostsQuery) ([]*core.PostCandidate, error)
}

// Hydrator 为存活候选补充字段（顺序执行，允许就地修改候选）。
type Hydrator interface {
	Name() string
	Hydrate(ctx context.Context, query *core.ScoredPostsQuery, candidates []*core.PostCandidate) error
}

// FilterResult 是一次过滤的二分结果：保留集与移除集。
// 移除的候选不再进入后续 Stage；移除原因按 Filter 名称计数观测。
type FilterResult struct {
	Kept    []*core.PostCandidate
	Removed []*core.PostCandidate
}

// Filter 把候选集二分为保留/移除两部分。
type Filter interface {
	Name() string
	Filter(ctx context.Context, query *core.ScoredPostsQuery, candidates []*core.PostCandidate) (FilterResult, error)
}

// Scorer 为每个候选产出一个打分增量（scored delta）。
//
// 契约约束：
//   - 返回值与输入一一对应（不重排、不丢弃）
//   - 返回的是全新的增量候选，只填充本 Scorer 拥有的字段
//   - Pipeline 随后逐个调用 Update 把增量合并回原候选
//
// 这样缓存/微批装饰器可以包裹任意 Scorer 而保持接口透明，
// 两个装饰器可以任意顺序叠放。
type Scorer interface {
	Name() string
	Score(ctx context.Context, query *core.ScoredPostsQuery, candidates []*core.PostCandidate) ([]*core.PostCandidate, error)

	// Update 把 scored 增量中本 Scorer 拥有的字段合并进 candidate
	Update(candidate *core.PostCandidate, scored *core.PostCandidate)
}

// Selector 把打分后的候选集缩减到至多 K 个（K 为部署常量）。
// 只保证入选集合正确；最终面向用户的降序排列由 Pipeline 完成。
type Selector interface {
	Name() string
	Select(ctx context.Context, query *core.ScoredPostsQuery, candidates []*core.PostCandidate) ([]*core.PostCandidate, error)
}

// SideEffect 在最终结果确定后触发（fire-and-forget）。
// 失败只记录日志，绝不影响请求结果。
type SideEffect interface {
	Name() string
	Run(ctx context.Context, query *core.ScoredPostsQuery, selected []*core.PostCandidate) error
}
