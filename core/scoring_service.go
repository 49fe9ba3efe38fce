package core

import "context"

// ScoringService 是外部 ML 推理服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（service）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//   - 避免循环依赖：领域层不依赖基础设施层
//
// 契约约束：
//   - 返回的候选与输入一一对应：不重排、不丢弃
//   - 只填充 Scores（打分向量），不触碰其它字段
//   - 调用代价高（GPU 推理、网络往返），上层通过缓存与微批化摊薄
//
// 实现：
//   - service.InferenceClient 实现此接口（HTTP/JSON）
//   - 测试中可用任意桩实现替换
type ScoringService interface {
	// Score 批量预测：为每个候选填充互动概率向量
	Score(ctx context.Context, query *ScoredPostsQuery, candidates []*PostCandidate) ([]*PostCandidate, error)

	// Health 健康检查
	Health(ctx context.Context) error

	// Close 关闭连接
	Close() error
}
