package scorer

import (
	"fmt"
	"math"

	"github.com/rushteam/feedkit/core"
)

// BatchScorer 提供面向拍扁概率矩阵的批量打分工具：推理服务返回的是
// n × NumEngagementActions 的一维数组，这里一次内积算出 n 个加权分。
//
// 与 WeightedScorer 的区别：这里不做资格门槛（调用方已在特征侧处理），
// 权重向量固定含视频权重。
type BatchScorer struct {
	weights [core.NumEngagementActions]float64
}

// NewBatchScorer 创建使用静态权重的批量打分器。
func NewBatchScorer() *BatchScorer {
	return &BatchScorer{weights: baseWeights(VideoQualityViewWeight)}
}

// ScoreBatch 对拍扁的概率矩阵批量打分。len(probs) 必须等于
// n * NumEngagementActions。
func (s *BatchScorer) ScoreBatch(probs []float64, n int) ([]float64, error) {
	if len(probs) != n*core.NumEngagementActions {
		return nil, core.NewDomainError(core.ModuleScorer, core.ErrorCodeInvalidInput,
			fmt.Sprintf("probs length %d does not match %d candidates x %d actions",
				len(probs), n, core.NumEngagementActions))
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		row := probs[i*core.NumEngagementActions : (i+1)*core.NumEngagementActions]
		combined := 0.0
		for j, p := range row {
			combined += p * s.weights[j]
		}
		out[i] = normalizeScore(offsetScore(combined, NegativeScoresOffset))
	}
	return out, nil
}

// ScoreWithFreshness 对基准分施加指数新鲜度衰减：每过一个半衰期分数
// 减半。负年龄（时钟漂移）按 0 处理。
func ScoreWithFreshness(base float64, ageHours float64) float64 {
	if ageHours < 0 {
		ageHours = 0
	}
	return base * math.Pow(0.5, ageHours/FreshnessHalfLifeHours)
}

// ApplyDiversityPenalty 对同作者第 rank 条（rank 从 1 起）施加几何衰减。
func ApplyDiversityPenalty(score float64, rank int) float64 {
	if rank <= 1 {
		return score
	}
	return score * math.Pow(AuthorDiversityDecay, float64(rank-1))
}
