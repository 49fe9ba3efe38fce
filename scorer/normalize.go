package scorer

// offsetScore 是两分支归一化：
//   - 正权重和为 0 时，直接钳到非负；
//   - 原始分为负时，按 (raw + Σ|负权重|) / Σ正权重 重缩放后乘偏移；
//   - 否则在非负原始分上直接加偏移。
//
// 负分支的重缩放让强负反馈（block/mute/report）不会产出相对正信号
// 量级无界的分数。
func offsetScore(combined, offset float64) float64 {
	switch {
	case PositiveWeightsSum == 0:
		return max(combined, 0)
	case combined < 0:
		return (combined + NegativeWeightsSum) / PositiveWeightsSum * offset
	default:
		return combined + offset
	}
}

// normalizeScore 是最终的分数归一化钳制。
func normalizeScore(score float64) float64 {
	return max(score, 0)
}
