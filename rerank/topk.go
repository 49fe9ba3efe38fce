// Package rerank 实现打分后的候选缩减：从 N 个已打分候选中
// 选出排序分最高的 K 个。
package rerank

import (
	"context"
	"fmt"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// TopK 用快速选择（quickselect）挑出分数最高的 K 个候选：
// 平均 O(n)，优于整体排序的 O(n log n)。只保证入选集合正确，
// 不保证入选者之间的相对顺序；最终降序排列由 Pipeline 完成。
//
// 并列处理：第 K 名附近分数相同的候选，入选者任意。
type TopK struct {
	// K 是保留的候选数上限
	K int
}

// NewTopK 创建 Top-K 选择器；k <= 0 视为配置错误。
func NewTopK(k int) (*TopK, error) {
	if k <= 0 {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput,
			fmt.Sprintf("top-k selector: k %d must be > 0", k))
	}
	return &TopK{K: k}, nil
}

func (s *TopK) Name() string { return "rerank.topk" }

func (s *TopK) Select(
	_ context.Context,
	_ *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) ([]*core.PostCandidate, error) {
	if len(candidates) <= s.K {
		return candidates, nil
	}

	// 在副本上做原地划分，不动调用方的切片
	working := make([]*core.PostCandidate, len(candidates))
	copy(working, candidates)
	quickselect(working, s.K)
	return working[:s.K], nil
}

// quickselect 把 working 划分为前 k 个最大元素在左、其余在右。
// 三数取中选枢轴，避免有序输入退化到 O(n^2)。
func quickselect(working []*core.PostCandidate, k int) {
	lo, hi := 0, len(working)-1
	for lo < hi {
		p := partition(working, lo, hi)
		switch {
		case p == k-1:
			return
		case p < k-1:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

// partition 按降序围绕枢轴划分 [lo, hi]，返回枢轴的最终下标。
func partition(working []*core.PostCandidate, lo, hi int) int {
	mid := lo + (hi-lo)/2
	if working[mid].Score() > working[lo].Score() {
		working[lo], working[mid] = working[mid], working[lo]
	}
	if working[hi].Score() > working[lo].Score() {
		working[lo], working[hi] = working[hi], working[lo]
	}
	if working[mid].Score() > working[hi].Score() {
		working[mid], working[hi] = working[hi], working[mid]
	}
	pivot := working[hi].Score()

	i := lo
	for j := lo; j < hi; j++ {
		if working[j].Score() > pivot {
			working[i], working[j] = working[j], working[i]
			i++
		}
	}
	working[i], working[hi] = working[hi], working[i]
	return i
}

var _ pipeline.Selector = (*TopK)(nil)
