// Package filter 实现候选过滤：按年龄、曝光历史、安全规则
// 把候选集二分为保留/移除两部分。
package filter

import (
	"context"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/snowflake"
)

// DefaultMaxPostAge 是帖子的默认最大年龄：超过即移除。
const DefaultMaxPostAge = 7 * 24 * time.Hour

// AgeFilter 是帖子年龄过滤器：年龄从雪花 ID 直接解出，超过 MaxAge
// 的候选移除。解不出年龄（未来 ID）的候选保留，交给后续阶段处理。
type AgeFilter struct {
	// MaxAge 是最大年龄上限（<= 0 时取 DefaultMaxPostAge）
	MaxAge time.Duration

	// Now 供测试注入，缺省 time.Now
	Now func() time.Time
}

func (f *AgeFilter) Name() string { return "filter.age" }

func (f *AgeFilter) Filter(
	_ context.Context,
	_ *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) (pipeline.FilterResult, error) {
	maxAge := f.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxPostAge
	}
	now := time.Now()
	if f.Now != nil {
		now = f.Now()
	}

	var result pipeline.FilterResult
	for _, c := range candidates {
		age, ok := snowflake.Age(c.PostID, now)
		if ok && age > maxAge {
			result.Removed = append(result.Removed, c)
			continue
		}
		result.Kept = append(result.Kept, c)
	}
	return result, nil
}

var _ pipeline.Filter = (*AgeFilter)(nil)
