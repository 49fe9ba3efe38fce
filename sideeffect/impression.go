// Package sideeffect 实现结果确定后的收尾动作（fire-and-forget）：
// 失败只记录日志，绝不影响请求结果。
package sideeffect

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// ImpressionRecorder 把本次下发的帖子 ID 写入曝光历史存储，
// 供 SeenPostsFilter 在后续请求中排除。
//
// 存储结构：有序集合，member 为帖子 ID，score 为下发时间戳（毫秒），
// key 为 {KeyPrefix}:{ViewerID}。写入失败由 Pipeline 记录日志后丢弃。
type ImpressionRecorder struct {
	Store core.KeyValueStore

	// KeyPrefix 与 SeenPostsFilter 保持一致（默认 "viewer:served"）
	KeyPrefix string

	Logger zerolog.Logger
}

func (r *ImpressionRecorder) Name() string { return "sideeffect.impression" }

func (r *ImpressionRecorder) Run(ctx context.Context, query *core.ScoredPostsQuery, selected []*core.PostCandidate) error {
	if r.Store == nil || len(selected) == 0 {
		return nil
	}

	prefix := r.KeyPrefix
	if prefix == "" {
		prefix = "viewer:served"
	}
	key := prefix + ":" + strconv.FormatInt(query.ViewerID, 10)
	now := float64(time.Now().UnixMilli())

	for _, c := range selected {
		if err := r.Store.ZAdd(ctx, key, now, strconv.FormatInt(c.PostID, 10)); err != nil {
			return err
		}
	}
	r.Logger.Debug().
		Int64("viewer_id", query.ViewerID).
		Int("count", len(selected)).
		Msg("impressions recorded")
	return nil
}

var _ pipeline.SideEffect = (*ImpressionRecorder)(nil)
