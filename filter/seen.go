package filter

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// SeenPostsFilter 是曝光历史过滤器：移除浏览者已看过/已下发过的候选。
// 两路数据源取并集：
//  1. 请求自带的排除集合（query.SeenIDs / query.ServedIDs，客户端上报）
//  2. 曝光历史存储（有序集合：member 为帖子 ID，score 为曝光时间戳，
//     按时间窗口查询，由 ImpressionRecorder 写入）
//
// 存储读取失败降级为只用请求自带集合：宁可少滤也不让请求失败。
type SeenPostsFilter struct {
	// Store 是曝光历史存储（可为 nil：只用请求自带集合）
	Store core.KeyValueStore

	// KeyPrefix 是存储 key 前缀，实际 key 为 {KeyPrefix}:{ViewerID}
	KeyPrefix string

	// TimeWindow 是曝光历史时间窗口（<= 0 时取 24h）
	TimeWindow time.Duration

	Logger zerolog.Logger
}

func (f *SeenPostsFilter) Name() string { return "filter.seen" }

func (f *SeenPostsFilter) Filter(
	ctx context.Context,
	query *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) (pipeline.FilterResult, error) {
	excluded := query.ExcludedIDs()
	f.mergeStoredHistory(ctx, query.ViewerID, excluded)

	var result pipeline.FilterResult
	for _, c := range candidates {
		if _, ok := excluded[c.PostID]; ok {
			result.Removed = append(result.Removed, c)
			continue
		}
		result.Kept = append(result.Kept, c)
	}
	return result, nil
}

func (f *SeenPostsFilter) mergeStoredHistory(ctx context.Context, viewerID int64, excluded map[int64]struct{}) {
	if f.Store == nil {
		return
	}

	window := f.TimeWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	now := time.Now()
	members, err := f.Store.ZRangeByScore(ctx, f.historyKey(viewerID),
		float64(now.Add(-window).UnixMilli()), float64(now.UnixMilli()))
	if err != nil {
		if !core.IsStoreNotFound(err) {
			f.Logger.Warn().Err(err).Int64("viewer_id", viewerID).Msg("seen filter: read exposure history failed")
		}
		return
	}
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		excluded[id] = struct{}{}
	}
}

func (f *SeenPostsFilter) historyKey(viewerID int64) string {
	prefix := f.KeyPrefix
	if prefix == "" {
		prefix = "viewer:served"
	}
	return prefix + ":" + strconv.FormatInt(viewerID, 10)
}

var _ pipeline.Filter = (*SeenPostsFilter)(nil)
