// Package hydrate 实现请求上下文水化：候选生成前为 query 补全
// 浏览者画像派生字段。
package hydrate

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/feature"
	"github.com/rushteam/feedkit/pipeline"
)

// InterestHydrator 在候选生成前填充 query.InterestTopics 与
// query.Preferences。特征获取失败降级为空画像并记录日志：
// 画像缺失只影响个性化质量，不应让请求失败。
type InterestHydrator struct {
	Loader feature.Loader
	Logger zerolog.Logger
}

func (h *InterestHydrator) Name() string { return "hydrate.interest" }

func (h *InterestHydrator) Hydrate(ctx context.Context, query *core.ScoredPostsQuery) error {
	if h.Loader == nil {
		return nil
	}

	features, err := h.Loader.LoadViewerFeatures(ctx, query.ViewerID)
	if err != nil {
		h.Logger.Warn().Err(err).Int64("viewer_id", query.ViewerID).Msg("interest hydrator: load features failed")
		return nil
	}

	query.InterestTopics = features.InterestTopics
	query.Preferences = features.Preferences
	return nil
}

var _ pipeline.QueryHydrator = (*InterestHydrator)(nil)
