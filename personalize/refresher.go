package personalize

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// FeatureSource 提供聚类刷新所需的整批浏览者特征（外部协作方，
// 通常由离线分析作业产出）。
type FeatureSource interface {
	FetchUserFeatures(ctx context.Context) ([]UserFeatures, error)
}

// Refresher 是周期性聚类刷新任务：独立调度、独立取消，
// 与请求处理完全解耦。
type Refresher struct {
	Service  *UserClusteringService
	Source   FeatureSource
	Snapshot *ProfileSnapshot // 可选：刷新后持久化、启动时恢复
	Interval time.Duration    // 默认 24h
	Logger   zerolog.Logger
}

// Run 阻塞运行刷新循环，直到 ctx 取消。启动时先从快照恢复上一轮分配。
// 单次刷新失败只记日志：旧分配继续生效（聚类是性能优化，不是数据源头）。
func (r *Refresher) Run(ctx context.Context) {
	r.restoreFromSnapshot(ctx)

	interval := r.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshOnce(ctx)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	features, err := r.Source.FetchUserFeatures(ctx)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("cluster refresh: fetch user features failed")
		return
	}

	r.Service.Refresh(features)

	stats := r.Service.Stats()
	r.Logger.Info().
		Int("users", stats.TotalUsers).
		Int("clusters", stats.NumClusters).
		Msg("cluster refresh complete")

	if r.Snapshot != nil {
		if err := r.Snapshot.Save(ctx, r.Service.Snapshot()); err != nil {
			r.Logger.Warn().Err(err).Msg("cluster refresh: snapshot save failed")
		}
	}
}

func (r *Refresher) restoreFromSnapshot(ctx context.Context) {
	if r.Snapshot == nil {
		return
	}
	profiles, err := r.Snapshot.Load(ctx)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("cluster refresh: snapshot load failed")
		return
	}
	if len(profiles) == 0 {
		return
	}
	r.Service.Restore(profiles)
	r.Logger.Info().Int("users", len(profiles)).Msg("cluster assignments restored from snapshot")
}
