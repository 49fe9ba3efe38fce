package scorer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/metrics"
	"github.com/rushteam/feedkit/pipeline"
)

// CacheConfig 是打分缓存装饰器的配置。
// 所有容量与 TTL 必须为正：零值边界是构造期错误，不进请求路径。
type CacheConfig struct {
	// UserCacheSize 是 (viewer, post) 个性化缓存的最大条目数
	UserCacheSize int

	// TrendingCacheSize 是全局热点帖子缓存的最大条目数
	TrendingCacheSize int

	// UserCacheTTL / TrendingTTL 是对应缓存的条目存活时间
	UserCacheTTL time.Duration
	TrendingTTL  time.Duration
}

// DefaultCacheConfig 返回生产默认值。
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		UserCacheSize:     10_000_000,
		TrendingCacheSize: 100_000,
		UserCacheTTL:      time.Hour,
		TrendingTTL:       5 * time.Minute,
	}
}

func (c CacheConfig) validate() error {
	if c.UserCacheSize <= 0 || c.TrendingCacheSize <= 0 {
		return core.NewDomainError(core.ModuleScorer, core.ErrorCodeInvalidInput,
			fmt.Sprintf("cache sizes must be > 0 (user %d, trending %d)", c.UserCacheSize, c.TrendingCacheSize))
	}
	if c.UserCacheTTL <= 0 || c.TrendingTTL <= 0 {
		return core.NewDomainError(core.ModuleScorer, core.ErrorCodeInvalidInput,
			fmt.Sprintf("cache TTLs must be > 0 (user %v, trending %v)", c.UserCacheTTL, c.TrendingTTL))
	}
	return nil
}

// CacheStats 是缓存命中统计快照。
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// CachedScorer 是缓存装饰器：包裹任意 Scorer，命中缓存的候选直接复用
// 已算好的打分向量，未命中的合并成一次内层调用重新打分。
//
// 两个相互独立的有界缓存：
//   - 个性化缓存：(viewer, post) → 打分向量
//   - 热点缓存：post → 打分向量（由后台预热任务填充，所有浏览者共享）
//
// 并发纪律：缓存被所有并发请求共享；查表与写回各自持锁且临界区
// 尽可能短，未命中候选的批量重打分在任何锁之外进行。
type CachedScorer struct {
	inner pipeline.Scorer

	userCache     *scoreCache
	trendingCache *scoreCache

	hits   atomic.Uint64
	misses atomic.Uint64

	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// CachedOption 配置 CachedScorer 的可选项。
type CachedOption func(*CachedScorer)

func WithCacheMetrics(m *metrics.Metrics) CachedOption {
	return func(s *CachedScorer) { s.metrics = m }
}

func WithCacheLogger(l zerolog.Logger) CachedOption {
	return func(s *CachedScorer) { s.logger = l }
}

// NewCachedScorer 创建缓存装饰器；配置非法时构造失败。
func NewCachedScorer(inner pipeline.Scorer, cfg CacheConfig, opts ...CachedOption) (*CachedScorer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &CachedScorer{
		inner:         inner,
		userCache:     newScoreCache(cfg.UserCacheSize, cfg.UserCacheTTL),
		trendingCache: newScoreCache(cfg.TrendingCacheSize, cfg.TrendingTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *CachedScorer) Name() string { return "scorer.cached(" + s.inner.Name() + ")" }

func (s *CachedScorer) Score(
	ctx context.Context,
	query *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) ([]*core.PostCandidate, error) {
	results := make([]*core.PostCandidate, len(candidates))

	var (
		missed        []*core.PostCandidate
		missedIndices []int
	)

	// 1. 查缓存：先个性化缓存，再热点缓存
	userHits, trendingHits := 0, 0
	for i, c := range candidates {
		if scores, ok := s.userCache.Get(cacheKey{viewerID: query.ViewerID, postID: c.PostID}); ok {
			results[i] = &core.PostCandidate{Scores: scores}
			s.hits.Add(1)
			userHits++
			continue
		}
		if scores, ok := s.trendingCache.Get(cacheKey{postID: c.PostID}); ok {
			results[i] = &core.PostCandidate{Scores: scores}
			s.hits.Add(1)
			trendingHits++
			continue
		}
		s.misses.Add(1)
		missed = append(missed, c)
		missedIndices = append(missedIndices, i)
	}
	// 未命中个性化缓存的候选都查过热点缓存：两边分别计数
	s.metrics.CountCacheHits("user", userHits)
	s.metrics.CountCacheMisses("user", len(candidates)-userHits)
	s.metrics.CountCacheHits("trending", trendingHits)
	s.metrics.CountCacheMisses("trending", len(missed))

	// 2. 未命中的合并成一次内层调用（锁外），避免 N 次昂贵调用
	if len(missed) > 0 {
		scored, err := s.inner.Score(ctx, query, missed)
		if err != nil {
			// 依赖失败不污染已缓存的命中；本实现把混合失败整体视为失败
			return nil, err
		}
		if len(scored) != len(missed) {
			return nil, core.NewDomainError(core.ModuleScorer, core.ErrorCodeInternalError,
				fmt.Sprintf("inner scorer returned %d results for %d misses", len(scored), len(missed)))
		}

		// 3. 写回缓存（覆盖已过期条目），再按原始顺序合并
		for j, sc := range scored {
			s.userCache.Put(cacheKey{viewerID: query.ViewerID, postID: missed[j].PostID}, sc.Scores)
			results[missedIndices[j]] = sc
		}
	}

	return results, nil
}

// Update 委托给内层 Scorer：装饰器对接口契约保持透明，可与微批装饰器
// 任意顺序叠放。
func (s *CachedScorer) Update(candidate *core.PostCandidate, scored *core.PostCandidate) {
	s.inner.Update(candidate, scored)
}

// Stats 返回命中统计（供观测系统消费）。
func (s *CachedScorer) Stats() CacheStats {
	hits := s.hits.Load()
	misses := s.misses.Load()
	stats := CacheStats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// ClearCaches 清空两个缓存（测试/主动失效用）。
func (s *CachedScorer) ClearCaches() {
	s.userCache.Clear()
	s.trendingCache.Clear()
}

// TrendingFetcher 提供预打分的热点候选（外部协作方，通常来自分析服务）。
type TrendingFetcher func(ctx context.Context) ([]*core.PostCandidate, error)

// StartWarmer 启动后台热点缓存预热任务：周期性拉取热点候选写入
// 全局缓存，并记录当前命中率。随 ctx 取消退出。
func (s *CachedScorer) StartWarmer(ctx context.Context, interval time.Duration, fetch TrendingFetcher) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.warmOnce(ctx, fetch)
			}
		}
	}()
}

func (s *CachedScorer) warmOnce(ctx context.Context, fetch TrendingFetcher) {
	if fetch != nil {
		trending, err := fetch(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache warmer: fetch trending failed")
		} else {
			for _, c := range trending {
				// 未经 ML 打分的热点候选没有可复用的向量
				if c.Scores.IsEmpty() {
					continue
				}
				s.trendingCache.Put(cacheKey{postID: c.PostID}, c.Scores)
			}
		}
	}
	stats := s.Stats()
	s.logger.Info().
		Float64("hit_rate", stats.HitRate).
		Int("trending_entries", s.trendingCache.Len()).
		Msg("cache warmer cycle complete")
}

var _ pipeline.Scorer = (*CachedScorer)(nil)
