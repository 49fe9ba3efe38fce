package config

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/feature"
	"github.com/rushteam/feedkit/filter"
	"github.com/rushteam/feedkit/hydrate"
	"github.com/rushteam/feedkit/metrics"
	"github.com/rushteam/feedkit/personalize"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/rerank"
	"github.com/rushteam/feedkit/scorer"
	"github.com/rushteam/feedkit/service"
	"github.com/rushteam/feedkit/sideeffect"
	"github.com/rushteam/feedkit/source"
)

// Dependencies 是装配 Pipeline 需要的外部协作方。
// 必填：PostStore。Scoring 为空时按 cfg.Inference 创建 HTTP 客户端。
type Dependencies struct {
	PostStore   core.PostStore
	FollowGraph core.FollowGraph

	// History 是曝光历史存储（为空则不做曝光过滤/记录）
	History core.KeyValueStore

	// Scoring 是 ML 推理依赖（为空时按 cfg.Inference 创建）
	Scoring core.ScoringService

	// FeatureLoader 提供浏览者画像特征（为空则不做兴趣水化）
	FeatureLoader feature.Loader

	// Clusters 为空且个性化开启时按 cfg.Personalization 创建
	Clusters *personalize.UserClusteringService

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Build 按配置装配完整的排序 Pipeline。
// 返回的 cleanup 停掉微批消费者等后台资源，进程退出前调用。
func Build(cfg Config, deps Dependencies) (*pipeline.Pipeline, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if deps.PostStore == nil {
		return nil, nil, invalid("post store dependency is required")
	}

	scoring := deps.Scoring
	if scoring == nil {
		if cfg.Inference.Endpoint == "" {
			return nil, nil, invalid("inference endpoint is required when no scoring service is injected")
		}
		var opts []service.InferenceOption
		if cfg.Inference.Timeout > 0 {
			opts = append(opts, service.WithInferenceTimeout(cfg.Inference.Timeout))
		}
		if cfg.Inference.ModelVersion != "" {
			opts = append(opts, service.WithInferenceVersion(cfg.Inference.ModelVersion))
		}
		scoring = service.NewInferenceClient(cfg.Inference.Endpoint, cfg.Inference.ModelName, opts...)
	}

	mlStack, cleanup, err := buildMLStack(cfg, scoring, deps)
	if err != nil {
		return nil, nil, err
	}

	weightedStack, err := buildWeightedStack(cfg, deps)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	filters, err := buildFilters(cfg, deps)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	selector, err := rerank.NewTopK(cfg.ResultSize)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	p := &pipeline.Pipeline{
		Sources: []pipeline.Source{
			&source.PostStoreSource{Store: deps.PostStore, Graph: deps.FollowGraph, Limit: cfg.FetchLimit},
		},
		Filters: filters,
		Scorers: []pipeline.Scorer{
			mlStack,
			weightedStack,
			&scorer.FreshnessScorer{},
			&scorer.DiversityBoostScorer{Boost: cfg.DiversityBoost},
			&scorer.AuthorDiversityScorer{},
		},
		Selector: selector,
		Logger:   deps.Logger,
		Metrics:  deps.Metrics,
	}

	if deps.FeatureLoader != nil {
		p.QueryHydrators = append(p.QueryHydrators,
			&hydrate.InterestHydrator{Loader: deps.FeatureLoader, Logger: deps.Logger})
	}
	if deps.History != nil {
		p.SideEffects = append(p.SideEffects,
			&sideeffect.ImpressionRecorder{Store: deps.History, Logger: deps.Logger})
	}

	return p, func() error { cleanup(); return nil }, nil
}

// buildMLStack 按灰度配置把 MLScorer 包上微批与缓存装饰器。
// 叠放顺序：cached(batched(ml)) — 缓存命中时连批次都不进。
func buildMLStack(cfg Config, scoring core.ScoringService, deps Dependencies) (pipeline.Scorer, func(), error) {
	ml := &scorer.MLScorer{Service: scoring}
	var stack pipeline.Scorer = ml
	cleanup := func() {}

	if cfg.Batching.Enabled {
		batched, err := scorer.NewBatchedScorer(ml, scorer.BatchConfig{
			MaxBatchRequests: cfg.Batching.MaxBatchRequests,
			MaxWait:          cfg.Batching.MaxWait,
		}, scorer.WithBatchMetrics(deps.Metrics))
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { batched.Close() }
		stack = gated(Rollout{Enabled: true, Percent: cfg.Batching.RolloutPercent}, batched, stack)
	}

	if cfg.Caching.Enabled {
		cached, err := scorer.NewCachedScorer(stack, scorer.CacheConfig{
			UserCacheSize:     cfg.Caching.UserCacheSize,
			TrendingCacheSize: cfg.Caching.TrendingCacheSize,
			UserCacheTTL:      cfg.Caching.UserCacheTTL,
			TrendingTTL:       cfg.Caching.TrendingTTL,
		}, scorer.WithCacheMetrics(deps.Metrics), scorer.WithCacheLogger(deps.Logger))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		stack = gated(Rollout{Enabled: true, Percent: cfg.Caching.RolloutPercent}, cached, stack)
	}

	return stack, cleanup, nil
}

// buildWeightedStack 按灰度配置在个性化与静态加权之间分流。
func buildWeightedStack(cfg Config, deps Dependencies) (pipeline.Scorer, error) {
	weighted := &scorer.WeightedScorer{}
	if !cfg.Personalization.Enabled {
		return weighted, nil
	}

	clusters := deps.Clusters
	if clusters == nil {
		var err error
		clusters, err = personalize.NewUserClusteringService(cfg.Personalization.NumClusters)
		if err != nil {
			return nil, err
		}
	}
	personalized := &scorer.PersonalizedWeightedScorer{Clusters: clusters}
	return gated(Rollout{Enabled: true, Percent: cfg.Personalization.RolloutPercent}, personalized, weighted), nil
}

func buildFilters(cfg Config, deps Dependencies) ([]pipeline.Filter, error) {
	filters := []pipeline.Filter{
		&filter.AgeFilter{MaxAge: time.Duration(cfg.MaxPostAgeHours) * time.Hour},
	}
	if deps.History != nil {
		filters = append(filters, &filter.SeenPostsFilter{Store: deps.History, Logger: deps.Logger})
	} else {
		filters = append(filters, &filter.SeenPostsFilter{Logger: deps.Logger})
	}
	if len(cfg.Safety.Rules) > 0 {
		safety, err := filter.NewSafetyRuleFilter(cfg.Safety.Rules, cfg.Safety.Strict, deps.Logger)
		if err != nil {
			return nil, err
		}
		filters = append(filters, safety)
	}
	return filters, nil
}

// gated 把灰度开关接成分流装饰器；全量时直接返回 on。
func gated(r Rollout, on, off pipeline.Scorer) pipeline.Scorer {
	if r.Percent >= 100 {
		return on
	}
	return &scorer.RolloutScorer{Gate: r.Hit, On: on, Off: off}
}
