package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/metrics"
)

// Pipeline 是 feedkit 的核心编排器：为一次请求依序执行全部 Stage，
// 返回最终的降序候选列表。
//
// 阶段顺序（固定且确定）：
//  1. QueryHydrators 顺序执行（允许改写 query）
//  2. Sources 并发执行，结果拼接
//  3. Hydrators 顺序执行
//  4. Filters 顺序执行（移除的候选不再处理，按名称计数）
//  5. Scorers 按声明顺序执行，增量经 Update 合并回候选
//  6. Selector 缩减到 Top-K
//  7. 选后 Hydrators / Filters（集合已小，允许更贵的补全）
//  8. SideEffects 异步触发（失败只记日志）
//
// 任一 1-7 阶段失败即请求失败，不返回部分结果：静默跳过某个
// Stage 有下发不安全或过期内容的风险。
type Pipeline struct {
	QueryHydrators         []QueryHydrator
	Sources                []Source
	Hydrators              []Hydrator
	Filters                []Filter
	Scorers                []Scorer
	Selector               Selector
	PostSelectionHydrators []Hydrator
	PostSelectionFilters   []Filter
	SideEffects            []SideEffect

	// Logger 用于副作用失败与阶段耗时日志（零值可用）
	Logger zerolog.Logger

	// Metrics 为空时不打点
	Metrics *metrics.Metrics
}

// Execute 为一个请求执行完整链路。
func (p *Pipeline) Execute(ctx context.Context, query *core.ScoredPostsQuery) ([]*core.PostCandidate, error) {
	start := time.Now()

	candidates, err := p.execute(ctx, query)
	p.Metrics.ObserveRequest(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (p *Pipeline) execute(ctx context.Context, query *core.ScoredPostsQuery) ([]*core.PostCandidate, error) {
	// 1. 请求补全
	for _, h := range p.QueryHydrators {
		if err := h.Hydrate(ctx, query); err != nil {
			return nil, fmt.Errorf("query hydrator %s: %w", h.Name(), err)
		}
	}

	// 2. 并发召回候选
	candidates, err := p.fetchCandidates(ctx, query)
	if err != nil {
		return nil, err
	}

	// 3. 候选补全
	for _, h := range p.Hydrators {
		if err := h.Hydrate(ctx, query, candidates); err != nil {
			return nil, fmt.Errorf("hydrator %s: %w", h.Name(), err)
		}
	}

	// 4. 过滤
	candidates, err = p.runFilters(ctx, query, candidates, p.Filters)
	if err != nil {
		return nil, err
	}

	// 5. 打分：每个 Scorer 产出增量，经 Update 合并回原候选
	for _, s := range p.Scorers {
		scored, err := s.Score(ctx, query, candidates)
		if err != nil {
			return nil, fmt.Errorf("scorer %s: %w", s.Name(), err)
		}
		if len(scored) != len(candidates) {
			return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInternalError,
				fmt.Sprintf("scorer %s returned %d results for %d candidates", s.Name(), len(scored), len(candidates)))
		}
		for i := range candidates {
			s.Update(candidates[i], scored[i])
		}
	}

	// 6. Top-K 选择
	if p.Selector != nil {
		candidates, err = p.Selector.Select(ctx, query, candidates)
		if err != nil {
			return nil, fmt.Errorf("selector %s: %w", p.Selector.Name(), err)
		}
	}

	// 7. 选后补全与过滤
	for _, h := range p.PostSelectionHydrators {
		if err := h.Hydrate(ctx, query, candidates); err != nil {
			return nil, fmt.Errorf("post-selection hydrator %s: %w", h.Name(), err)
		}
	}
	candidates, err = p.runFilters(ctx, query, candidates, p.PostSelectionFilters)
	if err != nil {
		return nil, err
	}

	// 最终面向用户的排列：按分数降序（Selector 只保证集合正确）
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score() > candidates[j].Score()
	})

	// 8. 副作用：不阻塞响应，失败不影响请求
	p.fireSideEffects(ctx, query, candidates)

	return candidates, nil
}

// fetchCandidates 并发执行所有 Source 并拼接结果。
func (p *Pipeline) fetchCandidates(ctx context.Context, query *core.ScoredPostsQuery) ([]*core.PostCandidate, error) {
	if len(p.Sources) == 0 {
		return nil, nil
	}

	var (
		mu  sync.Mutex
		all []*core.PostCandidate
	)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, src := range p.Sources {
		s := src
		eg.Go(func() error {
			items, err := s.Fetch(egCtx, query)
			if err != nil {
				return fmt.Errorf("source %s: %w", s.Name(), err)
			}
			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

func (p *Pipeline) runFilters(
	ctx context.Context,
	query *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
	filters []Filter,
) ([]*core.PostCandidate, error) {
	for _, f := range filters {
		result, err := f.Filter(ctx, query, candidates)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", f.Name(), err)
		}
		if n := len(result.Removed); n > 0 {
			p.Metrics.CountFilterRemovals(f.Name(), n)
		}
		candidates = result.Kept
	}
	return candidates, nil
}

// fireSideEffects 异步触发全部副作用。
// 使用 WithoutCancel：请求返回后副作用仍可完成，但进程退出不保证。
func (p *Pipeline) fireSideEffects(ctx context.Context, query *core.ScoredPostsQuery, selected []*core.PostCandidate) {
	if len(p.SideEffects) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	for _, se := range p.SideEffects {
		effect := se
		go func() {
			if err := effect.Run(detached, query, selected); err != nil {
				p.Logger.Warn().
					Err(err).
					Str("side_effect", effect.Name()).
					Int64("viewer_id", query.ViewerID).
					Msg("side effect failed")
			}
		}()
	}
}
