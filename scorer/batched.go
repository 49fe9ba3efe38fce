package scorer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/metrics"
	"github.com/rushteam/feedkit/pipeline"
)

// BatchConfig 是微批装饰器的配置。
type BatchConfig struct {
	// MaxBatchRequests 是单个批次聚合的最大请求数，达到即冲刷
	MaxBatchRequests int

	// MaxWait 是首个请求进入批次后的最长等待时间，超时即冲刷
	MaxWait time.Duration
}

// DefaultBatchConfig 返回生产默认值。
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxBatchRequests: 32,
		MaxWait:          10 * time.Millisecond,
	}
}

func (c BatchConfig) validate() error {
	if c.MaxBatchRequests <= 0 {
		return core.NewDomainError(core.ModuleScorer, core.ErrorCodeInvalidInput,
			fmt.Sprintf("max batch requests must be > 0 (got %d)", c.MaxBatchRequests))
	}
	if c.MaxWait <= 0 {
		return core.NewDomainError(core.ModuleScorer, core.ErrorCodeInvalidInput,
			fmt.Sprintf("max wait must be > 0 (got %v)", c.MaxWait))
	}
	return nil
}

// BatchStats 是微批统计快照。
type BatchStats struct {
	TotalRequests uint64
	TotalBatches  uint64
	AvgBatchSize  float64
	AvgWaitMS     float64
}

type batchResult struct {
	scored []*core.PostCandidate
	err    error
}

type batchRequest struct {
	query      *core.ScoredPostsQuery
	candidates []*core.PostCandidate
	enqueuedAt time.Time

	// 单发结果通道（buffered 1）：请求方放弃等待时消费者仍可无阻塞投递
	done chan batchResult
}

// BatchedScorer 是微批装饰器：把并发到达的打分请求聚合成更大的批次，
// 一次性交给内层 Scorer。批次在两个条件之一触发冲刷：
//   - 累计请求数达到 MaxBatchRequests
//   - 首个请求入批后等待超过 MaxWait
//
// 失败是原子的：内层调用失败时批内所有请求收到同一个错误。
//
// 简化约定：整批使用首个请求的 query 下发给内层 Scorer。本装饰器的
// 预期内层是浏览者无关的 ML 推理（概率只依赖帖子特征），个性化加权
// 在批次之外进行；内层打分依赖 viewer 特征时不要套用本装饰器。
type BatchedScorer struct {
	inner   pipeline.Scorer
	cfg     BatchConfig
	metrics *metrics.Metrics

	requests chan *batchRequest

	// closeMu 保证 Close 等到所有在途入队完成后才关闭信号，
	// 消费者排空阶段不会漏掉已入队的请求
	closeMu   sync.RWMutex
	isClosed  bool
	closeOnce sync.Once
	closed    chan struct{}

	mu            sync.Mutex
	totalRequests uint64
	totalBatches  uint64
	totalWait     time.Duration
}

// BatchedOption 配置 BatchedScorer 的可选项。
type BatchedOption func(*BatchedScorer)

func WithBatchMetrics(m *metrics.Metrics) BatchedOption {
	return func(s *BatchedScorer) { s.metrics = m }
}

// NewBatchedScorer 创建微批装饰器并启动消费者协程；配置非法时构造失败。
func NewBatchedScorer(inner pipeline.Scorer, cfg BatchConfig, opts ...BatchedOption) (*BatchedScorer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &BatchedScorer{
		inner:    inner,
		cfg:      cfg,
		requests: make(chan *batchRequest, cfg.MaxBatchRequests*4),
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.consume()
	return s, nil
}

func (s *BatchedScorer) Name() string { return "scorer.batched(" + s.inner.Name() + ")" }

func (s *BatchedScorer) Score(
	ctx context.Context,
	query *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) ([]*core.PostCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	req := &batchRequest{
		query:      query,
		candidates: candidates,
		enqueuedAt: time.Now(),
		done:       make(chan batchResult, 1),
	}

	s.closeMu.RLock()
	if s.isClosed {
		s.closeMu.RUnlock()
		return nil, core.NewDomainError(core.ModuleScorer, core.ErrorCodeUnavailable, "batched scorer is closed")
	}
	select {
	case s.requests <- req:
		s.closeMu.RUnlock()
	case <-ctx.Done():
		s.closeMu.RUnlock()
		return nil, ctx.Err()
	}

	select {
	case res := <-req.done:
		return res.scored, res.err
	case <-ctx.Done():
		// 放弃等待不撤销批内占位；结果由 buffered 通道吸收后丢弃
		return nil, ctx.Err()
	}
}

func (s *BatchedScorer) Update(candidate *core.PostCandidate, scored *core.PostCandidate) {
	s.inner.Update(candidate, scored)
}

// Close 停止接收新请求并冲刷在途批次。
func (s *BatchedScorer) Close() error {
	s.closeOnce.Do(func() {
		s.closeMu.Lock()
		s.isClosed = true
		s.closeMu.Unlock()
		close(s.closed)
	})
	return nil
}

// Stats 返回微批统计（供观测系统消费）。
func (s *BatchedScorer) Stats() BatchStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := BatchStats{
		TotalRequests: s.totalRequests,
		TotalBatches:  s.totalBatches,
	}
	if s.totalBatches > 0 {
		stats.AvgBatchSize = float64(s.totalRequests) / float64(s.totalBatches)
		stats.AvgWaitMS = float64(s.totalWait.Milliseconds()) / float64(s.totalBatches)
	}
	return stats
}

// consume 是唯一的批次消费者：聚合请求直到容量或时限触发，然后整批下发。
func (s *BatchedScorer) consume() {
	var (
		pending []*batchRequest
		timer   *time.Timer
		timeout <-chan time.Time
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		s.dispatch(pending)
		pending = nil
		if timer != nil {
			timer.Stop()
			timer = nil
			timeout = nil
		}
	}

	for {
		select {
		case req := <-s.requests:
			if len(pending) == 0 {
				timer = time.NewTimer(s.cfg.MaxWait)
				timeout = timer.C
			}
			pending = append(pending, req)
			if len(pending) >= s.cfg.MaxBatchRequests {
				flush()
			}
		case <-timeout:
			timer = nil
			timeout = nil
			flush()
		case <-s.closed:
			// 排空通道里已入队的请求后冲刷收尾
			for {
				select {
				case req := <-s.requests:
					pending = append(pending, req)
				default:
					flush()
					return
				}
			}
		}
	}
}

// dispatch 把一个批次拍扁成单次内层调用，再按请求边界切回各自的结果。
func (s *BatchedScorer) dispatch(batch []*batchRequest) {
	now := time.Now()
	wait := now.Sub(batch[0].enqueuedAt)

	total := 0
	for _, req := range batch {
		total += len(req.candidates)
	}
	flattened := make([]*core.PostCandidate, 0, total)
	for _, req := range batch {
		flattened = append(flattened, req.candidates...)
	}

	s.recordBatch(len(batch), wait)
	s.metrics.ObserveBatch(total, wait)

	scored, err := s.inner.Score(context.Background(), batch[0].query, flattened)
	if err == nil && len(scored) != total {
		err = core.NewDomainError(core.ModuleScorer, core.ErrorCodeInternalError,
			fmt.Sprintf("inner scorer returned %d results for %d candidates", len(scored), total))
	}
	if err != nil {
		// 原子失败：批内所有请求收到同一个错误
		for _, req := range batch {
			req.done <- batchResult{err: err}
		}
		return
	}

	offset := 0
	for _, req := range batch {
		n := len(req.candidates)
		req.done <- batchResult{scored: scored[offset : offset+n]}
		offset += n
	}
}

func (s *BatchedScorer) recordBatch(size int, wait time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests += uint64(size)
	s.totalBatches++
	s.totalWait += wait
}

var _ pipeline.Scorer = (*BatchedScorer)(nil)
