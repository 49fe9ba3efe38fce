package scorer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
)

func TestBatchedScorerConfigValidation(t *testing.T) {
	inner := &fakeScorer{}
	bad := []BatchConfig{
		{MaxBatchRequests: 0, MaxWait: time.Millisecond},
		{MaxBatchRequests: -1, MaxWait: time.Millisecond},
		{MaxBatchRequests: 8, MaxWait: 0},
	}
	for _, cfg := range bad {
		if _, err := NewBatchedScorer(inner, cfg); !core.IsInvalidInput(err) {
			t.Errorf("NewBatchedScorer(%+v) error = %v, want INVALID_INPUT", cfg, err)
		}
	}
}

func TestBatchedScorerAggregatesConcurrentRequests(t *testing.T) {
	inner := &fakeScorer{}
	s, err := NewBatchedScorer(inner, BatchConfig{MaxBatchRequests: 4, MaxWait: 200 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewBatchedScorer() error = %v", err)
	}
	defer s.Close()

	var wg sync.WaitGroup
	results := make([][]*core.PostCandidate, 4)
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			candidates := []*core.PostCandidate{
				core.NewPostCandidate(int64(100+i*2), 1),
				core.NewPostCandidate(int64(101+i*2), 1),
			}
			results[i], errs[i] = s.Score(context.Background(),
				&core.ScoredPostsQuery{ViewerID: int64(i)}, candidates)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d error = %v", i, errs[i])
		}
		if len(results[i]) != 2 {
			t.Fatalf("request %d got %d results, want 2", i, len(results[i]))
		}
		// 各请求拿回自己候选的打分（拍扁后按边界切回）
		for j, want := range []int64{int64(100 + i*2), int64(101 + i*2)} {
			if got := *results[i][j].Scores.Favorite; got != float64(want) {
				t.Errorf("request %d result %d score = %v, want %v", i, j, got, want)
			}
		}
	}

	// 四个请求在时限内聚成一个批次、一次内层调用
	if inner.callCount() != 1 {
		t.Errorf("inner calls = %d, want 1", inner.callCount())
	}
	stats := s.Stats()
	if stats.TotalRequests != 4 || stats.TotalBatches != 1 {
		t.Errorf("stats = %+v, want 4 requests / 1 batch", stats)
	}
}

func TestBatchedScorerTimeoutFlush(t *testing.T) {
	inner := &fakeScorer{}
	s, err := NewBatchedScorer(inner, BatchConfig{MaxBatchRequests: 100, MaxWait: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewBatchedScorer() error = %v", err)
	}
	defer s.Close()

	// 单个请求不可能填满批次，依赖时限冲刷
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	scored, err := s.Score(ctx, &core.ScoredPostsQuery{ViewerID: 1},
		[]*core.PostCandidate{core.NewPostCandidate(7, 1)})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(scored) != 1 || *scored[0].Scores.Favorite != 7 {
		t.Errorf("scored = %+v, want single result for post 7", scored)
	}
}

func TestBatchedScorerAtomicFailure(t *testing.T) {
	innerErr := errors.New("inference backend down")
	inner := &fakeScorer{err: innerErr}
	s, err := NewBatchedScorer(inner, BatchConfig{MaxBatchRequests: 3, MaxWait: 200 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewBatchedScorer() error = %v", err)
	}
	defer s.Close()

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Score(context.Background(), &core.ScoredPostsQuery{ViewerID: 1},
				[]*core.PostCandidate{core.NewPostCandidate(int64(i), 1)})
		}(i)
	}
	wg.Wait()

	// 批次失败是原子的：批内所有请求收到同一个错误
	for i, e := range errs {
		if !errors.Is(e, innerErr) {
			t.Errorf("request %d error = %v, want %v", i, e, innerErr)
		}
	}
}

func TestBatchedScorerEmptyInput(t *testing.T) {
	inner := &fakeScorer{}
	s, err := NewBatchedScorer(inner, DefaultBatchConfig())
	if err != nil {
		t.Fatalf("NewBatchedScorer() error = %v", err)
	}
	defer s.Close()

	scored, err := s.Score(context.Background(), &core.ScoredPostsQuery{ViewerID: 1}, nil)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if scored != nil {
		t.Errorf("scored = %v, want nil", scored)
	}
	if inner.callCount() != 0 {
		t.Errorf("inner calls = %d, want 0", inner.callCount())
	}
}

func TestBatchedScorerClosed(t *testing.T) {
	inner := &fakeScorer{}
	s, err := NewBatchedScorer(inner, DefaultBatchConfig())
	if err != nil {
		t.Fatalf("NewBatchedScorer() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	_, err = s.Score(context.Background(), &core.ScoredPostsQuery{ViewerID: 1},
		[]*core.PostCandidate{core.NewPostCandidate(1, 1)})
	if !core.IsUnavailable(err) {
		t.Errorf("Score() after Close error = %v, want UNAVAILABLE", err)
	}
}
