package config

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pkg/snowflake"
	"github.com/rushteam/feedkit/store"
)

type stubPostStore struct {
	candidates []*core.PostCandidate
}

func (s *stubPostStore) FetchCandidates(_ context.Context, _ int64, _ []int64, _ int) ([]*core.PostCandidate, error) {
	return s.candidates, nil
}

type stubScoring struct{}

func (s *stubScoring) Score(_ context.Context, _ *core.ScoredPostsQuery, candidates []*core.PostCandidate) ([]*core.PostCandidate, error) {
	scored := make([]*core.PostCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = &core.PostCandidate{
			Scores: core.EngagementScores{Favorite: core.Float64(float64(c.AuthorID) / 100)},
		}
	}
	return scored, nil
}

func (s *stubScoring) Health(_ context.Context) error { return nil }
func (s *stubScoring) Close() error                   { return nil }

// recentPostID 构造指定年龄的帖子标识（相对真实当前时间，
// 工厂装配的年龄过滤器使用 time.Now）。
func recentPostID(age time.Duration) int64 {
	return snowflake.FromTimestamp(time.Now().Add(-age).UnixMilli())
}

func TestBuildValidation(t *testing.T) {
	cfg := Default()
	cfg.ResultSize = 0
	if _, _, err := Build(cfg, Dependencies{PostStore: &stubPostStore{}}); !core.IsInvalidInput(err) {
		t.Errorf("Build() error = %v, want INVALID_INPUT", err)
	}

	cfg = Default()
	if _, _, err := Build(cfg, Dependencies{Scoring: &stubScoring{}}); !core.IsInvalidInput(err) {
		t.Errorf("Build() without post store error = %v, want INVALID_INPUT", err)
	}

	// 没有注入打分服务也没有推理端点：装配失败
	cfg = Default()
	if _, _, err := Build(cfg, Dependencies{PostStore: &stubPostStore{}}); !core.IsInvalidInput(err) {
		t.Errorf("Build() without inference endpoint error = %v, want INVALID_INPUT", err)
	}
}

func TestBuildEndToEnd(t *testing.T) {
	// 三个候选：两个同作者、一个已被看过
	candidates := []*core.PostCandidate{
		core.NewPostCandidate(recentPostID(time.Hour), 80),
		core.NewPostCandidate(recentPostID(2*time.Hour), 80),
		core.NewPostCandidate(recentPostID(30*time.Minute), 50),
	}

	history := store.NewMemoryStore()
	defer history.Close()

	cfg := Default()
	cfg.ResultSize = 10
	cfg.Batching.Enabled = false // 单测里避免后台消费者
	cfg.Personalization.Enabled = false

	p, cleanup, err := Build(cfg, Dependencies{
		PostStore: &stubPostStore{candidates: candidates},
		History:   history,
		Scoring:   &stubScoring{},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer cleanup()

	got, err := p.Execute(context.Background(), &core.ScoredPostsQuery{
		ViewerID: 1,
		SeenIDs:  []int64{candidates[2].PostID},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// 已看过的候选被过滤；剩余两个按分数降序
	if len(got) != 2 {
		t.Fatalf("Execute() returned %d candidates, want 2", len(got))
	}
	if got[0].Score() < got[1].Score() {
		t.Errorf("results not in descending order: %v, %v", got[0].Score(), got[1].Score())
	}
	for _, c := range got {
		if c.PostID == candidates[2].PostID {
			t.Error("seen post should have been filtered")
		}
		if c.WeightedScore == nil {
			t.Error("selected candidate missing weighted score")
		}
	}
}
