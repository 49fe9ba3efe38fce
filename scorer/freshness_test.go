package scorer

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pkg/snowflake"
)

func TestFreshnessScorer(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &FreshnessScorer{Now: func() time.Time { return now }}

	newPost := func(age time.Duration, score float64) *core.PostCandidate {
		c := core.NewPostCandidate(snowflake.FromTimestamp(now.Add(-age).UnixMilli()), 1)
		c.SetWeightedScore(score)
		return c
	}

	candidates := []*core.PostCandidate{
		newPost(0, 100),                               // 刚发布（Age 解出 ok=false，原样保留）
		newPost(6*time.Hour, 100),                     // 一个半衰期
		newPost(12*time.Hour, 100),                    // 两个半衰期
		core.NewPostCandidate(snowflake.FromTimestamp(now.UnixMilli()), 2), // 未打分
	}

	scored, err := s.Score(context.Background(), &core.ScoredPostsQuery{ViewerID: 1}, candidates)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	if got := *scored[0].WeightedScore; !almostEqual(got, 100) {
		t.Errorf("zero-age score = %v, want 100", got)
	}
	if got := *scored[1].WeightedScore; !almostEqual(got, 50) {
		t.Errorf("6h-old score = %v, want 50", got)
	}
	if got := *scored[2].WeightedScore; !almostEqual(got, 25) {
		t.Errorf("12h-old score = %v, want 25", got)
	}
	if scored[3].WeightedScore != nil {
		t.Errorf("unscored candidate should stay unscored, got %v", *scored[3].WeightedScore)
	}
}

func TestFreshnessScorerFutureID(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &FreshnessScorer{Now: func() time.Time { return now }}

	// 时钟偏差产出的"未来"标识不做衰减
	c := core.NewPostCandidate(snowflake.FromTimestamp(now.Add(time.Hour).UnixMilli()), 1)
	c.SetWeightedScore(80)

	scored, err := s.Score(context.Background(), &core.ScoredPostsQuery{ViewerID: 1}, []*core.PostCandidate{c})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if got := *scored[0].WeightedScore; !almostEqual(got, 80) {
		t.Errorf("future-ID score = %v, want 80 (no decay)", got)
	}
}
