package rerank

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/rushteam/feedkit/core"
)

func newScored(postID int64, score float64) *core.PostCandidate {
	c := core.NewPostCandidate(postID, postID)
	c.SetWeightedScore(score)
	return c
}

func TestNewTopKValidation(t *testing.T) {
	for _, k := range []int{0, -5} {
		if _, err := NewTopK(k); !core.IsInvalidInput(err) {
			t.Errorf("NewTopK(%d) error = %v, want INVALID_INPUT", k, err)
		}
	}
}

func TestTopKSelectsHighestScores(t *testing.T) {
	s, err := NewTopK(3)
	if err != nil {
		t.Fatalf("NewTopK() error = %v", err)
	}

	candidates := []*core.PostCandidate{
		newScored(1, 0.5),
		newScored(2, 9.0),
		newScored(3, 2.5),
		newScored(4, 7.0),
		newScored(5, 1.0),
		newScored(6, 8.0),
	}

	selected, err := s.Select(context.Background(), &core.ScoredPostsQuery{ViewerID: 1}, candidates)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(selected) != 3 {
		t.Fatalf("Select() kept %d candidates, want 3", len(selected))
	}

	got := make(map[int64]bool, len(selected))
	for _, c := range selected {
		got[c.PostID] = true
	}
	for _, want := range []int64{2, 4, 6} {
		if !got[want] {
			t.Errorf("post %d missing from top-3 %v", want, got)
		}
	}
}

func TestTopKFewerCandidatesThanK(t *testing.T) {
	s, err := NewTopK(100)
	if err != nil {
		t.Fatalf("NewTopK() error = %v", err)
	}

	candidates := []*core.PostCandidate{newScored(1, 1.0), newScored(2, 2.0)}
	selected, err := s.Select(context.Background(), &core.ScoredPostsQuery{ViewerID: 1}, candidates)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(selected) != 2 {
		t.Errorf("Select() kept %d candidates, want all 2", len(selected))
	}
}

func TestTopKDoesNotMutateInput(t *testing.T) {
	s, err := NewTopK(2)
	if err != nil {
		t.Fatalf("NewTopK() error = %v", err)
	}

	candidates := []*core.PostCandidate{
		newScored(1, 1.0), newScored(2, 5.0), newScored(3, 3.0), newScored(4, 4.0),
	}
	if _, err := s.Select(context.Background(), &core.ScoredPostsQuery{ViewerID: 1}, candidates); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	for i, want := range []int64{1, 2, 3, 4} {
		if candidates[i].PostID != want {
			t.Errorf("input slice mutated: index %d = post %d, want %d", i, candidates[i].PostID, want)
		}
	}
}

func TestTopKAgainstSort(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		n := 50 + rng.Intn(200)
		k := 1 + rng.Intn(n)

		candidates := make([]*core.PostCandidate, n)
		for i := range candidates {
			candidates[i] = newScored(int64(i), rng.Float64()*100)
		}

		s, err := NewTopK(k)
		if err != nil {
			t.Fatalf("NewTopK() error = %v", err)
		}
		selected, err := s.Select(context.Background(), &core.ScoredPostsQuery{ViewerID: 1}, candidates)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if len(selected) != k {
			t.Fatalf("trial %d: kept %d, want %d", trial, len(selected), k)
		}

		// 对照全排序：入选集合的最低分不低于落选集合的最高分
		sorted := make([]*core.PostCandidate, n)
		copy(sorted, candidates)
		sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Score() > sorted[b].Score() })
		threshold := sorted[k-1].Score()

		for _, c := range selected {
			if c.Score() < threshold {
				t.Errorf("trial %d: selected score %v below threshold %v", trial, c.Score(), threshold)
			}
		}
	}
}
