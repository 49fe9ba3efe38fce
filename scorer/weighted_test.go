package scorer

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/feedkit/core"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestWeightedScorer(t *testing.T) {
	tests := []struct {
		name      string
		candidate *core.PostCandidate
		offset    float64
		want      float64
	}{
		{
			name:      "empty scores yield zero",
			candidate: core.NewPostCandidate(1, 100),
			want:      0,
		},
		{
			name: "favorite and reply",
			candidate: &core.PostCandidate{
				PostID:   2,
				AuthorID: 100,
				Scores: core.EngagementScores{
					Favorite: core.Float64(0.8),
					Reply:    core.Float64(0.6),
				},
			},
			want: 0.8*FavoriteWeight + 0.6*ReplyWeight, // 17.0
		},
		{
			name: "short video ignores vqv weight",
			candidate: &core.PostCandidate{
				PostID:          3,
				VideoDurationMS: int64Ptr(1500),
				Scores:          core.EngagementScores{VideoQualityView: core.Float64(1.0)},
			},
			want: 0,
		},
		{
			name: "eligible video applies vqv weight",
			candidate: &core.PostCandidate{
				PostID:          4,
				VideoDurationMS: int64Ptr(3000),
				Scores:          core.EngagementScores{VideoQualityView: core.Float64(1.0)},
			},
			want: VideoQualityViewWeight,
		},
		{
			name: "negative raw rescaled by offset",
			candidate: &core.PostCandidate{
				PostID: 5,
				Scores: core.EngagementScores{Report: core.Float64(1.0)},
			},
			offset: 2.0,
			want:   (ReportWeight + NegativeWeightsSum) / PositiveWeightsSum * 2.0,
		},
		{
			name: "negative raw with zero offset clamps to zero",
			candidate: &core.PostCandidate{
				PostID: 6,
				Scores: core.EngagementScores{NotInterested: core.Float64(1.0)},
			},
			want: 0,
		},
		{
			name: "positive raw adds offset",
			candidate: &core.PostCandidate{
				PostID: 7,
				Scores: core.EngagementScores{Favorite: core.Float64(1.0)},
			},
			offset: 3.0,
			want:   FavoriteWeight + 3.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &WeightedScorer{Offset: tt.offset}
			scored, err := s.Score(context.Background(), &core.ScoredPostsQuery{ViewerID: 1}, []*core.PostCandidate{tt.candidate})
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if len(scored) != 1 {
				t.Fatalf("Score() returned %d results, want 1", len(scored))
			}
			got := scored[0].Score()
			if !almostEqual(got, tt.want) {
				t.Errorf("weighted score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeightedScorerUpdate(t *testing.T) {
	s := &WeightedScorer{}
	candidate := core.NewPostCandidate(1, 100)
	scored := &core.PostCandidate{WeightedScore: core.Float64(17.0)}

	s.Update(candidate, scored)
	if got := candidate.Score(); !almostEqual(got, 17.0) {
		t.Errorf("candidate score after Update = %v, want 17.0", got)
	}
}

func int64Ptr(v int64) *int64 { return &v }
