package scorer

import (
	"testing"

	"github.com/rushteam/feedkit/core"
)

func TestBatchScorerScoreBatch(t *testing.T) {
	s := NewBatchScorer()

	probs := make([]float64, 2*core.NumEngagementActions)
	probs[0] = 1.0                           // 第 0 行 favorite
	probs[core.NumEngagementActions+1] = 0.5 // 第 1 行 reply

	got, err := s.ScoreBatch(probs, 2)
	if err != nil {
		t.Fatalf("ScoreBatch() error = %v", err)
	}
	if !almostEqual(got[0], FavoriteWeight) {
		t.Errorf("row 0 score = %v, want %v", got[0], FavoriteWeight)
	}
	if !almostEqual(got[1], 0.5*ReplyWeight) {
		t.Errorf("row 1 score = %v, want %v", got[1], 0.5*ReplyWeight)
	}
}

func TestBatchScorerLengthMismatch(t *testing.T) {
	s := NewBatchScorer()
	if _, err := s.ScoreBatch(make([]float64, 5), 2); !core.IsInvalidInput(err) {
		t.Errorf("ScoreBatch() error = %v, want INVALID_INPUT", err)
	}
}

func TestScoreWithFreshness(t *testing.T) {
	tests := []struct {
		name     string
		ageHours float64
		want     float64
	}{
		{"zero age keeps full score", 0, 100},
		{"one half-life halves", FreshnessHalfLifeHours, 50},
		{"two half-lives quarter", 2 * FreshnessHalfLifeHours, 25},
		{"negative age treated as zero", -3, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreWithFreshness(100, tt.ageHours); !almostEqual(got, tt.want) {
				t.Errorf("ScoreWithFreshness(100, %v) = %v, want %v", tt.ageHours, got, tt.want)
			}
		})
	}
}

func TestApplyDiversityPenalty(t *testing.T) {
	tests := []struct {
		name string
		rank int
		want float64
	}{
		{"first post untouched", 1, 100},
		{"second post decays once", 2, 100 * AuthorDiversityDecay},
		{"third post decays twice", 3, 100 * AuthorDiversityDecay * AuthorDiversityDecay},
		{"rank zero treated as first", 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyDiversityPenalty(100, tt.rank); !almostEqual(got, tt.want) {
				t.Errorf("ApplyDiversityPenalty(100, %d) = %v, want %v", tt.rank, got, tt.want)
			}
		})
	}
}
