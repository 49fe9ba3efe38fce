package filter

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pkg/snowflake"
)

func TestAgeFilter(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &AgeFilter{Now: func() time.Time { return now }}

	postAt := func(age time.Duration) *core.PostCandidate {
		return core.NewPostCandidate(snowflake.FromTimestamp(now.Add(-age).UnixMilli()), 1)
	}

	fresh := postAt(time.Hour)
	weekOld := postAt(7*24*time.Hour - time.Minute)
	stale := postAt(8 * 24 * time.Hour)
	future := postAt(-time.Hour)

	result, err := f.Filter(context.Background(), &core.ScoredPostsQuery{ViewerID: 1},
		[]*core.PostCandidate{fresh, weekOld, stale, future})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}

	if len(result.Kept) != 3 {
		t.Errorf("kept %d candidates, want 3", len(result.Kept))
	}
	if len(result.Removed) != 1 || result.Removed[0] != stale {
		t.Errorf("removed = %v, want only the 8-day-old post", result.Removed)
	}
}

func TestAgeFilterCustomMaxAge(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &AgeFilter{MaxAge: time.Hour, Now: func() time.Time { return now }}

	old := core.NewPostCandidate(snowflake.FromTimestamp(now.Add(-2*time.Hour).UnixMilli()), 1)
	result, err := f.Filter(context.Background(), &core.ScoredPostsQuery{ViewerID: 1},
		[]*core.PostCandidate{old})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(result.Removed) != 1 {
		t.Errorf("removed %d candidates, want 1", len(result.Removed))
	}
}
