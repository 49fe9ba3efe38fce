package sideeffect

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rushteam/feedkit/core"
)

type fakeZStore struct {
	core.KeyValueStore

	err     error
	keys    []string
	members []string
}

func (f *fakeZStore) ZAdd(_ context.Context, key string, _ float64, member string) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.members = append(f.members, member)
	return nil
}

func TestImpressionRecorder(t *testing.T) {
	store := &fakeZStore{}
	r := &ImpressionRecorder{Store: store, Logger: zerolog.Nop()}

	selected := []*core.PostCandidate{
		core.NewPostCandidate(100, 1),
		core.NewPostCandidate(200, 2),
	}
	if err := r.Run(context.Background(), &core.ScoredPostsQuery{ViewerID: 42}, selected); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(store.members) != 2 || store.members[0] != "100" || store.members[1] != "200" {
		t.Errorf("recorded members = %v, want [100 200]", store.members)
	}
	for _, key := range store.keys {
		if key != "viewer:served:42" {
			t.Errorf("key = %q, want viewer:served:42", key)
		}
	}
}

func TestImpressionRecorderStoreFailure(t *testing.T) {
	r := &ImpressionRecorder{Store: &fakeZStore{err: errors.New("redis down")}, Logger: zerolog.Nop()}
	err := r.Run(context.Background(), &core.ScoredPostsQuery{ViewerID: 1},
		[]*core.PostCandidate{core.NewPostCandidate(1, 1)})
	if err == nil {
		t.Fatal("Run() should surface store failure to the pipeline logger")
	}
}

func TestImpressionRecorderNilStore(t *testing.T) {
	r := &ImpressionRecorder{Logger: zerolog.Nop()}
	if err := r.Run(context.Background(), &core.ScoredPostsQuery{ViewerID: 1},
		[]*core.PostCandidate{core.NewPostCandidate(1, 1)}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
