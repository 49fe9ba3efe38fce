package store

import (
	"context"
	"testing"

	"github.com/rushteam/feedkit/core"
)

func TestMemoryStoreGetSet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("Get(missing) error = %v, want NOT_FOUND", err)
	}

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get(k) = (%q, %v), want (v, nil)", got, err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("Get after Delete error = %v, want NOT_FOUND", err)
	}
}

func TestMemoryStoreBatch(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	kvs := map[string][]byte{"a": []byte("1"), "b": []byte("2")}
	if err := s.BatchSet(ctx, kvs); err != nil {
		t.Fatalf("BatchSet() error = %v", err)
	}

	got, err := s.BatchGet(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("BatchGet() error = %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("BatchGet() = %v, want a=1 b=2", got)
	}
}

func TestMemoryStoreZSet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	for member, score := range map[string]float64{"100": 1.0, "200": 2.0, "300": 3.0} {
		if err := s.ZAdd(ctx, "served", score, member); err != nil {
			t.Fatalf("ZAdd() error = %v", err)
		}
	}

	// ZRange 按 score 降序
	got, err := s.ZRange(ctx, "served", 0, 1)
	if err != nil {
		t.Fatalf("ZRange() error = %v", err)
	}
	if len(got) != 2 || got[0] != "300" || got[1] != "200" {
		t.Errorf("ZRange(0,1) = %v, want [300 200]", got)
	}

	// ZRangeByScore 按分数窗口
	got, err = s.ZRangeByScore(ctx, "served", 1.5, 3.0)
	if err != nil {
		t.Fatalf("ZRangeByScore() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ZRangeByScore(1.5, 3.0) = %v, want 2 members", got)
	}

	score, err := s.ZScore(ctx, "served", "200")
	if err != nil || score != 2.0 {
		t.Errorf("ZScore(200) = (%v, %v), want (2.0, nil)", score, err)
	}
	if _, err := s.ZScore(ctx, "served", "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("ZScore(missing) error = %v, want NOT_FOUND", err)
	}
}
