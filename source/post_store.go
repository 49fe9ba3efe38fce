// Package source 实现候选生成：从外部存储拉取原始候选集。
package source

import (
	"context"
	"fmt"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// DefaultFetchLimit 是单次候选拉取的默认上限。
const DefaultFetchLimit = 500

// PostStoreSource 从帖子存储拉取浏览者关注网络内的候选。
// 关注列表由 FollowGraph 提供；FollowGraph 为 nil 时按空关注列表拉取
// （存储侧可据此返回全局候选）。
type PostStoreSource struct {
	Store core.PostStore
	Graph core.FollowGraph

	// Limit 是单次拉取上限（<= 0 时取 DefaultFetchLimit）
	Limit int
}

func (s *PostStoreSource) Name() string { return "source.post_store" }

func (s *PostStoreSource) Fetch(ctx context.Context, query *core.ScoredPostsQuery) ([]*core.PostCandidate, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultFetchLimit
	}

	var followingIDs []int64
	if s.Graph != nil {
		ids, err := s.Graph.FollowingIDs(ctx, query.ViewerID)
		if err != nil {
			return nil, fmt.Errorf("follow graph: %w", err)
		}
		followingIDs = ids
	}

	candidates, err := s.Store.FetchCandidates(ctx, query.ViewerID, followingIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("post store: %w", err)
	}

	if query.InNetworkOnly {
		kept := candidates[:0]
		for _, c := range candidates {
			if c.InNetwork {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}
	return candidates, nil
}

var _ pipeline.Source = (*PostStoreSource)(nil)
