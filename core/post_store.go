package core

import "context"

// PostStore 是网内帖子存储的领域接口（外部协作方，入库/裁剪不在本库范围）。
//
// 候选的 PostID 采用嵌入时间戳的标识方案（高位编码毫秒时间戳，
// 见 pkg/snowflake），Age/新鲜度计算不需要独立的时间戳字段。
type PostStore interface {
	// FetchCandidates 拉取浏览者关注网络内的候选帖子
	FetchCandidates(ctx context.Context, viewerID int64, followingIDs []int64, limit int) ([]*PostCandidate, error)
}

// FollowGraph 提供浏览者的关注列表（外部协作方）。
type FollowGraph interface {
	FollowingIDs(ctx context.Context, viewerID int64) ([]int64, error)
}
