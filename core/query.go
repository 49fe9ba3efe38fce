package core

// ScoredPostsQuery 是单次请求的浏览者上下文，贯穿整个 Pipeline 透传。
//
// 可变性约束：QueryHydrator 阶段允许填充自己拥有的派生字段
// （InterestTopics / Preferences），进入打分阶段后视为只读。
type ScoredPostsQuery struct {
	// ViewerID 是浏览者标识
	ViewerID int64

	// ClientAppID 是客户端应用标识
	ClientAppID int64

	// CountryCode / LanguageCode 是客户端地域信息
	CountryCode  string
	LanguageCode string

	// SeenIDs / ServedIDs 是排除集合：浏览者已看过 / 已下发过的帖子
	SeenIDs   []int64
	ServedIDs []int64

	// InNetworkOnly 表示只返回关注网络内的候选
	InNetworkOnly bool

	// InterestTopics 是 QueryHydrator 填充的兴趣主题（可为空）
	InterestTopics []string

	// Preferences 是 QueryHydrator 填充的偏好权重（可为空）
	Preferences map[string]float64
}

// ExcludedIDs 合并 seen/served 排除集合为查表结构。
func (q *ScoredPostsQuery) ExcludedIDs() map[int64]struct{} {
	set := make(map[int64]struct{}, len(q.SeenIDs)+len(q.ServedIDs))
	for _, id := range q.SeenIDs {
		set[id] = struct{}{}
	}
	for _, id := range q.ServedIDs {
		set[id] = struct{}{}
	}
	return set
}
