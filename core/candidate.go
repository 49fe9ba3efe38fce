package core

// NumEngagementActions 是打分向量跟踪的互动行为数量。
// EngagementScores.Vector 的输出与各 Scorer 的权重数组都以此对齐。
const NumEngagementActions = 19

// EngagementScores 是单个候选的打分向量：每个互动行为一个可空概率。
// 由外部 ML 推理服务预测产出；字段为 nil 表示该行为没有预测值，
// 计算加权分时按 0 处理。
//
// 字段顺序与 Vector() 的下标顺序一致，新增行为必须同步更新
// NumEngagementActions 与各 Scorer 的权重数组。
type EngagementScores struct {
	Favorite         *float64
	Reply            *float64
	Retweet          *float64
	PhotoExpand      *float64
	Click            *float64
	ProfileClick     *float64
	VideoQualityView *float64
	Share            *float64
	ShareViaDM       *float64
	ShareViaCopyLink *float64
	Dwell            *float64
	Quote            *float64
	QuotedClick      *float64
	ContinuousDwell  *float64
	FollowAuthor     *float64

	// 负反馈行为（权重为负）
	NotInterested *float64
	BlockAuthor   *float64
	MuteAuthor    *float64
	Report        *float64
}

// Vector 把打分向量展开为定长数组，nil 概率按 0 处理。
// 下标顺序即权重数组的顺序，供 Scorer 做内积计算。
func (s *EngagementScores) Vector() [NumEngagementActions]float64 {
	return [NumEngagementActions]float64{
		deref(s.Favorite),
		deref(s.Reply),
		deref(s.Retweet),
		deref(s.PhotoExpand),
		deref(s.Click),
		deref(s.ProfileClick),
		deref(s.VideoQualityView),
		deref(s.Share),
		deref(s.ShareViaDM),
		deref(s.ShareViaCopyLink),
		deref(s.Dwell),
		deref(s.Quote),
		deref(s.QuotedClick),
		deref(s.ContinuousDwell),
		deref(s.FollowAuthor),
		deref(s.NotInterested),
		deref(s.BlockAuthor),
		deref(s.MuteAuthor),
		deref(s.Report),
	}
}

// IsEmpty 判断打分向量是否完全未填充（尚未经过 ML 打分）。
func (s *EngagementScores) IsEmpty() bool {
	v := s.Vector()
	for i := range v {
		if v[i] != 0 {
			return false
		}
	}
	return s.Favorite == nil && s.Report == nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// PostCandidate 是排序链路中的统一承载结构：一条待排序的候选帖子。
//
// 生命周期：随单次请求创建，流经各 Stage，请求结束即销毁（不持久化）。
// 可变性约束：每个 Stage 只允许填充自己声明拥有的字段，
// 不得破坏上游 Stage 已填充的字段。
type PostCandidate struct {
	// PostID 是帖子的稳定标识（高位编码创建时间戳，见 pkg/snowflake）
	PostID int64

	// AuthorID 是作者标识
	AuthorID int64

	// Content 是帖子文本内容（可空）
	Content *string

	// VideoDurationMS 是视频时长毫秒数（可空；无视频为 nil）
	VideoDurationMS *int64

	// InNetwork 表示候选是否来自关注网络内
	InNetwork bool

	// Topics 是帖子的主题标签（由候选源填充；可为空）
	Topics []string

	// Scores 是 ML 打分向量（由 MLScorer / 缓存填充）
	Scores EngagementScores

	// WeightedScore 是加权标量分（由 Weighted/Personalized Scorer 填充）
	WeightedScore *float64

	// DiversityBoost 是多样性调整乘数（由 DiversityBoostScorer /
	// AuthorDiversityScorer 填充）
	DiversityBoost *float64
}

// NewPostCandidate 创建一个候选帖子。
func NewPostCandidate(postID, authorID int64) *PostCandidate {
	return &PostCandidate{PostID: postID, AuthorID: authorID}
}

// Score 返回候选的最终排序分；未打分时返回 0。
func (c *PostCandidate) Score() float64 {
	return deref(c.WeightedScore)
}

// SetWeightedScore 写入加权分。
func (c *PostCandidate) SetWeightedScore(score float64) {
	c.WeightedScore = &score
}

// ContentText 返回文本内容；无内容时返回空串。
func (c *PostCandidate) ContentText() string {
	if c.Content == nil {
		return ""
	}
	return *c.Content
}

// HasVideoLongerThan 判断候选是否携带超过 minMS 毫秒的视频。
func (c *PostCandidate) HasVideoLongerThan(minMS int64) bool {
	return c.VideoDurationMS != nil && *c.VideoDurationMS > minMS
}

// Float64 返回指向 v 的指针，便于构造可空打分字段。
func Float64(v float64) *float64 { return &v }
