// Package personalize 维护浏览者到行为聚类画像的映射，
// 为个性化打分提供权重调制参数。
package personalize

import (
	"fmt"
	"sync"

	"github.com/rushteam/feedkit/core"
)

// ContentType 是聚类偏好的内容类型标记。
type ContentType string

const (
	ContentTypeNews          ContentType = "news"
	ContentTypeEntertainment ContentType = "entertainment"
	ContentTypeSports        ContentType = "sports"
	ContentTypeTechnology    ContentType = "technology"
	ContentTypeGaming        ContentType = "gaming"
	ContentTypeOther         ContentType = "other"
)

// ClusterProfile 是一个个性化参数单元：聚类刷新时整体创建/整体替换，
// 被所有打分请求并发读取，绝不部分原地修改（避免并发读到撕裂值）。
//
// 不变量：所有偏好比例落在 [0,1]；EngagementMultiplier > 0。
type ClusterProfile struct {
	ClusterID int

	// 内容偏好（均在 [0,1]）
	PreferredContentTypes []ContentType
	VideoPreference       float64
	ImagePreference       float64
	TextPreference        float64

	// 互动模式
	OptimalPostAgeHours  float64
	DiversityPreference  float64
	EngagementMultiplier float64 // 基础互动倾向（> 0）

	// 活跃时段（0-23 小时）
	PeakActivityHours []int

	// 负反馈敏感率：历史上更容易被劣质内容伤害的浏览者保护力度更大
	NegativeFeedbackRate float64
}

// DefaultProfile 是未知浏览者的兜底画像：聚类 0、中点偏好、乘数 1.0。
func DefaultProfile() ClusterProfile {
	return ClusterProfile{
		ClusterID:             0,
		PreferredContentTypes: []ContentType{ContentTypeOther},
		VideoPreference:       0.5,
		ImagePreference:       0.5,
		TextPreference:        0.5,
		OptimalPostAgeHours:   24.0,
		DiversityPreference:   0.5,
		EngagementMultiplier:  1.0,
		PeakActivityHours:     []int{9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
		NegativeFeedbackRate:  0.02,
	}
}

// Validate 检查画像不变量。
func (p ClusterProfile) Validate() error {
	for name, v := range map[string]float64{
		"video_preference":     p.VideoPreference,
		"image_preference":     p.ImagePreference,
		"text_preference":      p.TextPreference,
		"diversity_preference": p.DiversityPreference,
	} {
		if v < 0 || v > 1 {
			return core.NewDomainError(core.ModuleCluster, core.ErrorCodeInvalidInput,
				fmt.Sprintf("cluster profile: %s %v out of [0,1]", name, v))
		}
	}
	if p.EngagementMultiplier <= 0 {
		return core.NewDomainError(core.ModuleCluster, core.ErrorCodeInvalidInput,
			fmt.Sprintf("cluster profile: engagement multiplier %v must be > 0", p.EngagementMultiplier))
	}
	return nil
}

// UserFeatures 是聚类刷新输入：一个浏览者的行为特征向量。
type UserFeatures struct {
	UserID                int64
	PreferredContentTypes []ContentType
	VideoEngagementRate   float64
	ImageEngagementRate   float64
	TextEngagementRate    float64
	AvgPostAgeHours       float64
	DiversityScore        float64
	OverallEngagementRate float64
	PeakHours             []int
	NegativeFeedbackRate  float64
}

// ClusterStats 是聚类分布的监控快照。
type ClusterStats struct {
	TotalUsers   int
	ClusterSizes []int
	NumClusters  int
}

// UserClusteringService 维护 viewer → ClusterProfile 映射。
//
// 并发模型：映射被所有打分请求并发读取；Refresh 整体替换映射
// （绝不部分更新，避免观察到新旧混杂的分配），写锁临界区只做换指针。
type UserClusteringService struct {
	mu       sync.RWMutex
	profiles map[int64]ClusterProfile

	numClusters int
}

// NewUserClusteringService 创建聚类服务；numClusters <= 0 视为配置错误。
func NewUserClusteringService(numClusters int) (*UserClusteringService, error) {
	if numClusters <= 0 {
		return nil, core.NewDomainError(core.ModuleCluster, core.ErrorCodeInvalidInput,
			fmt.Sprintf("num clusters %d must be > 0", numClusters))
	}
	return &UserClusteringService{
		profiles:    make(map[int64]ClusterProfile),
		numClusters: numClusters,
	}, nil
}

// Profile 返回浏览者的聚类画像。未知浏览者返回兜底画像，绝不失败。
func (s *UserClusteringService) Profile(viewerID int64) ClusterProfile {
	s.mu.RLock()
	p, ok := s.profiles[viewerID]
	s.mu.RUnlock()
	if !ok {
		return DefaultProfile()
	}
	return p
}

// Assign 设置/覆盖单个浏览者的画像。
func (s *UserClusteringService) Assign(viewerID int64, profile ClusterProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.profiles[viewerID] = profile
	s.mu.Unlock()
	return nil
}

// Refresh 为整批浏览者特征重算聚类分配，并原子替换整个映射。
//
// 聚类分配刻意从简：按 UserID 哈希分桶。真正的实现应替换为
// 到聚类中心的距离计算，这是一个已记录的简化。
func (s *UserClusteringService) Refresh(features []UserFeatures) {
	next := make(map[int64]ClusterProfile, len(features))
	for _, f := range features {
		clusterID := s.nearestCluster(f)
		next[f.UserID] = featuresToProfile(f, clusterID)
	}

	s.mu.Lock()
	s.profiles = next
	s.mu.Unlock()
}

func (s *UserClusteringService) nearestCluster(f UserFeatures) int {
	// 简化：哈希分桶代替距离计算
	id := f.UserID % int64(s.numClusters)
	if id < 0 {
		id += int64(s.numClusters)
	}
	return int(id)
}

func featuresToProfile(f UserFeatures, clusterID int) ClusterProfile {
	p := ClusterProfile{
		ClusterID:             clusterID,
		PreferredContentTypes: f.PreferredContentTypes,
		VideoPreference:       clamp01(f.VideoEngagementRate),
		ImagePreference:       clamp01(f.ImageEngagementRate),
		TextPreference:        clamp01(f.TextEngagementRate),
		OptimalPostAgeHours:   f.AvgPostAgeHours,
		DiversityPreference:   clamp01(f.DiversityScore),
		EngagementMultiplier:  f.OverallEngagementRate,
		PeakActivityHours:     f.PeakHours,
		NegativeFeedbackRate:  f.NegativeFeedbackRate,
	}
	if p.EngagementMultiplier <= 0 {
		p.EngagementMultiplier = 1.0
	}
	return p
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Snapshot 返回当前映射的副本（持久化用）。
func (s *UserClusteringService) Snapshot() map[int64]ClusterProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]ClusterProfile, len(s.profiles))
	for id, p := range s.profiles {
		out[id] = p
	}
	return out
}

// Restore 用持久化快照整体替换映射（进程启动时恢复上一轮分配）。
func (s *UserClusteringService) Restore(profiles map[int64]ClusterProfile) {
	next := make(map[int64]ClusterProfile, len(profiles))
	for id, p := range profiles {
		next[id] = p
	}

	s.mu.Lock()
	s.profiles = next
	s.mu.Unlock()
}

// Stats 返回聚类分布快照（监控用）。
func (s *UserClusteringService) Stats() ClusterStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sizes := make([]int, s.numClusters)
	for _, p := range s.profiles {
		if p.ClusterID >= 0 && p.ClusterID < s.numClusters {
			sizes[p.ClusterID]++
		}
	}
	return ClusterStats{
		TotalUsers:   len(s.profiles),
		ClusterSizes: sizes,
		NumClusters:  s.numClusters,
	}
}
