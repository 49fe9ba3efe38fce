// Package feature 提供浏览者特征获取：领域层定义 Loader 接口，
// 基础设施层对接 Feast 特征平台。
package feature

import "context"

// ViewerFeatures 是一个浏览者的画像特征。
type ViewerFeatures struct {
	// InterestTopics 是兴趣主题列表
	InterestTopics []string

	// Preferences 是偏好权重（特征名 → 权重）
	Preferences map[string]float64
}

// Loader 是浏览者特征获取的领域接口。
//
// 设计原则：
//   - 定义在使用方（hydrate 阶段依赖此接口），由基础设施实现
//   - 获取失败由调用方决定降级策略，Loader 不吞错误
type Loader interface {
	// LoadViewerFeatures 获取单个浏览者的画像特征
	LoadViewerFeatures(ctx context.Context, viewerID int64) (*ViewerFeatures, error)

	// Close 释放底层连接
	Close() error
}
