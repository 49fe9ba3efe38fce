package feature

import (
	"context"
	"fmt"
	"strings"
	"time"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/feedkit/core"
)

// FeastLoader 是基于官方 Feast Go SDK 的特征获取实现。
//
// 特征视图约定：
//   - InterestFeature 是字符串列表特征（如 "viewer_profile:interest_topics"）
//   - PreferenceFeatures 是 double 特征列表（如 "viewer_profile:pref_news"）
//
// 返回的 Preferences 以特征短名（冒号后的部分）为 key。
type FeastLoader struct {
	client  *feastsdk.GrpcClient
	project string

	// EntityName 是实体列名（默认 "viewer_id"）
	EntityName string

	// InterestFeature 是兴趣主题特征的完整引用
	InterestFeature string

	// PreferenceFeatures 是偏好权重特征的完整引用列表
	PreferenceFeatures []string

	// Timeout 是单次获取超时（默认 200ms：特征获取在请求路径上）
	Timeout time.Duration
}

// FeastConfig 是 FeastLoader 的连接配置。
type FeastConfig struct {
	Host               string
	Port               int
	Project            string
	EntityName         string
	InterestFeature    string
	PreferenceFeatures []string
	Timeout            time.Duration
}

// NewFeastLoader 创建 Feast 特征加载器。
func NewFeastLoader(cfg FeastConfig) (*FeastLoader, error) {
	if cfg.Host == "" {
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, "feast: host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 6565
	}

	client, err := feastsdk.NewGrpcClient(cfg.Host, port)
	if err != nil {
		return nil, fmt.Errorf("feast grpc client: %w", err)
	}

	entityName := cfg.EntityName
	if entityName == "" {
		entityName = "viewer_id"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}

	return &FeastLoader{
		client:             client,
		project:            cfg.Project,
		EntityName:         entityName,
		InterestFeature:    cfg.InterestFeature,
		PreferenceFeatures: cfg.PreferenceFeatures,
		Timeout:            timeout,
	}, nil
}

func (l *FeastLoader) LoadViewerFeatures(ctx context.Context, viewerID int64) (*ViewerFeatures, error) {
	features := make([]string, 0, len(l.PreferenceFeatures)+1)
	if l.InterestFeature != "" {
		features = append(features, l.InterestFeature)
	}
	features = append(features, l.PreferenceFeatures...)
	if len(features) == 0 {
		return &ViewerFeatures{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	resp, err := l.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: features,
		Entities: []feastsdk.Row{
			{l.EntityName: feastsdk.Int64Val(viewerID)},
		},
		Project: l.project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) != 1 {
		return nil, fmt.Errorf("feast returned %d rows for 1 entity", len(rows))
	}
	return l.rowToFeatures(rows[0]), nil
}

func (l *FeastLoader) rowToFeatures(row feastsdk.Row) *ViewerFeatures {
	out := &ViewerFeatures{Preferences: make(map[string]float64, len(l.PreferenceFeatures))}

	if l.InterestFeature != "" {
		if val, ok := row[featureColumn(l.InterestFeature)]; ok {
			out.InterestTopics = stringList(val)
		}
	}
	for _, ref := range l.PreferenceFeatures {
		if val, ok := row[featureColumn(ref)]; ok {
			out.Preferences[featureShortName(ref)] = doubleValue(val)
		}
	}
	return out
}

func (l *FeastLoader) Close() error {
	l.client = nil
	return nil
}

// featureColumn 返回响应行中的列名。SDK 以特征完整引用为 key。
func featureColumn(ref string) string { return ref }

// featureShortName 取特征引用冒号后的短名。
func featureShortName(ref string) string {
	if idx := strings.LastIndex(ref, ":"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}

func stringList(v *feasttypes.Value) []string {
	if list := v.GetStringListVal(); list != nil {
		return list.GetVal()
	}
	if s := v.GetStringVal(); s != "" {
		return []string{s}
	}
	return nil
}

func doubleValue(v *feasttypes.Value) float64 {
	switch {
	case v.GetDoubleVal() != 0:
		return v.GetDoubleVal()
	case v.GetFloatVal() != 0:
		return float64(v.GetFloatVal())
	case v.GetInt64Val() != 0:
		return float64(v.GetInt64Val())
	default:
		return v.GetDoubleVal()
	}
}

var _ Loader = (*FeastLoader)(nil)
