// Package service 对接外部 ML 推理服务：实现 core.ScoringService，
// 为候选批量预测互动概率向量。
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rushteam/feedkit/core"
)

// InferenceClient 是互动概率推理服务的 REST 客户端。
//
// 协议（TF Serving 风格的 HTTP/JSON）：
//   - POST {Endpoint}/v1/models/{ModelName}:predict
//   - 请求：{"instances": [...], "signature_name": "..."}
//   - 响应：{"predictions": [[p0..p18], ...]}，每个候选一行、
//     每行 NumEngagementActions 个概率，顺序与 EngagementScores 对齐
//
// 这是排序链路上最慢的外部依赖：生产部署应当经 MLScorer 接入并用
// CachedScorer / BatchedScorer 包裹。
type InferenceClient struct {
	// Endpoint 服务端点，例如 "http://localhost:8501"
	Endpoint string

	// ModelName 模型名称
	ModelName string

	// ModelVersion 模型版本（可选，为空则使用最新版本）
	ModelVersion string

	// SignatureName 签名名称（默认 "serving_default"）
	SignatureName string

	// Timeout 超时时间
	Timeout time.Duration

	httpClient *http.Client
}

// InferenceOption 推理客户端配置选项
type InferenceOption func(*InferenceClient)

// WithInferenceVersion 设置模型版本
func WithInferenceVersion(version string) InferenceOption {
	return func(c *InferenceClient) { c.ModelVersion = version }
}

// WithInferenceTimeout 设置超时时间
func WithInferenceTimeout(timeout time.Duration) InferenceOption {
	return func(c *InferenceClient) { c.Timeout = timeout }
}

// WithInferenceSignature 设置签名名称
func WithInferenceSignature(name string) InferenceOption {
	return func(c *InferenceClient) { c.SignatureName = name }
}

// NewInferenceClient 创建推理服务客户端。
func NewInferenceClient(endpoint, modelName string, opts ...InferenceOption) *InferenceClient {
	client := &InferenceClient{
		Endpoint:      endpoint,
		ModelName:     modelName,
		SignatureName: "serving_default",
		Timeout:       30 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.httpClient = &http.Client{Timeout: client.Timeout}
	return client
}

// instance 是单个候选的推理输入特征。
type instance struct {
	PostID          int64  `json:"post_id"`
	AuthorID        int64  `json:"author_id"`
	ViewerID        int64  `json:"viewer_id"`
	VideoDurationMS int64  `json:"video_duration_ms"`
	InNetwork       bool   `json:"in_network"`
	LanguageCode    string `json:"language_code,omitempty"`
}

// Score 实现 core.ScoringService：为每个候选预测互动概率向量。
// 返回与输入一一对应的增量候选（只填充 Scores）。
func (c *InferenceClient) Score(
	ctx context.Context,
	query *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) ([]*core.PostCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	instances := make([]instance, len(candidates))
	for i, cand := range candidates {
		inst := instance{
			PostID:       cand.PostID,
			AuthorID:     cand.AuthorID,
			ViewerID:     query.ViewerID,
			InNetwork:    cand.InNetwork,
			LanguageCode: query.LanguageCode,
		}
		if cand.VideoDurationMS != nil {
			inst.VideoDurationMS = *cand.VideoDurationMS
		}
		instances[i] = inst
	}

	body := map[string]any{
		"instances":      instances,
		"signature_name": c.SignatureName,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.predictURL(), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable,
			fmt.Sprintf("inference request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable,
			fmt.Sprintf("inference error: status=%d, body=%s", resp.StatusCode, string(bodyBytes)))
	}

	var result struct {
		Predictions [][]float64 `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Predictions) != len(candidates) {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInternalError,
			fmt.Sprintf("inference returned %d rows for %d candidates", len(result.Predictions), len(candidates)))
	}

	scored := make([]*core.PostCandidate, len(candidates))
	for i, row := range result.Predictions {
		if len(row) != core.NumEngagementActions {
			return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInternalError,
				fmt.Sprintf("inference row %d has %d probabilities, want %d", i, len(row), core.NumEngagementActions))
		}
		scored[i] = &core.PostCandidate{Scores: rowToScores(row)}
	}
	return scored, nil
}

// Health 检查模型服务可用性。
func (c *InferenceClient) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/models/%s", c.Endpoint, c.ModelName)
	if c.ModelVersion != "" {
		url = fmt.Sprintf("%s/v1/models/%s/versions/%s", c.Endpoint, c.ModelName, c.ModelVersion)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable,
			fmt.Sprintf("health check failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable,
			fmt.Sprintf("health check failed: status=%d, body=%s", resp.StatusCode, string(bodyBytes)))
	}
	return nil
}

// Close 关闭连接。HTTP 客户端连接池由标准库管理。
func (c *InferenceClient) Close() error {
	return nil
}

func (c *InferenceClient) predictURL() string {
	if c.ModelVersion != "" {
		return fmt.Sprintf("%s/v1/models/%s/versions/%s:predict", c.Endpoint, c.ModelName, c.ModelVersion)
	}
	return fmt.Sprintf("%s/v1/models/%s:predict", c.Endpoint, c.ModelName)
}

// rowToScores 把一行概率映射回打分向量，下标顺序与
// EngagementScores.Vector 对齐。
func rowToScores(row []float64) core.EngagementScores {
	return core.EngagementScores{
		Favorite:         core.Float64(row[0]),
		Reply:            core.Float64(row[1]),
		Retweet:          core.Float64(row[2]),
		PhotoExpand:      core.Float64(row[3]),
		Click:            core.Float64(row[4]),
		ProfileClick:     core.Float64(row[5]),
		VideoQualityView: core.Float64(row[6]),
		Share:            core.Float64(row[7]),
		ShareViaDM:       core.Float64(row[8]),
		ShareViaCopyLink: core.Float64(row[9]),
		Dwell:            core.Float64(row[10]),
		Quote:            core.Float64(row[11]),
		QuotedClick:      core.Float64(row[12]),
		ContinuousDwell:  core.Float64(row[13]),
		FollowAuthor:     core.Float64(row[14]),
		NotInterested:    core.Float64(row[15]),
		BlockAuthor:      core.Float64(row[16]),
		MuteAuthor:       core.Float64(row[17]),
		Report:           core.Float64(row[18]),
	}
}

var _ core.ScoringService = (*InferenceClient)(nil)
