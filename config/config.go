// Package config 提供部署配置（环境变量 + YAML）、灰度开关与
// Pipeline 装配工厂。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/feedkit/core"
)

// Config 是一次部署的完整配置。零值不可直接使用，从 Default() 出发。
type Config struct {
	// ResultSize 是最终返回的候选数上限（Top-K 的 K）
	ResultSize int `yaml:"result_size"`

	// FetchLimit 是单个候选源的拉取上限
	FetchLimit int `yaml:"fetch_limit"`

	// MaxPostAgeHours 是帖子最大年龄（小时）
	MaxPostAgeHours int `yaml:"max_post_age_hours"`

	// DiversityBoost 是兴趣圈外内容的加乘系数
	DiversityBoost float64 `yaml:"diversity_boost"`

	Caching         CachingConfig         `yaml:"caching"`
	Batching        BatchingConfig        `yaml:"batching"`
	Personalization PersonalizationConfig `yaml:"personalization"`
	Safety          SafetyConfig          `yaml:"safety"`
	Features        FeaturesConfig        `yaml:"features"`
	Inference       InferenceConfig       `yaml:"inference"`
	Redis           RedisConfig           `yaml:"redis"`
}

// CachingConfig 控制打分缓存装饰器。
type CachingConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RolloutPercent    int           `yaml:"rollout_percent"`
	UserCacheSize     int           `yaml:"user_cache_size"`
	TrendingCacheSize int           `yaml:"trending_cache_size"`
	UserCacheTTL      time.Duration `yaml:"user_cache_ttl"`
	TrendingTTL       time.Duration `yaml:"trending_ttl"`
}

// BatchingConfig 控制微批装饰器。
type BatchingConfig struct {
	Enabled          bool          `yaml:"enabled"`
	RolloutPercent   int           `yaml:"rollout_percent"`
	MaxBatchRequests int           `yaml:"max_batch_requests"`
	MaxWait          time.Duration `yaml:"max_wait"`
}

// PersonalizationConfig 控制聚类个性化打分。
type PersonalizationConfig struct {
	Enabled         bool          `yaml:"enabled"`
	RolloutPercent  int           `yaml:"rollout_percent"`
	NumClusters     int           `yaml:"num_clusters"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// SafetyConfig 是安全规则集（CEL 表达式）。
type SafetyConfig struct {
	Rules  []string `yaml:"rules"`
	Strict bool     `yaml:"strict"`
}

// FeaturesConfig 是 Feast 特征平台的连接配置。
type FeaturesConfig struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	Project            string   `yaml:"project"`
	InterestFeature    string   `yaml:"interest_feature"`
	PreferenceFeatures []string `yaml:"preference_features"`
}

// InferenceConfig 是 ML 推理服务的连接配置。
type InferenceConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	ModelName    string        `yaml:"model_name"`
	ModelVersion string        `yaml:"model_version"`
	Timeout      time.Duration `yaml:"timeout"`
}

// RedisConfig 是曝光历史存储的连接配置。Addr 为空时用内存存储。
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// Default 返回生产默认配置。
func Default() Config {
	return Config{
		ResultSize:      100,
		FetchLimit:      500,
		MaxPostAgeHours: 7 * 24,
		DiversityBoost:  1.3,
		Caching: CachingConfig{
			Enabled:           true,
			RolloutPercent:    100,
			UserCacheSize:     10_000_000,
			TrendingCacheSize: 100_000,
			UserCacheTTL:      time.Hour,
			TrendingTTL:       5 * time.Minute,
		},
		Batching: BatchingConfig{
			Enabled:          true,
			RolloutPercent:   100,
			MaxBatchRequests: 32,
			MaxWait:          10 * time.Millisecond,
		},
		Personalization: PersonalizationConfig{
			Enabled:         true,
			RolloutPercent:  100,
			NumClusters:     8,
			RefreshInterval: 24 * time.Hour,
		},
		Inference: InferenceConfig{
			ModelName: "engagement",
			Timeout:   30 * time.Second,
		},
	}
}

// LoadFromYAML 读取 YAML 配置文件并覆盖到默认配置之上。
func LoadFromYAML(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
			fmt.Sprintf("parse config %s: %v", path, err))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv 用环境变量覆盖配置（FEEDKIT_ 前缀）。
// 只覆盖设置了对应变量的字段。
func (c *Config) ApplyEnv() {
	c.ResultSize = envInt("FEEDKIT_RESULT_SIZE", c.ResultSize)
	c.FetchLimit = envInt("FEEDKIT_FETCH_LIMIT", c.FetchLimit)
	c.DiversityBoost = envFloat("FEEDKIT_DIVERSITY_BOOST", c.DiversityBoost)
	c.Caching.Enabled = envBool("FEEDKIT_CACHING_ENABLED", c.Caching.Enabled)
	c.Caching.RolloutPercent = envInt("FEEDKIT_CACHING_ROLLOUT", c.Caching.RolloutPercent)
	c.Batching.Enabled = envBool("FEEDKIT_BATCHING_ENABLED", c.Batching.Enabled)
	c.Batching.RolloutPercent = envInt("FEEDKIT_BATCHING_ROLLOUT", c.Batching.RolloutPercent)
	c.Personalization.Enabled = envBool("FEEDKIT_PERSONALIZATION_ENABLED", c.Personalization.Enabled)
	c.Personalization.RolloutPercent = envInt("FEEDKIT_PERSONALIZATION_ROLLOUT", c.Personalization.RolloutPercent)
	c.Inference.Endpoint = envString("FEEDKIT_INFERENCE_ENDPOINT", c.Inference.Endpoint)
	c.Inference.ModelName = envString("FEEDKIT_INFERENCE_MODEL", c.Inference.ModelName)
	c.Redis.Addr = envString("FEEDKIT_REDIS_ADDR", c.Redis.Addr)
	c.Redis.DB = envInt("FEEDKIT_REDIS_DB", c.Redis.DB)
	c.Features.Host = envString("FEEDKIT_FEAST_HOST", c.Features.Host)
	c.Features.Port = envInt("FEEDKIT_FEAST_PORT", c.Features.Port)
	c.Features.Project = envString("FEEDKIT_FEAST_PROJECT", c.Features.Project)
}

// Validate 检查配置不变量；非法配置在装配前快速失败。
func (c *Config) Validate() error {
	if c.ResultSize <= 0 {
		return invalid(fmt.Sprintf("result_size %d must be > 0", c.ResultSize))
	}
	if c.FetchLimit <= 0 {
		return invalid(fmt.Sprintf("fetch_limit %d must be > 0", c.FetchLimit))
	}
	if c.MaxPostAgeHours <= 0 {
		return invalid(fmt.Sprintf("max_post_age_hours %d must be > 0", c.MaxPostAgeHours))
	}
	if c.DiversityBoost <= 0 {
		return invalid(fmt.Sprintf("diversity_boost %v must be > 0", c.DiversityBoost))
	}
	for name, percent := range map[string]int{
		"caching.rollout_percent":         c.Caching.RolloutPercent,
		"batching.rollout_percent":        c.Batching.RolloutPercent,
		"personalization.rollout_percent": c.Personalization.RolloutPercent,
	} {
		if percent < 0 || percent > 100 {
			return invalid(fmt.Sprintf("%s %d out of [0,100]", name, percent))
		}
	}
	if c.Caching.Enabled {
		if c.Caching.UserCacheSize <= 0 || c.Caching.TrendingCacheSize <= 0 {
			return invalid("caching enabled with non-positive cache size")
		}
		if c.Caching.UserCacheTTL <= 0 || c.Caching.TrendingTTL <= 0 {
			return invalid("caching enabled with non-positive TTL")
		}
	}
	if c.Batching.Enabled {
		if c.Batching.MaxBatchRequests <= 0 || c.Batching.MaxWait <= 0 {
			return invalid("batching enabled with non-positive batch bounds")
		}
	}
	if c.Personalization.Enabled && c.Personalization.NumClusters <= 0 {
		return invalid(fmt.Sprintf("personalization enabled with %d clusters", c.Personalization.NumClusters))
	}
	return nil
}

func invalid(msg string) error {
	return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, msg)
}

// Rollout 是按浏览者的灰度开关：viewerID % 100 < percent 即命中。
// 同一浏览者在灰度比例不变时命中结果稳定。
type Rollout struct {
	Enabled bool
	Percent int
}

// Hit 判断浏览者是否落在灰度内。
func (r Rollout) Hit(viewerID int64) bool {
	if !r.Enabled || r.Percent <= 0 {
		return false
	}
	if r.Percent >= 100 {
		return true
	}
	bucket := viewerID % 100
	if bucket < 0 {
		bucket += 100
	}
	return int(bucket) < r.Percent
}

// 环境变量辅助函数

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
