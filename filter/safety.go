package filter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/dsl"
)

// SafetyRuleFilter 是安全规则过滤器：每条规则是一个 CEL 布尔表达式，
// 任意一条命中即移除候选。规则在构造时编译，语法错误快速失败。
//
// 求值失败的处理由 Strict 控制：
//   - Strict = true：规则求值失败时移除候选（宁可错杀）
//   - Strict = false：求值失败时保留候选并记录日志（宁可放过）
type SafetyRuleFilter struct {
	rules  []*dsl.Rule
	strict bool
	logger zerolog.Logger
}

// NewSafetyRuleFilter 编译规则集并创建过滤器；任何规则编译失败即返回错误。
func NewSafetyRuleFilter(exprs []string, strict bool, logger zerolog.Logger) (*SafetyRuleFilter, error) {
	rules := make([]*dsl.Rule, 0, len(exprs))
	for _, expr := range exprs {
		rule, err := dsl.Compile(expr)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
				fmt.Sprintf("safety rule: %v", err))
		}
		rules = append(rules, rule)
	}
	return &SafetyRuleFilter{rules: rules, strict: strict, logger: logger}, nil
}

func (f *SafetyRuleFilter) Name() string { return "filter.safety" }

func (f *SafetyRuleFilter) Filter(
	_ context.Context,
	query *core.ScoredPostsQuery,
	candidates []*core.PostCandidate,
) (pipeline.FilterResult, error) {
	if len(f.rules) == 0 {
		return pipeline.FilterResult{Kept: candidates}, nil
	}

	queryInput := queryToInput(query)

	var result pipeline.FilterResult
	for _, c := range candidates {
		if f.shouldRemove(c, queryInput) {
			result.Removed = append(result.Removed, c)
			continue
		}
		result.Kept = append(result.Kept, c)
	}
	return result, nil
}

func (f *SafetyRuleFilter) shouldRemove(c *core.PostCandidate, queryInput map[string]any) bool {
	input := map[string]any{
		"post":  candidateToInput(c),
		"query": queryInput,
	}
	for _, rule := range f.rules {
		matched, err := rule.Evaluate(input)
		if err != nil {
			f.logger.Warn().Err(err).
				Str("rule", rule.Expr()).
				Int64("post_id", c.PostID).
				Msg("safety rule evaluation failed")
			if f.strict {
				return true
			}
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

func candidateToInput(c *core.PostCandidate) map[string]any {
	videoDurationMS := int64(0)
	if c.VideoDurationMS != nil {
		videoDurationMS = *c.VideoDurationMS
	}
	return map[string]any{
		"post_id":           c.PostID,
		"author_id":         c.AuthorID,
		"content":           c.ContentText(),
		"video_duration_ms": videoDurationMS,
		"in_network":        c.InNetwork,
	}
}

func queryToInput(q *core.ScoredPostsQuery) map[string]any {
	return map[string]any{
		"viewer_id":       q.ViewerID,
		"client_app_id":   q.ClientAppID,
		"country_code":    q.CountryCode,
		"language_code":   q.LanguageCode,
		"interest_topics": q.InterestTopics,
	}
}

var _ pipeline.Filter = (*SafetyRuleFilter)(nil)
