// Package dsl 是安全规则表达式解释器，使用 CEL (Common Expression
// Language) 实现。CEL 具有类型安全、高性能、线程安全等特性。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：post.in_network == true / query.country_code == "US"
//   - 数值：post.video_duration_ms > 2000
//   - 逻辑：query.language_code == "en" && post.content.contains("spam")
//   - 包含：post.content.contains("http") 或 "gaming" in query.interest_topics
//
// 示例：
//   - `post.content.contains("click here")` → 文本命中钓鱼话术
//   - `!post.in_network && post.author_id == query.viewer_id` → 网络外自推
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("post", cel.DynType),
		cel.Variable("query", cel.DynType),
	)
}

func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	if celEnv == nil && err == nil {
		err = fmt.Errorf("cel env not initialized")
	}
	return celEnv, err
}

// Rule 是一条编译好的布尔规则。编译一次，多次求值。
type Rule struct {
	expr string
	prg  cel.Program
}

// Compile 编译一条规则表达式。语法错误在此暴露，不进请求路径。
func Compile(expr string) (*Rule, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return &Rule{expr: expr, prg: prg}, nil
}

// Expr 返回规则原文。
func (r *Rule) Expr() string { return r.expr }

// Evaluate 对输入求值并返回布尔结果。
// 输入是 CEL 变量名到值的映射（"post" / "query"）。
func (r *Rule) Evaluate(input map[string]any) (bool, error) {
	out, _, err := r.prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", r.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: expression must return boolean, got %T", r.expr, out.Value())
	}
	return result, nil
}
