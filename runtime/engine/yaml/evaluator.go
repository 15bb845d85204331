package yaml

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/BDNK1/durable/runtime"
)

// Custom expression functions available in all orchestrations
var exprFunctions = []expr.Option{
	expr.Function("base64_encode", func(params ...any) (any, error) {
		s, _ := params[0].(string)
		return base64.StdEncoding.EncodeToString([]byte(s)), nil
	}),
	expr.Function("base64_decode", func(params ...any) (any, error) {
		s, _ := params[0].(string)
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	}),
}

// ExpressionEvaluator evaluates expr-lang expressions against the execution
// values. Values are nested maps, so step results are reached with member
// access: reserve.result.id.
type ExpressionEvaluator struct{}

var _ runtime.ExpressionEvaluator = (*ExpressionEvaluator)(nil)

func NewExpressionEvaluator() *ExpressionEvaluator {
	return &ExpressionEvaluator{}
}

func (e *ExpressionEvaluator) Eval(exec *runtime.Execution, expression string) (any, error) {
	values := exec.Values()

	env := make(map[string]any, len(values)+1)
	for k, v := range values {
		env[k] = v
	}
	// Add null as alias for nil (JSON/YAML compatibility)
	env["null"] = nil

	// defined() checks if a path exists (distinguishes missing from null)
	// Usage: defined("reserve.result.id") returns true if the key exists, even if its value is null
	definedFn := expr.Function(
		"defined",
		func(params ...any) (any, error) {
			path, ok := params[0].(string)
			if !ok {
				return false, fmt.Errorf("defined() expects string path argument, got %T", params[0])
			}
			return defined(values, path), nil
		},
		new(func(string) bool),
	)

	// NOTE: expr.Env MUST come before AllowUndefinedVariables for it to work
	opts := []expr.Option{
		expr.Env(env),
		expr.AllowUndefinedVariables(), // Missing variables return nil instead of compile error
		definedFn,
	}
	opts = append(opts, exprFunctions...)

	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}

func defined(values map[string]any, path string) bool {
	parts := strings.Split(path, ".")
	current := values
	for i, part := range parts {
		v, ok := current[part]
		if !ok {
			return false
		}
		if i == len(parts)-1 {
			return true
		}
		if current, ok = v.(map[string]any); !ok {
			return false
		}
	}
	return false
}
