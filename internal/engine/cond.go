// File: internal/engine/cond.go
// Brief: Boolean condition evaluation for @if/@elif.

package engine

import (
	"fmt"
	"os"
	"strings"
)

// ConditionEvaluator evaluates an @if expression against the current scope.
type ConditionEvaluator interface {
	Evaluate(expr string, vars *Scope) (bool, error)
}

// defaultCond supports env(NAME), exists(path), eq(a,b), neq(a,b), the bare
// literals true/false, and a leading ! negation. Arguments are variable-
// expanded before comparison.
type defaultCond struct{}

// NewConditionEvaluator returns the built-in evaluator.
func NewConditionEvaluator() ConditionEvaluator { return defaultCond{} }

func (defaultCond) Evaluate(expr string, vars *Scope) (bool, error) {
	expr = strings.TrimSpace(expr)
	negate := false
	for strings.HasPrefix(expr, "!") {
		negate = !negate
		expr = strings.TrimSpace(strings.TrimPrefix(expr, "!"))
	}
	v, err := evalAtom(expr, vars)
	if err != nil {
		return false, err
	}
	if negate {
		v = !v
	}
	return v, nil
}

func evalAtom(expr string, vars *Scope) (bool, error) {
	switch strings.ToLower(expr) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	open := strings.Index(expr, "(")
	if open < 0 || !strings.HasSuffix(expr, ")") {
		return false, fmt.Errorf("bad condition %q", expr)
	}
	fn := strings.ToLower(strings.TrimSpace(expr[:open]))
	args := splitArgs(expr[open+1:len(expr)-1], vars)
	switch fn {
	case "env":
		if len(args) != 1 {
			return false, fmt.Errorf("env() takes one argument")
		}
		return os.Getenv(args[0]) != "", nil
	case "exists":
		if len(args) != 1 {
			return false, fmt.Errorf("exists() takes one argument")
		}
		_, err := os.Stat(args[0])
		return err == nil, nil
	case "eq":
		if len(args) != 2 {
			return false, fmt.Errorf("eq() takes two arguments")
		}
		return args[0] == args[1], nil
	case "neq":
		if len(args) != 2 {
			return false, fmt.Errorf("neq() takes two arguments")
		}
		return args[0] != args[1], nil
	default:
		return false, fmt.Errorf("unknown condition function %q", fn)
	}
}

func splitArgs(raw string, vars *Scope) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, vars.Expand(strings.TrimSpace(p)))
	}
	if len(out) == 1 && out[0] == "" {
		return nil
	}
	return out
}
