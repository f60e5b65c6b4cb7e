package pabt

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/expr-lang/expr"
	pabtpkg "github.com/joeycumines/go-pabt"
	btmod "github.com/joeycumines/reactree/internal/builtin/bt"
	"github.com/joeycumines/reactree/internal/builtin/exprscore"
)

// SimpleCond matches the value of key with a Go function.
type SimpleCond struct {
	key   any
	match func(value any) bool
}

var _ pabtpkg.Condition = (*SimpleCond)(nil)

func NewSimpleCond(key any, match func(value any) bool) *SimpleCond {
	return &SimpleCond{key: key, match: match}
}

func (c *SimpleCond) Key() any { return c.key }

// Match reports false when no match function is set.
func (c *SimpleCond) Match(value any) bool {
	if c.match == nil {
		return false
	}
	return c.match(value)
}

// EqualityCond matches values equal to expected, comparing numbers by
// value across Go types.
func EqualityCond(key, expected any) *SimpleCond {
	return NewSimpleCond(key, func(value any) bool { return btmod.Equal(value, expected) })
}

// NotNilCond matches any present, non-nil value.
func NotNilCond(key any) *SimpleCond {
	return NewSimpleCond(key, func(value any) bool { return value != nil })
}

// NilCond matches an absent or nil value.
func NilCond(key any) *SimpleCond {
	return NewSimpleCond(key, func(value any) bool { return value == nil })
}

// SimpleEffect states that an action leaves value under key.
type SimpleEffect struct {
	key   any
	value any
}

var _ pabtpkg.Effect = (*SimpleEffect)(nil)

func NewSimpleEffect(key, value any) *SimpleEffect {
	return &SimpleEffect{key: key, value: value}
}

func (e *SimpleEffect) Key() any { return e.key }

func (e *SimpleEffect) Value() any { return e.value }

var exprCache = exprscore.NewProgramCache(exprscore.DefaultCacheSize)

// ExprCondition matches with an expr-lang boolean expression over the
// variable value:
//
//	value > 0 && value < 100
//	value in ["open", "ajar"]
type ExprCondition struct {
	key        any
	expression string

	mu      sync.Mutex
	lastErr error
}

var _ pabtpkg.Condition = (*ExprCondition)(nil)

// NewExprCondition panics if expression is empty.
func NewExprCondition(key any, expression string) *ExprCondition {
	if expression == "" {
		panic("pabt.NewExprCondition: expression cannot be empty")
	}
	return &ExprCondition{key: key, expression: expression}
}

func (c *ExprCondition) Key() any { return c.key }

// Match evaluates the expression. Compile and evaluation errors do not
// match; LastError distinguishes them from a false result.
func (c *ExprCondition) Match(value any) bool {
	ok, err := c.eval(value)
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	if err != nil {
		slog.Warn("pabt expr condition failed", "expression", c.expression, "value", fmt.Sprintf("%v", value), "error", err)
	}
	return ok
}

func (c *ExprCondition) eval(value any) (bool, error) {
	program, err := exprCache.Compile(c.expression, expr.Env(map[string]any{}), expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, map[string]any{"value": value})
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", c.expression, err)
	}
	b, _ := out.(bool)
	return b, nil
}

// LastError returns the error from the most recent Match, if any.
func (c *ExprCondition) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
