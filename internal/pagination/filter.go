package pagination

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

const (
	thisVar = "this"

	filterCostLimit      = 10_000
	filterInterruptCheck = 100
)

// FilterEnv compiles filter expressions evaluated against a single result
// exposed as the map variable "this".
type FilterEnv struct {
	env *cel.Env
}

// NewFilterEnv creates the CEL environment for filter expressions.
func NewFilterEnv() (*FilterEnv, error) {
	env, err := cel.NewEnv(
		ext.Strings(),
		cel.Variable(thisVar, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter CEL environment: %w", err)
	}
	return &FilterEnv{env: env}, nil
}

// Compile parses and checks expr, which must evaluate to a bool. Returns a
// [ParamError] for invalid expressions.
func (fe *FilterEnv) Compile(expr string) (*Filter, error) {
	ast, issues := fe.env.Compile(expr)
	if err := issues.Err(); err != nil {
		return nil, ParamError{Param: FilterParam, cause: fmt.Errorf("failed to compile filter: %w", err)}
	}
	if outType := ast.OutputType(); !outType.IsExactType(cel.BoolType) {
		return nil, ParamError{
			Param: FilterParam,
			cause: fmt.Errorf("filter expression must return %s but got %s", cel.BoolType, outType),
		}
	}
	prg, err := fe.env.Program(ast,
		cel.CostLimit(filterCostLimit),
		cel.InterruptCheckFrequency(filterInterruptCheck),
	)
	if err != nil {
		return nil, ParamError{Param: FilterParam, cause: err}
	}
	return &Filter{prg: prg}, nil
}

// Filter is a compiled filter expression. It is safe for concurrent use.
type Filter struct {
	prg cel.Program
}

// Match reports whether the result described by fields satisfies the
// filter. Evaluation errors, such as referencing an absent field, are
// returned as a [ParamError].
func (f *Filter) Match(ctx context.Context, fields map[string]any) (bool, error) {
	val, _, err := f.prg.ContextEval(ctx, map[string]any{thisVar: fields})
	if err != nil {
		return false, ParamError{Param: FilterParam, cause: err}
	}
	matched, ok := val.Value().(bool)
	if !ok {
		return false, ParamError{Param: FilterParam, cause: fmt.Errorf("expected bool, got %T", val.Value())}
	}
	return matched, nil
}

// Apply returns the items matched by filter, converting each with fieldsOf.
// A nil filter matches everything.
func Apply[T any](
	ctx context.Context,
	filter *Filter,
	items []T,
	fieldsOf func(T) map[string]any,
) ([]T, error) {
	if filter == nil {
		return items, nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		matched, err := filter.Match(ctx, fieldsOf(item))
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, item)
		}
	}
	return out, nil
}
