package condition

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// Explain lowers each validated condition to a generated CEL expression
// and reports the per-condition verdict alongside the overall decision.
// Only generated expressions reach the compiler: caller-supplied strings
// are validated against the allow-list grammar first and values are
// embedded as quoted literals, so a hostile configuration cannot smuggle
// code through the trace path.
type Trace struct {
	Satisfied  bool         `json:"satisfied"`
	Conditions []TraceEntry `json:"conditions"`
}

type TraceEntry struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Expr     string `json:"expr"`
	Passed   bool   `json:"passed"`
}

var newTraceCELEnv = func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("ctx", cel.MapType(cel.StringType, cel.DynType)))
}

var traceProgramCache sync.Map

func Explain(conds []Condition, ctx *Context) (Trace, error) {
	flat := flattenForTrace(ctx)
	trace := Trace{Satisfied: true, Conditions: make([]TraceEntry, 0, len(conds))}
	for _, c := range conds {
		expr, err := lowerToCEL(c, ctx)
		if err != nil {
			return Trace{}, err
		}
		passed, err := evalTraceExpr(expr, flat)
		if err != nil {
			return Trace{}, err
		}
		trace.Conditions = append(trace.Conditions, TraceEntry{
			Field:    c.Field,
			Operator: string(c.Operator),
			Expr:     expr,
			Passed:   passed,
		})
		if !passed {
			trace.Satisfied = false
		}
	}
	return trace, nil
}

// lowerToCEL generates the CEL form of one condition. The field path has
// already passed ValidatePath; the comparison value is rendered as a CEL
// literal, never spliced raw.
func lowerToCEL(c Condition, ctx *Context) (string, error) {
	if err := ValidatePath(c.Field); err != nil {
		return "", err
	}
	want, err := resolveConditionValue(c.Value, ctx)
	if err != nil {
		return "", err
	}
	key := celLiteral(c.Field)
	lhs := fmt.Sprintf("ctx[%s]", key)
	guarded := fmt.Sprintf("%s in ctx", key)

	switch c.Operator {
	case OpEquals:
		return fmt.Sprintf("%s && %s == %s", guarded, lhs, celLiteral(want)), nil
	case OpNotEquals:
		return fmt.Sprintf("!(%s) || %s != %s", guarded, lhs, celLiteral(want)), nil
	case OpContains:
		// String fields get substring semantics, list fields membership,
		// matching the interpreted evaluator.
		return fmt.Sprintf("%s && (type(%s) == string ? %s.contains(%s) : %s in %s)",
			guarded, lhs, lhs, celLiteral(want), celLiteral(want), lhs), nil
	case OpGT:
		return fmt.Sprintf("%s && %s > %s", guarded, lhs, celLiteral(want)), nil
	case OpLT:
		return fmt.Sprintf("%s && %s < %s", guarded, lhs, celLiteral(want)), nil
	case OpGTE:
		return fmt.Sprintf("%s && %s >= %s", guarded, lhs, celLiteral(want)), nil
	case OpLTE:
		return fmt.Sprintf("%s && %s <= %s", guarded, lhs, celLiteral(want)), nil
	case OpIn:
		return fmt.Sprintf("%s && %s in %s", guarded, lhs, celLiteral(want)), nil
	default:
		return "", errors.New("condition: unknown operator in trace lowering")
	}
}

func celLiteral(v any) string {
	switch t := v.(type) {
	case string:
		return fmt.Sprintf("%q", t)
	case bool:
		return fmt.Sprintf("%t", t)
	case int, int32, int64:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%g", t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, celLiteral(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []string:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, celLiteral(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return `""`
	}
}

// flattenForTrace projects the context tree onto the flat ctx map the
// generated expressions read. Contains-over-permissions stays a list so
// membership checks work; scalars pass through.
func flattenForTrace(ctx *Context) map[string]any {
	out := map[string]any{}
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		m, ok := v.(map[string]any)
		if !ok {
			out[prefix] = v
			return
		}
		for k, child := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			walk(key, child)
		}
	}
	walk("", ctx.roots())
	return out
}

func evalTraceExpr(expr string, flat map[string]any) (bool, error) {
	program, err := loadOrCompileTraceProgram(expr)
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(map[string]any{"ctx": flat})
	if err != nil {
		return false, err
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, errors.New("condition: trace expression yielded non-bool")
	}
	return v, nil
}

func loadOrCompileTraceProgram(expr string) (cel.Program, error) {
	if cached, ok := traceProgramCache.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	env, err := newTraceCELEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	traceProgramCache.Store(expr, program)
	return program, nil
}
