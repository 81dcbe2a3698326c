package condition

import (
	"strings"

	"github.com/hexacore/hexacore/pkg/httperr"
)

// Operator is the closed set of comparison operators. Adding one means
// extending this enumeration and the switch in evalOne; there is no
// dynamic dispatch a configuration could reach beyond it.
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpContains  Operator = "contains"
	OpGT        Operator = "gt"
	OpLT        Operator = "lt"
	OpGTE       Operator = "gte"
	OpLTE       Operator = "lte"
	OpIn        Operator = "in"
)

var operators = map[Operator]bool{
	OpEquals: true, OpNotEquals: true, OpContains: true,
	OpGT: true, OpLT: true, OpGTE: true, OpLTE: true, OpIn: true,
}

// Condition is an immutable {field, operator, value} predicate embedded in
// resource configurations. Field is a dotted path into the request
// Context; Value may itself carry a {{path}} template.
type Condition struct {
	Field    string   `yaml:"field" json:"field"`
	Operator Operator `yaml:"operator" json:"operator"`
	Value    any      `yaml:"value" json:"value"`
}

// Evaluate reports whether every condition in the list holds against the
// context. An empty list is satisfied by any context. The function is a
// pure function of its inputs: no I/O, deterministic, safe to re-run.
func Evaluate(conds []Condition, ctx *Context) (bool, error) {
	for _, c := range conds {
		ok, err := evalOne(c, ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evalOne(c Condition, ctx *Context) (bool, error) {
	if !operators[c.Operator] {
		return false, httperr.NewValidation("unknown operator %q", string(c.Operator))
	}
	if err := ValidatePath(c.Field); err != nil {
		return false, err
	}
	want, err := resolveConditionValue(c.Value, ctx)
	if err != nil {
		return false, err
	}

	got, defined := ctx.lookup(c.Field)
	if !defined {
		// Undefined simply fails positive checks; only not_equals holds.
		return c.Operator == OpNotEquals, nil
	}

	switch c.Operator {
	case OpEquals:
		return looseEqual(got, want), nil
	case OpNotEquals:
		return !looseEqual(got, want), nil
	case OpContains:
		return containsValue(got, want), nil
	case OpGT, OpLT, OpGTE, OpLTE:
		return compareOrdered(c.Operator, got, want), nil
	case OpIn:
		return inList(got, want), nil
	default:
		return false, httperr.NewValidation("unknown operator %q", string(c.Operator))
	}
}

// resolveConditionValue substitutes a templated condition value before
// comparison. Template placeholders go through the same allow-list
// validation as field paths.
func resolveConditionValue(v any, ctx *Context) (any, error) {
	s, ok := v.(string)
	if !ok || !strings.Contains(s, "{{") {
		return v, nil
	}
	return ResolveTemplate(s, ctx)
}

func looseEqual(a, b any) bool {
	if af, aok := asNumber(a); aok {
		if bf, bok := asNumber(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func containsValue(got, want any) bool {
	switch g := got.(type) {
	case string:
		w, ok := want.(string)
		return ok && strings.Contains(g, w)
	case []string:
		for _, item := range g {
			if looseEqual(item, want) {
				return true
			}
		}
	case []any:
		for _, item := range g {
			if looseEqual(item, want) {
				return true
			}
		}
	}
	return false
}

func compareOrdered(op Operator, got, want any) bool {
	gf, gok := asNumber(got)
	wf, wok := asNumber(want)
	if !gok || !wok {
		gs, gok := got.(string)
		ws, wok := want.(string)
		if !gok || !wok {
			return false
		}
		return orderedHolds(op, strings.Compare(gs, ws))
	}
	switch {
	case gf < wf:
		return orderedHolds(op, -1)
	case gf > wf:
		return orderedHolds(op, 1)
	default:
		return orderedHolds(op, 0)
	}
}

func orderedHolds(op Operator, cmp int) bool {
	switch op {
	case OpGT:
		return cmp > 0
	case OpLT:
		return cmp < 0
	case OpGTE:
		return cmp >= 0
	case OpLTE:
		return cmp <= 0
	default:
		return false
	}
}

func inList(got, want any) bool {
	switch w := want.(type) {
	case []any:
		for _, item := range w {
			if looseEqual(got, item) {
				return true
			}
		}
	case []string:
		for _, item := range w {
			if looseEqual(got, item) {
				return true
			}
		}
	}
	return false
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
