package flow

import (
	"strings"

	"github.com/tberndt/weft/internal/ir"
)

// EvalGuard decides whether a guarded edge fires, judged against the
// result the source node just produced. A nil guard always fires.
// Booleans stand for themselves; a $-reference resolves into the result
// and is tested for truthiness; an object is a combinator or comparator
// expression. Anything unresolvable or mistyped makes the guard false
// rather than failing the run.
func EvalGuard(guard ir.Value, result ir.Value) bool {
	switch g := guard.(type) {
	case nil, ir.Null:
		return true
	case ir.Bool:
		return bool(g)
	case ir.String:
		return ir.Truthy(resolveOperand(g, result))
	case ir.Object:
		return evalExpr(g, result)
	default:
		return ir.Truthy(guard)
	}
}

func evalExpr(expr ir.Object, result ir.Value) bool {
	if operands, ok := ir.AsList(expr["and"]); ok {
		for _, sub := range operands {
			if !EvalGuard(sub, result) {
				return false
			}
		}
		return true
	}
	if operands, ok := ir.AsList(expr["or"]); ok {
		for _, sub := range operands {
			if EvalGuard(sub, result) {
				return true
			}
		}
		return false
	}
	if sub, ok := expr["not"]; ok {
		return !EvalGuard(sub, result)
	}
	for _, cmp := range []string{"eq", "ne", "gt", "gte", "lt", "lte"} {
		if pair, ok := ir.AsList(expr[cmp]); ok && len(pair) == 2 {
			return compare(cmp, resolveOperand(pair[0], result), resolveOperand(pair[1], result))
		}
	}
	return false
}

func compare(op string, a, b ir.Value) bool {
	switch op {
	case "eq":
		return ir.Equal(a, b)
	case "ne":
		return !ir.Equal(a, b)
	}
	c, ok := ir.Compare(a, b)
	if !ok {
		// Incomparable operands never satisfy an ordering.
		return false
	}
	switch op {
	case "gt":
		return c > 0
	case "gte":
		return c >= 0
	case "lt":
		return c < 0
	case "lte":
		return c <= 0
	}
	return false
}

// resolveOperand turns a guard operand into a value. A $-reference
// walks the result by dotted path: objects descend by key, and a
// "value" part on a non-object yields the value itself, so "$value"
// names a bare scalar result. Missing paths become null so the guard
// simply fails. Everything else passes through as a literal.
func resolveOperand(v ir.Value, result ir.Value) ir.Value {
	s, ok := ir.AsString(v)
	if !ok || len(s) < 2 || s[0] != '$' {
		return v
	}
	cur := result
	for _, part := range strings.Split(s[1:], ".") {
		if obj, ok := ir.AsObject(cur); ok {
			next, present := obj[part]
			if !present {
				return ir.Null{}
			}
			cur = next
			continue
		}
		if part == "value" {
			continue
		}
		return ir.Null{}
	}
	return cur
}
