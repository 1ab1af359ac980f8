package exec

import (
	"strconv"
	"strings"

	"github.com/tberndt/weft/internal/ir"
)

// Reserved environment keys. "value" holds the node's inbound value,
// "result" the latest pipeline result.
const (
	KeyValue  = "value"
	KeyResult = "result"
)

// Env is a node's mutable execution environment.
type Env map[string]ir.Value

// Clone returns a shallow copy. Values are immutable by convention so a
// shallow copy is enough for snapshots.
func (e Env) Clone() Env {
	out := make(Env, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Lookup resolves a $-reference against the environment. The whole
// remainder is tried as a literal key first, so a binding named "a.b"
// shadows path traversal. Otherwise the dotted path walks objects by
// key and lists by index; a "value" part on a non-object yields the
// value itself, which lets "$x.value" read a scalar binding.
func (e Env) Lookup(ref string) (ir.Value, bool) {
	path := strings.TrimPrefix(ref, "$")
	if v, ok := e[path]; ok {
		return v, true
	}
	parts := strings.Split(path, ".")
	cur, ok := e[parts[0]]
	if !ok {
		return nil, false
	}
	for _, part := range parts[1:] {
		switch node := cur.(type) {
		case ir.Object:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case ir.List:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			if part == KeyValue {
				continue
			}
			return nil, false
		}
	}
	return cur, true
}

// isRef reports whether a string is a $-reference rather than a literal.
func isRef(s string) bool {
	return strings.HasPrefix(s, "$") && len(s) > 1
}

// ResolveArgs substitutes $-references in an argument object against the
// environment, recursing through nested objects and lists. An
// unresolvable reference is an error, not a silent null.
func ResolveArgs(args ir.Object, env Env) (ir.Object, error) {
	if args == nil {
		return nil, nil
	}
	out := make(ir.Object, len(args))
	for k, v := range args {
		resolved, err := resolveValue(v, env)
		if err != nil {
			return nil, err
		}
		out[k] = resolved
	}
	return out, nil
}

func resolveValue(v ir.Value, env Env) (ir.Value, error) {
	switch node := v.(type) {
	case ir.String:
		if !isRef(string(node)) {
			return v, nil
		}
		resolved, ok := env.Lookup(string(node))
		if !ok {
			return nil, &RuntimeError{
				Code:    ErrCodeArgResolution,
				Message: "unresolvable reference " + strconv.Quote(string(node)),
			}
		}
		return resolved, nil
	case ir.Object:
		out := make(ir.Object, len(node))
		for k, sub := range node {
			resolved, err := resolveValue(sub, env)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case ir.List:
		out := make(ir.List, 0, len(node))
		for _, sub := range node {
			resolved, err := resolveValue(sub, env)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved)
		}
		return out, nil
	default:
		return v, nil
	}
}
