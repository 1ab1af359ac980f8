package stdops

import (
	"fmt"
	"strings"

	"github.com/tberndt/weft/internal/exec"
	"github.com/tberndt/weft/internal/ir"
)

func opConcat(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
	parts, err := argList(args, "parts")
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for i, part := range parts {
		s, ok := ir.AsString(part)
		if !ok {
			return nil, fmt.Errorf("parts[%d]: want string", i)
		}
		b.WriteString(s)
	}
	return ir.String(b.String()), nil
}

func opJoin(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
	items, err := argList(args, "values")
	if err != nil {
		return nil, err
	}
	sep := optString(args, "sep", "")
	parts := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := ir.AsString(item)
		if !ok {
			return nil, fmt.Errorf("values[%d]: want string", i)
		}
		parts = append(parts, s)
	}
	return ir.String(strings.Join(parts, sep)), nil
}

func opSplit(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
	s, err := argString(args, "value")
	if err != nil {
		return nil, err
	}
	sep := optString(args, "sep", " ")
	out := ir.List{}
	for _, part := range strings.Split(s, sep) {
		out = append(out, ir.String(part))
	}
	return out, nil
}

func stringMap(f func(string) string) exec.Handler {
	return func(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
		s, err := argString(args, "value")
		if err != nil {
			return nil, err
		}
		return ir.String(f(s)), nil
	}
}

func opReplace(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
	s, err := argString(args, "value")
	if err != nil {
		return nil, err
	}
	oldStr, err := argString(args, "old")
	if err != nil {
		return nil, err
	}
	newStr, err := argString(args, "new")
	if err != nil {
		return nil, err
	}
	return ir.String(strings.ReplaceAll(s, oldStr, newStr)), nil
}

func opContains(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
	s, err := argString(args, "value")
	if err != nil {
		return nil, err
	}
	sub, err := argString(args, "sub")
	if err != nil {
		return nil, err
	}
	return ir.Bool(strings.Contains(s, sub)), nil
}

// opLength counts string characters (runes) or collection elements.
func opLength(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
	v, ok := args["value"]
	if !ok {
		return nil, fmt.Errorf("missing argument %q", "value")
	}
	switch node := v.(type) {
	case ir.String:
		return ir.Number(len([]rune(string(node)))), nil
	case ir.List:
		return ir.Number(len(node)), nil
	case ir.Object:
		return ir.Number(len(node)), nil
	}
	return nil, fmt.Errorf("argument %q: want string, list, or object", "value")
}

func registerStrings(r *exec.Registry) {
	r.Register("concat", opConcat)
	r.Register("join", opJoin)
	r.Register("split", opSplit)
	r.Register("upper", stringMap(strings.ToUpper))
	r.Register("lower", stringMap(strings.ToLower))
	r.Register("trim", stringMap(strings.TrimSpace))
	r.Register("replace", opReplace)
	r.Register("contains", opContains)
	r.Register("length", opLength)
}
