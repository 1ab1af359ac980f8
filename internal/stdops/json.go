package stdops

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tberndt/weft/internal/exec"
	"github.com/tberndt/weft/internal/ir"
)

func opJSONParse(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
	text, err := argString(args, "text")
	if err != nil {
		return nil, err
	}
	v, err := ir.Decode([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("json_parse: %w", err)
	}
	return v, nil
}

func opJSONStringify(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
	v, ok := args["value"]
	if !ok {
		return nil, fmt.Errorf("missing argument %q", "value")
	}
	return ir.String(ir.MarshalCanonical(v)), nil
}

// opJSONGet walks a dotted path into a value. Objects step by key,
// lists by index; a missing step yields null rather than an error.
func opJSONGet(_ *exec.OpContext, args ir.Object) (ir.Value, error) {
	cur, ok := args["value"]
	if !ok {
		return nil, fmt.Errorf("missing argument %q", "value")
	}
	path, err := argString(args, "path")
	if err != nil {
		return nil, err
	}
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case ir.Object:
			next, ok := node[part]
			if !ok {
				return ir.Null{}, nil
			}
			cur = next
		case ir.List:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return ir.Null{}, nil
			}
			cur = node[idx]
		default:
			return ir.Null{}, nil
		}
	}
	return cur, nil
}

func registerJSON(r *exec.Registry) {
	r.Register("json_parse", opJSONParse)
	r.Register("json_stringify", opJSONStringify)
	r.Register("json_get", opJSONGet)
}
