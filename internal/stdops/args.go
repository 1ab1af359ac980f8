package stdops

import (
	"fmt"

	"github.com/tberndt/weft/internal/ir"
)

func argNumber(args ir.Object, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	n, ok := ir.AsNumber(v)
	if !ok {
		return 0, fmt.Errorf("argument %q: want number", key)
	}
	return n, nil
}

func argString(args ir.Object, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := ir.AsString(v)
	if !ok {
		return "", fmt.Errorf("argument %q: want string", key)
	}
	return s, nil
}

func argList(args ir.Object, key string) (ir.List, error) {
	v, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("missing argument %q", key)
	}
	l, ok := ir.AsList(v)
	if !ok {
		return nil, fmt.Errorf("argument %q: want list", key)
	}
	return l, nil
}

func optString(args ir.Object, key, def string) string {
	if s, ok := ir.AsString(args[key]); ok {
		return s
	}
	return def
}
