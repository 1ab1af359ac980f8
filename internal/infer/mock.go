package infer

import (
	"context"
	"strings"

	"github.com/tberndt/weft/internal/ir"
)

// Mock is the default provider. It synthesizes a conforming value
// directly from the schema, so runs are deterministic and offline.
type Mock struct{}

func (Mock) Name() string { return "mock" }

func (Mock) Generate(_ context.Context, p Prompt) (ir.Value, error) {
	return synthesize(p.Schema), nil
}

// synthesize builds the cheapest value that satisfies a schema: zero
// values for primitives, the first member for enumerations, empty
// collections, and recursively filled objects.
func synthesize(schema ir.Object) ir.Value {
	if schema == nil {
		return ir.Null{}
	}
	if c, ok := schema["const"]; ok {
		return c
	}
	if vals, ok := ir.AsList(schema["enum"]); ok && len(vals) > 0 {
		return vals[0]
	}
	if anyOf, ok := ir.AsList(schema["anyOf"]); ok && len(anyOf) > 0 {
		if sub, ok := ir.AsObject(anyOf[0]); ok {
			return synthesize(sub)
		}
	}

	typ, _ := ir.AsString(schema["type"])
	switch typ {
	case "object":
		out := ir.Object{}
		if props, ok := ir.AsObject(schema["properties"]); ok {
			for name, raw := range props {
				sub, _ := ir.AsObject(raw)
				out[name] = synthesize(sub)
			}
		}
		return out
	case "array":
		return ir.List{}
	case "string":
		if min, ok := ir.AsNumber(schema["minLength"]); ok && min > 0 {
			return ir.String(strings.Repeat("x", int(min)))
		}
		return ir.String("")
	case "number":
		if min, ok := ir.AsNumber(schema["minimum"]); ok {
			return ir.Number(min)
		}
		return ir.Number(0)
	case "boolean":
		return ir.Bool(false)
	}
	return ir.Null{}
}
