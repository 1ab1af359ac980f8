package typesys

import (
	"strings"

	"github.com/tberndt/weft/internal/ir"
)

const schemaDraft = "http://json-schema.org/draft-07/schema#"

var primitiveSchemaTypes = map[string]string{
	"str":   "string",
	"int":   "number",
	"float": "number",
	"bool":  "boolean",
	"ts":    "string",
}

// Schema projects a declared type to an interchange schema (JSON-Schema
// draft-07 style) used to brief inference providers. Structural types become
// closed object schemas; enumerations become value constraints; list/map
// fields become parameterized array/object schemas; timestamps carry a
// date-time format hint.
func (s *System) Schema(name string) (ir.Object, error) {
	form, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}

	switch f := form.(type) {
	case Structural:
		props := ir.Object{}
		required := ir.List{}
		for _, field := range f.Fields {
			props[field.Name] = fieldSchema(field.Type)
			if !field.Optional {
				required = append(required, ir.String(field.Name))
			}
		}
		return ir.Object{
			"$schema":              ir.String(schemaDraft),
			"title":                ir.String(name),
			"type":                 ir.String("object"),
			"properties":           props,
			"required":             required,
			"additionalProperties": ir.Bool(false),
		}, nil
	case Enum:
		return ir.Object{"title": ir.String(name), "enum": f.Values}, nil
	case Literal:
		return ir.Object{"title": ir.String(name), "const": f.Value}, nil
	case Union:
		anyOf := ir.List{}
		for _, member := range f.Members {
			if s.Has(member) {
				sub, err := s.Schema(member)
				if err != nil {
					return nil, err
				}
				anyOf = append(anyOf, sub)
				continue
			}
			if t, ok := primitiveSchemaTypes[member]; ok {
				anyOf = append(anyOf, ir.Object{"type": ir.String(t)})
			}
		}
		return ir.Object{"title": ir.String(name), "anyOf": anyOf}, nil
	case Constrained:
		out := ir.Object{"title": ir.String(name), "type": ir.String(primitiveSchemaTypes[f.Base])}
		if f.Constraint.MinLength != nil {
			out["minLength"] = ir.Number(*f.Constraint.MinLength)
		}
		if f.Constraint.MaxLength != nil {
			out["maxLength"] = ir.Number(*f.Constraint.MaxLength)
		}
		if f.Constraint.Pattern != "" {
			out["pattern"] = ir.String(f.Constraint.Pattern)
		}
		if f.Constraint.Min != nil {
			out["minimum"] = ir.Number(*f.Constraint.Min)
		}
		if f.Constraint.Max != nil {
			out["maximum"] = ir.Number(*f.Constraint.Max)
		}
		return out, nil
	}
	return ir.Object{"title": ir.String(name)}, nil
}

func fieldSchema(expr string) ir.Object {
	if strings.HasPrefix(expr, "enum<") && strings.HasSuffix(expr, ">") {
		vals := ir.List{}
		for _, v := range enumValues(expr) {
			vals = append(vals, ir.String(v))
		}
		return ir.Object{"enum": vals}
	}

	base, param := splitGeneric(expr)
	switch base {
	case "list":
		if param == "" {
			return ir.Object{"type": ir.String("array")}
		}
		return ir.Object{"type": ir.String("array"), "items": fieldSchema(param)}
	case "map":
		if param == "" {
			return ir.Object{"type": ir.String("object")}
		}
		return ir.Object{"type": ir.String("object"), "additionalProperties": fieldSchema(param)}
	}

	if t, ok := primitiveSchemaTypes[expr]; ok {
		out := ir.Object{"type": ir.String(t)}
		if expr == "ts" {
			out["format"] = ir.String("date-time")
		}
		return out
	}

	// References to declared types project as plain objects; the nested
	// schema is not inlined when briefing a provider.
	return ir.Object{"type": ir.String("object")}
}
