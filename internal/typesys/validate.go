package typesys

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/tberndt/weft/internal/ir"
)

// Validate checks a value against a declared type, returning a typed
// ValidationError on the first mismatch.
func (s *System) Validate(v ir.Value, name string) error {
	form, err := s.Resolve(name)
	if err != nil {
		return err
	}
	return s.validateForm(v, name, form)
}

func (s *System) validateForm(v ir.Value, name string, form Form) error {
	switch f := form.(type) {
	case Structural:
		return s.validateStructural(v, name, f)
	case Union:
		return s.validateUnion(v, name, f)
	case Literal:
		if !ir.Equal(v, f.Value) {
			return &ValidationError{Kind: KindLiteralMismatch, Type: name,
				Message: fmt.Sprintf("value does not match literal %s", ir.MarshalCanonical(f.Value))}
		}
		return nil
	case Enum:
		for _, allowed := range f.Values {
			if ir.Equal(v, allowed) {
				return nil
			}
		}
		return &ValidationError{Kind: KindEnumViolation, Type: name,
			Message: fmt.Sprintf("value not in enum %s", ir.MarshalCanonical(f.Values))}
	case Constrained:
		return validateConstrained(v, name, f)
	default:
		return &ValidationError{Kind: KindUnknownType, Type: name, Message: "unresolvable form"}
	}
}

func (s *System) validateStructural(v ir.Value, name string, form Structural) error {
	obj, ok := ir.AsObject(v)
	if !ok {
		return &ValidationError{Kind: KindWrongKind, Type: name, Message: "value is not an object"}
	}

	for _, field := range form.Fields {
		if _, present := obj[field.Name]; !present && !field.Optional {
			return &ValidationError{Kind: KindMissingField, Type: name, Field: field.Name,
				Message: "required field missing"}
		}
	}

	// Closed world: any undeclared field is a hard failure.
	declared := make(map[string]bool, len(form.Fields))
	for _, field := range form.Fields {
		declared[field.Name] = true
	}
	var extras []string
	for _, k := range obj.SortedKeys() {
		if !declared[k] {
			extras = append(extras, k)
		}
	}
	if len(extras) > 0 {
		return &ValidationError{Kind: KindUnexpectedField, Type: name, Field: extras[0],
			Message: "undeclared fields: " + strings.Join(extras, ", ")}
	}

	for _, field := range form.Fields {
		val, present := obj[field.Name]
		if !present {
			continue
		}
		if err := s.validateFieldExpr(val, field.Type, name, field.Name); err != nil {
			return err
		}
	}
	return nil
}

func (s *System) validateUnion(v ir.Value, name string, form Union) error {
	for _, member := range form.Members {
		if s.Has(member) {
			if s.Validate(v, member) == nil {
				return nil
			}
			continue
		}
		if isPrimitive(member) && validatePrimitive(v, member, name, "") == nil {
			return nil
		}
	}
	return &ValidationError{Kind: KindUnionNoMatch, Type: name,
		Message: fmt.Sprintf("value matches no member of union [%s]", strings.Join(form.Members, ", "))}
}

// validateFieldExpr checks one field value against a field-type expression:
// a primitive, enum<...>, list/list<T>, map/map<T>, or a declared type
// reference (validated recursively).
func (s *System) validateFieldExpr(v ir.Value, expr, typeName, fieldName string) error {
	if strings.HasPrefix(expr, "enum<") && strings.HasSuffix(expr, ">") {
		sv, ok := ir.AsString(v)
		if ok {
			for _, allowed := range enumValues(expr) {
				if sv == allowed {
					return nil
				}
			}
		}
		return &ValidationError{Kind: KindEnumViolation, Type: typeName, Field: fieldName,
			Message: fmt.Sprintf("value not in %s", expr)}
	}

	base, param := splitGeneric(expr)
	switch base {
	case "list":
		list, ok := ir.AsList(v)
		if !ok {
			return &ValidationError{Kind: KindWrongKind, Type: typeName, Field: fieldName, Message: "not a list"}
		}
		if param != "" {
			for i, elem := range list {
				if err := s.validateFieldExpr(elem, param, typeName, fmt.Sprintf("%s[%d]", fieldName, i)); err != nil {
					return err
				}
			}
		}
		return nil
	case "map":
		obj, ok := ir.AsObject(v)
		if !ok {
			return &ValidationError{Kind: KindWrongKind, Type: typeName, Field: fieldName, Message: "not a map"}
		}
		if param != "" {
			for _, k := range obj.SortedKeys() {
				if err := s.validateFieldExpr(obj[k], param, typeName, fieldName+"."+k); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if isPrimitive(expr) {
		return validatePrimitive(v, expr, typeName, fieldName)
	}

	if s.Has(expr) {
		if err := s.Validate(v, expr); err != nil {
			return fmt.Errorf("field %q: %w", fieldName, err)
		}
		return nil
	}

	// Unrecognized expressions are accepted; the loader surfaces them for
	// diagnostics but validation stays permissive, matching loader behavior
	// of skipping unknown constructs.
	return nil
}

func validatePrimitive(v ir.Value, prim, typeName, fieldName string) error {
	fail := func(want string) error {
		return &ValidationError{Kind: KindWrongKind, Type: typeName, Field: fieldName,
			Message: "not " + want}
	}
	switch prim {
	case "str":
		if _, ok := ir.AsString(v); !ok {
			return fail("a string")
		}
	case "int":
		n, ok := ir.AsNumber(v)
		if !ok || n != math.Trunc(n) {
			return fail("an integer")
		}
	case "float":
		if _, ok := ir.AsNumber(v); !ok {
			return fail("a number")
		}
	case "bool":
		if _, ok := ir.AsBool(v); !ok {
			return fail("a boolean")
		}
	case "ts":
		if _, ok := ir.AsString(v); !ok {
			return fail("a timestamp string")
		}
	}
	return nil
}

func validateConstrained(v ir.Value, name string, form Constrained) error {
	if err := validatePrimitive(v, form.Base, name, ""); err != nil {
		return err
	}
	c := form.Constraint
	if sv, ok := ir.AsString(v); ok {
		if c.MinLength != nil && len(sv) < *c.MinLength {
			return &ValidationError{Kind: KindConstraintViolation, Type: name,
				Message: fmt.Sprintf("length %d below minimum %d", len(sv), *c.MinLength)}
		}
		if c.MaxLength != nil && len(sv) > *c.MaxLength {
			return &ValidationError{Kind: KindConstraintViolation, Type: name,
				Message: fmt.Sprintf("length %d above maximum %d", len(sv), *c.MaxLength)}
		}
		if c.Pattern != "" {
			re, err := regexp.Compile(c.Pattern)
			if err != nil {
				return &ValidationError{Kind: KindConstraintViolation, Type: name,
					Message: "invalid pattern: " + c.Pattern}
			}
			if !re.MatchString(sv) {
				return &ValidationError{Kind: KindConstraintViolation, Type: name,
					Message: fmt.Sprintf("%q does not match pattern %q", sv, c.Pattern)}
			}
		}
	}
	if nv, ok := ir.AsNumber(v); ok {
		if c.Min != nil && nv < *c.Min {
			return &ValidationError{Kind: KindConstraintViolation, Type: name,
				Message: fmt.Sprintf("value %v below minimum %v", nv, *c.Min)}
		}
		if c.Max != nil && nv > *c.Max {
			return &ValidationError{Kind: KindConstraintViolation, Type: name,
				Message: fmt.Sprintf("value %v above maximum %v", nv, *c.Max)}
		}
	}
	return nil
}
