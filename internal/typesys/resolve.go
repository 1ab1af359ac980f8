package typesys

import (
	"strings"

	"github.com/tberndt/weft/internal/ir"
)

// Resolve returns the terminal form of a declared type. Alias chains are
// followed recursively; a visited set guards against alias cycles.
func (s *System) Resolve(name string) (Form, error) {
	return s.resolve(name, map[string]bool{})
}

func (s *System) resolve(name string, seen map[string]bool) (Form, error) {
	decl, ok := s.decls[name]
	if !ok {
		return nil, &ValidationError{Kind: KindUnknownType, Type: name, Message: "type not declared"}
	}
	if seen[name] {
		return nil, &ValidationError{Kind: KindUnknownType, Type: name, Message: "alias cycle detected"}
	}
	seen[name] = true

	if !decl.Derived {
		return Structural{Fields: decl.Fields, Defaults: decl.Defaults}, nil
	}

	// Enumeration: the alias payload is a list of allowed values.
	if list, ok := ir.AsList(decl.Alias); ok {
		return Enum{Values: list}, nil
	}

	expr, ok := ir.AsString(decl.Alias)
	if !ok {
		return nil, &ValidationError{Kind: KindUnknownType, Type: name, Message: "malformed derived type payload"}
	}

	// Alias to another declared type.
	if _, declared := s.decls[expr]; declared {
		return s.resolve(expr, seen)
	}

	// Union of member type names: "str | int | UserId".
	if strings.Contains(expr, " | ") {
		var members []string
		for _, part := range strings.Split(expr, " | ") {
			members = append(members, strings.TrimSpace(part))
		}
		return Union{Members: members}, nil
	}

	// Literal: a quoted value such as `"pending"`.
	if strings.HasPrefix(expr, `"`) && strings.HasSuffix(expr, `"`) && len(expr) >= 2 {
		return Literal{Value: ir.String(expr[1 : len(expr)-1])}, nil
	}

	// Constrained or plain primitive. A primitive alias without constraints
	// resolves to a Constrained form with an empty constraint set.
	if isPrimitive(expr) {
		return Constrained{Base: expr, Constraint: parseConstraint(decl.Constraint)}, nil
	}

	return nil, &ValidationError{Kind: KindUnknownType, Type: name, Message: "unresolvable type expression: " + expr}
}
