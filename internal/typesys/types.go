package typesys

import (
	"strings"

	"github.com/tberndt/weft/internal/ir"
)

// Field is one declared field of a structural type. Name carries the
// optionality marker already stripped; the raw declaration uses a trailing
// "?" on the field name.
type Field struct {
	Name     string
	Type     string
	Optional bool
}

// Decl is a named type declaration as produced by the program loader.
// Exactly one of the two forms is populated: structural (Fields, Defaults)
// or derived (Derived true, with Alias and optional Constraint).
type Decl struct {
	Name string
	Doc  string

	// Structural form.
	Fields   []Field
	Defaults ir.Object

	// Derived form: Alias holds the raw type payload - a string (alias name,
	// union expression, quoted literal, or primitive) or a list of literal
	// values (enumeration).
	Derived    bool
	Alias      ir.Value
	Constraint ir.Object
}

// Form is the terminal shape a declaration resolves to.
type Form interface{ form() }

// Structural is an object type with declared fields.
type Structural struct {
	Fields   []Field
	Defaults ir.Object
}

func (Structural) form() {}

// Union is a type matched by any of its member type names.
type Union struct {
	Members []string
}

func (Union) form() {}

// Literal is a type matched only by one exact value.
type Literal struct {
	Value ir.Value
}

func (Literal) form() {}

// Enum is a type matched by membership in an allowed value set.
type Enum struct {
	Values ir.List
}

func (Enum) form() {}

// Constrained is a primitive base type with optional validation constraints.
type Constrained struct {
	Base       string
	Constraint Constraint
}

func (Constrained) form() {}

// Constraint holds the recognized validation constraints for a constrained
// primitive. Nil pointers mean "not constrained".
type Constraint struct {
	MinLength *int
	MaxLength *int
	Pattern   string
	Min       *float64
	Max       *float64
}

// System resolves and validates against a set of declarations. Read-only
// after construction.
type System struct {
	decls map[string]*Decl
}

// New creates a System over the given declarations.
func New(decls map[string]*Decl) *System {
	if decls == nil {
		decls = map[string]*Decl{}
	}
	return &System{decls: decls}
}

// Has reports whether a type name is declared.
func (s *System) Has(name string) bool {
	_, ok := s.decls[name]
	return ok
}

// ParseField splits a raw declared field name into its validation key and
// optionality: a trailing "?" marks the field optional.
func ParseField(raw, typeExpr string) Field {
	if strings.HasSuffix(raw, "?") {
		return Field{Name: strings.TrimSuffix(raw, "?"), Type: typeExpr, Optional: true}
	}
	return Field{Name: raw, Type: typeExpr}
}

// primitives recognized in field type expressions and derived bases.
func isPrimitive(name string) bool {
	switch name {
	case "str", "int", "float", "bool", "ts":
		return true
	}
	return false
}

// splitGeneric splits "list<str>" into ("list", "str"). The parameter is
// empty for bare "list"/"map".
func splitGeneric(expr string) (base, param string) {
	open := strings.Index(expr, "<")
	if open == -1 || !strings.HasSuffix(expr, ">") {
		return expr, ""
	}
	return expr[:open], expr[open+1 : len(expr)-1]
}

// enumValues parses "enum<a, b, c>" into its trimmed member strings.
func enumValues(expr string) []string {
	inner := expr[len("enum<") : len(expr)-1]
	var vals []string
	for _, part := range strings.Split(inner, ",") {
		if p := strings.TrimSpace(part); p != "" {
			vals = append(vals, p)
		}
	}
	return vals
}

func parseConstraint(raw ir.Object) Constraint {
	var c Constraint
	if raw == nil {
		return c
	}
	if n, ok := ir.AsNumber(raw["minLength"]); ok {
		i := int(n)
		c.MinLength = &i
	}
	if n, ok := ir.AsNumber(raw["maxLength"]); ok {
		i := int(n)
		c.MaxLength = &i
	}
	if s, ok := ir.AsString(raw["pattern"]); ok {
		c.Pattern = s
	}
	if n, ok := ir.AsNumber(raw["min"]); ok {
		f := n
		c.Min = &f
	}
	if n, ok := ir.AsNumber(raw["max"]); ok {
		f := n
		c.Max = &f
	}
	return c
}
