// Package typesys resolves named type declarations and validates values
// against them. Declarations come in two forms: structural (ordered fields
// with optionality markers, defaults, and docs) and derived (alias, union,
// literal, enumeration, or constrained primitive). Structural validation is
// closed-world: undeclared fields are a hard failure, which keeps inference
// output tightly guarded.
package typesys
