package typesys

import "github.com/tberndt/weft/internal/ir"

// ApplyDefaults fills declared default values into any absent fields of a
// structural value. Non-structural types and non-object values pass through
// unchanged. Idempotent: a field present (even via a prior application) is
// never overwritten.
func (s *System) ApplyDefaults(v ir.Value, name string) ir.Value {
	form, err := s.Resolve(name)
	if err != nil {
		return v
	}
	structural, ok := form.(Structural)
	if !ok || len(structural.Defaults) == 0 {
		return v
	}
	obj, ok := ir.AsObject(v)
	if !ok {
		return v
	}
	out := make(ir.Object, len(obj)+len(structural.Defaults))
	for k, val := range obj {
		out[k] = val
	}
	for k, val := range structural.Defaults {
		if _, present := out[k]; !present {
			out[k] = val
		}
	}
	return out
}
