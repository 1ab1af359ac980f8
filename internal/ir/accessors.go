package ir

// AsObject returns the Object form of v, reporting whether v is an object.
func AsObject(v Value) (Object, bool) {
	o, ok := v.(Object)
	return o, ok
}

// AsList returns the List form of v, reporting whether v is a list.
func AsList(v Value) (List, bool) {
	l, ok := v.(List)
	return l, ok
}

// AsString returns the string form of v, reporting whether v is a string.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// AsNumber returns the float64 form of v, reporting whether v is a number.
func AsNumber(v Value) (float64, bool) {
	n, ok := v.(Number)
	return float64(n), ok
}

// AsBool returns the bool form of v, reporting whether v is a boolean.
func AsBool(v Value) (bool, bool) {
	b, ok := v.(Bool)
	return bool(b), ok
}

// IsNull reports whether v is null (explicit Null or an untyped nil).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Truthy reports the boolean interpretation of v: null, false, zero, the
// empty string, and empty collections are false; everything else is true.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return bool(val)
	case Number:
		return float64(val) != 0
	case String:
		return val != ""
	case List:
		return len(val) > 0
	case Object:
		return len(val) > 0
	default:
		return false
	}
}

// Equal reports deep equality of two values. Numbers compare numerically,
// collections element-wise.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil, Null:
		return IsNull(b)
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two values when an ordering exists: numbers numerically,
// strings lexicographically. The second result is false for mixed or
// unordered forms.
func Compare(a, b Value) (int, bool) {
	if an, ok := a.(Number); ok {
		bn, ok := b.(Number)
		if !ok {
			return 0, false
		}
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		default:
			return 0, true
		}
	}
	if as, ok := a.(String); ok {
		bs, ok := b.(String)
		if !ok {
			return 0, false
		}
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}
