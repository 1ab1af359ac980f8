package infer

import (
	"fmt"
	"strings"

	"github.com/tberndt/weft/internal/ir"
)

// ParseReply decodes a provider reply. Providers often wrap JSON in
// prose or code fences, so after a strict parse fails we extract the
// first balanced object or array and parse that.
func ParseReply(text string) (ir.Value, error) {
	trimmed := strings.TrimSpace(text)
	if v, err := ir.Decode([]byte(trimmed)); err == nil {
		return v, nil
	}
	if sub, ok := balancedSubstring(trimmed, '{', '}'); ok {
		if v, err := ir.Decode([]byte(sub)); err == nil {
			return v, nil
		}
	}
	if sub, ok := balancedSubstring(trimmed, '[', ']'); ok {
		if v, err := ir.Decode([]byte(sub)); err == nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("reply is not valid JSON")
}

// balancedSubstring finds the first open..close span with balanced
// delimiters, skipping delimiters inside string literals.
func balancedSubstring(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
