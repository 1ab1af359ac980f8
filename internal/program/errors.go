package program

import "fmt"

// Load error codes.
const (
	ErrCodeUnreadable = "UNREADABLE_FILE"  // file cannot be opened or read
	ErrCodeMalformed  = "MALFORMED_RECORD" // line is not a valid record
	ErrCodeBadImport  = "BAD_IMPORT"       // import record has no usable path
)

// LoadError is a failure while loading a program file. Line is 1-based and
// zero when the failure is file-level.
type LoadError struct {
	Code    string
	Path    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.Path, e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
