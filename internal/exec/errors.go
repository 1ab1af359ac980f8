package exec

import (
	"errors"
	"fmt"
)

// Runtime error codes.
const (
	ErrCodeUnknownOp     = "UNKNOWN_OPERATION"   // pipeline names an unregistered operation
	ErrCodeUnknownFn     = "UNKNOWN_FUNCTION"    // a direct invocation names an undefined node
	ErrCodeArgResolution = "ARGUMENT_RESOLUTION" // a $-reference resolves to nothing
	ErrCodeExternalCall  = "EXTERNAL_CALL"       // a subprocess or network call failed
	ErrCodeSandbox       = "SANDBOX_VIOLATION"   // a file or network target is out of policy
	ErrCodeDepth         = "DEPTH_EXCEEDED"      // nested operation calls exceeded the limit
)

// RuntimeError is a failure during node execution.
type RuntimeError struct {
	Code    string
	Node    string
	Op      string
	Message string
	Err     error
}

func (e *RuntimeError) Error() string {
	switch {
	case e.Node != "" && e.Op != "":
		return fmt.Sprintf("%s: node %q op %q: %s", e.Code, e.Node, e.Op, e.Message)
	case e.Node != "":
		return fmt.Sprintf("%s: node %q: %s", e.Code, e.Node, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a RuntimeError with the given code.
func IsCode(err error, code string) bool {
	var e *RuntimeError
	return errors.As(err, &e) && e.Code == code
}
