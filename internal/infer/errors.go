package infer

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	ErrCodeExhausted       = "INFERENCE_EXHAUSTED" // retry budget spent without a conforming reply
	ErrCodeUnknownProvider = "UNKNOWN_PROVIDER"    // no registered provider by that name
)

// ExhaustedError reports that every attempt produced a non-conforming
// reply. Last carries the final validation or transport failure.
type ExhaustedError struct {
	Task     string
	Target   string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: no conforming reply for %q after %d attempts: %v",
		ErrCodeExhausted, e.Target, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// IsExhausted reports whether err is an inference exhaustion.
func IsExhausted(err error) bool {
	var e *ExhaustedError
	return errors.As(err, &e)
}
