package probe

import "fmt"

// ConnectError wraps transport failures: refused, timed out, reset.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string { return "connect: " + e.Err.Error() }

func (e *ConnectError) Unwrap() error { return e.Err }

// StatusError is returned when an HTTP endpoint answers with anything but 200.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("connection returned status code: %d", e.Code)
}

// PatternError means the stream ended before any line matched. Response holds
// the lines read, possibly truncated.
type PatternError struct {
	Pattern  string
	Response string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("no match for %q found in response: %s", e.Pattern, e.Response)
}

// ExhaustedError is the final error once the attempt budget is spent.
type ExhaustedError struct {
	Endpoint string
	Attempts int
	Cause    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("cannot connect to %s after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error { return e.Cause }
