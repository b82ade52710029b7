package probe

import "time"

// Outcome classifies one attempt.
type Outcome int

const (
	Success Outcome = iota
	RetryableFailure
	FatalFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RetryableFailure:
		return "retryable_failure"
	case FatalFailure:
		return "fatal_failure"
	default:
		return "unknown"
	}
}

// AttemptResult holds the outcome of a single attempt.
//
// StatusCode is 0 for transport errors and for schemes without a status.
// Lines counts body lines consumed, 0 when the body was not read.
type AttemptResult struct {
	Outcome    Outcome
	Err        error
	StatusCode int
	LatencyMS  float64
	Lines      int
}

func succeeded(start time.Time, status, lines int) AttemptResult {
	return AttemptResult{Outcome: Success, StatusCode: status, LatencyMS: sinceMS(start), Lines: lines}
}

func retryable(start time.Time, err error) AttemptResult {
	return AttemptResult{Outcome: RetryableFailure, Err: err, LatencyMS: sinceMS(start)}
}

func sinceMS(start time.Time) float64 {
	return time.Since(start).Seconds() * 1000
}

// Report summarises a finished Wait.
type Report struct {
	Endpoint string
	Attempts int
	Skipped  bool
	Elapsed  time.Duration
	Last     AttemptResult
}
