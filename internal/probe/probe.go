// Package probe waits for an endpoint to become ready: it retries connection
// attempts with a fixed backoff under an attempt budget and validates each
// response by status code and, optionally, a line pattern.
package probe

import (
	"context"

	"github.com/hamed0406/waithttp/internal/endpoint"
)

// Checker performs a single attempt against an endpoint. Implementations
// must close whatever they open before returning.
type Checker interface {
	Check(ctx context.Context, ep endpoint.Endpoint) AttemptResult
}
