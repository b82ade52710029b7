package probe

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/waithttp/internal/endpoint"
)

// StreamChecker covers schemes without a status code: the attempt succeeds
// once the stream opens and, if requested, its content validates.
type StreamChecker struct {
	Open   func(ctx context.Context, ep endpoint.Endpoint) (io.ReadCloser, error)
	Body   BodyPolicy
	Logger *zap.Logger
}

// NewTCPChecker dials host:port; whatever the peer sends is the body.
func NewTCPChecker(connectTimeout time.Duration, body BodyPolicy, log *zap.Logger) *StreamChecker {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &StreamChecker{
		Open: func(ctx context.Context, ep endpoint.Endpoint) (io.ReadCloser, error) {
			return dialer.DialContext(ctx, "tcp", ep.Address())
		},
		Body:   body,
		Logger: log,
	}
}

// NewFileChecker waits for a local file to exist (and match).
func NewFileChecker(body BodyPolicy, log *zap.Logger) *StreamChecker {
	return &StreamChecker{
		Open: func(_ context.Context, ep endpoint.Endpoint) (io.ReadCloser, error) {
			return os.Open(ep.Path())
		},
		Body:   body,
		Logger: log,
	}
}

func (s *StreamChecker) Check(ctx context.Context, ep endpoint.Endpoint) AttemptResult {
	start := time.Now()
	rc, err := s.Open(ctx, ep)
	if err != nil {
		return retryable(start, &ConnectError{Err: err})
	}
	defer rc.Close()
	// unblock a pending read on cancellation
	stop := context.AfterFunc(ctx, func() { _ = rc.Close() })
	defer stop()

	lines := 0
	if s.Body.Enabled() {
		lines, err = s.Body.Consume(rc, s.Logger)
		if err != nil {
			res := retryable(start, err)
			res.Lines = lines
			return res
		}
	}
	return succeeded(start, 0, lines)
}
