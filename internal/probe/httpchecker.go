package probe

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/waithttp/internal/endpoint"
)

// HTTPChecker issues one GET per attempt. Credentials are attached to each
// request, never installed process wide.
type HTTPChecker struct {
	Client   *http.Client
	Username string
	Password string
	Body     BodyPolicy
	Logger   *zap.Logger
}

// NewHTTPChecker bounds connection setup by connectTimeout (0 = no limit).
// Keep-alives are off so every attempt opens a fresh connection.
func NewHTTPChecker(connectTimeout time.Duration, body BodyPolicy, log *zap.Logger) *HTTPChecker {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &HTTPChecker{
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: connectTimeout,
				DisableKeepAlives:   true,
			},
		},
		Body:   body,
		Logger: log,
	}
}

func (h *HTTPChecker) Check(ctx context.Context, ep endpoint.Endpoint) AttemptResult {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.String(), nil)
	if err != nil {
		return AttemptResult{Outcome: FatalFailure, Err: err}
	}
	if h.Username != "" || h.Password != "" {
		req.SetBasicAuth(h.Username, h.Password)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return retryable(start, &ConnectError{Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		res := retryable(start, &StatusError{Code: resp.StatusCode, Status: resp.Status})
		res.StatusCode = resp.StatusCode
		return res
	}
	h.Logger.Info("connection_returned", zap.Int("status", resp.StatusCode))

	lines := 0
	if h.Body.Enabled() {
		lines, err = h.Body.Consume(resp.Body, h.Logger)
		if err != nil {
			res := retryable(start, err)
			res.StatusCode = resp.StatusCode
			res.Lines = lines
			return res
		}
	}
	return succeeded(start, resp.StatusCode, lines)
}
