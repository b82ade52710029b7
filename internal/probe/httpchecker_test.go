package probe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/waithttp/internal/endpoint"
)

func endpointFor(t *testing.T, rawURL, path string) endpoint.Endpoint {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %s: %v", rawURL, err)
	}
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)
	ep, err := endpoint.Build(u.Scheme, host, port, path)
	if err != nil {
		t.Fatalf("build endpoint: %v", err)
	}
	return ep
}

func TestHTTPChecker_StatusOK(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, BodyPolicy{}, zap.NewNop())
	out := chk.Check(context.Background(), endpointFor(t, s.URL, "/"))
	if out.Outcome != Success {
		t.Fatalf("want success, got %+v", out)
	}
	if out.StatusCode != 200 {
		t.Fatalf("want status 200, got %d", out.StatusCode)
	}
	if out.LatencyMS < 0 {
		t.Fatalf("latency should be >= 0, got %f", out.LatencyMS)
	}
	if out.Lines != 0 {
		t.Fatalf("body should not be read, got %d lines", out.Lines)
	}
}

func TestHTTPChecker_NonOKIsRetryableEvenIfBodyMatches(t *testing.T) {
	for _, code := range []int{201, 204, 404, 500, 503} {
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			fmt.Fprintln(w, "READY")
		}))

		chk := NewHTTPChecker(2*time.Second, BodyPolicy{Pattern: regexp.MustCompile("READY")}, zap.NewNop())
		out := chk.Check(context.Background(), endpointFor(t, s.URL, "/"))
		s.Close()

		if out.Outcome != RetryableFailure {
			t.Fatalf("code %d: want retryable failure, got %+v", code, out)
		}
		var se *StatusError
		if !errors.As(out.Err, &se) {
			t.Fatalf("code %d: want *StatusError, got %v", code, out.Err)
		}
	}
}

func TestHTTPChecker_PatternStopsAtFirstMatch(t *testing.T) {
	thirdSent := make(chan struct{})
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		fmt.Fprint(w, "foo\nbar\n")
		w.(http.Flusher).Flush()
		// only sent if the client is still reading
		select {
		case <-r.Context().Done():
			return
		case <-time.After(3 * time.Second):
		}
		fmt.Fprint(w, "baz\n")
		close(thirdSent)
	}))
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, BodyPolicy{Pattern: regexp.MustCompile("ba.")}, zap.NewNop())

	start := time.Now()
	out := chk.Check(context.Background(), endpointFor(t, s.URL, "/"))
	if out.Outcome != Success {
		t.Fatalf("want success, got %+v", out)
	}
	if out.Lines != 2 {
		t.Fatalf("want match on line 2, read %d lines", out.Lines)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("checker waited for EOF")
	}
	select {
	case <-thirdSent:
		t.Fatalf("third line was sent")
	default:
	}
}

func TestHTTPChecker_PatternNotFound(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "starting\nwarming caches\n")
	}))
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, BodyPolicy{Pattern: regexp.MustCompile("^UP$")}, zap.NewNop())
	out := chk.Check(context.Background(), endpointFor(t, s.URL, "/"))
	if out.Outcome != RetryableFailure {
		t.Fatalf("want retryable failure, got %+v", out)
	}
	var pe *PatternError
	if !errors.As(out.Err, &pe) {
		t.Fatalf("want *PatternError, got %v", out.Err)
	}
	if pe.Response != "starting\nwarming caches" {
		t.Fatalf("response buffer = %q", pe.Response)
	}
	if out.StatusCode != 200 || out.Lines != 2 {
		t.Fatalf("unexpected result %+v", out)
	}
}

func TestHTTPChecker_ReadDrainsBody(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "a\nb\nc")
	}))
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, BodyPolicy{Read: true}, zap.NewNop())
	out := chk.Check(context.Background(), endpointFor(t, s.URL, "/"))
	if out.Outcome != Success || out.Lines != 3 {
		t.Fatalf("want success after 3 lines, got %+v", out)
	}
}

func TestHTTPChecker_BasicAuth(t *testing.T) {
	headers := make(chan string, 3)
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("Authorization")
		w.WriteHeader(200)
	}))
	defer s.Close()
	ep := endpointFor(t, s.URL, "/")

	chk := NewHTTPChecker(2*time.Second, BodyPolicy{}, zap.NewNop())
	chk.Username, chk.Password = "ci", "s3cret"
	if out := chk.Check(context.Background(), ep); out.Outcome != Success {
		t.Fatalf("want success, got %+v", out)
	}
	if got, want := <-headers, basicHeader("ci", "s3cret"); got != want {
		t.Fatalf("Authorization = %q, want %q", got, want)
	}

	// password only still enables auth
	chk.Username, chk.Password = "", "token"
	chk.Check(context.Background(), ep)
	if got, want := <-headers, basicHeader("", "token"); got != want {
		t.Fatalf("Authorization = %q, want %q", got, want)
	}

	// a checker without credentials sends no header, even after another used them
	plain := NewHTTPChecker(2*time.Second, BodyPolicy{}, zap.NewNop())
	plain.Check(context.Background(), ep)
	if got := <-headers; got != "" {
		t.Fatalf("want no Authorization header, got %q", got)
	}
}

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestHTTPChecker_ConnectionRefused(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ep := endpointFor(t, s.URL, "/")
	s.Close()

	chk := NewHTTPChecker(500*time.Millisecond, BodyPolicy{}, zap.NewNop())
	out := chk.Check(context.Background(), ep)
	if out.Outcome != RetryableFailure {
		t.Fatalf("want retryable failure, got %+v", out)
	}
	if out.StatusCode != 0 {
		t.Fatalf("want status 0 on transport error, got %d", out.StatusCode)
	}
	var ce *ConnectError
	if !errors.As(out.Err, &ce) {
		t.Fatalf("want *ConnectError, got %v", out.Err)
	}
}

func TestWaiter_RecoversWhenServerComesUp(t *testing.T) {
	var hits atomic.Int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "status: UP")
	}))
	defer s.Close()

	u, _ := url.Parse(s.URL)
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)

	p := baseProbe()
	p.Host, p.Port = host, port
	p.MaxCount = 5
	p.TimeoutMS = 10
	p.ResponseRegex = "UP"

	w, err := New(p, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rep, err := w.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if rep.Attempts != 3 || hits.Load() != 3 {
		t.Fatalf("want success on attempt 3, got attempts=%d hits=%d", rep.Attempts, hits.Load())
	}
}
