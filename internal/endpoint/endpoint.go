// Package endpoint builds the validated address a probe connects to.
package endpoint

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Supported schemes. HTTP and HTTPS are the status-code-bearing kind.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeTCP   = "tcp"
	SchemeFile  = "file"
)

// Endpoint is an immutable, fully qualified probe target.
type Endpoint struct {
	u url.URL
}

// ConfigurationError reports endpoint components that cannot form a URL.
// It is never retried.
type ConfigurationError struct {
	Protocol string
	Host     string
	Port     int
	Path     string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s, %s, %d, %s: cannot create URL: %s", e.Protocol, e.Host, e.Port, e.Path, e.Reason)
}

// Build assembles an Endpoint from its parts. No network I/O happens here.
func Build(protocol, host string, port int, path string) (Endpoint, error) {
	fail := func(format string, args ...any) (Endpoint, error) {
		return Endpoint{}, &ConfigurationError{
			Protocol: protocol,
			Host:     host,
			Port:     port,
			Path:     path,
			Reason:   fmt.Sprintf(format, args...),
		}
	}

	scheme := strings.ToLower(strings.TrimSpace(protocol))
	if !Supported(scheme) {
		return fail("unsupported protocol %q", protocol)
	}
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		return fail("path must start with /")
	}

	ref, err := url.Parse(path)
	if err != nil {
		return fail("invalid path: %v", err)
	}
	if ref.Scheme != "" || ref.Host != "" {
		return fail("path must not carry a scheme or host")
	}

	if scheme == SchemeFile {
		return Endpoint{u: url.URL{Scheme: scheme, Path: ref.Path}}, nil
	}

	host = strings.TrimSpace(host)
	if host == "" {
		return fail("host is empty")
	}
	if strings.ContainsAny(host, "/?#@ ") {
		return fail("invalid host")
	}
	if port < 1 || port > 65535 {
		return fail("port out of range")
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(port)),
		Path:     ref.Path,
		RawPath:  ref.RawPath,
		RawQuery: ref.RawQuery,
	}
	// round-trip catches hosts url.URL would render but not parse back
	if _, err := url.Parse(u.String()); err != nil {
		return fail("%v", err)
	}
	return Endpoint{u: u}, nil
}

// Supported reports whether scheme can be probed.
func Supported(scheme string) bool {
	switch scheme {
	case SchemeHTTP, SchemeHTTPS, SchemeTCP, SchemeFile:
		return true
	}
	return false
}

func (e Endpoint) Scheme() string { return e.u.Scheme }

// Address is host:port, empty for file endpoints.
func (e Endpoint) Address() string { return e.u.Host }

func (e Endpoint) Hostname() string { return e.u.Hostname() }

func (e Endpoint) Path() string { return e.u.Path }

// HasStatus reports whether responses from this endpoint carry a status code.
func (e Endpoint) HasStatus() bool {
	return e.u.Scheme == SchemeHTTP || e.u.Scheme == SchemeHTTPS
}

func (e Endpoint) String() string { return e.u.String() }

// IsZero reports whether e was never built.
func (e Endpoint) IsZero() bool { return e.u.Scheme == "" }
