package probe

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/hamed0406/waithttp/internal/config"
	"github.com/hamed0406/waithttp/internal/endpoint"
)

// NewChecker picks the Checker for the endpoint's scheme.
func NewChecker(p config.Probe, ep endpoint.Endpoint, log *zap.Logger) (Checker, error) {
	body, err := NewBodyPolicy(p)
	if err != nil {
		return nil, err
	}

	if ep.HasStatus() {
		c := NewHTTPChecker(p.Timeout(), body, log)
		c.Username, c.Password = p.Username, p.Password
		return c, nil
	}
	switch ep.Scheme() {
	case endpoint.SchemeTCP:
		return NewTCPChecker(p.Timeout(), body, log), nil
	case endpoint.SchemeFile:
		return NewFileChecker(body, log), nil
	default:
		return nil, fmt.Errorf("no checker for scheme %q", ep.Scheme())
	}
}

// NewBodyPolicy compiles the response regex once per invocation.
func NewBodyPolicy(p config.Probe) (BodyPolicy, error) {
	b := BodyPolicy{Read: p.Read}
	if p.ResponseRegex == "" {
		return b, nil
	}
	re, err := regexp.Compile(p.ResponseRegex)
	if err != nil {
		return BodyPolicy{}, &endpoint.ConfigurationError{
			Protocol: p.Protocol,
			Host:     p.Host,
			Port:     p.Port,
			Path:     p.File,
			Reason:   fmt.Sprintf("invalid response regex: %v", err),
		}
	}
	b.Pattern = re
	return b, nil
}
