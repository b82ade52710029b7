package probe

import (
	"context"
	"errors"
	"net"
	"testing"
)

func TestCheckDNS_InvalidName(t *testing.T) {
	for _, in := range []string{"", "   ", "http://example.com"} {
		if got := CheckDNS(context.Background(), in).Class; got != DNSInvalidName {
			t.Fatalf("CheckDNS(%q) class = %s, want %s", in, got, DNSInvalidName)
		}
	}
}

func TestCheckDNS_IPLiteral(t *testing.T) {
	s := CheckDNS(context.Background(), "127.0.0.1")
	if s.Class != DNSResolves || !s.HasAOrAAAA || len(s.IPs) != 1 {
		t.Fatalf("unexpected status %+v", s)
	}
}

func TestClassifyLookupErr(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&net.DNSError{Err: "no such host", IsNotFound: true}, DNSNXDomain},
		{&net.DNSError{Err: "server misbehaving", IsTemporary: true}, DNSServFail},
		{&net.DNSError{Err: "i/o timeout", IsTimeout: true}, DNSServFail},
		{errors.New("other"), ""},
	}
	for _, tt := range tests {
		if got := classifyLookupErr(tt.err); got != tt.want {
			t.Errorf("classifyLookupErr(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestFallbackClass(t *testing.T) {
	tests := []struct {
		in   DNSStatus
		want string
	}{
		{DNSStatus{HasAOrAAAA: true}, DNSResolves},
		{DNSStatus{HasNS: true}, DNSNoARecord},
		{DNSStatus{ResolverError: "boom"}, DNSServFail},
		{DNSStatus{}, DNSNXDomain},
	}
	for _, tt := range tests {
		if got := fallbackClass(tt.in); got != tt.want {
			t.Errorf("fallbackClass(%+v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
