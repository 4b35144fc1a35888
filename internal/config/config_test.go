package config

import (
	"net/netip"
	"testing"

	"github.com/joeycumines/go-utilpkg/logiface"
)

func TestParse(t *testing.T) {
	doc := []byte(`
threads: 4
proxy_protocol_networks: ["10.0.0.0/8", "::1/128"]
events:
  poll:
    facility: poll
    level: warning
`)
	c, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Threads != 4 {
		t.Fatalf("got %d, want 4", c.Threads)
	}
	if len(c.ProxyProtocolNetworks) != 2 {
		t.Fatalf("got %d networks, want 2", len(c.ProxyProtocolNetworks))
	}
	if ev, ok := c.Events["poll"]; !ok || ev.Level != "warning" {
		t.Fatalf("got %+v", c.Events)
	}
}

func TestParseRejectsNonPositiveThreads(t *testing.T) {
	if _, err := Parse([]byte("threads: 0\n")); err == nil {
		t.Fatalf("expected an error for threads: 0")
	}
}

func TestParseRejectsBadCIDR(t *testing.T) {
	doc := []byte(`
threads: 1
proxy_protocol_networks: ["not-a-cidr"]
`)
	if _, err := Parse(doc); err == nil {
		t.Fatalf("expected an error for a malformed CIDR")
	}
}

func TestAllowsProxyProtocol(t *testing.T) {
	c := &Config{ProxyProtocolNetworks: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}}

	if !c.AllowsProxyProtocol(netip.MustParseAddr("10.1.2.3")) {
		t.Fatalf("10.1.2.3 should be allowed")
	}
	if c.AllowsProxyProtocol(netip.MustParseAddr("192.168.1.1")) {
		t.Fatalf("192.168.1.1 should not be allowed")
	}
}

func TestEmptyAllowlistDeniesEverything(t *testing.T) {
	c := &Config{}
	if c.AllowsProxyProtocol(netip.MustParseAddr("127.0.0.1")) {
		t.Fatalf("an empty allowlist must deny every address")
	}
}

func TestLevel(t *testing.T) {
	cases := map[string]logiface.Level{
		"error":   logiface.LevelError,
		"warning": logiface.LevelWarning,
		"debug":   logiface.LevelDebug,
		"bogus":   logiface.LevelInformational,
	}
	for s, want := range cases {
		if got := Level(s); got != want {
			t.Errorf("Level(%q) = %v, want %v", s, got, want)
		}
	}
}
