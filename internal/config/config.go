// Package config parses the subset of the proxy's configuration surface
// spec §6 says the core actually consumes: worker thread count, per-
// listener proxy_protocol_networks, and per-event log facility/level. Every
// other setting a real deployment carries (server lists, credentials,
// monitor intervals) is the external collaborator's problem, not this
// package's — it is deliberately not a general-purpose config loader.
package config

import (
	"fmt"
	"net/netip"

	"gopkg.in/yaml.v3"

	"github.com/joeycumines/go-utilpkg/logiface"

	"github.com/joeycumines/go-dbrouter/internal/rlog"
)

// EventConfig is one "event.<name>.facility"/"event.<name>.level" pair.
type EventConfig struct {
	Facility string `yaml:"facility"`
	Level    string `yaml:"level"`
}

// raw mirrors the on-disk shape; Config is the validated, typed result.
type raw struct {
	Threads              int                    `yaml:"threads"`
	ProxyProtocolNetworks []string              `yaml:"proxy_protocol_networks"`
	Events               map[string]EventConfig `yaml:"events"`
}

// Config is the validated subset of configuration the core consumes.
type Config struct {
	// Threads is the worker count (spec §6: "thread count (workers)").
	Threads int
	// ProxyProtocolNetworks restricts which peers may send a PROXY protocol
	// header, as CIDR prefixes.
	ProxyProtocolNetworks []netip.Prefix
	// Events maps an event name to its configured facility/level, by the
	// same names rlog.Facility uses.
	Events map[string]EventConfig
}

// Parse reads and validates a YAML document in the shape:
//
//	threads: 4
//	proxy_protocol_networks: ["10.0.0.0/8", "::1/128"]
//	events:
//	  poll:
//	    facility: poll
//	    level: info
func Parse(doc []byte) (*Config, error) {
	var r raw
	if err := yaml.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if r.Threads <= 0 {
		return nil, fmt.Errorf("config: threads must be positive, got %d", r.Threads)
	}

	nets := make([]netip.Prefix, 0, len(r.ProxyProtocolNetworks))
	for _, s := range r.ProxyProtocolNetworks {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("config: proxy_protocol_networks: %q: %w", s, err)
		}
		nets = append(nets, p)
	}

	return &Config{
		Threads:               r.Threads,
		ProxyProtocolNetworks: nets,
		Events:                r.Events,
	}, nil
}

// AllowsProxyProtocol reports whether addr is permitted to send a PROXY
// protocol header, per the configured CIDR allowlist. An empty allowlist
// denies every address — proxy protocol parsing must be explicitly opted
// into per listener.
func (c *Config) AllowsProxyProtocol(addr netip.Addr) bool {
	for _, n := range c.ProxyProtocolNetworks {
		if n.Contains(addr) {
			return true
		}
	}
	return false
}

// Level maps a configured event-level string onto a logiface level,
// defaulting to Informational for anything unrecognized.
func Level(s string) logiface.Level {
	switch s {
	case "emerg":
		return logiface.LevelEmergency
	case "alert":
		return logiface.LevelAlert
	case "crit":
		return logiface.LevelCritical
	case "error":
		return logiface.LevelError
	case "warning":
		return logiface.LevelWarning
	case "notice":
		return logiface.LevelNotice
	case "debug":
		return logiface.LevelDebug
	case "trace":
		return logiface.LevelTrace
	default:
		return logiface.LevelInformational
	}
}

// ApplyEvents configures reg from the parsed event list: each event name
// becomes a Facility whose Logger is built by newLogger at the event's
// configured level. Where that Logger writes is up to newLogger.
func (c *Config) ApplyEvents(reg *rlog.Registry, newLogger func(level logiface.Level) *rlog.Logger) {
	for name, ev := range c.Events {
		reg.Configure(rlog.Facility(name), newLogger(Level(ev.Level)))
	}
}
