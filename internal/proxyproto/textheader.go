// Package proxyproto implements the inbound PROXY protocol preamble
// described in section 6 of the routing-core design: either the text
// ("PROXY TCP4 ...\r\n") form, or the 12-byte-signature binary form. Parsing
// fails closed — a malformed or unrecognized header never silently yields a
// guessed address.
package proxyproto

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// MaxTextHeaderLen is the maximum length of a text-form header, including
// the terminating CRLF, per the PROXY protocol v1 specification.
const MaxTextHeaderLen = 107

// Header is the parsed result of either header form: the two endpoints as
// reported by the upstream proxy.
type Header struct {
	SourceAddr net.Addr
	DestAddr   net.Addr
}

// Peer returns the address the proxy reports as the real client.
func (h Header) Peer() net.Addr { return h.SourceAddr }

var (
	// ErrNotProxyHeader is returned when the input doesn't start with a
	// recognizable PROXY protocol preamble at all.
	ErrNotProxyHeader = errors.New("proxyproto: not a PROXY protocol header")
	// ErrMalformedHeader is returned when the preamble is recognized but
	// cannot be parsed.
	ErrMalformedHeader = errors.New("proxyproto: malformed header")
)

const textPrefix = "PROXY "

// ParseTextHeader parses a "PROXY ...\r\n" line (without the trailing
// CRLF). It fails closed: any deviation from the expected grammar returns
// ErrMalformedHeader rather than a best-effort guess.
func ParseTextHeader(line string) (Header, error) {
	if !strings.HasPrefix(line, textPrefix) {
		return Header{}, ErrNotProxyHeader
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Header{}, ErrMalformedHeader
	}
	proto := fields[1]
	if proto == "UNKNOWN" {
		return Header{}, ErrMalformedHeader
	}
	if len(fields) != 6 {
		return Header{}, ErrMalformedHeader
	}
	srcIPStr, dstIPStr, srcPortStr, dstPortStr := fields[2], fields[3], fields[4], fields[5]

	var network string
	switch proto {
	case "TCP4", "TCP6":
		network = "tcp"
	default:
		return Header{}, ErrMalformedHeader
	}

	srcIP := net.ParseIP(srcIPStr)
	dstIP := net.ParseIP(dstIPStr)
	if srcIP == nil || dstIP == nil {
		return Header{}, ErrMalformedHeader
	}
	srcPort, err := strconv.ParseUint(srcPortStr, 10, 16)
	if err != nil {
		return Header{}, ErrMalformedHeader
	}
	dstPort, err := strconv.ParseUint(dstPortStr, 10, 16)
	if err != nil {
		return Header{}, ErrMalformedHeader
	}

	_ = network
	return Header{
		SourceAddr: &net.TCPAddr{IP: srcIP, Port: int(srcPort)},
		DestAddr:   &net.TCPAddr{IP: dstIP, Port: int(dstPort)},
	}, nil
}

// GenTextHeader produces the wire form of the text header for the given
// client/server TCP endpoints, terminated by CRLF. It is the inverse of
// ParseTextHeader, used by the round-trip test property in spec §8.
func GenTextHeader(client, server *net.TCPAddr) (string, error) {
	var proto string
	switch {
	case client.IP.To4() != nil && server.IP.To4() != nil:
		proto = "TCP4"
	case client.IP.To16() != nil && server.IP.To16() != nil:
		proto = "TCP6"
	default:
		return "", ErrMalformedHeader
	}
	s := fmt.Sprintf("PROXY %s %s %s %d %d\r\n", proto, ipString(client.IP, proto), ipString(server.IP, proto), client.Port, server.Port)
	if len(s) > MaxTextHeaderLen {
		return "", ErrMalformedHeader
	}
	return s, nil
}

func ipString(ip net.IP, proto string) string {
	if proto == "TCP4" {
		return ip.To4().String()
	}
	return ip.To16().String()
}
