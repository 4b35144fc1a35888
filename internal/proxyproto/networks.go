package proxyproto

import "net"

// Networks is the parsed form of a listener's proxy_protocol_networks
// configuration value: the CIDR allowlist of peers permitted to prepend a
// PROXY header, per the consumed-config surface in spec §6.
type Networks struct {
	nets []*net.IPNet
}

// ParseNetworks parses a list of CIDR strings. An empty list means no peer
// is trusted to supply a PROXY header.
func ParseNetworks(cidrs []string) (Networks, error) {
	var n Networks
	for _, c := range cidrs {
		_, ipnet, err := net.ParseCIDR(c)
		if err != nil {
			return Networks{}, ErrMalformedHeader
		}
		n.nets = append(n.nets, ipnet)
	}
	return n, nil
}

// Allowed reports whether remote is permitted to prepend a PROXY header.
func (n Networks) Allowed(remote net.IP) bool {
	for _, ipnet := range n.nets {
		if ipnet.Contains(remote) {
			return true
		}
	}
	return false
}
