package natmanager

import (
	"strconv"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

// candidate is one bound address decomposed for mapping purposes.
type candidate struct {
	family    int
	host      string
	port      int
	transport string
	addr      ma.Multiaddr
}

// toCandidate decomposes a thin-waist multiaddr into family, host,
// port, and transport. Addresses with further encapsulation (circuit
// relay, websockets, ...) carry no directly mappable host/port pair and
// report ok=false, as do bare IP addresses without a transport.
// IsThinWaist only vets the leading components, so the exact
// ip/transport shape is enforced separately.
func toCandidate(addr ma.Multiaddr) (candidate, bool) {
	if !manet.IsThinWaist(addr) || len(addr.Protocols()) != 2 {
		return candidate{}, false
	}
	c := candidate{addr: addr}

	if host, err := addr.ValueForProtocol(ma.P_IP4); err == nil {
		c.family, c.host = 4, host
	} else if host, err := addr.ValueForProtocol(ma.P_IP6); err == nil {
		c.family, c.host = 6, host
	} else {
		return candidate{}, false
	}

	if port, err := addr.ValueForProtocol(ma.P_TCP); err == nil {
		c.transport = "tcp"
		c.port, _ = strconv.Atoi(port)
	} else if port, err := addr.ValueForProtocol(ma.P_UDP); err == nil {
		c.transport = "udp"
		c.port, _ = strconv.Atoi(port)
	} else {
		return candidate{}, false
	}

	return c, true
}

// eligible reports whether the candidate can be mapped: IPv4, TCP, and
// not a loopback address. IPv6 gateways use firewall pinholes rather
// than port mappings and are out of scope for this manager.
func (c candidate) eligible() bool {
	return c.family == 4 && c.transport == "tcp" && !manet.IsIPLoopback(c.addr)
}
