package natmanager

import (
	"fmt"
	"net"
	"strings"
	"time"

	natpmp "github.com/jackpal/go-nat-pmp"
)

// NATPMPMapper implements portMapper over the NAT-PMP protocol.
type NATPMPMapper struct {
	client *natpmp.Client
}

// NewNATPMPMapper discovers the default gateway and verifies it speaks
// NAT-PMP.
func NewNATPMPMapper() (*NATPMPMapper, error) {
	gateway, err := discoverGateway()
	if err != nil {
		return nil, fmt.Errorf("NAT-PMP gateway discovery failed: %w", err)
	}
	return NewNATPMPMapperAt(gateway)
}

// NewNATPMPMapperAt uses the given gateway address, skipping discovery.
func NewNATPMPMapperAt(gateway net.IP) (*NATPMPMapper, error) {
	client := natpmp.NewClientWithTimeout(gateway, natpmpTimeout)

	// Connectivity check; NAT-PMP has no discovery handshake of its own.
	if _, err := client.GetExternalAddress(); err != nil {
		return nil, fmt.Errorf("NAT-PMP connectivity test failed: %w", err)
	}
	return &NATPMPMapper{client: client}, nil
}

// MapPort maps externalPort on the gateway to internalPort on this host
// and returns the external port the gateway actually assigned, which
// may differ from the requested one. NAT-PMP cannot advertise a
// different internal client, so localAddress is ignored.
func (n *NATPMPMapper) MapPort(protocol string, externalPort, internalPort int, _ string, lease time.Duration) (int, error) {
	if err := checkPort(externalPort); err != nil {
		return 0, err
	}
	if err := checkPort(internalPort); err != nil {
		return 0, err
	}
	proto, err := natpmpProtocol(protocol)
	if err != nil {
		return 0, err
	}

	result, err := n.client.AddPortMapping(proto, internalPort, externalPort, int(lease.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("NAT-PMP port mapping failed: %w", err)
	}
	return int(result.MappedExternalPort), nil
}

// UnmapPort removes a port mapping. NAT-PMP expresses removal as a
// mapping request with zero lifetime, keyed by the internal port.
func (n *NATPMPMapper) UnmapPort(protocol string, _, internalPort int) error {
	if err := checkPort(internalPort); err != nil {
		return err
	}
	proto, err := natpmpProtocol(protocol)
	if err != nil {
		return err
	}

	if _, err := n.client.AddPortMapping(proto, internalPort, 0, 0); err != nil {
		return fmt.Errorf("NAT-PMP port unmapping failed: %w", err)
	}
	return nil
}

// GetExternalIP returns the gateway's external IP address.
func (n *NATPMPMapper) GetExternalIP() (string, error) {
	result, err := n.client.GetExternalAddress()
	if err != nil {
		return "", fmt.Errorf("NAT-PMP external IP lookup failed: %w", err)
	}
	ip := net.IPv4(result.ExternalIPAddress[0], result.ExternalIPAddress[1],
		result.ExternalIPAddress[2], result.ExternalIPAddress[3])
	return ip.String(), nil
}

// natpmpProtocol converts a mapping protocol name to the lowercase form
// go-nat-pmp expects.
func natpmpProtocol(protocol string) (string, error) {
	switch strings.ToLower(protocol) {
	case "tcp":
		return "tcp", nil
	case "udp":
		return "udp", nil
	default:
		return "", fmt.Errorf("%w: unsupported protocol %q", ErrInvalidParameters, protocol)
	}
}
