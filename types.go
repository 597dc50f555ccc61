package natmanager

import (
	"log/slog"
	"time"

	ma "github.com/multiformats/go-multiaddr"
)

// AddrSource reports the listen addresses the host has bound. It is
// implemented by the host's transport layer.
type AddrSource interface {
	ListenAddrs() []ma.Multiaddr
}

// Registry records addresses at which external peers can reach this
// host. Additions are additive; deduplication and expiry belong to the
// registry.
type Registry interface {
	AddObservedAddr(addr ma.Multiaddr)
}

// MapRequest describes a single requested port mapping.
type MapRequest struct {
	// PublicPort is the requested port on the gateway's external
	// interface.
	PublicPort int

	// LocalPort is the bound port on this host.
	LocalPort int

	// LocalAddress optionally overrides the internal client address
	// advertised to the gateway.
	LocalAddress string

	// Protocol is "TCP" or "UDP".
	Protocol string
}

// Gateway is a port-mapping client for the local gateway device. A
// Gateway is exclusively owned by the NATManager that created it; no
// other component may hold or close it.
type Gateway interface {
	// ExternalIP returns the gateway's external IP address.
	ExternalIP() (string, error)

	// Map requests a port mapping.
	Map(req MapRequest) error

	// Close releases the client, removing any mappings it created.
	Close() error
}

// GatewayOptions configures Gateway construction.
type GatewayOptions struct {
	// Description is the human-readable label attached to mappings.
	Description string

	// TTL is the mapping lifetime requested from the gateway.
	TTL time.Duration

	// KeepAlive renews mappings before the TTL expires.
	KeepAlive bool

	// Gateway overrides device discovery: an http(s) URL pins a UPnP
	// root device, a bare IP pins the NAT-PMP gateway address.
	Gateway string

	// Logger receives mapping and renewal events. Nil falls back to
	// slog.Default.
	Logger *slog.Logger
}

// GatewayFactory creates the Gateway used for a mapping run.
type GatewayFactory func(opts GatewayOptions) (Gateway, error)

// portMapper is the low-level protocol client behind the default
// Gateway, satisfied by UPnPMapper and NATPMPMapper. MapPort returns
// the external port actually assigned, which a gateway may choose
// differently from the requested one. UnmapPort takes both ports
// because the protocols disagree on which one identifies a mapping:
// UPnP deletes by external port, NAT-PMP by internal port.
type portMapper interface {
	MapPort(protocol string, externalPort, internalPort int, localAddress string, lease time.Duration) (int, error)
	UnmapPort(protocol string, externalPort, internalPort int) error
	GetExternalIP() (string, error)
}
