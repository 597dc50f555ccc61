package natmanager

import (
	"fmt"
	"log/slog"
)

// Config assembles a NATManager. Every field is read once at
// construction and never mutated afterwards.
type Config struct {
	// PeerID is the host's stable identity, used only in the default
	// mapping description.
	PeerID string

	// Addrs reports the host's bound listen addresses.
	Addrs AddrSource

	// Registry receives the externally reachable addresses produced by
	// successful mappings.
	Registry Registry

	// Enabled is the master switch. When false the manager is
	// permanently inert.
	Enabled bool

	// ExternalAddress overrides public IP discovery. When set, the
	// gateway is never asked for its external address.
	ExternalAddress string

	// LocalAddress overrides the internal address advertised in mapping
	// requests.
	LocalAddress string

	// Description is the label sent to the gateway. Defaults to a
	// string combining the implementation name, version, and PeerID.
	Description string

	// TTL is the mapping lifetime in seconds. Zero selects DefaultTTL;
	// non-zero values below MinTTL are rejected.
	TTL int

	// KeepAlive renews mappings before their TTL expires.
	KeepAlive bool

	// Gateway overrides gateway device discovery. See GatewayOptions.
	Gateway string

	// NewGateway overrides Gateway construction. Defaults to
	// NewGateway.
	NewGateway GatewayFactory

	// Logger receives the manager's diagnostics. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.Addrs == nil {
		return fmt.Errorf("%w: address source is required", ErrInvalidParameters)
	}
	if c.Registry == nil {
		return fmt.Errorf("%w: address registry is required", ErrInvalidParameters)
	}
	if c.TTL != 0 && c.TTL < MinTTL {
		return fmt.Errorf("%w: TTL of %d is below the minimum of %d seconds", ErrInvalidParameters, c.TTL, MinTTL)
	}
	return nil
}

// defaultDescription labels mappings so they can be traced back to this
// host in the gateway's mapping table.
func defaultDescription(peerID string) string {
	return fmt.Sprintf("%s@%s %s", implName, implVersion, peerID)
}
