package natmanager

import "time"

// Implementation metadata, used only in the default mapping description
// shown in a gateway's admin UI.
const (
	implName    = "go-nat-manager"
	implVersion = "0.1.0"
)

const (
	// MinTTL is the minimum mapping lifetime in seconds. Consumer
	// gateways commonly reject or silently shorten smaller leases, so
	// configs below this are rejected at construction time.
	MinTTL = 7200

	// DefaultTTL is the mapping lifetime used when none is configured.
	DefaultTTL = MinTTL
)

// External ports are drawn uniformly at random from this range.
// Collisions with existing mappings are the gateway's to reject.
const (
	minMappedPort = 1024
	maxMappedPort = 65535
)

// natpmpTimeout bounds each NAT-PMP exchange; the protocol's default
// retry schedule can otherwise block for over two minutes.
const natpmpTimeout = 10 * time.Second
