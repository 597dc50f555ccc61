package natmanager

import "errors"

var (
	// ErrInvalidParameters indicates a configuration or request value
	// that fails validation.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrInvalidAddress indicates the gateway reported an external
	// address that does not parse as an IP address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrDoubleNAT indicates the gateway's external address is itself a
	// private-range address, so mappings on it are unreachable from the
	// internet.
	ErrDoubleNAT = errors.New("double NAT")

	// ErrNoGateway indicates neither UPnP nor NAT-PMP found a usable
	// gateway device.
	ErrNoGateway = errors.New("no NAT gateway available")
)
