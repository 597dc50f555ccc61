// Package natmanager establishes externally reachable port mappings on
// the local gateway device once a host has bound its listen addresses.
//
// The manager is a best-effort background component: it filters the
// host's bound addresses down to mappable candidates, asks the gateway
// (via UPnP or NAT-PMP) for its external IP, requests one mapping per
// candidate, and publishes the resulting public addresses into the
// host's address registry. Nothing it does may block or fail host
// startup; mapping either works or the host simply continues without
// direct inbound reachability.
package natmanager

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"strings"
	"sync"
	"time"

	ma "github.com/multiformats/go-multiaddr"
)

// NATManager drives the port-mapping lifecycle for a single host.
type NATManager struct {
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	started bool
	client  Gateway
}

// NewNATManager validates cfg and returns an inert manager. No network
// activity happens before AfterStart.
func NewNATManager(cfg Config) (*NATManager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Description == "" {
		cfg.Description = defaultDescription(cfg.PeerID)
	}
	if cfg.NewGateway == nil {
		cfg.NewGateway = NewGateway
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &NATManager{cfg: cfg, log: cfg.Logger}, nil
}

// Start exists for lifecycle symmetry with the host's other components.
// Mapping work cannot begin before the host has bound its addresses, so
// it performs none.
func (m *NATManager) Start() error {
	return nil
}

// AfterStart launches the mapping run once the host's addresses are
// bound. It returns immediately; the run proceeds in the background and
// its failure is logged, never surfaced. Calls after the first are
// no-ops, as is every call when the manager is disabled or the runtime
// cannot open raw sockets.
func (m *NATManager) AfterStart() {
	if !rawNetworkAvailable() || !m.cfg.Enabled {
		return
	}
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go func() {
		if err := m.mapAddrs(); err != nil {
			m.log.Warn("port mapping run failed", "error", err)
		}
	}()
}

// mapAddrs is the body of the background mapping run. Ineligible
// addresses are skipped; any gateway or validation failure aborts the
// remaining addresses of the run and surfaces at the AfterStart logging
// boundary. Individual mappings are never retried.
func (m *NATManager) mapAddrs() error {
	for _, addr := range m.cfg.Addrs.ListenAddrs() {
		cand, ok := toCandidate(addr)
		if !ok || !cand.eligible() {
			continue
		}

		client, err := m.gateway()
		if err != nil {
			return err
		}

		publicHost := m.cfg.ExternalAddress
		if publicHost == "" {
			publicHost, err = client.ExternalIP()
			if err != nil {
				return fmt.Errorf("could not determine external IP: %w", err)
			}
		}
		publicIP := net.ParseIP(publicHost)
		if publicIP == nil {
			return fmt.Errorf("%w: gateway reported %q as its external IP", ErrInvalidAddress, publicHost)
		}
		if publicIP.IsPrivate() {
			return fmt.Errorf("%w: external IP %s is a private address, the gateway itself appears to be behind NAT", ErrDoubleNAT, publicIP)
		}

		publicPort := randomMappedPort()
		req := MapRequest{
			PublicPort:   publicPort,
			LocalPort:    cand.port,
			LocalAddress: m.cfg.LocalAddress,
			Protocol:     strings.ToUpper(cand.transport),
		}
		if err := client.Map(req); err != nil {
			return fmt.Errorf("mapping %s to external port %d failed: %w", addr, publicPort, err)
		}

		observed, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/%s/%s/%d", publicIP, cand.transport, publicPort))
		if err != nil {
			return fmt.Errorf("building observed address: %w", err)
		}
		m.cfg.Registry.AddObservedAddr(observed)
		m.log.Info("mapped port on gateway", "local", addr, "observed", observed)
	}
	return nil
}

// gateway returns the shared client, creating it on first use. One
// client serves every mapping for the manager's lifetime.
func (m *NATManager) gateway() (Gateway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		return m.client, nil
	}
	client, err := m.cfg.NewGateway(GatewayOptions{
		Description: m.cfg.Description,
		TTL:         time.Duration(m.cfg.TTL) * time.Second,
		KeepAlive:   m.cfg.KeepAlive,
		Gateway:     m.cfg.Gateway,
		Logger:      m.log,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create gateway client: %w", err)
	}
	m.client = client
	return client, nil
}

// Stop releases the gateway client if one was ever created. Close
// errors are logged and swallowed; shutdown must not fail over a
// best-effort resource. Stop is idempotent and valid in any state.
func (m *NATManager) Stop() {
	if !rawNetworkAvailable() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return
	}
	if err := m.client.Close(); err != nil {
		m.log.Warn("error closing gateway client", "error", err)
	}
	m.client = nil
}

// randomMappedPort picks the external port for a mapping request.
func randomMappedPort() int {
	return minMappedPort + rand.IntN(maxMappedPort-minMappedPort+1)
}
