package natmanager

import (
	"fmt"
	"sync"
	"time"

	ma "github.com/multiformats/go-multiaddr"
)

// MockAddrSource is an AddrSource serving a fixed set of listen
// addresses.
type MockAddrSource struct {
	mu    sync.Mutex
	addrs []ma.Multiaddr
}

// NewMockAddrSource creates a source from multiaddr strings. Invalid
// strings panic, which is acceptable for test fixtures.
func NewMockAddrSource(addrs ...string) *MockAddrSource {
	src := &MockAddrSource{}
	for _, s := range addrs {
		src.addrs = append(src.addrs, ma.StringCast(s))
	}
	return src
}

// ListenAddrs implements AddrSource.
func (s *MockAddrSource) ListenAddrs() []ma.Multiaddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ma.Multiaddr, len(s.addrs))
	copy(out, s.addrs)
	return out
}

// MockRegistry is a Registry recording every observed address it is
// given.
type MockRegistry struct {
	mu    sync.Mutex
	addrs []ma.Multiaddr
}

// NewMockRegistry creates an empty registry.
func NewMockRegistry() *MockRegistry {
	return &MockRegistry{}
}

// AddObservedAddr implements Registry.
func (r *MockRegistry) AddObservedAddr(addr ma.Multiaddr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addrs = append(r.addrs, addr)
}

// ObservedAddrs returns everything recorded so far.
func (r *MockRegistry) ObservedAddrs() []ma.Multiaddr {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ma.Multiaddr, len(r.addrs))
	copy(out, r.addrs)
	return out
}

// MockGateway is a configurable Gateway for manager tests. The zero
// value is not usable; create it with NewMockGateway.
type MockGateway struct {
	mu sync.Mutex

	externalIP    string
	externalIPErr error
	mapErr        error
	closeErr      error

	opts            *GatewayOptions
	externalIPCalls int
	requests        []MapRequest
	closeCalls      int
}

// NewMockGateway creates a mock reporting an RFC 5737 test address as
// its external IP.
func NewMockGateway() *MockGateway {
	return &MockGateway{externalIP: "203.0.113.100"}
}

// Factory returns a GatewayFactory handing out this mock and recording
// the options it was created with.
func (g *MockGateway) Factory() GatewayFactory {
	return func(opts GatewayOptions) (Gateway, error) {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.opts = &opts
		return g, nil
	}
}

// SetExternalIP sets the address ExternalIP reports.
func (g *MockGateway) SetExternalIP(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.externalIP = ip
}

// SetExternalIPError makes ExternalIP fail.
func (g *MockGateway) SetExternalIPError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.externalIPErr = err
}

// SetMapError makes Map fail.
func (g *MockGateway) SetMapError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mapErr = err
}

// SetCloseError makes Close fail.
func (g *MockGateway) SetCloseError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closeErr = err
}

// ExternalIP implements Gateway.
func (g *MockGateway) ExternalIP() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.externalIPCalls++
	if g.externalIPErr != nil {
		return "", g.externalIPErr
	}
	return g.externalIP, nil
}

// Map implements Gateway.
func (g *MockGateway) Map(req MapRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.mapErr
}

// Close implements Gateway.
func (g *MockGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closeCalls++
	return g.closeErr
}

// Options returns the GatewayOptions the factory saw, or nil if the
// factory was never invoked.
func (g *MockGateway) Options() *GatewayOptions {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opts
}

// ExternalIPCalls returns how many times ExternalIP was invoked.
func (g *MockGateway) ExternalIPCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.externalIPCalls
}

// Requests returns every MapRequest received so far.
func (g *MockGateway) Requests() []MapRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]MapRequest, len(g.requests))
	copy(out, g.requests)
	return out
}

// CloseCalls returns how many times Close was invoked.
func (g *MockGateway) CloseCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closeCalls
}

// MockPortMapper is a configurable portMapper for gateway client and
// renewal tests.
type MockPortMapper struct {
	mu         sync.Mutex
	externalIP string
	mapErr     error
	unmapErr   error
	remapTo    int
	mappings   map[string]int
	mapCalls   int
	unmaps     []UnmapRequest
}

// UnmapRequest records one UnmapPort invocation on a MockPortMapper.
type UnmapRequest struct {
	Protocol     string
	ExternalPort int
	InternalPort int
}

// NewMockPortMapper creates a mapper that grants every request at the
// requested port.
func NewMockPortMapper() *MockPortMapper {
	return &MockPortMapper{
		externalIP: "203.0.113.100",
		mappings:   make(map[string]int),
	}
}

// SetExternalIP sets the address GetExternalIP reports.
func (m *MockPortMapper) SetExternalIP(ip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.externalIP = ip
}

// SetMapError makes MapPort fail.
func (m *MockPortMapper) SetMapError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mapErr = err
}

// SetUnmapError makes UnmapPort fail.
func (m *MockPortMapper) SetUnmapError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unmapErr = err
}

// SetRemap makes MapPort assign the given external port regardless of
// the requested one, simulating a gateway that moves mappings.
func (m *MockPortMapper) SetRemap(port int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remapTo = port
}

// MapPort implements portMapper.
func (m *MockPortMapper) MapPort(protocol string, externalPort, internalPort int, _ string, _ time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mapCalls++
	if m.mapErr != nil {
		return 0, m.mapErr
	}
	port := externalPort
	if m.remapTo != 0 {
		port = m.remapTo
	}
	m.mappings[mappingKey(protocol, port)] = internalPort
	return port, nil
}

// UnmapPort implements portMapper.
func (m *MockPortMapper) UnmapPort(protocol string, externalPort, internalPort int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unmaps = append(m.unmaps, UnmapRequest{
		Protocol:     protocol,
		ExternalPort: externalPort,
		InternalPort: internalPort,
	})
	if m.unmapErr != nil {
		return m.unmapErr
	}
	delete(m.mappings, mappingKey(protocol, externalPort))
	return nil
}

// GetExternalIP implements portMapper.
func (m *MockPortMapper) GetExternalIP() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.externalIP, nil
}

// ActiveMappings returns the current mappings keyed "PROTO:extport".
func (m *MockPortMapper) ActiveMappings() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.mappings))
	for k, v := range m.mappings {
		out[k] = v
	}
	return out
}

// MapCalls returns how many times MapPort was invoked.
func (m *MockPortMapper) MapCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mapCalls
}

// UnmapCalls returns how many times UnmapPort was invoked.
func (m *MockPortMapper) UnmapCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.unmaps)
}

// Unmaps returns every UnmapPort invocation received so far.
func (m *MockPortMapper) Unmaps() []UnmapRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]UnmapRequest, len(m.unmaps))
	copy(out, m.unmaps)
	return out
}

func mappingKey(protocol string, port int) string {
	return fmt.Sprintf("%s:%d", protocol, port)
}
