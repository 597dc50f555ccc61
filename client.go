package natmanager

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"
)

// gatewayClient is the default Gateway implementation. It fronts a UPnP
// or NAT-PMP portMapper, remembers every mapping it creates, and
// removes them all on Close.
type gatewayClient struct {
	mapper    portMapper
	ttl       time.Duration
	keepAlive bool
	log       *slog.Logger

	mu       sync.Mutex
	closed   bool
	mappings []*mappingState
}

type mappingState struct {
	protocol     string
	externalPort int
	localPort    int
	renewal      *RenewalManager
}

// NewGateway is the default GatewayFactory. It prefers UPnP and falls
// back to NAT-PMP, honoring the gateway override in opts.
func NewGateway(opts GatewayOptions) (Gateway, error) {
	mapper, err := newMapper(opts)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &gatewayClient{
		mapper:    mapper,
		ttl:       opts.TTL,
		keepAlive: opts.KeepAlive,
		log:       log,
	}, nil
}

// newMapper selects the protocol client. An http(s) override pins a
// UPnP root device, a bare IP pins the NAT-PMP gateway, and no override
// runs discovery: UPnP services first, then NAT-PMP.
func newMapper(opts GatewayOptions) (portMapper, error) {
	if opts.Gateway != "" {
		if strings.HasPrefix(opts.Gateway, "http://") || strings.HasPrefix(opts.Gateway, "https://") {
			loc, err := url.Parse(opts.Gateway)
			if err != nil {
				return nil, fmt.Errorf("%w: bad gateway URL %q: %v", ErrInvalidParameters, opts.Gateway, err)
			}
			return NewUPnPMapperAt(loc, opts.Description)
		}
		ip := net.ParseIP(opts.Gateway)
		if ip == nil {
			return nil, fmt.Errorf("%w: gateway override %q is neither a URL nor an IP address", ErrInvalidParameters, opts.Gateway)
		}
		return NewNATPMPMapperAt(ip)
	}

	upnp, upnpErr := NewUPnPMapper(opts.Description)
	if upnpErr == nil {
		return upnp, nil
	}
	pmp, pmpErr := NewNATPMPMapper()
	if pmpErr == nil {
		return pmp, nil
	}
	return nil, fmt.Errorf("%w: UPnP: %v; NAT-PMP: %v", ErrNoGateway, upnpErr, pmpErr)
}

// ExternalIP returns the gateway's external IP address.
func (g *gatewayClient) ExternalIP() (string, error) {
	return g.mapper.GetExternalIP()
}

// Map requests a port mapping and records it for removal on Close. With
// keep-alive enabled the mapping also gets a renewal loop re-issuing it
// before the lease expires.
func (g *gatewayClient) Map(req MapRequest) error {
	proto := strings.ToUpper(req.Protocol)
	if proto != "TCP" && proto != "UDP" {
		return fmt.Errorf("%w: unsupported protocol %q", ErrInvalidParameters, req.Protocol)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return fmt.Errorf("gateway client is closed")
	}

	mapped, err := g.mapper.MapPort(proto, req.PublicPort, req.LocalPort, req.LocalAddress, g.ttl)
	if err != nil {
		return err
	}

	state := &mappingState{protocol: proto, externalPort: mapped, localPort: req.LocalPort}
	if g.keepAlive {
		state.renewal = NewRenewalManager(g.mapper, proto, req.LocalPort, mapped, req.LocalAddress, g.ttl, g.log)
		state.renewal.Start()
	}
	g.mappings = append(g.mappings, state)
	return nil
}

// Close stops renewals and deletes every mapping this client created.
// Safe to call more than once.
func (g *gatewayClient) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true

	var errs []error
	for _, state := range g.mappings {
		port := state.externalPort
		if state.renewal != nil {
			state.renewal.Stop()
			// The gateway may have moved the mapping during renewal.
			port = state.renewal.ExternalPort()
		}
		if err := g.mapper.UnmapPort(state.protocol, port, state.localPort); err != nil {
			errs = append(errs, err)
		}
	}
	g.mappings = nil
	return errors.Join(errs...)
}

// checkPort rejects values that would overflow the mapping protocols'
// uint16 port fields.
func checkPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range (must be 1-65535)", ErrInvalidParameters, port)
	}
	return nil
}
