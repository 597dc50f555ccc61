package natmanager

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/huin/goupnp/dcps/internetgateway2"
)

// upnpClient is the slice of the goupnp service API the mapper needs.
// Satisfied by WANIPConnection1, WANIPConnection2, and
// WANPPPConnection1 clients.
type upnpClient interface {
	AddPortMapping(
		NewRemoteHost string,
		NewExternalPort uint16,
		NewProtocol string,
		NewInternalPort uint16,
		NewInternalClient string,
		NewEnabled bool,
		NewPortMappingDescription string,
		NewLeaseDuration uint32,
	) error
	DeletePortMapping(
		NewRemoteHost string,
		NewExternalPort uint16,
		NewProtocol string,
	) error
	GetExternalIPAddress() (string, error)
}

// UPnPMapper implements portMapper over the UPnP IGD protocol.
type UPnPMapper struct {
	client      upnpClient
	description string
}

// NewUPnPMapper discovers an IGD on the local network. Convenience
// wrapper around NewUPnPMapperContext with context.Background().
func NewUPnPMapper(description string) (*UPnPMapper, error) {
	return NewUPnPMapperContext(context.Background(), description)
}

// NewUPnPMapperContext discovers an IGD with context support, trying
// services in order of preference: WANIPConnection2, WANIPConnection1,
// then WANPPPConnection1. Discovery can take several seconds; the
// context allows cancelling it.
func NewUPnPMapperContext(ctx context.Context, description string) (*UPnPMapper, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	if client, err := discoverWANIPConnection2(ctx); err == nil {
		return &UPnPMapper{client: client, description: description}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled after WANIPConnection2 attempt: %w", err)
	}

	if client, err := discoverWANIPConnection1(ctx); err == nil {
		return &UPnPMapper{client: client, description: description}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled after WANIPConnection1 attempt: %w", err)
	}

	if client, err := discoverWANPPPConnection1(ctx); err == nil {
		return &UPnPMapper{client: client, description: description}, nil
	}

	return nil, fmt.Errorf("no UPnP IGD devices found (tried WANIPConnection2, WANIPConnection1, WANPPPConnection1)")
}

// NewUPnPMapperAt skips discovery and talks to the IGD whose root
// device description document lives at loc.
func NewUPnPMapperAt(loc *url.URL, description string) (*UPnPMapper, error) {
	if clients, err := internetgateway2.NewWANIPConnection2ClientsByURL(loc); err == nil && len(clients) > 0 {
		return &UPnPMapper{client: clients[0], description: description}, nil
	}
	if clients, err := internetgateway2.NewWANIPConnection1ClientsByURL(loc); err == nil && len(clients) > 0 {
		return &UPnPMapper{client: clients[0], description: description}, nil
	}
	clients, err := internetgateway2.NewWANPPPConnection1ClientsByURL(loc)
	if err != nil {
		return nil, fmt.Errorf("no IGD services at %s: %w", loc, err)
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no IGD services at %s", loc)
	}
	return &UPnPMapper{client: clients[0], description: description}, nil
}

func discoverWANIPConnection2(ctx context.Context) (upnpClient, error) {
	clients, _, err := internetgateway2.NewWANIPConnection2ClientsCtx(ctx)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no WANIPConnection2 devices found")
	}
	return clients[0], nil
}

func discoverWANIPConnection1(ctx context.Context) (upnpClient, error) {
	clients, _, err := internetgateway2.NewWANIPConnection1ClientsCtx(ctx)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no WANIPConnection1 devices found")
	}
	return clients[0], nil
}

func discoverWANPPPConnection1(ctx context.Context) (upnpClient, error) {
	clients, _, err := internetgateway2.NewWANPPPConnection1ClientsCtx(ctx)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no WANPPPConnection1 devices found")
	}
	return clients[0], nil
}

// MapPort maps externalPort on the gateway to internalPort on this
// host and returns the external port in use. The internal client
// address comes from localAddress when set, otherwise from the route
// the host would use to reach the internet.
func (u *UPnPMapper) MapPort(protocol string, externalPort, internalPort int, localAddress string, lease time.Duration) (int, error) {
	if err := checkPort(externalPort); err != nil {
		return 0, err
	}
	if err := checkPort(internalPort); err != nil {
		return 0, err
	}

	localIP := localAddress
	if localIP == "" {
		var err error
		localIP, err = u.getLocalIP()
		if err != nil {
			return 0, fmt.Errorf("failed to determine local IP: %w", err)
		}
	}

	err := u.client.AddPortMapping(
		"",                   // remote host (any)
		uint16(externalPort), // external port
		protocol,             // TCP or UDP
		uint16(internalPort), // internal port
		localIP,              // internal client
		true,                 // enabled
		u.description,        // description
		uint32(lease.Seconds()),
	)
	if err != nil {
		return 0, fmt.Errorf("UPnP port mapping failed: %w", err)
	}
	return externalPort, nil
}

// UnmapPort removes a port mapping. UPnP identifies mappings by their
// external port, so the internal port is not consulted.
func (u *UPnPMapper) UnmapPort(protocol string, externalPort, _ int) error {
	if err := checkPort(externalPort); err != nil {
		return err
	}
	if err := u.client.DeletePortMapping("", uint16(externalPort), protocol); err != nil {
		return fmt.Errorf("UPnP port unmapping failed: %w", err)
	}
	return nil
}

// GetExternalIP returns the gateway's external IP address.
func (u *UPnPMapper) GetExternalIP() (string, error) {
	ip, err := u.client.GetExternalIPAddress()
	if err != nil {
		return "", fmt.Errorf("UPnP external IP lookup failed: %w", err)
	}
	return ip, nil
}

// getLocalIP determines which local address the gateway should forward
// to. No packets are sent; the UDP dial only selects a route.
func (u *UPnPMapper) getLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address type: %T", conn.LocalAddr())
	}
	return localAddr.IP.String(), nil
}
