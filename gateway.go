package natmanager

import (
	"fmt"
	"net"
)

// discoverGateway locates the default gateway for NAT-PMP, preferring
// the system routing table and falling back to a heuristic.
func discoverGateway() (net.IP, error) {
	if gw, err := systemGateway(); err == nil && gw != nil {
		return gw, nil
	}
	return heuristicGateway()
}

// heuristicGateway guesses the gateway at .1 of the subnet the host
// would use to reach the internet, which holds on most home and office
// networks. No packets are sent; the UDP dial only selects a route.
func heuristicGateway() (net.IP, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return nil, fmt.Errorf("failed to determine local IP: %w", err)
	}
	defer conn.Close()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected local address type: %T", conn.LocalAddr())
	}
	ip := localAddr.IP.To4()
	if ip == nil {
		return nil, fmt.Errorf("local address %s is not IPv4", localAddr.IP)
	}
	return net.IPv4(ip[0], ip[1], ip[2], 1), nil
}
