//go:build linux

package natmanager

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
)

// systemGateway reads the default route from /proc/net/route. A
// nil, nil return means no default route was found and the caller
// should fall back to the heuristic.
func systemGateway() (net.IP, error) {
	file, err := os.Open("/proc/net/route")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open routing table: %w", err)
	}
	defer file.Close()

	return parseProcRoute(file)
}

// parseProcRoute scans /proc/net/route content for the default route
// (destination 00000000) and returns its gateway.
func parseProcRoute(r io.Reader) (net.IP, error) {
	scanner := bufio.NewScanner(r)

	// Skip header line
	if !scanner.Scan() {
		return nil, fmt.Errorf("empty routing table")
	}

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[1] != "00000000" {
			continue
		}
		gw, err := littleEndianHexIP(fields[2])
		if err != nil {
			return nil, fmt.Errorf("failed to parse gateway: %w", err)
		}
		// 0.0.0.0 marks a directly connected route, not a gateway
		if !gw.Equal(net.IPv4zero) {
			return gw, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading routing table: %w", err)
	}
	return nil, nil
}

// littleEndianHexIP decodes the byte-reversed hex IPs /proc/net/route
// uses ("0101A8C0" is 192.168.1.1).
func littleEndianHexIP(s string) (net.IP, error) {
	if len(s) != 8 {
		return nil, fmt.Errorf("invalid hex IP length: %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex IP: %w", err)
	}
	return net.IPv4(b[3], b[2], b[1], b[0]), nil
}
