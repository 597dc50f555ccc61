//go:build darwin || freebsd || openbsd || netbsd || dragonfly

package natmanager

import (
	"bufio"
	"net"
	"os/exec"
	"strings"
)

// systemGateway reads the default gateway from `netstat -rn` on
// BSD-like systems, macOS included. A nil, nil return means the caller
// should fall back to the heuristic.
func systemGateway() (net.IP, error) {
	cmd := exec.Command("netstat", "-rn")
	output, err := cmd.Output()
	if err != nil {
		return nil, nil
	}
	return parseNetstat(string(output))
}

// parseNetstat scans `netstat -rn` output for the default route. The
// column layout varies slightly between BSD variants, but the default
// route's destination is always "default" or "0.0.0.0".
func parseNetstat(output string) (net.IP, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		dest := fields[0]
		if dest != "default" && dest != "0.0.0.0" && dest != "0.0.0.0/0" {
			continue
		}

		gw := fields[1]
		// Skip link-local entries and bare interface names ("link#5", "en0")
		if strings.Contains(gw, "#") || !strings.Contains(gw, ".") {
			continue
		}
		// Strip a %interface scope suffix ("192.168.1.1%en0")
		if idx := strings.Index(gw, "%"); idx != -1 {
			gw = gw[:idx]
		}

		if ip := net.ParseIP(gw); ip != nil && ip.To4() != nil {
			return ip.To4(), nil
		}
	}
	return nil, nil
}
