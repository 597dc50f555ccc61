//go:build windows

package natmanager

import (
	"bufio"
	"net"
	"os/exec"
	"strings"
)

// systemGateway reads the default gateway from `route print 0.0.0.0` on
// Windows. A nil, nil return means the caller should fall back to the
// heuristic.
func systemGateway() (net.IP, error) {
	cmd := exec.Command("route", "print", "0.0.0.0")
	output, err := cmd.Output()
	if err != nil {
		return nil, nil
	}
	return parseRoutePrint(string(output))
}

// parseRoutePrint scans `route print` output for the default route
// inside the Active Routes section:
//
//	Network Destination        Netmask          Gateway       Interface  Metric
//	          0.0.0.0          0.0.0.0      192.168.1.1    192.168.1.100     25
func parseRoutePrint(output string) (net.IP, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	inActiveRoutes := false

	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, "Active Routes:") {
			inActiveRoutes = true
			continue
		}
		if inActiveRoutes && strings.HasPrefix(line, "====") {
			break
		}
		if !inActiveRoutes {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 || fields[0] == "Network" {
			continue
		}
		if fields[0] != "0.0.0.0" || fields[1] != "0.0.0.0" {
			continue
		}
		// "On-link" marks a directly connected route
		if fields[2] == "On-link" {
			continue
		}

		if ip := net.ParseIP(fields[2]); ip != nil && ip.To4() != nil {
			return ip.To4(), nil
		}
	}
	return nil, nil
}
