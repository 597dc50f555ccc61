//go:build !linux && !darwin && !freebsd && !openbsd && !netbsd && !dragonfly && !windows

package natmanager

import "net"

// systemGateway is a stub for platforms without routing-table access
// (iOS, Plan 9, js/wasm, ...). Returning nil, nil sends the caller to
// the heuristic.
func systemGateway() (net.IP, error) {
	return nil, nil
}
