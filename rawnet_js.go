//go:build js

package natmanager

// Browsers and other wasm hosts expose no raw sockets, so the manager
// stays permanently inert: AfterStart and Stop become no-ops.
func rawNetworkAvailable() bool {
	return false
}
