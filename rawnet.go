//go:build !js

package natmanager

// rawNetworkAvailable reports whether this runtime can open the raw UDP
// and TCP sockets gateway protocols require.
func rawNetworkAvailable() bool {
	return true
}
