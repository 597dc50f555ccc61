//go:build linux

package natmanager

import (
	"net"
	"strings"
	"testing"
)

func TestLittleEndianHexIP(t *testing.T) {
	testCases := []struct {
		hexIP    string
		expected net.IP
	}{
		{"0101A8C0", net.IPv4(192, 168, 1, 1)},
		{"FE01A8C0", net.IPv4(192, 168, 1, 254)},
		{"01000A0A", net.IPv4(10, 10, 0, 1)},
		{"00000000", net.IPv4(0, 0, 0, 0)},
		{"FFFFFFFF", net.IPv4(255, 255, 255, 255)},
	}

	for _, tc := range testCases {
		ip, err := littleEndianHexIP(tc.hexIP)
		if err != nil {
			t.Errorf("littleEndianHexIP(%s) failed: %v", tc.hexIP, err)
			continue
		}
		if !ip.Equal(tc.expected) {
			t.Errorf("littleEndianHexIP(%s) = %v, expected %v", tc.hexIP, ip, tc.expected)
		}
	}
}

func TestLittleEndianHexIPInvalid(t *testing.T) {
	for _, input := range []string{"", "0101A8", "0101A8C0FF", "ZZZZZZZZ"} {
		if _, err := littleEndianHexIP(input); err == nil {
			t.Errorf("littleEndianHexIP(%q) should have failed", input)
		}
	}
}

func TestParseProcRoute(t *testing.T) {
	t.Run("Finds the default route", func(t *testing.T) {
		content := "Iface\tDestination\tGateway\tFlags\tRefCnt\tUse\tMetric\tMask\tMTU\tWindow\tIRTT\n" +
			"eth0\t0001A8C0\t00000000\t0001\t0\t0\t0\t00FFFFFF\t0\t0\t0\n" +
			"eth0\t00000000\t0101A8C0\t0003\t0\t0\t0\t00000000\t0\t0\t0\n"

		gw, err := parseProcRoute(strings.NewReader(content))
		if err != nil {
			t.Fatalf("parseProcRoute failed: %v", err)
		}
		if !gw.Equal(net.IPv4(192, 168, 1, 1)) {
			t.Errorf("expected 192.168.1.1, got %v", gw)
		}
	})

	t.Run("Skips local routes", func(t *testing.T) {
		content := "Iface\tDestination\tGateway\tFlags\n" +
			"eth0\t00000000\t00000000\t0001\n"

		gw, err := parseProcRoute(strings.NewReader(content))
		if err != nil {
			t.Fatalf("parseProcRoute failed: %v", err)
		}
		if gw != nil {
			t.Errorf("expected no gateway for a local default route, got %v", gw)
		}
	})

	t.Run("No default route", func(t *testing.T) {
		content := "Iface\tDestination\tGateway\tFlags\n" +
			"eth0\t0001A8C0\t00000000\t0001\n"

		gw, err := parseProcRoute(strings.NewReader(content))
		if err != nil {
			t.Fatalf("parseProcRoute failed: %v", err)
		}
		if gw != nil {
			t.Errorf("expected nil gateway, got %v", gw)
		}
	})
}

func TestSystemGatewayLinux(t *testing.T) {
	// Reads the real /proc/net/route; result depends on the host.
	gw, err := systemGateway()
	if err != nil {
		t.Logf("systemGateway returned error: %v", err)
	}
	if gw != nil {
		if gw.To4() == nil {
			t.Errorf("expected IPv4 gateway, got %v", gw)
		}
		if gw.Equal(net.IPv4zero) {
			t.Error("gateway should not be 0.0.0.0")
		}
		t.Logf("gateway from routing table: %v", gw)
	} else {
		t.Log("no default route found")
	}
}
