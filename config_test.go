package natmanager

import (
	"errors"
	"strings"
	"testing"
)

// TestConfigValidation tests construction-time parameter checks
func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		return Config{
			PeerID:   "12D3KooWTest",
			Addrs:    NewMockAddrSource("/ip4/192.168.1.10/tcp/4001"),
			Registry: NewMockRegistry(),
			Enabled:  true,
		}
	}

	t.Run("Accepts zero TTL as default", func(t *testing.T) {
		cfg := valid()
		cfg.TTL = 0
		if _, err := NewNATManager(cfg); err != nil {
			t.Fatalf("NewNATManager failed: %v", err)
		}
	})

	t.Run("Accepts minimum TTL", func(t *testing.T) {
		cfg := valid()
		cfg.TTL = MinTTL
		if _, err := NewNATManager(cfg); err != nil {
			t.Fatalf("NewNATManager failed: %v", err)
		}
	})

	t.Run("Accepts TTL above minimum", func(t *testing.T) {
		cfg := valid()
		cfg.TTL = 100000
		if _, err := NewNATManager(cfg); err != nil {
			t.Fatalf("NewNATManager failed: %v", err)
		}
	})

	t.Run("Rejects TTL below minimum", func(t *testing.T) {
		for _, ttl := range []int{1, 60, MinTTL - 1} {
			cfg := valid()
			cfg.TTL = ttl
			_, err := NewNATManager(cfg)
			if err == nil {
				t.Errorf("NewNATManager accepted TTL %d", ttl)
				continue
			}
			if !errors.Is(err, ErrInvalidParameters) {
				t.Errorf("TTL %d: expected ErrInvalidParameters, got %v", ttl, err)
			}
		}
	})

	t.Run("Rejects missing address source", func(t *testing.T) {
		cfg := valid()
		cfg.Addrs = nil
		if _, err := NewNATManager(cfg); !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("expected ErrInvalidParameters, got %v", err)
		}
	})

	t.Run("Rejects missing registry", func(t *testing.T) {
		cfg := valid()
		cfg.Registry = nil
		if _, err := NewNATManager(cfg); !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("expected ErrInvalidParameters, got %v", err)
		}
	})
}

func TestDefaultDescription(t *testing.T) {
	desc := defaultDescription("12D3KooWTest")

	if !strings.Contains(desc, implName) {
		t.Errorf("description %q should contain the implementation name", desc)
	}
	if !strings.Contains(desc, implVersion) {
		t.Errorf("description %q should contain the implementation version", desc)
	}
	if !strings.Contains(desc, "12D3KooWTest") {
		t.Errorf("description %q should contain the peer ID", desc)
	}
}
