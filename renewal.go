package natmanager

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// RenewalManager re-issues one port mapping before its lease expires.
// Renewals run at half the lease interval. Renewal failures are logged
// and retried on the next tick; the gateway may also move the mapping
// to a different external port, which is tracked.
type RenewalManager struct {
	mapper       portMapper
	protocol     string
	internalPort int
	localAddress string
	lease        time.Duration
	clock        clock.Clock
	log          *slog.Logger

	mu           sync.Mutex
	externalPort int
	started      bool
	ticker       *clock.Ticker
	done         chan struct{}
}

// NewRenewalManager creates a renewal manager for an established
// mapping. It does nothing until Start.
func NewRenewalManager(mapper portMapper, protocol string, internalPort, externalPort int, localAddress string, lease time.Duration, log *slog.Logger) *RenewalManager {
	if log == nil {
		log = slog.Default()
	}
	return &RenewalManager{
		mapper:       mapper,
		protocol:     protocol,
		internalPort: internalPort,
		externalPort: externalPort,
		localAddress: localAddress,
		lease:        lease,
		clock:        clock.New(),
		log:          log,
	}
}

// ExternalPort returns the external port currently mapped on the
// gateway. It can change when the gateway reassigns the mapping during
// renewal.
func (r *RenewalManager) ExternalPort() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.externalPort
}

// Start begins renewing in a background goroutine. Repeated Start calls
// are no-ops until Stop.
func (r *RenewalManager) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.done = make(chan struct{})
	r.ticker = r.clock.Ticker(r.lease / 2)

	// Local references: the goroutine must not observe channels from a
	// later Start/Stop cycle.
	done := r.done
	ticker := r.ticker
	go r.loop(ticker.C, done)
}

// Stop halts renewal. The mapping itself stays in place; removing it is
// the owner's job. Safe to call repeatedly.
func (r *RenewalManager) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	r.started = false
	close(r.done)
	r.ticker.Stop()
}

func (r *RenewalManager) loop(tick <-chan time.Time, done <-chan struct{}) {
	for {
		select {
		case <-tick:
			r.renew()
		case <-done:
			return
		}
	}
}

func (r *RenewalManager) renew() {
	r.mu.Lock()
	oldPort := r.externalPort
	r.mu.Unlock()

	newPort, err := r.mapper.MapPort(r.protocol, oldPort, r.internalPort, r.localAddress, r.lease)
	if err != nil {
		r.log.Warn("port mapping renewal failed",
			"protocol", r.protocol,
			"port", oldPort,
			"error", err)
		return
	}

	if newPort != oldPort {
		r.mu.Lock()
		r.externalPort = newPort
		r.mu.Unlock()
		r.log.Info("external port changed during renewal",
			"protocol", r.protocol,
			"oldPort", oldPort,
			"newPort", newPort)
	}
}
