package natmanager

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

const testLease = 2 * time.Hour

func newTestRenewal(mapper portMapper) (*RenewalManager, *clock.Mock) {
	r := NewRenewalManager(mapper, "TCP", 4001, 40001, "", testLease, nil)
	mock := clock.NewMock()
	r.clock = mock
	return r, mock
}

func TestRenewalManagerRenews(t *testing.T) {
	mapper := NewMockPortMapper()
	r, mock := newTestRenewal(mapper)

	r.Start()
	defer r.Stop()

	mock.Add(testLease / 2)
	if !waitFor(t, time.Second, func() bool { return mapper.MapCalls() >= 1 }) {
		t.Fatal("expected a renewal after half the lease")
	}

	mock.Add(testLease / 2)
	if !waitFor(t, time.Second, func() bool { return mapper.MapCalls() >= 2 }) {
		t.Fatal("expected a second renewal after another half lease")
	}
}

func TestRenewalManagerTracksPortChange(t *testing.T) {
	mapper := NewMockPortMapper()
	mapper.SetRemap(40123)
	r, mock := newTestRenewal(mapper)

	r.Start()
	defer r.Stop()

	mock.Add(testLease / 2)
	if !waitFor(t, time.Second, func() bool { return r.ExternalPort() == 40123 }) {
		t.Fatalf("expected external port 40123 after remap, got %d", r.ExternalPort())
	}
}

func TestRenewalManagerToleratesFailures(t *testing.T) {
	mapper := NewMockPortMapper()
	mapper.SetMapError(errors.New("gateway busy"))
	r, mock := newTestRenewal(mapper)

	r.Start()
	defer r.Stop()

	mock.Add(testLease / 2)
	if !waitFor(t, time.Second, func() bool { return mapper.MapCalls() >= 1 }) {
		t.Fatal("expected a renewal attempt")
	}
	if r.ExternalPort() != 40001 {
		t.Errorf("failed renewal must not change the port, got %d", r.ExternalPort())
	}

	// The loop keeps trying on later ticks.
	mock.Add(testLease / 2)
	if !waitFor(t, time.Second, func() bool { return mapper.MapCalls() >= 2 }) {
		t.Fatal("expected renewal to be retried after failure")
	}
}

// recordingHandler captures log messages so tests can assert where a
// component logs to.
type recordingHandler struct {
	mu       sync.Mutex
	messages []string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, rec slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, rec.Message)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.messages))
	copy(out, h.messages)
	return out
}

func TestRenewalManagerLogsToProvidedLogger(t *testing.T) {
	mapper := NewMockPortMapper()
	mapper.SetMapError(errors.New("gateway busy"))
	handler := &recordingHandler{}
	r := NewRenewalManager(mapper, "TCP", 4001, 40001, "", testLease, slog.New(handler))
	mock := clock.NewMock()
	r.clock = mock

	r.Start()
	defer r.Stop()

	mock.Add(testLease / 2)
	if !waitFor(t, time.Second, func() bool { return len(handler.Messages()) >= 1 }) {
		t.Fatal("expected the renewal failure to reach the provided logger")
	}
	msg := handler.Messages()[0]
	if !strings.Contains(msg, "renewal failed") {
		t.Errorf("unexpected log message %q", msg)
	}
}

func TestRenewalManagerLifecycle(t *testing.T) {
	t.Run("Multiple starts are safe", func(t *testing.T) {
		mapper := NewMockPortMapper()
		r, _ := newTestRenewal(mapper)

		r.Start()
		r.Start()
		r.Start()
		r.Stop()
	})

	t.Run("Multiple stops are safe", func(t *testing.T) {
		mapper := NewMockPortMapper()
		r, _ := newTestRenewal(mapper)

		r.Start()
		r.Stop()
		r.Stop()
		r.Stop()
	})

	t.Run("No renewals after stop", func(t *testing.T) {
		mapper := NewMockPortMapper()
		r, mock := newTestRenewal(mapper)

		r.Start()
		r.Stop()

		mock.Add(2 * testLease)
		time.Sleep(20 * time.Millisecond)
		if mapper.MapCalls() != 0 {
			t.Errorf("expected no renewals after Stop, got %d", mapper.MapCalls())
		}
	})
}
