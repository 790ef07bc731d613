// Package health tracks which serving mode the process is in.
//
// Mode transitions are logged once per transition, not once per failing
// request: under a flaky shared store every request may hit an error, but
// the interesting event is the flip, not the noise.
package health

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Mode is the current serving mode.
type Mode int32

const (
	// ModeLocalFallback serves everything from process-local state.
	ModeLocalFallback Mode = iota

	// ModeShared uses the external store for cache entries and counters.
	ModeShared
)

func (m Mode) String() string {
	if m == ModeShared {
		return "shared"
	}
	return "local-fallback"
}

// Monitor holds the mode and the last successful shared-store contact time.
// All methods are safe for concurrent use.
type Monitor struct {
	mode        atomic.Int32
	lastContact atomic.Int64 // unix nanos, 0 = never
	logger      *slog.Logger
}

// NewMonitor creates a monitor starting in the given mode.
func NewMonitor(initial Mode, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{logger: logger}
	m.mode.Store(int32(initial))
	if initial == ModeShared {
		m.lastContact.Store(time.Now().UnixNano())
	}
	return m
}

// Mode returns the current serving mode.
func (m *Monitor) Mode() Mode {
	return Mode(m.mode.Load())
}

// MarkContact records a successful shared-store round trip.
func (m *Monitor) MarkContact() {
	m.lastContact.Store(time.Now().UnixNano())
}

// MarkFailure flips to local-fallback mode. Only the request that performs
// the transition logs it.
func (m *Monitor) MarkFailure(cause error) {
	if m.mode.CompareAndSwap(int32(ModeShared), int32(ModeLocalFallback)) {
		m.logger.Warn("shared store unavailable, entering local-fallback mode",
			"cause", cause)
	}
}

// MarkRecovered flips back to shared mode after a successful re-sync.
func (m *Monitor) MarkRecovered() {
	if m.mode.CompareAndSwap(int32(ModeLocalFallback), int32(ModeShared)) {
		m.lastContact.Store(time.Now().UnixNano())
		m.logger.Info("shared store reachable again, entering shared mode")
	}
}

// LastContact returns the last successful shared-store contact time.
// ok is false if the store has never been reached.
func (m *Monitor) LastContact() (time.Time, bool) {
	n := m.lastContact.Load()
	if n == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}
