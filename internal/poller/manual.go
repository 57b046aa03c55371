package poller

import (
	"sync"
	"time"
)

// ManualTicker fires only when Tick is called. Factory hands it to a Poller.
type ManualTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

func (m *ManualTicker) Factory() TickerFactory {
	return func(time.Duration) Ticker { return m }
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }

func (m *ManualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *ManualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Tick delivers one tick and reports whether the loop received it. It gives
// up after a second so a test never hangs on a loop that already exited.
func (m *ManualTicker) Tick() bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-time.After(time.Second):
		return false
	}
}
