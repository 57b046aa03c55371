// Package poller runs a task on a fixed interval until the task reports it is
// done or the poll is stopped. Callers that need an attempt limit enforce it
// inside the task.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Ticker is the part of time.Ticker the loop needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Task is called once per tick with the 1-based attempt number. Returning
// true ends the poll.
type Task func(ctx context.Context, attempt int) (done bool)

type Poller struct {
	interval  time.Duration
	newTicker TickerFactory
}

type Option func(*Poller)

// WithTicker replaces the wall clock ticker, mainly for tests.
func WithTicker(f TickerFactory) Option {
	return func(p *Poller) { p.newTicker = f }
}

// New returns a poller that waits interval before every attempt.
func New(interval time.Duration, opts ...Option) *Poller {
	p := &Poller{
		interval:  interval,
		newTicker: NewRealTicker,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle controls one running poll.
type Handle struct {
	cancel   context.CancelFunc
	done     chan struct{}
	attempts atomic.Int64
	stopOnce sync.Once
}

// Start launches the loop in its own goroutine. The first attempt happens one
// interval after Start.
func (p *Poller) Start(ctx context.Context, task Task) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	ticker := p.newTicker(p.interval)
	go func() {
		defer close(h.done)
		defer ticker.Stop()
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
			}

			// a stop racing with the tick wins
			if ctx.Err() != nil {
				return
			}

			attempt := int(h.attempts.Add(1))
			if task(ctx, attempt) {
				return
			}
		}
	}()
	return h
}

// Stop ends the loop and waits for it to exit. No attempt starts after Stop
// returns. It must not be called from inside the task.
func (h *Handle) Stop() {
	h.stopOnce.Do(h.cancel)
	<-h.done
}

// Done is closed once the loop has exited for any reason.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) Attempts() int {
	return int(h.attempts.Load())
}
