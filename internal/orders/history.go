package orders

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/store"
	"golang.org/x/sync/singleflight"
)

const (
	persistTimeout = 2 * time.Second
	fetchTimeout   = 30 * time.Second
	fetchKey       = "orders"
)

type Remote interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// persisted is the layout under store.KeyOrders.
type persisted struct {
	History []domain.Order `json:"history"`
}

// HistoryCache is the local, newest-first copy of the user's orders. A
// successful fetch replaces it wholesale.
type HistoryCache struct {
	mu      sync.Mutex
	history []domain.Order
	status  Status
	lastErr error
	// generation is bumped by Clear; fetches started before it are dropped
	generation uint64

	remote Remote
	store  store.Store
	log    *slog.Logger
	sfg    singleflight.Group

	retryAttempts int
	retryBackoff  time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

type Option func(*HistoryCache)

// WithRetry sets how many times a fetch is tried and the linear backoff step.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(h *HistoryCache) {
		if attempts < 1 {
			attempts = 1
		}
		h.retryAttempts = attempts
		h.retryBackoff = backoff
	}
}

func NewHistoryCache(ctx context.Context, remote Remote, s store.Store, log *slog.Logger, opts ...Option) *HistoryCache {
	h := &HistoryCache{
		history:       []domain.Order{},
		status:        StatusIdle,
		remote:        remote,
		store:         s,
		log:           log,
		retryAttempts: 3,
		retryBackoff:  500 * time.Millisecond,
		sleep:         sleepCtx,
	}
	for _, opt := range opts {
		opt(h)
	}

	var p persisted
	found, err := store.LoadJSON(ctx, s, store.KeyOrders, &p)
	switch {
	case err != nil:
		log.Warn("discarding unreadable persisted orders", "error", err)
	case found && p.History != nil:
		h.history = p.History
	}
	return h
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FetchOrders refreshes the history from the remote. Concurrent callers share
// one fetch, which is not cut short when the first caller goes away. On
// failure the cached history stays in place. A fetch that overlaps Clear
// leaves the cleared history untouched.
func (h *HistoryCache) FetchOrders(ctx context.Context) ([]domain.Order, error) {
	v, err, _ := h.sfg.Do(fetchKey, func() (interface{}, error) {
		h.mu.Lock()
		gen := h.generation
		h.status = StatusLoading
		h.mu.Unlock()

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		orders, err := h.fetchWithRetry(fetchCtx)

		h.mu.Lock()
		defer h.mu.Unlock()
		if gen != h.generation {
			h.log.Debug("dropping orders fetched before clear")
			return h.copyHistory(), nil
		}
		if err != nil {
			h.status = StatusFailed
			h.lastErr = err
			return nil, err
		}
		if orders == nil {
			orders = []domain.Order{}
		}
		h.history = orders
		h.status = StatusSucceeded
		h.lastErr = nil
		h.persist()
		return h.copyHistory(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Order), nil
}

func (h *HistoryCache) fetchWithRetry(ctx context.Context) ([]domain.Order, error) {
	var err error
	for attempt := 0; attempt < h.retryAttempts; attempt++ {
		var orders []domain.Order
		orders, err = h.remote.ListOrders(ctx)
		if err == nil {
			return orders, nil
		}

		h.log.Warn("order fetch attempt failed", "attempt", attempt+1, "error", err)

		if !domain.IsRetryable(err) {
			break
		}
		if attempt < h.retryAttempts-1 {
			if errSleep := h.sleep(ctx, h.retryBackoff*time.Duration(attempt+1)); errSleep != nil {
				return nil, errors.Join(err, errSleep)
			}
		}
	}
	return nil, err
}

// AddOrder puts a just-placed order at the top of the history.
func (h *HistoryCache) AddOrder(order domain.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := make([]domain.Order, 0, len(h.history)+1)
	next = append(next, order)
	for _, o := range h.history {
		if o.ID != order.ID {
			next = append(next, o)
		}
	}
	h.history = next
	h.persist()
}

// Clear empties the history and removes it from the store.
func (h *HistoryCache) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.generation++
	h.sfg.Forget(fetchKey)
	h.history = []domain.Order{}
	h.status = StatusIdle
	h.lastErr = nil

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := h.store.Delete(ctx, store.KeyOrders); err != nil {
		h.log.Warn("orders delete failed", "error", err)
	}
}

func (h *HistoryCache) History() []domain.Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.copyHistory()
}

func (h *HistoryCache) Status() (Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, h.lastErr
}

func (h *HistoryCache) Find(id domain.ID) (domain.Order, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, o := range h.history {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

// persist must be called with mu held.
func (h *HistoryCache) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := store.SaveJSON(ctx, h.store, store.KeyOrders, persisted{History: h.history}); err != nil {
		h.log.Warn("orders persist failed", "error", err)
	}
}

func (h *HistoryCache) copyHistory() []domain.Order {
	out := make([]domain.Order, len(h.history))
	copy(out, h.history)
	return out
}
