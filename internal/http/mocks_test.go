package http

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/orders"
	"github.com/fjod/go_cart/marketplace-client/internal/remote"
	"github.com/fjod/go_cart/marketplace-client/internal/session"
	"github.com/fjod/go_cart/marketplace-client/internal/wishlist"
)

type mockWishlist struct {
	items     []domain.WishlistItem
	status    wishlist.Status
	statusErr error

	fetchErr  error
	addErr    error
	removeErr error
	toggled   bool

	removed []string
}

func (m *mockWishlist) FetchAll(context.Context) error {
	if m.fetchErr != nil {
		m.status, m.statusErr = wishlist.StatusFailed, m.fetchErr
		return m.fetchErr
	}
	m.status = wishlist.StatusSucceeded
	return nil
}

func (m *mockWishlist) Add(_ context.Context, animalID domain.ID) (domain.WishlistItem, error) {
	if m.addErr != nil {
		return domain.WishlistItem{}, m.addErr
	}
	item := domain.WishlistItem{ID: "w-" + animalID.String(), Animal: domain.Animal{ID: animalID}, State: domain.ItemConfirmed}
	m.items = append(m.items, item)
	return item, nil
}

func (m *mockWishlist) Remove(_ context.Context, itemID string) error {
	m.removed = append(m.removed, itemID)
	return m.removeErr
}

func (m *mockWishlist) Toggle(context.Context, domain.ID) (bool, error) {
	return m.toggled, m.addErr
}

func (m *mockWishlist) Items() []domain.WishlistItem {
	return append([]domain.WishlistItem{}, m.items...)
}

func (m *mockWishlist) Status() (wishlist.Status, error) {
	if m.status == "" {
		return wishlist.StatusIdle, nil
	}
	return m.status, m.statusErr
}

type mockHistory struct {
	history  []domain.Order
	fetched  []domain.Order
	fetchErr error
	status   orders.Status
	lastErr  error
}

func (m *mockHistory) FetchOrders(context.Context) ([]domain.Order, error) {
	if m.fetchErr != nil {
		m.status, m.lastErr = orders.StatusFailed, m.fetchErr
		return nil, m.fetchErr
	}
	m.history = m.fetched
	m.status, m.lastErr = orders.StatusSucceeded, nil
	return m.fetched, nil
}

func (m *mockHistory) History() []domain.Order {
	return m.history
}

func (m *mockHistory) Status() (orders.Status, error) {
	if m.status == "" {
		return orders.StatusIdle, nil
	}
	return m.status, m.lastErr
}

func (m *mockHistory) Find(id domain.ID) (domain.Order, bool) {
	for _, o := range m.history {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

type mockDashboard struct {
	stats    remote.OrderStats
	count    int
	statsErr error
	countErr error
}

func (m *mockDashboard) OrderStats(context.Context) (remote.OrderStats, error) {
	return m.stats, m.statsErr
}

func (m *mockDashboard) WishlistCount(context.Context) (int, error) {
	return m.count, m.countErr
}

// checkoutRemote answers order calls for a real checkout orchestrator.
type checkoutRemote struct {
	mu      sync.Mutex
	order   domain.Order
	status  domain.OrderStatus
	created int
}

func (r *checkoutRemote) GetOrder(_ context.Context, id domain.ID) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.order
	o.ID = id
	return o, nil
}

func (r *checkoutRemote) GetOrderStatus(context.Context, domain.ID) (domain.OrderStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == "" {
		return domain.OrderStatusPending, nil
	}
	return r.status, nil
}

func (r *checkoutRemote) CreateOrder(context.Context, remote.OrderRequest, string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
	return domain.Order{ID: "77", Status: domain.OrderStatusPending}, nil
}

func (r *checkoutRemote) UpdateOrder(context.Context, domain.ID, remote.OrderRequest) error {
	return nil
}

type staticSessions struct {
	sess session.Session
	ok   bool
}

func (s staticSessions) Current() (session.Session, bool) {
	return s.sess, s.ok
}

func signedIn() staticSessions {
	return staticSessions{
		sess: session.Session{Token: "t", User: session.User{ID: "9", Name: "Wanjiru Kamau"}},
		ok:   true,
	}
}

type mockHealth struct {
	err error
}

func (m mockHealth) Health(context.Context) error { return m.err }
func (m mockHealth) BreakerState() string         { return "closed" }
