package checkout

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/events"
	"github.com/fjod/go_cart/marketplace-client/internal/remote"
	"github.com/fjod/go_cart/marketplace-client/internal/session"
)

type pollResult struct {
	status domain.OrderStatus
	err    error
}

type mockRemote struct {
	mu sync.Mutex

	order    domain.Order
	orderErr error

	createErr error
	updateErr error
	createdID domain.ID

	polls []pollResult

	created    []remote.OrderRequest
	createKeys []string
	updated    []remote.OrderRequest
	pollCalls  int
}

func (m *mockRemote) GetOrder(_ context.Context, id domain.ID) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orderErr != nil {
		return domain.Order{}, m.orderErr
	}
	o := m.order
	o.ID = id
	return o, nil
}

func (m *mockRemote) GetOrderStatus(context.Context, domain.ID) (domain.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollCalls++
	if len(m.polls) == 0 {
		return domain.OrderStatusPending, nil
	}
	r := m.polls[0]
	m.polls = m.polls[1:]
	return r.status, r.err
}

func (m *mockRemote) CreateOrder(_ context.Context, req remote.OrderRequest, key string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, req)
	m.createKeys = append(m.createKeys, key)
	if m.createErr != nil {
		return domain.Order{}, m.createErr
	}
	id := m.createdID
	if id == "" {
		id = "101"
	}
	return domain.Order{ID: id, Status: domain.OrderStatusPending}, nil
}

func (m *mockRemote) UpdateOrder(_ context.Context, _ domain.ID, req remote.OrderRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, req)
	return m.updateErr
}

func (m *mockRemote) PollCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollCalls
}

type mockHistory struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (m *mockHistory) AddOrder(o domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append([]domain.Order{o}, m.orders...)
}

func (m *mockHistory) Orders() []domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Order(nil), m.orders...)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *mockPublisher) Publish(_ context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) Types() []events.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

type staticSession struct{}

func (staticSession) Current() (session.Session, bool) {
	return session.Session{Token: "t", User: session.User{ID: "7"}}, true
}
