package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/events"
	"github.com/fjod/go_cart/marketplace-client/internal/metrics"
	"github.com/fjod/go_cart/marketplace-client/internal/poller"
	"github.com/fjod/go_cart/marketplace-client/internal/remote"
	"github.com/fjod/go_cart/marketplace-client/internal/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Messages shown to the buyer.
const (
	MsgOrderPlaced       = "Order placed! Pay on delivery."
	MsgAwaitingPin       = "Please enter your M-Pesa PIN on your phone..."
	MsgPaymentConfirmed  = "Payment confirmed! Thank you."
	MsgTransactionFailed = "Transaction failed."
	MsgTimedOut          = "STK Push timed out."
	MsgOrderCancelled    = "Order was cancelled."
	MsgOrderFailed       = "Order failed"
	MsgAlreadyPaid       = "This order has already been paid!"
	MsgFixForm           = "Please fix the errors in the form"
	MsgEmptyCart         = "Your cart is empty"
)

// Remote is the part of the marketplace API checkout talks to.
type Remote interface {
	GetOrder(ctx context.Context, id domain.ID) (domain.Order, error)
	GetOrderStatus(ctx context.Context, id domain.ID) (domain.OrderStatus, error)
	CreateOrder(ctx context.Context, req remote.OrderRequest, idempotencyKey string) (domain.Order, error)
	UpdateOrder(ctx context.Context, id domain.ID, req remote.OrderRequest) error
}

type Cart interface {
	Snapshot() domain.Cart
	Clear() domain.Cart
}

type History interface {
	AddOrder(order domain.Order)
}

type Sessions interface {
	Current() (session.Session, bool)
}

type Config struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	Pricing         Pricing
}

func DefaultConfig() Config {
	return Config{
		PollInterval:    5 * time.Second,
		MaxPollAttempts: 12,
		Pricing:         DefaultPricing(),
	}
}

// Request is one checkout submission. NegotiatedOrderID, when set, pays an
// order agreed through bargaining instead of the cart.
type Request struct {
	Form              Form      `json:"form"`
	NegotiatedOrderID domain.ID `json:"negotiated_order_id,omitempty"`
}

// Orchestrator runs checkout attempts, one at a time.
type Orchestrator struct {
	mu      sync.Mutex
	current *Attempt

	subMu sync.Mutex
	subs  map[chan StateChange]struct{}

	remote    Remote
	cart      Cart
	history   History
	sessions  Sessions
	publisher events.Publisher
	poller    *poller.Poller
	cfg       Config
	log       *slog.Logger
	now       func() time.Time

	baseCtx context.Context
	stop    context.CancelFunc
}

type Option func(*Orchestrator)

// WithPoller replaces the poller built from Config.
func WithPoller(p *poller.Poller) Option {
	return func(o *Orchestrator) { o.poller = p }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(cfg Config, r Remote, cart Cart, history History, sessions Sessions, pub events.Publisher, log *slog.Logger, opts ...Option) *Orchestrator {
	if pub == nil {
		pub = events.Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		subs:      make(map[chan StateChange]struct{}),
		remote:    r,
		cart:      cart,
		history:   history,
		sessions:  sessions,
		publisher: pub,
		poller:    poller.New(cfg.PollInterval),
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		baseCtx:   ctx,
		stop:      cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Totals prices the current cart.
func (o *Orchestrator) Totals() Totals {
	return o.cfg.Pricing.Totals(o.cart.Snapshot().TotalAmount)
}

// LoadNegotiated fetches a negotiated order and refuses one that is already
// paid.
func (o *Orchestrator) LoadNegotiated(ctx context.Context, id domain.ID) (domain.Order, error) {
	order, err := o.remote.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.ID == "" {
		order.ID = id
	}
	if order.Status.IsPaid() {
		return domain.Order{}, &domain.ConflictError{OrderID: order.ID, Status: order.Status}
	}
	return order, nil
}

// Current returns the latest attempt, finished or not.
func (o *Orchestrator) Current() (*Attempt, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current, o.current != nil
}

// Cancel cancels the running attempt, if any.
func (o *Orchestrator) Cancel() bool {
	a, ok := o.Current()
	if !ok {
		return false
	}
	return a.Cancel()
}

// Shutdown cancels the running attempt and stops all polling.
func (o *Orchestrator) Shutdown() {
	o.Cancel()
	o.stop()
}

// Subscribe streams every state transition of every attempt until the
// returned func is called.
func (o *Orchestrator) Subscribe() (<-chan StateChange, func()) {
	ch := make(chan StateChange, 32)
	o.subMu.Lock()
	o.subs[ch] = struct{}{}
	o.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.subMu.Lock()
			delete(o.subs, ch)
			o.subMu.Unlock()
			close(ch)
		})
	}
}

func (o *Orchestrator) broadcast(change StateChange) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	for ch := range o.subs {
		select {
		case ch <- change:
		default:
			o.log.Warn("dropping state change for slow subscriber", "attempt_id", change.AttemptID, "to", change.To)
		}
	}
}

// Submit validates the form and submits the order. For cash on delivery the
// returned attempt has already succeeded; for M-Pesa it is awaiting the
// payment and polling continues in the background.
//
// Validation and submission failures return the attempt (back in Idle) along
// with the error. ErrCheckoutInProgress is returned with a nil attempt.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*Attempt, error) {
	form := req.Form
	form.PaymentMethod = form.paymentMethod()

	o.mu.Lock()
	if o.current != nil && !o.current.Finished() {
		o.mu.Unlock()
		return nil, domain.ErrCheckoutInProgress
	}
	a := newAttempt(uuid.NewString(), form.PaymentMethod, req.NegotiatedOrderID != "", o.now, o.broadcast)
	a.mu.Lock()
	a.transitionLocked(domain.CheckoutValidating, "")
	a.mu.Unlock()
	o.current = a
	o.mu.Unlock()

	orderReq, err := o.prepare(ctx, req.NegotiatedOrderID, form)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			metrics.RecordValidationFailure()
		}
		o.reject(a, err, rejectMessage(err))
		return a, err
	}

	a.mu.Lock()
	if a.cancelled {
		a.mu.Unlock()
		return a, context.Canceled
	}
	a.totals = o.cfg.Pricing.Totals(orderReq.subtotal)
	a.transitionLocked(domain.CheckoutSubmitting, "")
	a.mu.Unlock()

	metrics.RecordCheckoutAttempt(string(form.PaymentMethod))

	order, err := o.submit(ctx, a, orderReq)
	if err != nil {
		o.log.Warn("order submission failed", "attempt_id", a.ID, "error", err)
		o.reject(a, err, domain.RemoteMessage(err, MsgOrderFailed))
		metrics.RecordCheckoutOutcome("REJECTED", string(a.PaymentMethod), o.now().Sub(a.StartedAt))
		return a, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelled {
		return a, nil
	}
	a.orderID = order.ID

	if form.PaymentMethod == domain.PaymentCashOnDelivery {
		a.transitionLocked(domain.CheckoutSucceeded, MsgOrderPlaced)
		o.succeedLocked(a, order)
		return a, nil
	}

	a.transitionLocked(domain.CheckoutAwaitingMobilePayment, MsgAwaitingPin)
	o.startPollingLocked(a, order)
	return a, nil
}

type prepared struct {
	request    remote.OrderRequest
	subtotal   decimal.Decimal
	negotiated domain.ID
}

// prepare runs while Validating: form checks first, then the cart or the
// negotiated order that is about to be paid.
func (o *Orchestrator) prepare(ctx context.Context, negotiatedID domain.ID, form Form) (prepared, error) {
	if err := form.Validate(); err != nil {
		return prepared{}, err
	}

	var (
		lines    []remote.OrderLine
		subtotal decimal.Decimal
	)
	if negotiatedID != "" {
		order, err := o.LoadNegotiated(ctx, negotiatedID)
		if err != nil {
			return prepared{}, err
		}
		for _, item := range order.Items {
			lines = append(lines, remote.OrderLine{AnimalID: item.AnimalID, Quantity: item.Quantity, Price: item.Price})
		}
		subtotal = order.TotalAmount
	} else {
		c := o.cart.Snapshot()
		if c.IsEmpty() {
			return prepared{}, domain.ErrEmptyCart
		}
		for _, item := range c.Items {
			lines = append(lines, remote.OrderLine{AnimalID: item.ID, Quantity: item.Quantity, Price: item.Price})
		}
		subtotal = c.TotalAmount
	}

	totals := o.cfg.Pricing.Totals(subtotal)
	return prepared{
		request: remote.OrderRequest{
			Items:           lines,
			TotalAmount:     totals.GrandTotal,
			PaymentMethod:   form.PaymentMethod,
			PhoneNumber:     strings.TrimSpace(form.Phone),
			ShippingAddress: form.ShippingAddress(),
		},
		subtotal:   subtotal,
		negotiated: negotiatedID,
	}, nil
}

// submit sends the order and returns the local snapshot of it.
func (o *Orchestrator) submit(ctx context.Context, a *Attempt, p prepared) (domain.Order, error) {
	snapshot := domain.Order{
		Items:           make([]domain.OrderItem, 0, len(p.request.Items)),
		TotalAmount:     p.request.TotalAmount,
		PaymentMethod:   p.request.PaymentMethod,
		PhoneNumber:     p.request.PhoneNumber,
		ShippingAddress: p.request.ShippingAddress,
		Status:          domain.OrderStatusPending,
		CreatedAt:       &domain.Timestamp{Time: o.now().UTC()},
	}
	for _, line := range p.request.Items {
		snapshot.Items = append(snapshot.Items, domain.OrderItem{AnimalID: line.AnimalID, Quantity: line.Quantity, Price: line.Price})
	}

	if p.negotiated != "" {
		req := p.request
		req.Status = domain.OrderStatusPending
		if err := o.remote.UpdateOrder(ctx, p.negotiated, req); err != nil {
			return domain.Order{}, err
		}
		snapshot.ID = p.negotiated
		return snapshot, nil
	}

	// the attempt id doubles as idempotency key
	created, err := o.remote.CreateOrder(ctx, p.request, a.ID)
	if err != nil {
		return domain.Order{}, err
	}
	snapshot.ID = created.ID
	if created.CreatedAt != nil {
		snapshot.CreatedAt = created.CreatedAt
	}
	return snapshot, nil
}

func rejectMessage(err error) string {
	var ve *domain.ValidationError
	var ce *domain.ConflictError
	switch {
	case errors.As(err, &ve):
		return MsgFixForm
	case errors.As(err, &ce):
		return MsgAlreadyPaid
	case errors.Is(err, domain.ErrEmptyCart):
		return MsgEmptyCart
	default:
		return domain.RemoteMessage(err, MsgOrderFailed)
	}
}

// reject sends the attempt back to Idle so the form can be resubmitted.
func (o *Orchestrator) reject(a *Attempt, err error, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelled {
		return
	}
	a.transitionLocked(domain.CheckoutIdle, message)
	a.finishLocked(Outcome{State: domain.CheckoutIdle, OrderID: a.orderID, Message: message, Err: err})
}

// succeedLocked applies the side effects of a paid or placed order; a.mu
// must be held.
func (o *Orchestrator) succeedLocked(a *Attempt, order domain.Order) {
	if !a.Negotiated {
		o.cart.Clear()
	}
	o.history.AddOrder(order)
	o.publish(a, order, events.CheckoutSucceeded)
	metrics.RecordCheckoutOutcome(string(domain.CheckoutSucceeded), string(a.PaymentMethod), o.now().Sub(a.StartedAt))

	o.log.Info("checkout succeeded", "attempt_id", a.ID, "order_id", order.ID, "payment_method", a.PaymentMethod)
	a.finishLocked(Outcome{State: domain.CheckoutSucceeded, OrderID: order.ID, Message: a.message})
}

// failLocked ends a polling attempt in Failed or TimedOut; a.mu must be held.
func (o *Orchestrator) failLocked(a *Attempt, order domain.Order, state domain.CheckoutState, message string, cause error) {
	if err := a.transitionLocked(state, message); err != nil {
		o.log.Error("checkout transition rejected", "attempt_id", a.ID, "error", err)
	}

	eventType := events.CheckoutFailed
	if state == domain.CheckoutTimedOut {
		eventType = events.CheckoutTimedOut
	}
	o.publish(a, order, eventType)
	metrics.RecordCheckoutOutcome(string(state), string(a.PaymentMethod), o.now().Sub(a.StartedAt))

	o.log.Warn("checkout did not complete", "attempt_id", a.ID, "order_id", order.ID, "state", state)
	a.finishLocked(Outcome{State: state, OrderID: order.ID, Message: message, Err: cause})
}

func (o *Orchestrator) publish(a *Attempt, order domain.Order, t events.Type) {
	e := events.Event{
		Type:          t,
		OrderID:       order.ID,
		PaymentMethod: a.PaymentMethod,
		TotalAmount:   order.TotalAmount,
		Negotiated:    a.Negotiated,
		Message:       a.message,
		OccurredAt:    o.now().UTC(),
	}
	if o.sessions != nil {
		if s, ok := o.sessions.Current(); ok {
			e.UserID = s.User.ID
		}
	}
	if err := o.publisher.Publish(o.baseCtx, e); err != nil {
		o.log.Warn("checkout event not published", "event_type", t, "order_id", order.ID, "error", err)
	}
}

// startPollingLocked begins the payment status poll; a.mu must be held.
func (o *Orchestrator) startPollingLocked(a *Attempt, order domain.Order) {
	h := o.poller.Start(o.baseCtx, func(ctx context.Context, attempt int) bool {
		return o.pollOnce(ctx, a, order, attempt)
	})
	a.poll = h

	// a loop that exits without deciding (shutdown) leaves the attempt
	// cancelled rather than stuck in Polling
	go func() {
		<-h.Done()
		a.mu.Lock()
		defer a.mu.Unlock()
		if !a.finished {
			a.cancelled = true
			a.finishLocked(Outcome{State: a.state, OrderID: a.orderID, Message: a.message, Cancelled: true})
		}
	}()
}

// pollOnce checks the payment status once and reports whether polling is
// over.
func (o *Orchestrator) pollOnce(ctx context.Context, a *Attempt, order domain.Order, attempt int) bool {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return true
	}
	if a.state == domain.CheckoutAwaitingMobilePayment {
		a.transitionLocked(domain.CheckoutPolling, MsgAwaitingPin)
	}
	a.mu.Unlock()

	status, err := o.remote.GetOrderStatus(ctx, order.ID)
	if ctx.Err() != nil {
		return true
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finished {
		return true
	}

	if err != nil {
		metrics.RecordPoll("error")
		o.log.Warn("payment status poll failed", "attempt_id", a.ID, "order_id", order.ID, "attempt", attempt, "error", err)
	} else {
		metrics.RecordPoll(string(status))
		o.log.Debug("payment status polled", "attempt_id", a.ID, "order_id", order.ID, "attempt", attempt, "status", status)

		switch {
		case status.IsPaid():
			order.Status = status
			a.transitionLocked(domain.CheckoutSucceeded, MsgPaymentConfirmed)
			o.succeedLocked(a, order)
			return true
		case status.IsTerminal():
			order.Status = status
			message, cause := MsgTransactionFailed, domain.ErrPaymentFailed
			if status == domain.OrderStatusCancelled {
				message, cause = MsgOrderCancelled, domain.ErrOrderCancelled
			}
			o.failLocked(a, order, domain.CheckoutFailed, message, cause)
			return true
		}
	}

	// the poller has no attempt limit of its own
	if o.cfg.MaxPollAttempts > 0 && attempt >= o.cfg.MaxPollAttempts {
		o.failLocked(a, order, domain.CheckoutTimedOut, MsgTimedOut, domain.ErrPaymentTimeout)
		return true
	}
	return false
}
