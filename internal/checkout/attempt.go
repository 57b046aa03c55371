package checkout

import (
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/poller"
)

// StateChange is one transition of an attempt, as seen by subscribers.
type StateChange struct {
	AttemptID string               `json:"attempt_id"`
	From      domain.CheckoutState `json:"from"`
	To        domain.CheckoutState `json:"to"`
	OrderID   domain.ID            `json:"order_id,omitempty"`
	Message   string               `json:"message,omitempty"`
	At        time.Time            `json:"at"`
}

// Outcome is how an attempt ended. Err is nil on success.
type Outcome struct {
	State     domain.CheckoutState `json:"state"`
	OrderID   domain.ID            `json:"order_id,omitempty"`
	Message   string               `json:"message,omitempty"`
	Cancelled bool                 `json:"cancelled,omitempty"`
	Err       error                `json:"-"`
}

// View is a point-in-time copy of an attempt.
type View struct {
	ID            string               `json:"id"`
	State         domain.CheckoutState `json:"state"`
	OrderID       domain.ID            `json:"order_id,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Negotiated    bool                 `json:"negotiated"`
	Totals        Totals               `json:"totals"`
	Message       string               `json:"message,omitempty"`
	PollAttempts  int                  `json:"poll_attempts"`
	Cancelled     bool                 `json:"cancelled"`
	Finished      bool                 `json:"finished"`
	StartedAt     time.Time            `json:"started_at"`
}

// Attempt is one checkout submission, from validation to a terminal state.
type Attempt struct {
	ID            string
	PaymentMethod domain.PaymentMethod
	Negotiated    bool
	StartedAt     time.Time

	mu        sync.Mutex
	state     domain.CheckoutState
	orderID   domain.ID
	totals    Totals
	message   string
	cancelled bool
	finished  bool
	outcome   Outcome
	poll      *poller.Handle
	done      chan struct{}
	notify    func(StateChange)
	now       func() time.Time
}

func newAttempt(id string, method domain.PaymentMethod, negotiated bool, now func() time.Time, notify func(StateChange)) *Attempt {
	return &Attempt{
		ID:            id,
		PaymentMethod: method,
		Negotiated:    negotiated,
		StartedAt:     now(),
		state:         domain.CheckoutIdle,
		done:          make(chan struct{}),
		notify:        notify,
		now:           now,
	}
}

func (a *Attempt) State() domain.CheckoutState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Finished reports whether Done is closed.
func (a *Attempt) Finished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finished
}

// Done is closed when the attempt reached a terminal state, fell back to
// Idle, or was cancelled.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Outcome is only meaningful once Done is closed.
func (a *Attempt) Outcome() Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.outcome
}

func (a *Attempt) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := View{
		ID:            a.ID,
		State:         a.state,
		OrderID:       a.orderID,
		PaymentMethod: a.PaymentMethod,
		Negotiated:    a.Negotiated,
		Totals:        a.totals,
		Message:       a.message,
		Cancelled:     a.cancelled,
		Finished:      a.finished,
		StartedAt:     a.StartedAt,
	}
	if a.poll != nil {
		v.PollAttempts = a.poll.Attempts()
	}
	return v
}

// Cancel stops the attempt. A cancelled attempt keeps the state it had and
// is never mutated again. It reports false if the attempt had already ended.
func (a *Attempt) Cancel() bool {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return false
	}
	a.cancelled = true
	a.message = "Checkout cancelled."
	a.finishLocked(Outcome{State: a.state, OrderID: a.orderID, Message: a.message, Cancelled: true})
	h := a.poll
	a.mu.Unlock()

	if h != nil {
		h.Stop()
	}
	return true
}

// transitionLocked moves to next; mu must be held.
func (a *Attempt) transitionLocked(next domain.CheckoutState, message string) error {
	if !domain.CanTransitionTo(a.state, next) {
		return fmt.Errorf("%w: %s -> %s", domain.IllegalTransitionError, a.state, next)
	}
	change := StateChange{
		AttemptID: a.ID,
		From:      a.state,
		To:        next,
		OrderID:   a.orderID,
		Message:   message,
		At:        a.now(),
	}
	a.state = next
	a.message = message
	if a.notify != nil {
		a.notify(change)
	}
	return nil
}

// finishLocked records the outcome and closes done; mu must be held.
func (a *Attempt) finishLocked(o Outcome) {
	if a.finished {
		return
	}
	a.finished = true
	a.outcome = o
	close(a.done)
}
