package cart

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/store"
)

const persistTimeout = 2 * time.Second

// Ledger is the local shopping cart. Every mutation recomputes the totals and
// writes the whole cart back to the store. A failed write is logged and the
// in-memory cart stays authoritative.
type Ledger struct {
	mu    sync.Mutex
	cart  domain.Cart
	store store.Store
	log   *slog.Logger
}

// NewLedger restores the persisted cart, if any. Totals are recomputed from
// the restored items rather than trusted.
func NewLedger(ctx context.Context, s store.Store, log *slog.Logger) *Ledger {
	l := &Ledger{
		cart:  domain.NewCart(),
		store: s,
		log:   log,
	}

	var persisted domain.Cart
	found, err := store.LoadJSON(ctx, s, store.KeyCart, &persisted)
	switch {
	case err != nil:
		log.Warn("discarding unreadable persisted cart", "error", err)
	case found:
		l.cart = sanitize(persisted)
	}
	return l
}

func sanitize(c domain.Cart) domain.Cart {
	out := domain.NewCart()
	for _, item := range c.Items {
		if item.Quantity < 1 {
			continue
		}
		if i := out.Find(item.ID); i >= 0 {
			out.Items[i].Quantity += item.Quantity
			continue
		}
		out.Items = append(out.Items, item)
	}
	out.Recalculate()
	return out
}

// AddItem increments the quantity of an existing line or appends a new one.
func (l *Ledger) AddItem(p domain.Product) domain.Cart {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.cart.Find(p.ID); i >= 0 {
		l.cart.Items[i].Quantity++
	} else {
		l.cart.Items = append(l.cart.Items, domain.CartItem{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Image:    p.Image,
			Quantity: 1,
		})
	}
	return l.commit()
}

func (l *Ledger) RemoveItem(id domain.ID) domain.Cart {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.cart.Find(id)
	if i < 0 {
		return l.cart.Clone()
	}
	l.cart.Items = append(l.cart.Items[:i], l.cart.Items[i+1:]...)
	return l.commit()
}

func (l *Ledger) IncreaseQuantity(id domain.ID) domain.Cart {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.cart.Find(id)
	if i < 0 {
		return l.cart.Clone()
	}
	l.cart.Items[i].Quantity++
	return l.commit()
}

// DecreaseQuantity drops the line when its quantity is 1.
func (l *Ledger) DecreaseQuantity(id domain.ID) domain.Cart {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.cart.Find(id)
	if i < 0 {
		return l.cart.Clone()
	}
	if l.cart.Items[i].Quantity <= 1 {
		l.cart.Items = append(l.cart.Items[:i], l.cart.Items[i+1:]...)
	} else {
		l.cart.Items[i].Quantity--
	}
	return l.commit()
}

func (l *Ledger) Clear() domain.Cart {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cart = domain.NewCart()
	return l.commit()
}

func (l *Ledger) Snapshot() domain.Cart {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cart.Clone()
}

// commit must be called with mu held.
func (l *Ledger) commit() domain.Cart {
	l.cart.Recalculate()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := store.SaveJSON(ctx, l.store, store.KeyCart, l.cart); err != nil {
		l.log.Warn("cart persist failed", "error", err)
	}
	return l.cart.Clone()
}
