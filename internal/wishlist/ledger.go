package wishlist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Remote is the server side of the wishlist.
type Remote interface {
	ListWishlist(ctx context.Context) ([]domain.WishlistItem, error)
	AddWishlist(ctx context.Context, animalID domain.ID) (domain.WishlistItem, error)
	RemoveWishlist(ctx context.Context, itemID string) error
}

type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

const (
	fetchTimeout = 30 * time.Second
	fetchKey     = "wishlist"
)

// Ledger mirrors the server wishlist and applies adds and removes
// optimistically. A failed remote call rolls the local change back.
type Ledger struct {
	mu      sync.Mutex
	items   []domain.WishlistItem
	status  Status
	lastErr error
	// generation is bumped by Clear; remote answers from before it are dropped
	generation uint64

	remote Remote
	log    *slog.Logger
	now    func() time.Time
	sfg    singleflight.Group
}

func NewLedger(remote Remote, log *slog.Logger) *Ledger {
	return &Ledger{
		items:  []domain.WishlistItem{},
		status: StatusIdle,
		remote: remote,
		log:    log,
		now:    time.Now,
	}
}

// FetchAll replaces the collection with the server list. Placeholders whose
// create is still in flight are kept. On failure the collection is left as
// it was. The shared fetch is not cut short when the first caller goes away.
func (l *Ledger) FetchAll(ctx context.Context) error {
	_, err, _ := l.sfg.Do(fetchKey, func() (interface{}, error) {
		l.mu.Lock()
		gen := l.generation
		l.status = StatusLoading
		l.mu.Unlock()

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		items, err := l.remote.ListWishlist(fetchCtx)

		l.mu.Lock()
		defer l.mu.Unlock()
		if gen != l.generation {
			l.log.Debug("dropping wishlist fetched before clear")
			return nil, nil
		}
		if err != nil {
			l.status = StatusFailed
			l.lastErr = err
			l.log.Warn("wishlist fetch failed", "error", err)
			return nil, err
		}

		next := make([]domain.WishlistItem, 0, len(items)+1)
		seen := make(map[domain.ID]bool, len(items))
		for _, item := range items {
			item.State = domain.ItemConfirmed
			seen[item.Animal.ID] = true
			next = append(next, item)
		}
		for _, item := range l.items {
			if item.IsPending() && !seen[item.Animal.ID] {
				next = append(next, item)
			}
		}
		l.items = next
		l.status = StatusSucceeded
		l.lastErr = nil
		return nil, nil
	})
	return err
}

// Add saves animalID. Adding an animal that is already wishlisted returns
// the existing item without a remote call.
func (l *Ledger) Add(ctx context.Context, animalID domain.ID) (domain.WishlistItem, error) {
	l.mu.Lock()
	if i := l.findAnimal(animalID); i >= 0 {
		item := l.items[i]
		l.mu.Unlock()
		return item, nil
	}
	placeholder := domain.NewPendingItem(animalID, l.now())
	l.items = append(l.items, placeholder)
	gen := l.generation
	l.mu.Unlock()

	created, err := l.remote.AddWishlist(ctx, animalID)

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation {
		if err != nil {
			return domain.WishlistItem{}, err
		}
		created.State = domain.ItemConfirmed
		return created, nil
	}

	p := l.findPlaceholder(placeholder.ID, animalID)
	if err != nil {
		if p >= 0 {
			l.items = removeAt(l.items, p)
		}
		l.log.Warn("wishlist add failed, rolled back", "animal_id", animalID, "error", err)
		return domain.WishlistItem{}, err
	}

	created.State = domain.ItemConfirmed
	if created.Animal.ID == "" {
		created.Animal.ID = animalID
	}

	// a fetch that finished first may already hold the server record
	if c := l.findConfirmed(animalID); c >= 0 {
		if p >= 0 {
			l.items = removeAt(l.items, p)
		}
		return l.items[l.findConfirmed(animalID)], nil
	}
	if p >= 0 {
		l.items[p] = created
	} else {
		l.items = append(l.items, created)
	}
	return created, nil
}

// Remove deletes a confirmed item. On remote failure the item is put back at
// its original position.
func (l *Ledger) Remove(ctx context.Context, itemID string) error {
	l.mu.Lock()
	idx := l.findItem(itemID)
	if idx < 0 {
		l.mu.Unlock()
		return domain.ErrItemNotFound
	}
	removed := l.items[idx]
	if removed.IsPending() {
		l.mu.Unlock()
		return domain.ErrItemPending
	}
	l.items = removeAt(l.items, idx)
	gen := l.generation
	l.mu.Unlock()

	err := l.remote.RemoveWishlist(ctx, itemID)
	if err == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen == l.generation && l.findItem(itemID) < 0 {
		if idx > len(l.items) {
			idx = len(l.items)
		}
		l.items = append(l.items[:idx], append([]domain.WishlistItem{removed}, l.items[idx:]...)...)
	}
	l.log.Warn("wishlist remove failed, restored", "item_id", itemID, "error", err)
	return err
}

// Toggle removes animalID if wishlisted, otherwise adds it. It reports
// whether the animal is wishlisted afterwards.
func (l *Ledger) Toggle(ctx context.Context, animalID domain.ID) (bool, error) {
	l.mu.Lock()
	i := l.findAnimal(animalID)
	var item domain.WishlistItem
	if i >= 0 {
		item = l.items[i]
	}
	l.mu.Unlock()

	if i < 0 {
		if _, err := l.Add(ctx, animalID); err != nil {
			return false, err
		}
		return true, nil
	}
	if item.IsPending() {
		return true, domain.ErrItemPending
	}
	if err := l.Remove(ctx, item.ID); err != nil {
		return true, err
	}
	return false, nil
}

// IsWishlisted counts pending placeholders too.
func (l *Ledger) IsWishlisted(animalID domain.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.findAnimal(animalID) >= 0
}

func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *Ledger) Items() []domain.WishlistItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.WishlistItem, len(l.items))
	copy(out, l.items)
	return out
}

// Status returns the fetch status and the error of the last failed fetch.
func (l *Ledger) Status() (Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status, l.lastErr
}

// Clear forgets everything, used on logout.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.sfg.Forget(fetchKey)
	l.items = []domain.WishlistItem{}
	l.status = StatusIdle
	l.lastErr = nil
}

func (l *Ledger) findAnimal(animalID domain.ID) int {
	for i := range l.items {
		if l.items[i].Animal.ID == animalID {
			return i
		}
	}
	return -1
}

func (l *Ledger) findConfirmed(animalID domain.ID) int {
	for i := range l.items {
		if !l.items[i].IsPending() && l.items[i].Animal.ID == animalID {
			return i
		}
	}
	return -1
}

func (l *Ledger) findPlaceholder(tempID string, animalID domain.ID) int {
	for i := range l.items {
		if l.items[i].ID == tempID && l.items[i].Animal.ID == animalID && l.items[i].IsPending() {
			return i
		}
	}
	return -1
}

func (l *Ledger) findItem(itemID string) int {
	for i := range l.items {
		if l.items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func removeAt(items []domain.WishlistItem, i int) []domain.WishlistItem {
	out := make([]domain.WishlistItem, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
