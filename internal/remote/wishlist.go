package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
)

// wishlistItemWire is what the API sends. Some endpoints nest the animal,
// others only send animal_id.
type wishlistItemWire struct {
	ID       domain.ID      `json:"id"`
	Animal   *domain.Animal `json:"animal"`
	AnimalID domain.ID      `json:"animal_id"`
}

func (w wishlistItemWire) normalize() (domain.WishlistItem, error) {
	if w.ID == "" {
		return domain.WishlistItem{}, fmt.Errorf("wishlist item has no id")
	}
	var animal domain.Animal
	if w.Animal != nil {
		animal = *w.Animal
	}
	if animal.ID == "" {
		animal.ID = w.AnimalID
	}
	if animal.ID == "" {
		return domain.WishlistItem{}, fmt.Errorf("wishlist item %s has no animal id", w.ID)
	}
	return domain.WishlistItem{
		ID:     w.ID.String(),
		Animal: animal,
		State:  domain.ItemConfirmed,
	}, nil
}

func (c *Client) ListWishlist(ctx context.Context) ([]domain.WishlistItem, error) {
	var list listPayload[wishlistItemWire]
	list.key = "items"
	if err := c.do(ctx, request{op: "list wishlist", method: http.MethodGet, path: "/wishlist/", decode: &list}); err != nil {
		return nil, err
	}

	items := make([]domain.WishlistItem, 0, len(list.items))
	for _, w := range list.items {
		item, err := w.normalize()
		if err != nil {
			return nil, &domain.RemoteError{Op: "list wishlist", Err: err}
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) AddWishlist(ctx context.Context, animalID domain.ID) (domain.WishlistItem, error) {
	var payload struct {
		Item *wishlistItemWire `json:"item"`
	}
	err := c.do(ctx, request{
		op:     "add wishlist item",
		method: http.MethodPost,
		path:   "/wishlist/",
		body:   map[string]domain.ID{"animal_id": animalID},
		decode: &payload,
	})
	if err != nil {
		return domain.WishlistItem{}, err
	}
	if payload.Item == nil {
		return domain.WishlistItem{}, &domain.RemoteError{Op: "add wishlist item", Err: fmt.Errorf("response has no item")}
	}

	wire := *payload.Item
	if wire.AnimalID == "" && (wire.Animal == nil || wire.Animal.ID == "") {
		wire.AnimalID = animalID
	}
	item, err := wire.normalize()
	if err != nil {
		return domain.WishlistItem{}, &domain.RemoteError{Op: "add wishlist item", Err: err}
	}
	return item, nil
}

func (c *Client) RemoveWishlist(ctx context.Context, itemID string) error {
	return c.do(ctx, request{
		op:     "remove wishlist item",
		method: http.MethodDelete,
		path:   "/wishlist/" + url.PathEscape(itemID),
	})
}

func (c *Client) WishlistCount(ctx context.Context) (int, error) {
	var payload struct {
		Count *int `json:"count"`
	}
	if err := c.do(ctx, request{op: "wishlist count", method: http.MethodGet, path: "/wishlist/count", decode: &payload}); err != nil {
		return 0, err
	}
	if payload.Count == nil {
		return 0, &domain.RemoteError{Op: "wishlist count", Err: fmt.Errorf("response has no count")}
	}
	return *payload.Count, nil
}
