package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Animal struct {
	ID       ID              `json:"id"`
	Species  string          `json:"species,omitempty"`
	Breed    string          `json:"breed,omitempty"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url,omitempty"`
}

// ItemState tells a locally inserted placeholder apart from a record the
// server has acknowledged.
type ItemState string

const (
	ItemPending   ItemState = "pending"
	ItemConfirmed ItemState = "confirmed"
)

type WishlistItem struct {
	ID     string    `json:"id"`
	Animal Animal    `json:"animal"`
	State  ItemState `json:"state"`
}

const tempIDPrefix = "temp-"

// NewPendingItem builds the optimistic placeholder shown until the server answers.
func NewPendingItem(animalID ID, now time.Time) WishlistItem {
	return WishlistItem{
		ID:     fmt.Sprintf("%s%d", tempIDPrefix, now.UnixMilli()),
		Animal: Animal{ID: animalID, Price: decimal.Zero},
		State:  ItemPending,
	}
}

func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

func (w WishlistItem) IsPending() bool {
	return w.State == ItemPending
}
