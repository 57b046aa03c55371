package domain

import "github.com/shopspring/decimal"

// Product is what the UI hands over when a listing is added to the cart.
type Product struct {
	ID    ID              `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

type CartItem struct {
	ID       ID              `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Quantity int             `json:"quantity"`
}

// LineTotal is price × quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart keeps items in insertion order. TotalQuantity and TotalAmount are
// derived from Items and must be refreshed with Recalculate after any change.
type Cart struct {
	Items         []CartItem      `json:"items"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

func NewCart() Cart {
	return Cart{Items: []CartItem{}, TotalAmount: decimal.Zero}
}

func (c *Cart) Recalculate() {
	qty := 0
	amount := decimal.Zero
	for _, item := range c.Items {
		qty += item.Quantity
		amount = amount.Add(item.LineTotal())
	}
	c.TotalQuantity = qty
	c.TotalAmount = amount
}

// Find returns the index of the item with the given id, or -1.
func (c *Cart) Find(id ID) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy safe to hand out of the ledger.
func (c Cart) Clone() Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items, TotalQuantity: c.TotalQuantity, TotalAmount: c.TotalAmount}
}
