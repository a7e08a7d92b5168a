// Package cart is the client-side shopping cart as an explicit store
// object: a list of (product, quantity) selections with no server
// durability, handed to the order endpoint at checkout. It replaces the
// hidden local-storage global of the original front end.
package cart

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"musicshop-service/internal/domain"
)

var (
	ErrInvalidQuantity = errors.New("cart: quantity must be positive")
	ErrItemNotFound    = errors.New("cart: product not in cart")
	ErrEmpty           = errors.New("cart: cart is empty")
)

// Item is one pending selection. Price mirrors the catalog price at the
// time the product was added; the authoritative snapshot is still taken
// server-side when the order is placed.
type Item struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Quantity  int32
}

// Cart accumulates selections before checkout. Not safe for concurrent use;
// each client session owns its cart.
type Cart struct {
	items map[int64]*Item
}

func New() *Cart {
	return &Cart{items: make(map[int64]*Item)}
}

// Add puts quantity units of the product in the cart, merging with an
// existing line for the same product.
func (c *Cart) Add(product *domain.Product, quantity int32) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if existing, ok := c.items[product.ID]; ok {
		existing.Quantity += quantity
		existing.Price = product.Price
		return nil
	}
	c.items[product.ID] = &Item{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  quantity,
	}
	return nil
}

// UpdateQuantity sets the quantity of an existing line.
func (c *Cart) UpdateQuantity(productID int64, quantity int32) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	item, ok := c.items[productID]
	if !ok {
		return ErrItemNotFound
	}
	item.Quantity = quantity
	return nil
}

// Remove drops a line from the cart.
func (c *Cart) Remove(productID int64) error {
	if _, ok := c.items[productID]; !ok {
		return ErrItemNotFound
	}
	delete(c.items, productID)
	return nil
}

// Clear empties the cart, typically after a successful checkout.
func (c *Cart) Clear() {
	c.items = make(map[int64]*Item)
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.items)
}

// Items returns the lines ordered by product id.
func (c *Cart) Items() []Item {
	items := make([]Item, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items
}

// Total computes the exact decimal sum of price * quantity over the lines.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt32(item.Quantity)))
	}
	return total
}

// CheckoutLines produces the payload the order endpoint accepts.
func (c *Cart) CheckoutLines() ([]domain.OrderLine, error) {
	if len(c.items) == 0 {
		return nil, ErrEmpty
	}
	lines := make([]domain.OrderLine, 0, len(c.items))
	for _, item := range c.Items() {
		lines = append(lines, domain.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines, nil
}
