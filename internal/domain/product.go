package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products; every product belongs to exactly one category.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product is a catalog entry. Price uses decimal.Decimal so currency
// arithmetic stays exact end to end; stock is kept non-negative by the
// schema and by the conditional decrement inside the order transaction.
//
// IsActive marks a soft-deleted product: it disappears from customer-facing
// listings but remains addressable by id so historical order items keep a
// valid reference.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int32           `json:"stock"`
	Brand       *string         `json:"brand,omitempty"`
	Model       *string         `json:"model,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	CategoryID  int64           `json:"category_id"`
	Category    *Category       `json:"category,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
