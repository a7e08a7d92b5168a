package store

import (
	"context"

	"musicshop-service/internal/domain"

	"github.com/shopspring/decimal"
)

// ListCategoriesParams holds parameters for listing categories.
type ListCategoriesParams struct {
	Limit  int
	Offset int
}

// CategoryStorer defines the database operations for categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context, params ListCategoriesParams) ([]domain.Category, int, error)
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// ListProductsParams holds parameters for the filtered product listing.
// Search matches name, description and brand case-insensitively (OR);
// price bounds are inclusive. Only active products are returned.
type ListProductsParams struct {
	Limit      int
	Offset     int
	Search     *string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

// ProductStorer defines the database operations for products.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error)
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeactivateProduct(ctx context.Context, id int64) error
}

// ListOrdersParams holds parameters for listing orders. A nil UserID lists
// every order (admin view); otherwise only that user's orders are returned.
type ListOrdersParams struct {
	Limit  int
	Offset int
	UserID *int64
}

// OrderStorer defines the order workflow and query operations.
//
// CreateOrder runs the whole placement as one transaction: snapshotting
// unit prices into items, summing the total, and decrementing stock with a
// conditional update per line. Any failure rolls the entire order back.
type OrderStorer interface {
	CreateOrder(ctx context.Context, userID int64, lines []domain.OrderLine) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id int64, userID *int64) (*domain.Order, error)
	ListOrders(ctx context.Context, params ListOrdersParams) ([]domain.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}

// UserStorer defines the database operations for user accounts.
type UserStorer interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}
