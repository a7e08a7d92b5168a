package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"musicshop-service/internal/auth"
	"musicshop-service/internal/domain"
	"musicshop-service/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCategoryStorer is a mock implementation of store.CategoryStorer
type MockCategoryStorer struct {
	mock.Mock
}

func (m *MockCategoryStorer) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) ListCategories(ctx context.Context, params store.ListCategoriesParams) ([]domain.Category, int, error) {
	args := m.Called(ctx, params)
	var categories []domain.Category
	if arg0 := args.Get(0); arg0 != nil {
		categories = arg0.([]domain.Category)
	}
	return categories, args.Int(1), args.Error(2)
}

func (m *MockCategoryStorer) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) DeleteCategory(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockProductStorer is a mock implementation of store.ProductStorer
type MockProductStorer struct {
	mock.Mock
}

func (m *MockProductStorer) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) ListProducts(ctx context.Context, params store.ListProductsParams) ([]domain.Product, int, error) {
	args := m.Called(ctx, params)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Int(1), args.Error(2)
}

func (m *MockProductStorer) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) DeactivateProduct(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockOrderStorer is a mock implementation of store.OrderStorer
type MockOrderStorer struct {
	mock.Mock
}

func (m *MockOrderStorer) CreateOrder(ctx context.Context, userID int64, lines []domain.OrderLine) (*domain.Order, error) {
	args := m.Called(ctx, userID, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderStorer) GetOrderByID(ctx context.Context, id int64, userID *int64) (*domain.Order, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderStorer) ListOrders(ctx context.Context, params store.ListOrdersParams) ([]domain.Order, int, error) {
	args := m.Called(ctx, params)
	var orders []domain.Order
	if arg0 := args.Get(0); arg0 != nil {
		orders = arg0.([]domain.Order)
	}
	return orders, args.Int(1), args.Error(2)
}

func (m *MockOrderStorer) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderStorer) DeleteOrder(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockUserStorer is a mock implementation of store.UserStorer
type MockUserStorer struct {
	mock.Mock
}

func (m *MockUserStorer) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStorer) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStorer) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStorer) ListUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	var users []domain.User
	if arg0 := args.Get(0); arg0 != nil {
		users = arg0.([]domain.User)
	}
	return users, args.Error(1)
}

func (m *MockUserStorer) UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStorer) DeleteUser(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// handlerMocks bundles one mock per store interface.
type handlerMocks struct {
	categories *MockCategoryStorer
	products   *MockProductStorer
	orders     *MockOrderStorer
	users      *MockUserStorer
}

// setupTestChiServer wires the handler with mocks and a real token manager
// behind a chi router, so auth middleware runs exactly as in production.
func setupTestChiServer(t *testing.T) (*httptest.Server, *handlerMocks, *auth.TokenManager) {
	t.Helper()

	mocks := &handlerMocks{
		categories: new(MockCategoryStorer),
		products:   new(MockProductStorer),
		orders:     new(MockOrderStorer),
		users:      new(MockUserStorer),
	}
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	handler := NewHTTPHandler(mocks.categories, mocks.products, mocks.orders, mocks.users, tokens, zerolog.Nop())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, mocks, tokens
}

// bearerFor issues a real signed token for the given identity.
func bearerFor(t *testing.T, tokens *auth.TokenManager, userID int64, role domain.Role) string {
	t.Helper()
	token, err := tokens.Issue(&domain.User{ID: userID, Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

// doJSON performs a request with an optional JSON payload and bearer token.
func doJSON(t *testing.T, method, url, bearer string, payload interface{}) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(reqBody)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return res
}

// Helper function to get a pointer (useful for optional fields in domain structs)
func PtrTo[T any](v T) *T {
	return &v
}
