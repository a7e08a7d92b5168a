package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"musicshop-service/internal/domain"
)

// Predefined errors for store operations
var (
	ErrCategoryNotFound         = errors.New("store: category not found")
	ErrCategoryNameExists       = errors.New("store: category name already exists")
	ErrCategoryInUse            = errors.New("store: category is referenced by products")
	ErrProductNotFound          = errors.New("store: product not found")
	ErrInsufficientStock        = errors.New("store: insufficient stock")
	ErrOrderNotFound            = errors.New("store: order not found")
	ErrInvalidStatusTransition  = errors.New("store: invalid order status transition")
	ErrUserNotFound             = errors.New("store: user not found")
	ErrEmailExists              = errors.New("store: email already registered")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PostgresStore implements the Storer interfaces using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DB exposes the underlying pool, mainly for health checks.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func isPQError(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

// --- CategoryStorer implementation ---

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		INSERT INTO categories (name, description, image_url)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, image_url, created_at, updated_at;
	`
	var created domain.Category
	err := s.db.QueryRowContext(ctx, query, category.Name, category.Description, category.ImageURL).Scan(
		&created.ID,
		&created.Name,
		&created.Description,
		&created.ImageURL,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return nil, ErrCategoryNameExists
		}
		return nil, fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `
		SELECT id, name, description, image_url, created_at, updated_at
		FROM categories
		WHERE id = $1;
	`
	var category domain.Category
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.ImageURL,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return &category, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context, params ListCategoriesParams) ([]domain.Category, int, error) {
	countQuery := `SELECT COUNT(*) FROM categories;`
	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories failed to count categories: %w", err)
	}
	if totalCount == 0 {
		return []domain.Category{}, 0, nil
	}

	query := `
		SELECT id, name, description, image_url, created_at, updated_at
		FROM categories
		ORDER BY name ASC
		LIMIT $1 OFFSET $2;
	`
	rows, err := s.db.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, params.Limit)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}
	return categories, totalCount, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		UPDATE categories
		SET name = $1, description = $2, image_url = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING id, name, description, image_url, created_at, updated_at;
	`
	var updated domain.Category
	err := s.db.QueryRowContext(ctx, query, category.Name, category.Description, category.ImageURL, category.ID).Scan(
		&updated.ID,
		&updated.Name,
		&updated.Description,
		&updated.ImageURL,
		&updated.CreatedAt,
		&updated.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		if isPQError(err, pqUniqueViolation) {
			return nil, ErrCategoryNameExists
		}
		return nil, fmt.Errorf("store: UpdateCategory failed to scan row: %w", err)
	}
	return &updated, nil
}

// DeleteCategory removes a category. Deletion is restricted while products
// still reference the category; the FK violation surfaces as ErrCategoryInUse.
func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	query := `DELETE FROM categories WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		if isPQError(err, pqForeignKeyViolation) {
			return ErrCategoryInUse
		}
		return fmt.Errorf("store: DeleteCategory failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// --- ProductStorer implementation ---

const productColumns = `p.id, p.name, p.description, p.price, p.stock, p.brand, p.model, p.image_url, p.category_id, p.is_active, p.created_at, p.updated_at,
			c.id, c.name, c.description, c.image_url, c.created_at, c.updated_at`

func scanProductWithCategory(scanner interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	var c domain.Category
	err := scanner.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Brand, &p.Model,
		&p.ImageURL, &p.CategoryID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		&c.ID, &c.Name, &c.Description, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Category = &c
	return &p, nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO products (name, description, price, stock, brand, model, image_url, category_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, name, description, price, stock, brand, model, image_url, category_id, is_active, created_at, updated_at;
	`
	var created domain.Product
	err := s.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Price, product.Stock,
		product.Brand, product.Model, product.ImageURL, product.CategoryID, product.IsActive,
	).Scan(
		&created.ID, &created.Name, &created.Description, &created.Price, &created.Stock,
		&created.Brand, &created.Model, &created.ImageURL, &created.CategoryID, &created.IsActive,
		&created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		if isPQError(err, pqForeignKeyViolation) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: CreateProduct failed to scan row: %w", err)
	}
	return &created, nil
}

// GetProductByID returns the product joined with its category. Inactive
// products are returned too; customer-facing visibility is the handler's
// concern since historical orders still reference them.
func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1;
	`
	product, err := scanProductWithCategory(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}
	return product, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error) {
	var queryArgs []interface{}
	whereClauses := []string{"p.is_active = TRUE"}
	argID := 1

	if params.Search != nil && *params.Search != "" {
		whereClauses = append(whereClauses,
			fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d OR p.brand ILIKE $%d)", argID, argID, argID))
		queryArgs = append(queryArgs, "%"+*params.Search+"%")
		argID++
	}
	if params.CategoryID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.category_id = $%d", argID))
		queryArgs = append(queryArgs, *params.CategoryID)
		argID++
	}
	if params.MinPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.price >= $%d", argID))
		queryArgs = append(queryArgs, *params.MinPrice)
		argID++
	}
	if params.MaxPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.price <= $%d", argID))
		queryArgs = append(queryArgs, *params.MaxPrice)
		argID++
	}

	whereCondition := " WHERE " + strings.Join(whereClauses, " AND ")

	countQuery := "SELECT COUNT(*) FROM products p" + whereCondition
	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery, queryArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to count products: %w", err)
	}
	if totalCount == 0 {
		return []domain.Product{}, 0, nil
	}

	dataQuery := fmt.Sprintf(`SELECT `+productColumns+`
		FROM products p
		JOIN categories c ON c.id = p.category_id%s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d`, whereCondition, argID, argID+1)
	finalArgs := append(queryArgs, params.Limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, dataQuery, finalArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, params.Limit)
	for rows.Next() {
		p, err := scanProductWithCategory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: ListProducts failed to scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts iteration error: %w", err)
	}
	return products, totalCount, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4, brand = $5, model = $6,
			image_url = $7, category_id = $8, is_active = $9, updated_at = CURRENT_TIMESTAMP
		WHERE id = $10
		RETURNING id, name, description, price, stock, brand, model, image_url, category_id, is_active, created_at, updated_at;
	`
	var updated domain.Product
	err := s.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Price, product.Stock,
		product.Brand, product.Model, product.ImageURL, product.CategoryID, product.IsActive,
		product.ID,
	).Scan(
		&updated.ID, &updated.Name, &updated.Description, &updated.Price, &updated.Stock,
		&updated.Brand, &updated.Model, &updated.ImageURL, &updated.CategoryID, &updated.IsActive,
		&updated.CreatedAt, &updated.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if isPQError(err, pqForeignKeyViolation) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to scan row: %w", err)
	}
	return &updated, nil
}

// DeactivateProduct soft-deletes a product. The row survives so historical
// order items keep a valid product reference.
func (s *PostgresStore) DeactivateProduct(ctx context.Context, id int64) error {
	query := `UPDATE products SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeactivateProduct failed to execute update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeactivateProduct failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}
