package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"musicshop-service/internal/domain"
)

// decrementStockQuery is the check-and-decrement in a single conditional
// update. Zero affected rows means either the product is missing or the
// stock would go negative; the caller distinguishes the two. RETURNING the
// price gives us the snapshot for the order item from the same statement,
// so two concurrent orders can never both take the last unit.
const decrementStockQuery = `
		UPDATE products
		SET stock = stock - $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND stock >= $1 AND is_active = TRUE
		RETURNING price;
	`

const restoreStockQuery = `
		UPDATE products
		SET stock = stock + $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2;
	`

// CreateOrder places an order for userID as a single transaction:
// every line's stock is decremented conditionally and its unit price
// snapshotted, the order and its items are inserted, and the total is the
// exact decimal sum of price * quantity. Any failure (unknown or inactive
// product, insufficient stock) rolls the whole order back, including
// decrements already applied for earlier lines of the same request.
func (s *PostgresStore) CreateOrder(ctx context.Context, userID int64, lines []domain.OrderLine) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("store: CreateOrder requires at least one line item")
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("store: CreateOrder invalid quantity %d for product %d", line.Quantity, line.ProductID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: CreateOrder failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	total := decimal.Zero
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		var price decimal.Decimal
		err := tx.QueryRowContext(ctx, decrementStockQuery, line.Quantity, line.ProductID).Scan(&price)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, s.classifyStockFailure(ctx, tx, line.ProductID)
			}
			return nil, fmt.Errorf("store: CreateOrder failed to decrement stock for product %d: %w", line.ProductID, err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt32(line.Quantity)))
		items = append(items, domain.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     price,
		})
	}

	orderQuery := `
		INSERT INTO orders (user_id, status, total)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at;
	`
	var order domain.Order
	order.UserID = userID
	order.Status = domain.OrderStatusPending
	order.Total = total
	err = tx.QueryRowContext(ctx, orderQuery, userID, domain.OrderStatusPending, total).Scan(
		&order.ID, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: CreateOrder failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`
	for i := range items {
		items[i].OrderID = order.ID
		err = tx.QueryRowContext(ctx, itemQuery, order.ID, items[i].ProductID, items[i].Quantity, items[i].Price).Scan(&items[i].ID)
		if err != nil {
			return nil, fmt.Errorf("store: CreateOrder failed to insert order item: %w", err)
		}
	}
	order.Items = items

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: CreateOrder failed to commit transaction: %w", err)
	}

	// Re-read outside the transaction for the joined product and user views.
	return s.GetOrderByID(ctx, order.ID, nil)
}

// classifyStockFailure distinguishes an unknown/inactive product from an
// insufficient-stock failure after the conditional update matched no rows.
func (s *PostgresStore) classifyStockFailure(ctx context.Context, tx *sql.Tx, productID int64) error {
	var exists bool
	checkQuery := `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1 AND is_active = TRUE);`
	if err := tx.QueryRowContext(ctx, checkQuery, productID).Scan(&exists); err != nil {
		return fmt.Errorf("store: CreateOrder failed to check product %d: %w", productID, err)
	}
	if !exists {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

const orderColumns = `o.id, o.user_id, o.status, o.total, o.created_at, o.updated_at,
			u.id, u.email, u.first_name, u.last_name`

func scanOrderWithUser(scanner interface{ Scan(...any) error }) (*domain.Order, error) {
	var o domain.Order
	var u domain.UserSummary
	err := scanner.Scan(
		&o.ID, &o.UserID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt,
		&u.ID, &u.Email, &u.FirstName, &u.LastName,
	)
	if err != nil {
		return nil, err
	}
	o.User = &u
	return &o, nil
}

// GetOrderByID returns the order with its items, product snapshots and the
// owner's minimal user projection. When userID is non-nil the lookup is
// scoped to that owner, so another user's order reads as not found.
func (s *PostgresStore) GetOrderByID(ctx context.Context, id int64, userID *int64) (*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1 AND ($2::bigint IS NULL OR o.user_id = $2);
	`
	order, err := scanOrderWithUser(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("store: GetOrderByID failed to scan row: %w", err)
	}

	itemsByOrder, err := s.loadOrderItems(ctx, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = itemsByOrder[order.ID]
	if order.Items == nil {
		order.Items = []domain.OrderItem{}
	}
	return order, nil
}

// ListOrders returns orders newest-first, optionally scoped to one user,
// each joined with items (and product snapshots) and the user projection.
func (s *PostgresStore) ListOrders(ctx context.Context, params ListOrdersParams) ([]domain.Order, int, error) {
	var queryArgs []interface{}
	var whereClauses []string
	argID := 1

	if params.UserID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("o.user_id = $%d", argID))
		queryArgs = append(queryArgs, *params.UserID)
		argID++
	}

	whereCondition := ""
	if len(whereClauses) > 0 {
		whereCondition = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM orders o" + whereCondition
	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery, queryArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListOrders failed to count orders: %w", err)
	}
	if totalCount == 0 {
		return []domain.Order{}, 0, nil
	}

	dataQuery := fmt.Sprintf(`SELECT `+orderColumns+`
		FROM orders o
		JOIN users u ON u.id = o.user_id%s
		ORDER BY o.created_at DESC
		LIMIT $%d OFFSET $%d`, whereCondition, argID, argID+1)
	finalArgs := append(queryArgs, params.Limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, dataQuery, finalArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListOrders failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, params.Limit)
	orderIDs := make([]int64, 0, params.Limit)
	for rows.Next() {
		o, err := scanOrderWithUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: ListOrders failed to scan order row: %w", err)
		}
		orders = append(orders, *o)
		orderIDs = append(orderIDs, o.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListOrders iteration error: %w", err)
	}

	itemsByOrder, err := s.loadOrderItems(ctx, orderIDs)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Items = itemsByOrder[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return orders, totalCount, nil
}

// loadOrderItems fetches the items of the given orders in one query, each
// joined with its product (and the product's category).
func (s *PostgresStore) loadOrderItems(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	if len(orderIDs) == 0 {
		return map[int64][]domain.OrderItem{}, nil
	}
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price,
			` + productColumns + `
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id ASC;
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("store: loadOrderItems failed to query items: %w", err)
	}
	defer rows.Close()

	itemsByOrder := make(map[int64][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var item domain.OrderItem
		var p domain.Product
		var c domain.Category
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Brand, &p.Model,
			&p.ImageURL, &p.CategoryID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
			&c.ID, &c.Name, &c.Description, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("store: loadOrderItems failed to scan item row: %w", err)
		}
		p.Category = &c
		item.Product = &p
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: loadOrderItems iteration error: %w", err)
	}
	return itemsByOrder, nil
}

// UpdateOrderStatus transitions an order along the forward-only status
// machine. A transition to CANCELLED restores the stock of every line item
// within the same transaction.
func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatusTransition
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: UpdateOrderStatus failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current domain.OrderStatus
	lockQuery := `SELECT status FROM orders WHERE id = $1 FOR UPDATE;`
	if err := tx.QueryRowContext(ctx, lockQuery, id).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("store: UpdateOrderStatus failed to lock order: %w", err)
	}
	if !current.CanTransitionTo(status) {
		return nil, ErrInvalidStatusTransition
	}

	updateQuery := `UPDATE orders SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2;`
	if _, err := tx.ExecContext(ctx, updateQuery, status, id); err != nil {
		return nil, fmt.Errorf("store: UpdateOrderStatus failed to update order: %w", err)
	}

	if status == domain.OrderStatusCancelled {
		if err := s.restoreOrderStock(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: UpdateOrderStatus failed to commit transaction: %w", err)
	}
	return s.GetOrderByID(ctx, id, nil)
}

// restoreOrderStock puts every line item's quantity back on the shelf.
func (s *PostgresStore) restoreOrderStock(ctx context.Context, tx *sql.Tx, orderID int64) error {
	itemsQuery := `SELECT product_id, quantity FROM order_items WHERE order_id = $1;`
	rows, err := tx.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		return fmt.Errorf("store: restoreOrderStock failed to query items: %w", err)
	}
	defer rows.Close()

	var restores []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return fmt.Errorf("store: restoreOrderStock failed to scan item row: %w", err)
		}
		restores = append(restores, line)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("store: restoreOrderStock iteration error: %w", err)
	}

	for _, line := range restores {
		if _, err := tx.ExecContext(ctx, restoreStockQuery, line.Quantity, line.ProductID); err != nil {
			return fmt.Errorf("store: restoreOrderStock failed to restore product %d: %w", line.ProductID, err)
		}
	}
	return nil
}

// DeleteOrder removes the order items first, then the order, in one
// transaction. Stock is not restored; cancel the order first when
// replenishment is intended.
func (s *PostgresStore) DeleteOrder(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: DeleteOrder failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	itemsQuery := `DELETE FROM order_items WHERE order_id = $1;`
	if _, err := tx.ExecContext(ctx, itemsQuery, id); err != nil {
		return fmt.Errorf("store: DeleteOrder failed to delete order items: %w", err)
	}

	orderQuery := `DELETE FROM orders WHERE id = $1;`
	result, err := tx.ExecContext(ctx, orderQuery, id)
	if err != nil {
		return fmt.Errorf("store: DeleteOrder failed to delete order: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteOrder failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}
	return tx.Commit()
}
