package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

// OrderRepository stores orders in PostgreSQL. Identifiers are UUIDs.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Version 7 ids sort by creation time and break created_at ties in List.
	v7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	id := v7.String()

	// TIMESTAMPTZ holds microseconds.
	order.CreatedAt = order.CreatedAt.Truncate(time.Microsecond)
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	order.UpdatedAt = order.UpdatedAt.Truncate(time.Microsecond)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, status, total, delivery_name, delivery_address, delivery_phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, order.Status, order.Total,
		order.DeliveryDetails.Name, order.DeliveryDetails.Address, order.DeliveryDetails.Phone,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, position, item_id, name, price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New().String(), id, i, item.ItemID, item.Name, item.Price, item.Quantity)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	order.ID = id
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvalidID
	}

	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, status, total, delivery_name, delivery_address, delivery_phone, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(scanTargets(order)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, name, price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ItemID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// AdvanceStatus moves the order to status only when its current status ranks
// below it. It reports whether the row changed; a missing order yields
// domain.ErrNotFound.
func (r *OrderRepository) AdvanceStatus(ctx context.Context, id string, status domain.OrderStatus) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, domain.ErrInvalidID
	}

	prior := status.Before()
	if len(prior) == 0 {
		return false, nil
	}

	from := make([]string, len(prior))
	for i, st := range prior {
		from[i] = string(st)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)
	`, status, time.Now().UTC(), id, pq.Array(from))
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if rowsAffected > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrNotFound
	}

	return false, nil
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, status, total, delivery_name, delivery_address, delivery_phone, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC, id DESC
	`)
}

// ListUnfinished returns orders that have not reached the terminal status,
// oldest first.
func (r *OrderRepository) ListUnfinished(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, status, total, delivery_name, delivery_address, delivery_phone, created_at, updated_at
		FROM orders
		WHERE status <> $1
		ORDER BY created_at ASC, id ASC
	`, domain.OrderStatusDelivered)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		order := &domain.Order{}
		if err := rows.Scan(scanTargets(order)...); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, item_id, name, price, quantity
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ItemID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func scanTargets(o *domain.Order) []any {
	return []any{
		&o.ID, &o.Status, &o.Total,
		&o.DeliveryDetails.Name, &o.DeliveryDetails.Address, &o.DeliveryDetails.Phone,
		&o.CreatedAt, &o.UpdatedAt,
	}
}
