package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/fish-segments/internal/allocation"
	"github.com/safar/fish-segments/internal/models"
)

const orderColumns = `id, order_number, user_id, fish_id, segment_ids, total_weight_kg, total_price,
	customer_name, customer_email, customer_phone, delivery_address, delivery_date,
	status, created_at, updated_at, version`

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	var (
		segmentIDs     pq.Int64Array
		phone, address sql.NullString
		deliveryDate   sql.NullTime
		status         string
	)
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.FishID,
		&segmentIDs,
		&o.TotalWeightKg,
		&o.TotalPrice,
		&o.Name,
		&o.Email,
		&phone,
		&address,
		&deliveryDate,
		&status,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.Version,
	)
	if err != nil {
		return nil, err
	}

	o.SegmentIDs = []int64(segmentIDs)
	o.Phone = phone.String
	o.DeliveryAddress = address.String
	if deliveryDate.Valid {
		d := deliveryDate.Time
		o.DeliveryDate = &d
	}
	o.Status = models.ParseOrderStatus(status)
	return o, nil
}

func insertOrder(ctx context.Context, q querier, o *models.Order) error {
	err := q.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, user_id, fish_id, segment_ids, total_weight_kg, total_price,
		                     customer_name, customer_email, customer_phone, delivery_address, delivery_date,
		                     status, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW(), 1)
		 RETURNING id, created_at, updated_at, version`,
		o.OrderNumber,
		o.UserID,
		o.FishID,
		pq.Array(o.SegmentIDs),
		o.TotalWeightKg,
		o.TotalPrice,
		o.Name,
		o.Email,
		nullString(o.Phone),
		nullString(o.DeliveryAddress),
		o.DeliveryDate,
		o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt, &o.Version)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (p *Postgres) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	o, err := scanOrder(p.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, allocation.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (p *Postgres) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return p.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`,
		userID)
}

func (p *Postgres) ListOrdersByUserBefore(ctx context.Context, userID string, cursor *allocation.OrderCursor, limit int) ([]models.Order, error) {
	if cursor == nil {
		return p.queryOrders(ctx, `
			SELECT `+orderColumns+`
			FROM orders
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`,
			userID, limit)
	}

	return p.queryOrders(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`,
		userID, cursor.CreatedAt, cursor.ID, limit)
}

func (p *Postgres) queryOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

func (p *Postgres) UpdateOrderStatus(ctx context.Context, orderID int64, from, to models.OrderStatus, version int) (*models.Order, error) {
	o, err := scanOrder(p.db.QueryRowContext(ctx,
		`UPDATE orders
		 SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND status = $3 AND version = $4
		 RETURNING `+orderColumns,
		to, orderID, from, version))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	var exists bool
	if err := p.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)", orderID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return nil, allocation.ErrOrderNotFound
	}
	return nil, allocation.ErrOptimisticLockFailed
}
