package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when no order matches the given id.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyCart is returned when checkout is attempted with no lines.
	ErrEmptyCart = errors.New("cannot create an order from an empty cart")
	// ErrReasonRequired is returned when a cancellation carries no reason.
	ErrReasonRequired = errors.New("cancellation reason is required")
	// ErrNotRefundable is returned when a refund is requested for an order
	// whose payment was never captured.
	ErrNotRefundable = errors.New("order payment was not captured")
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

const orderColumns = `
	id, order_number, customer_id, restaurant_id, delivery_partner_id::text,
	delivery_address_id, subtotal, tax_amount, delivery_fee, discount_amount,
	total_amount, coupon_code, payment_method, payment_status, payment_id,
	order_status, COALESCE(special_instructions, ''), COALESCE(cancellation_reason, ''),
	created_at, updated_at
`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.RestaurantID, &o.DeliveryPartnerID,
		&o.DeliveryAddressID, &o.Subtotal, &o.TaxAmount, &o.DeliveryFee, &o.DiscountAmount,
		&o.TotalAmount, &o.CouponCode, &o.PaymentMethod, &o.PaymentStatus, &o.PaymentID,
		&o.OrderStatus, &o.SpecialInstructions, &o.CancellationReason, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// CreateOrder snapshots the cart into an immutable order: inserts the order
// and its items, writes the initial tracking row, marks the cart checked out,
// and counts the coupon use, all in one transaction. A repeated idempotency
// key returns the originally created order instead of a duplicate.
func (c *Conf) CreateOrder(ctx context.Context, p CreateOrderParams) (Order, error) {
	if len(p.Items) == 0 {
		return Order{}, ErrEmptyCart
	}

	if p.IdempotencyKey != nil {
		existing, err := c.GetByIdempotencyKey(ctx, *p.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Order{}, err
		}
	}

	var order Order
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		queryOrder := `
			INSERT INTO orders (id, order_number, customer_id, restaurant_id, delivery_address_id,
			                    subtotal, tax_amount, delivery_fee, discount_amount, total_amount,
			                    coupon_code, payment_method, payment_status, order_status,
			                    special_instructions, idempotency_key, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			        NULLIF($15, ''), $16, NOW(), NOW())
			RETURNING ` + orderColumns
		var err error
		order, err = scanOrder(tx.QueryRowContext(ctx, queryOrder,
			p.ID, p.OrderNumber, p.CustomerID, p.RestaurantID, p.DeliveryAddressID,
			p.Breakdown.Subtotal, p.Breakdown.TaxAmount, p.Breakdown.DeliveryFee,
			p.Breakdown.DiscountAmount, p.Breakdown.TotalAmount,
			p.CouponCode, p.PaymentMethod, PaymentPending, StatusPending,
			p.SpecialInstructions, p.IdempotencyKey,
		))
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for _, item := range p.Items {
			queryItem := `
				INSERT INTO order_items (order_id, food_item_id, variant_id, quantity, unit_price,
				                         total_price, special_instructions, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NOW())
			`
			total := item.UnitPrice * int64(item.Quantity)
			if _, err := tx.ExecContext(ctx, queryItem, order.ID, item.FoodItemID, item.VariantID,
				item.Quantity, item.UnitPrice, total, item.SpecialInstructions); err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
		}

		if err := insertTracking(ctx, tx, order.ID, StatusPending, &p.CustomerID, nil, nil, nil); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE cart SET status = 'checked_out', updated_at = NOW() WHERE id = $1`, p.CartID); err != nil {
			return fmt.Errorf("failed to mark cart checked out: %w", err)
		}

		if p.CouponCode != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE coupons SET used_count = used_count + 1 WHERE code = $1`, *p.CouponCode); err != nil {
				return fmt.Errorf("failed to count coupon use: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		// A concurrent retry with the same key can slip past the pre-check;
		// the unique constraint then decides the race and the winner's order
		// is the answer.
		if p.IdempotencyKey != nil && isIdempotencyKeyConflict(err) {
			return c.GetByIdempotencyKey(ctx, *p.IdempotencyKey)
		}
		return Order{}, err
	}
	return order, nil
}

// 23505 is the Postgres unique_violation class.
func isIdempotencyKeyConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		strings.Contains(pgErr.ConstraintName, "idempotency")
}

// UpdateStatus applies one transition. The source state is read under lock
// and the move is validated before anything changes; an illegal move returns
// InvalidTransitionError and leaves the order untouched.
func (c *Conf) UpdateStatus(ctx context.Context, orderID string, to Status, changedBy string, latitude, longitude *float64, notes *string) (Order, error) {
	var order Order
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		from, err := statusForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !from.CanTransitionTo(to) {
			return &InvalidTransitionError{From: from, To: to}
		}

		order, err = scanOrder(tx.QueryRowContext(ctx,
			`UPDATE orders SET order_status = $2, updated_at = NOW() WHERE id = $1 RETURNING `+orderColumns,
			orderID, to))
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return insertTracking(ctx, tx, orderID, to, &changedBy, latitude, longitude, notes)
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// Cancel moves a non-terminal order to cancelled with a required reason.
func (c *Conf) Cancel(ctx context.Context, orderID string, changedBy string, reason string) (Order, error) {
	if reason == "" {
		return Order{}, ErrReasonRequired
	}

	var order Order
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		from, err := statusForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !from.CanTransitionTo(StatusCancelled) {
			return &InvalidTransitionError{From: from, To: StatusCancelled}
		}

		order, err = scanOrder(tx.QueryRowContext(ctx, `
			UPDATE orders
			SET order_status = $2, cancellation_reason = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING `+orderColumns,
			orderID, StatusCancelled, reason))
		if err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		return insertTracking(ctx, tx, orderID, StatusCancelled, &changedBy, nil, nil, &reason)
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// MarkPaid records the captured payment.
func (c *Conf) MarkPaid(ctx context.Context, orderID string, paymentID string) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $2, payment_id = $3, updated_at = NOW()
		WHERE id = $1
	`, orderID, PaymentPaid, paymentID)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRefunded moves a cancelled, paid order to refunded.
func (c *Conf) MarkRefunded(ctx context.Context, orderID string, changedBy string) (Order, error) {
	var order Order
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		var from Status
		var paymentStatus string
		err := tx.QueryRowContext(ctx,
			`SELECT order_status, payment_status FROM orders WHERE id = $1 FOR UPDATE`, orderID).
			Scan(&from, &paymentStatus)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to query order: %w", err)
		}
		if !from.CanTransitionTo(StatusRefunded) {
			return &InvalidTransitionError{From: from, To: StatusRefunded}
		}
		if paymentStatus != PaymentPaid {
			return ErrNotRefundable
		}

		order, err = scanOrder(tx.QueryRowContext(ctx, `
			UPDATE orders
			SET order_status = $2, payment_status = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING `+orderColumns,
			orderID, StatusRefunded, PaymentRefunded))
		if err != nil {
			return fmt.Errorf("failed to refund order: %w", err)
		}
		return insertTracking(ctx, tx, orderID, StatusRefunded, &changedBy, nil, nil, nil)
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// AssignDeliveryPartner sets the partner on an order headed for pickup.
func (c *Conf) AssignDeliveryPartner(ctx context.Context, orderID string, partnerID string) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE orders
		SET delivery_partner_id = $2, updated_at = NOW()
		WHERE id = $1 AND order_status NOT IN ($3, $4, $5)
	`, orderID, partnerID, StatusDelivered, StatusCancelled, StatusRefunded)
	if err != nil {
		return fmt.Errorf("failed to assign delivery partner: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Conf) GetOrder(ctx context.Context, orderID string) (Order, error) {
	order, err := scanOrder(c.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("failed to query order: %w", err)
	}

	if order.Items, err = c.listItems(ctx, orderID); err != nil {
		return Order{}, err
	}
	if order.Tracking, err = c.listTracking(ctx, orderID); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (c *Conf) GetByIdempotencyKey(ctx context.Context, key string) (Order, error) {
	order, err := scanOrder(c.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("failed to query order by idempotency key: %w", err)
	}
	if order.Items, err = c.listItems(ctx, order.ID); err != nil {
		return Order{}, err
	}
	return order, nil
}

// ListForCustomer returns the customer's order history, newest first.
func (c *Conf) ListForCustomer(ctx context.Context, customerID string, limit, offset int) ([]Order, error) {
	return c.list(ctx, `customer_id`, customerID, limit, offset)
}

func (c *Conf) ListForRestaurant(ctx context.Context, restaurantID string, limit, offset int) ([]Order, error) {
	return c.list(ctx, `restaurant_id`, restaurantID, limit, offset)
}

func (c *Conf) ListForPartner(ctx context.Context, partnerID string, limit, offset int) ([]Order, error) {
	return c.list(ctx, `delivery_partner_id`, partnerID, limit, offset)
}

func (c *Conf) list(ctx context.Context, column string, id string, limit, offset int) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + column + ` = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := c.db.QueryContext(ctx, query, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return list, nil
}

func (c *Conf) listItems(ctx context.Context, orderID string) ([]Item, error) {
	query := `
		SELECT id, order_id, food_item_id, variant_id, quantity, unit_price, total_price,
		       COALESCE(special_instructions, '')
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.FoodItemID, &item.VariantID,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.SpecialInstructions); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}

func (c *Conf) listTracking(ctx context.Context, orderID string) ([]Tracking, error) {
	query := `
		SELECT id, order_id, status, changed_by::text, latitude, longitude, notes, created_at
		FROM order_tracking
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order tracking: %w", err)
	}
	defer rows.Close()

	var tracking []Tracking
	for rows.Next() {
		var t Tracking
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Status, &t.ChangedBy,
			&t.Latitude, &t.Longitude, &t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tracking row: %w", err)
		}
		tracking = append(tracking, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracking rows: %w", err)
	}
	return tracking, nil
}

func statusForUpdate(ctx context.Context, tx *sql.Tx, orderID string) (Status, error) {
	var from Status
	err := tx.QueryRowContext(ctx,
		`SELECT order_status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&from)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to query order: %w", err)
	}
	return from, nil
}

func insertTracking(ctx context.Context, tx *sql.Tx, orderID string, status Status, changedBy *string, latitude, longitude *float64, notes *string) error {
	query := `
		INSERT INTO order_tracking (order_id, status, changed_by, latitude, longitude, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	if _, err := tx.ExecContext(ctx, query, orderID, status, changedBy, latitude, longitude, notes); err != nil {
		return fmt.Errorf("failed to insert tracking row: %w", err)
	}
	return nil
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		er := tx.Rollback()
		if er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}
