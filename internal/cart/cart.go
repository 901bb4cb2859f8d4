package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNoActiveCart is returned when the user has no active cart.
	ErrNoActiveCart = errors.New("no active cart")
	// ErrDifferentRestaurant is returned when an add targets a restaurant
	// other than the one the active cart is bound to. The cart is scoped to
	// exactly one restaurant; clients clear it before switching.
	ErrDifferentRestaurant = errors.New("active cart belongs to a different restaurant")
	// ErrLineNotFound is returned when a line id is not in the active cart.
	ErrLineNotFound = errors.New("cart line not found")
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// AddItem merges the item into the user's active cart. A new cart is created
// when none exists; an existing (food item, variant) line gains the quantity;
// otherwise a new line is appended with the captured unit price.
func (c *Conf) AddItem(ctx context.Context, userID, restaurantID, foodItemID string, variantID *string, quantity int, unitPrice int64, instructions string) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	return c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, cartRestaurant, err := activeCartForUpdate(ctx, tx, userID)
		if err != nil {
			if !errors.Is(err, ErrNoActiveCart) {
				return err
			}
			queryCreateCart := `
				INSERT INTO cart (user_id, restaurant_id, status, created_at, updated_at)
				VALUES ($1, $2, 'active', NOW(), NOW())
				RETURNING id
			`
			if err := tx.QueryRowContext(ctx, queryCreateCart, userID, restaurantID).Scan(&cartID); err != nil {
				return fmt.Errorf("failed to create new cart: %w", err)
			}
			cartRestaurant = restaurantID
		}
		if cartRestaurant != restaurantID {
			return ErrDifferentRestaurant
		}

		queryLine := `
			SELECT id, quantity
			FROM cart_items
			WHERE cart_id = $1 AND food_item_id = $2 AND variant_id IS NOT DISTINCT FROM $3
		`
		var lineID, existingQuantity int
		err = tx.QueryRowContext(ctx, queryLine, cartID, foodItemID, variantID).Scan(&lineID, &existingQuantity)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to query cart items: %w", err)
			}
			queryAddLine := `
				INSERT INTO cart_items (cart_id, food_item_id, variant_id, quantity, unit_price,
				                        special_instructions, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NOW(), NOW())
			`
			if _, err := tx.ExecContext(ctx, queryAddLine, cartID, foodItemID, variantID, quantity, unitPrice, instructions); err != nil {
				return fmt.Errorf("failed to add item to cart: %w", err)
			}
		} else {
			queryUpdateLine := `
				UPDATE cart_items
				SET quantity = $1, updated_at = NOW()
				WHERE id = $2
			`
			if _, err := tx.ExecContext(ctx, queryUpdateLine, existingQuantity+quantity, lineID); err != nil {
				return fmt.Errorf("failed to update cart item quantity: %w", err)
			}
		}

		return touchCart(ctx, tx, cartID)
	})
}

// UpdateQuantity sets a line's quantity; zero or negative removes the line.
func (c *Conf) UpdateQuantity(ctx context.Context, userID string, lineID int, quantity int) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, _, err := activeCartForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}

		var res sql.Result
		if quantity <= 0 {
			res, err = tx.ExecContext(ctx,
				`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, lineID, cartID)
		} else {
			res, err = tx.ExecContext(ctx,
				`UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2 AND cart_id = $3`,
				quantity, lineID, cartID)
		}
		if err != nil {
			return fmt.Errorf("failed to update cart line: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			return ErrLineNotFound
		}
		return touchCart(ctx, tx, cartID)
	})
}

// RemoveItem deletes one line from the active cart.
func (c *Conf) RemoveItem(ctx context.Context, userID string, lineID int) error {
	return c.UpdateQuantity(ctx, userID, lineID, 0)
}

// SetCoupon records the applied code on the active cart. Validation happens
// before this is called; the stored code is revalidated at checkout.
func (c *Conf) SetCoupon(ctx context.Context, userID string, code *string) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, _, err := activeCartForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE cart SET coupon_code = $1, updated_at = NOW() WHERE id = $2`, code, cartID); err != nil {
			return fmt.Errorf("failed to set coupon: %w", err)
		}
		return nil
	})
}

// Clear destroys the active cart and its lines.
func (c *Conf) Clear(ctx context.Context, userID string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM cart WHERE user_id = $1 AND status = 'active'`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNoActiveCart
	}
	return nil
}

// GetActive returns the user's active cart with its lines.
func (c *Conf) GetActive(ctx context.Context, userID string) (*Summary, error) {
	var summary Summary

	err := c.withTx(ctx, func(tx *sql.Tx) error {
		queryActiveCart := `
			SELECT id, restaurant_id, coupon_code
			FROM cart
			WHERE user_id = $1 AND status = 'active'
		`
		err := tx.QueryRowContext(ctx, queryActiveCart, userID).
			Scan(&summary.CartID, &summary.RestaurantID, &summary.CouponCode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNoActiveCart
			}
			return fmt.Errorf("failed to query active cart: %w", err)
		}

		queryItems := `
			SELECT id, food_item_id, variant_id, quantity, unit_price,
			       COALESCE(special_instructions, '')
			FROM cart_items
			WHERE cart_id = $1
			ORDER BY id
		`
		rows, err := tx.QueryContext(ctx, queryItems, summary.CartID)
		if err != nil {
			return fmt.Errorf("failed to query cart items: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var line Line
			if err := rows.Scan(&line.ID, &line.FoodItemID, &line.VariantID, &line.Quantity,
				&line.UnitPrice, &line.SpecialInstructions); err != nil {
				return fmt.Errorf("failed to scan cart item: %w", err)
			}
			line.TotalPrice = line.UnitPrice * int64(line.Quantity)
			summary.Lines = append(summary.Lines, line)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating cart items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func activeCartForUpdate(ctx context.Context, tx *sql.Tx, userID string) (int, string, error) {
	query := `
		SELECT id, restaurant_id
		FROM cart
		WHERE user_id = $1 AND status = 'active'
		FOR UPDATE
	`
	var cartID int
	var restaurantID string
	err := tx.QueryRowContext(ctx, query, userID).Scan(&cartID, &restaurantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", ErrNoActiveCart
		}
		return 0, "", fmt.Errorf("failed to query active cart: %w", err)
	}
	return cartID, restaurantID, nil
}

func touchCart(ctx context.Context, tx *sql.Tx, cartID int) error {
	if _, err := tx.ExecContext(ctx, `UPDATE cart SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
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
