package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrVariantDefault is returned when an item's variants do not carry exactly
// one default.
var ErrVariantDefault = errors.New("exactly one variant must be marked default")

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

func (c *Conf) InsertRestaurant(ctx context.Context, ownerID string, nr NewRestaurant) (Restaurant, error) {
	query := `
		INSERT INTO restaurants (owner_id, name, description, phone, email, address_line1,
		                         address_line2, city, state, postal_code, cuisine_type,
		                         avg_delivery_time, min_order_amount, delivery_fee,
		                         created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING ` + restaurantColumns
	r, err := scanRestaurant(c.db.QueryRowContext(ctx, query,
		ownerID, nr.Name, nr.Description, nr.Phone, nr.Email, nr.AddressLine1,
		nr.AddressLine2, nr.City, nr.State, nr.PostalCode, nr.CuisineType,
		nr.AvgDeliveryTime, nr.MinOrderAmount, nr.DeliveryFee,
	))
	if err != nil {
		return Restaurant{}, fmt.Errorf("failed to insert restaurant: %w", err)
	}
	return r, nil
}

func (c *Conf) UpdateRestaurant(ctx context.Context, id string, nr NewRestaurant) (Restaurant, error) {
	query := `
		UPDATE restaurants
		SET name = $2, description = $3, phone = $4, email = $5, address_line1 = $6,
		    address_line2 = $7, city = $8, state = $9, postal_code = $10,
		    cuisine_type = $11, avg_delivery_time = $12, min_order_amount = $13,
		    delivery_fee = $14, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + restaurantColumns
	r, err := scanRestaurant(c.db.QueryRowContext(ctx, query,
		id, nr.Name, nr.Description, nr.Phone, nr.Email, nr.AddressLine1,
		nr.AddressLine2, nr.City, nr.State, nr.PostalCode, nr.CuisineType,
		nr.AvgDeliveryTime, nr.MinOrderAmount, nr.DeliveryFee,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Restaurant{}, ErrNotFound
		}
		return Restaurant{}, fmt.Errorf("failed to update restaurant: %w", err)
	}
	return r, nil
}

// InsertFoodItem creates the item and its variants in one transaction. When
// variants are present exactly one must be the default.
func (c *Conf) InsertFoodItem(ctx context.Context, restaurantID string, ni NewFoodItem) (FoodItem, error) {
	if err := checkDefaultVariant(ni.Variants); err != nil {
		return FoodItem{}, err
	}

	var item FoodItem
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO food_items (restaurant_id, category_id, name, description, price,
			                        discount_price, is_veg, sort_order, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			RETURNING id, restaurant_id, category_id, name, COALESCE(description, ''), price,
			          discount_price, is_veg, status, sort_order, created_at, updated_at
		`
		err := tx.QueryRowContext(ctx, query,
			restaurantID, ni.CategoryID, ni.Name, ni.Description, ni.Price,
			ni.DiscountPrice, ni.IsVeg, ni.SortOrder,
		).Scan(
			&item.ID, &item.RestaurantID, &item.CategoryID, &item.Name, &item.Description,
			&item.Price, &item.DiscountPrice, &item.IsVeg, &item.Status, &item.SortOrder,
			&item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert food item: %w", err)
		}

		for _, nv := range ni.Variants {
			variantQuery := `
				INSERT INTO food_variants (food_item_id, name, price_adjustment, is_default, created_at)
				VALUES ($1, $2, $3, $4, NOW())
				RETURNING id, food_item_id, name, price_adjustment, is_default, created_at
			`
			var v Variant
			err := tx.QueryRowContext(ctx, variantQuery, item.ID, nv.Name, nv.PriceAdjustment, nv.IsDefault).
				Scan(&v.ID, &v.FoodItemID, &v.Name, &v.PriceAdjustment, &v.IsDefault, &v.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert variant: %w", err)
			}
			item.Variants = append(item.Variants, v)
		}
		return nil
	})
	if err != nil {
		return FoodItem{}, err
	}
	return item, nil
}

// UpdateFoodItem rewrites the item fields and replaces its variants.
func (c *Conf) UpdateFoodItem(ctx context.Context, id string, ni NewFoodItem) (FoodItem, error) {
	if err := checkDefaultVariant(ni.Variants); err != nil {
		return FoodItem{}, err
	}

	var item FoodItem
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE food_items
			SET category_id = $2, name = $3, description = $4, price = $5,
			    discount_price = $6, is_veg = $7, sort_order = $8, updated_at = NOW()
			WHERE id = $1
			RETURNING id, restaurant_id, category_id, name, COALESCE(description, ''), price,
			          discount_price, is_veg, status, sort_order, created_at, updated_at
		`
		err := tx.QueryRowContext(ctx, query,
			id, ni.CategoryID, ni.Name, ni.Description, ni.Price,
			ni.DiscountPrice, ni.IsVeg, ni.SortOrder,
		).Scan(
			&item.ID, &item.RestaurantID, &item.CategoryID, &item.Name, &item.Description,
			&item.Price, &item.DiscountPrice, &item.IsVeg, &item.Status, &item.SortOrder,
			&item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to update food item: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM food_variants WHERE food_item_id = $1`, id); err != nil {
			return fmt.Errorf("failed to clear variants: %w", err)
		}
		for _, nv := range ni.Variants {
			variantQuery := `
				INSERT INTO food_variants (food_item_id, name, price_adjustment, is_default, created_at)
				VALUES ($1, $2, $3, $4, NOW())
				RETURNING id, food_item_id, name, price_adjustment, is_default, created_at
			`
			var v Variant
			err := tx.QueryRowContext(ctx, variantQuery, id, nv.Name, nv.PriceAdjustment, nv.IsDefault).
				Scan(&v.ID, &v.FoodItemID, &v.Name, &v.PriceAdjustment, &v.IsDefault, &v.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert variant: %w", err)
			}
			item.Variants = append(item.Variants, v)
		}
		return nil
	})
	if err != nil {
		return FoodItem{}, err
	}
	return item, nil
}

func (c *Conf) DeleteFoodItem(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM food_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete food item: %w", err)
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

func (c *Conf) SetFoodItemStatus(ctx context.Context, id string, status string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE food_items SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to set food item status: %w", err)
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

func checkDefaultVariant(variants []NewVariant) error {
	if len(variants) == 0 {
		return nil
	}
	defaults := 0
	for _, v := range variants {
		if v.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		return ErrVariantDefault
	}
	return nil
}
