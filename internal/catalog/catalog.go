package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned for missing restaurants, items, or variants.
// Callers render an empty state; this is never treated as fatal.
var ErrNotFound = errors.New("not found")

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

const restaurantColumns = `
	id, COALESCE(owner_id::text, ''), name, COALESCE(description, ''), phone,
	COALESCE(email, ''), address_line1, COALESCE(address_line2, ''), city, state,
	postal_code, COALESCE(cuisine_type, ''), avg_delivery_time, min_order_amount,
	delivery_fee, rating, total_ratings, status, is_open, created_at, updated_at
`

func scanRestaurant(row interface{ Scan(...any) error }) (Restaurant, error) {
	var r Restaurant
	err := row.Scan(
		&r.ID, &r.OwnerID, &r.Name, &r.Description, &r.Phone, &r.Email,
		&r.AddressLine1, &r.AddressLine2, &r.City, &r.State, &r.PostalCode,
		&r.CuisineType, &r.AvgDeliveryTime, &r.MinOrderAmount, &r.DeliveryFee,
		&r.Rating, &r.TotalRatings, &r.Status, &r.IsOpen, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func (c *Conf) GetRestaurantByID(ctx context.Context, id string) (Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = $1`
	r, err := scanRestaurant(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Restaurant{}, ErrNotFound
		}
		return Restaurant{}, fmt.Errorf("failed to query restaurant: %w", err)
	}
	return r, nil
}

// ListRestaurants returns active restaurants matching the filters, paginated
// and sorted by a whitelisted column.
func (c *Conf) ListRestaurants(ctx context.Context, filters ListFilters, limit, offset int, sort, order string) ([]Restaurant, error) {
	sortColumns := map[string]string{
		"name":         "name",
		"rating":       "rating",
		"delivery_fee": "delivery_fee",
		"created_at":   "created_at",
	}
	column, ok := sortColumns[sort]
	if !ok {
		column = "name"
	}
	direction := "ASC"
	if strings.EqualFold(order, "desc") {
		direction = "DESC"
	}

	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE status = 'active'`
	args := []any{}
	if filters.Name != "" {
		args = append(args, "%"+filters.Name+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if filters.CuisineType != "" {
		args = append(args, filters.CuisineType)
		query += fmt.Sprintf(" AND cuisine_type = $%d", len(args))
	}
	if filters.City != "" {
		args = append(args, filters.City)
		query += fmt.Sprintf(" AND city = $%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY %s %s LIMIT $%d OFFSET $%d", column, direction, len(args)-1, len(args))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query restaurants: %w", err)
	}
	defer rows.Close()

	var list []Restaurant
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating restaurants: %w", err)
	}
	return list, nil
}

func (c *Conf) ListCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), is_active, sort_order, created_at
		FROM categories
		WHERE is_active
		ORDER BY sort_order, name
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var list []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Description, &cat.IsActive, &cat.SortOrder, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		list = append(list, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return list, nil
}

// GetMenu returns the restaurant with its categories and items, variants
// included.
func (c *Conf) GetMenu(ctx context.Context, restaurantID string) (MenuResponse, error) {
	restaurant, err := c.GetRestaurantByID(ctx, restaurantID)
	if err != nil {
		return MenuResponse{}, err
	}

	items, err := c.ListItemsForRestaurant(ctx, restaurantID)
	if err != nil {
		return MenuResponse{}, err
	}

	categories, err := c.ListCategories(ctx)
	if err != nil {
		return MenuResponse{}, err
	}

	return MenuResponse{Restaurant: restaurant, Categories: categories, Items: items}, nil
}

func (c *Conf) ListItemsForRestaurant(ctx context.Context, restaurantID string) ([]FoodItem, error) {
	query := `
		SELECT id, restaurant_id, category_id, name, COALESCE(description, ''), price,
		       discount_price, is_veg, status, sort_order, created_at, updated_at
		FROM food_items
		WHERE restaurant_id = $1
		ORDER BY sort_order, name
	`
	rows, err := c.db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query food items: %w", err)
	}
	defer rows.Close()

	var items []FoodItem
	index := map[string]int{}
	for rows.Next() {
		var item FoodItem
		if err := rows.Scan(
			&item.ID, &item.RestaurantID, &item.CategoryID, &item.Name, &item.Description,
			&item.Price, &item.DiscountPrice, &item.IsVeg, &item.Status, &item.SortOrder,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan food item: %w", err)
		}
		index[item.ID] = len(items)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food items: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	variantQuery := `
		SELECT v.id, v.food_item_id, v.name, v.price_adjustment, v.is_default, v.created_at
		FROM food_variants v
		JOIN food_items i ON i.id = v.food_item_id
		WHERE i.restaurant_id = $1
		ORDER BY v.created_at
	`
	variantRows, err := c.db.QueryContext(ctx, variantQuery, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer variantRows.Close()

	for variantRows.Next() {
		var v Variant
		if err := variantRows.Scan(&v.ID, &v.FoodItemID, &v.Name, &v.PriceAdjustment, &v.IsDefault, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		if i, ok := index[v.FoodItemID]; ok {
			items[i].Variants = append(items[i].Variants, v)
		}
	}
	if err := variantRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}
	return items, nil
}

// GetFoodItem returns one item with its variants.
func (c *Conf) GetFoodItem(ctx context.Context, id string) (FoodItem, error) {
	query := `
		SELECT id, restaurant_id, category_id, name, COALESCE(description, ''), price,
		       discount_price, is_veg, status, sort_order, created_at, updated_at
		FROM food_items
		WHERE id = $1
	`
	var item FoodItem
	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.RestaurantID, &item.CategoryID, &item.Name, &item.Description,
		&item.Price, &item.DiscountPrice, &item.IsVeg, &item.Status, &item.SortOrder,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FoodItem{}, ErrNotFound
		}
		return FoodItem{}, fmt.Errorf("failed to query food item: %w", err)
	}

	variantQuery := `
		SELECT id, food_item_id, name, price_adjustment, is_default, created_at
		FROM food_variants
		WHERE food_item_id = $1
		ORDER BY created_at
	`
	rows, err := c.db.QueryContext(ctx, variantQuery, id)
	if err != nil {
		return FoodItem{}, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.FoodItemID, &v.Name, &v.PriceAdjustment, &v.IsDefault, &v.CreatedAt); err != nil {
			return FoodItem{}, fmt.Errorf("failed to scan variant: %w", err)
		}
		item.Variants = append(item.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return FoodItem{}, fmt.Errorf("error iterating variants: %w", err)
	}
	return item, nil
}
