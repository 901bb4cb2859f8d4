package coupons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no coupon matches the given code or id.
var ErrNotFound = errors.New("coupon not found")

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	query := `
		SELECT id, code, title, COALESCE(description, ''), coupon_type, discount_value,
		       min_order_amount, max_discount_amount, usage_limit, used_count,
		       valid_from, valid_until, is_active, created_at
		FROM coupons
		WHERE code = $1
	`
	var coupon Coupon
	err := c.db.QueryRowContext(ctx, query, code).Scan(
		&coupon.ID, &coupon.Code, &coupon.Title, &coupon.Description, &coupon.CouponType,
		&coupon.DiscountValue, &coupon.MinOrderAmount, &coupon.MaxDiscountAmount,
		&coupon.UsageLimit, &coupon.UsedCount, &coupon.ValidFrom, &coupon.ValidUntil,
		&coupon.IsActive, &coupon.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}
	return &coupon, nil
}

func (c *Conf) Insert(ctx context.Context, nc NewCoupon) (Coupon, error) {
	query := `
		INSERT INTO coupons (code, title, description, coupon_type, discount_value,
		                     min_order_amount, max_discount_amount, usage_limit,
		                     valid_from, valid_until, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, NOW())
		RETURNING id, used_count, is_active, created_at
	`
	coupon := Coupon{
		Code:              nc.Code,
		Title:             nc.Title,
		Description:       nc.Description,
		CouponType:        nc.CouponType,
		DiscountValue:     nc.DiscountValue,
		MinOrderAmount:    nc.MinOrderAmount,
		MaxDiscountAmount: nc.MaxDiscountAmount,
		UsageLimit:        nc.UsageLimit,
		ValidFrom:         nc.ValidFrom,
		ValidUntil:        nc.ValidUntil,
	}
	err := c.db.QueryRowContext(ctx, query,
		nc.Code, nc.Title, nc.Description, nc.CouponType, nc.DiscountValue,
		nc.MinOrderAmount, nc.MaxDiscountAmount, nc.UsageLimit, nc.ValidFrom, nc.ValidUntil,
	).Scan(&coupon.ID, &coupon.UsedCount, &coupon.IsActive, &coupon.CreatedAt)
	if err != nil {
		return Coupon{}, fmt.Errorf("failed to insert coupon: %w", err)
	}
	return coupon, nil
}

func (c *Conf) List(ctx context.Context, activeOnly bool) ([]Coupon, error) {
	query := `
		SELECT id, code, title, COALESCE(description, ''), coupon_type, discount_value,
		       min_order_amount, max_discount_amount, usage_limit, used_count,
		       valid_from, valid_until, is_active, created_at
		FROM coupons
	`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query coupons: %w", err)
	}
	defer rows.Close()

	var list []Coupon
	for rows.Next() {
		var coupon Coupon
		if err := rows.Scan(
			&coupon.ID, &coupon.Code, &coupon.Title, &coupon.Description, &coupon.CouponType,
			&coupon.DiscountValue, &coupon.MinOrderAmount, &coupon.MaxDiscountAmount,
			&coupon.UsageLimit, &coupon.UsedCount, &coupon.ValidFrom, &coupon.ValidUntil,
			&coupon.IsActive, &coupon.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		list = append(list, coupon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}
	return list, nil
}

func (c *Conf) Deactivate(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `UPDATE coupons SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate coupon: %w", err)
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
