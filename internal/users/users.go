package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound is returned when no user or address matches.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// login failures do not reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
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

// InsertUser creates the account with a bcrypt-hashed password.
func (c *Conf) InsertUser(ctx context.Context, nu NewUser) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	var exists bool
	if err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, nu.Email).Scan(&exists); err != nil {
		return User{}, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return User{}, ErrDuplicateEmail
	}

	query := `
		INSERT INTO users (name, email, phone, password_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, name, email, phone, roles, created_at, updated_at
	`
	var user User
	err = c.db.QueryRowContext(ctx, query, nu.Name, nu.Email, nu.Phone, string(hash), rolesArray(nu.Role)).
		Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &rolesScanner{&user.Roles},
			&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// Authenticate checks the password and returns the user on success.
func (c *Conf) Authenticate(ctx context.Context, email, password string) (User, error) {
	query := `
		SELECT id, name, email, phone, password_hash, roles,
		       COALESCE(stripe_customer_id, ''), created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var user User
	var hash string
	err := c.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &hash, &rolesScanner{&user.Roles},
			&user.StripeCustomerID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("failed to query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (c *Conf) GetUserByID(ctx context.Context, id string) (User, error) {
	query := `
		SELECT id, name, email, phone, roles, COALESCE(stripe_customer_id, ''),
		       created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user User
	err := c.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &rolesScanner{&user.Roles},
			&user.StripeCustomerID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// SetStripeCustomerID stores the Stripe customer created after signup.
func (c *Conf) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE users SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`,
		userID, customerID)
	if err != nil {
		return fmt.Errorf("failed to set stripe customer id: %w", err)
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

func (c *Conf) InsertAddress(ctx context.Context, userID string, na NewAddress) (Address, error) {
	query := `
		INSERT INTO addresses (user_id, label, address_line1, address_line2, city, state,
		                       postal_code, latitude, longitude, is_default, created_at)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, user_id, COALESCE(label, ''), address_line1, COALESCE(address_line2, ''),
		          city, state, postal_code, latitude, longitude, is_default, created_at
	`
	var addr Address
	err := c.db.QueryRowContext(ctx, query, userID, na.Label, na.AddressLine1, na.AddressLine2,
		na.City, na.State, na.PostalCode, na.Latitude, na.Longitude, na.IsDefault).
		Scan(&addr.ID, &addr.UserID, &addr.Label, &addr.AddressLine1, &addr.AddressLine2,
			&addr.City, &addr.State, &addr.PostalCode, &addr.Latitude, &addr.Longitude,
			&addr.IsDefault, &addr.CreatedAt)
	if err != nil {
		return Address{}, fmt.Errorf("failed to insert address: %w", err)
	}
	return addr, nil
}

func (c *Conf) ListAddresses(ctx context.Context, userID string) ([]Address, error) {
	query := `
		SELECT id, user_id, COALESCE(label, ''), address_line1, COALESCE(address_line2, ''),
		       city, state, postal_code, latitude, longitude, is_default, created_at
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at
	`
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var list []Address
	for rows.Next() {
		var addr Address
		if err := rows.Scan(&addr.ID, &addr.UserID, &addr.Label, &addr.AddressLine1,
			&addr.AddressLine2, &addr.City, &addr.State, &addr.PostalCode,
			&addr.Latitude, &addr.Longitude, &addr.IsDefault, &addr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		list = append(list, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}
	return list, nil
}

// GetAddress returns the address only when it belongs to the user; checkout
// uses this to validate the delivery address id.
func (c *Conf) GetAddress(ctx context.Context, userID, addressID string) (Address, error) {
	query := `
		SELECT id, user_id, COALESCE(label, ''), address_line1, COALESCE(address_line2, ''),
		       city, state, postal_code, latitude, longitude, is_default, created_at
		FROM addresses
		WHERE id = $1 AND user_id = $2
	`
	var addr Address
	err := c.db.QueryRowContext(ctx, query, addressID, userID).
		Scan(&addr.ID, &addr.UserID, &addr.Label, &addr.AddressLine1, &addr.AddressLine2,
			&addr.City, &addr.State, &addr.PostalCode, &addr.Latitude, &addr.Longitude,
			&addr.IsDefault, &addr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Address{}, ErrNotFound
		}
		return Address{}, fmt.Errorf("failed to query address: %w", err)
	}
	return addr, nil
}
