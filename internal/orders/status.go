package orders

import (
	"fmt"

	"unitedkarts/internal/auth"
)

// Status is the order lifecycle state. Transitions are one-directional; see
// CanTransitionTo.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReadyForPickup Status = "ready_for_pickup"
	StatusPickedUp       Status = "picked_up"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusRefunded       Status = "refunded"
)

// Payment statuses and methods.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

const (
	MethodCash   = "cash"
	MethodCard   = "card"
	MethodUPI    = "upi"
	MethodWallet = "wallet"
)

// forward is the happy-path chain from placement to delivery.
var forward = map[Status]Status{
	StatusPending:        StatusConfirmed,
	StatusConfirmed:      StatusPreparing,
	StatusPreparing:      StatusReadyForPickup,
	StatusReadyForPickup: StatusPickedUp,
	StatusPickedUp:       StatusDelivered,
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReadyForPickup,
		StatusPickedUp, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s, other than the
// cancelled -> refunded payment path.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRefunded
}

// CanTransitionTo reports whether the move from s to t is legal. Forward
// moves follow the fixed chain; cancellation is allowed from any non-terminal
// state; a refund only follows a cancellation.
func (s Status) CanTransitionTo(t Status) bool {
	switch t {
	case StatusCancelled:
		return !s.Terminal()
	case StatusRefunded:
		return s == StatusCancelled
	default:
		return forward[s] == t
	}
}

// AllowedForRole reports whether a caller holding role may trigger the
// transition. Restaurant owners drive the kitchen states and may cancel until
// pickup; delivery partners drive pickup and delivery; customers may cancel
// any non-terminal order; admins may do anything legal.
func AllowedForRole(from, to Status, role string) bool {
	if !from.CanTransitionTo(to) {
		return false
	}
	if role == auth.RoleAdmin {
		return true
	}
	switch to {
	case StatusConfirmed, StatusPreparing, StatusReadyForPickup:
		return role == auth.RoleRestaurantOwner
	case StatusPickedUp, StatusDelivered:
		return role == auth.RoleDeliveryPartner
	case StatusCancelled:
		if role == auth.RoleCustomer {
			return true
		}
		if role == auth.RoleRestaurantOwner {
			return from != StatusPickedUp
		}
		return false
	case StatusRefunded:
		return false
	}
	return false
}

// InvalidTransitionError is returned when a status change is attempted from
// the wrong source state. The order is left unchanged.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.From, e.To)
}
