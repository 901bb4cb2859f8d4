package orders

import (
	"testing"

	"unitedkarts/internal/auth"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionToForwardChain(t *testing.T) {
	chain := []Status{StatusPending, StatusConfirmed, StatusPreparing,
		StatusReadyForPickup, StatusPickedUp, StatusDelivered}

	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, chain[i].CanTransitionTo(chain[i+1]),
			"%s -> %s should be allowed", chain[i], chain[i+1])
	}

	// no skipping ahead
	assert.False(t, StatusPreparing.CanTransitionTo(StatusPickedUp))
	assert.False(t, StatusPending.CanTransitionTo(StatusPreparing))
	assert.False(t, StatusPending.CanTransitionTo(StatusDelivered))

	// no backward moves
	assert.False(t, StatusConfirmed.CanTransitionTo(StatusPending))
	assert.False(t, StatusDelivered.CanTransitionTo(StatusPickedUp))
}

func TestCanTransitionToCancelled(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusConfirmed, StatusPreparing,
		StatusReadyForPickup, StatusPickedUp} {
		assert.True(t, from.CanTransitionTo(StatusCancelled), "cancel from %s", from)
	}
	for _, from := range []Status{StatusDelivered, StatusCancelled, StatusRefunded} {
		assert.False(t, from.CanTransitionTo(StatusCancelled), "cancel from %s", from)
	}
}

func TestCanTransitionToRefunded(t *testing.T) {
	assert.True(t, StatusCancelled.CanTransitionTo(StatusRefunded))

	for _, from := range []Status{StatusPending, StatusPreparing, StatusDelivered, StatusRefunded} {
		assert.False(t, from.CanTransitionTo(StatusRefunded), "refund from %s", from)
	}
}

func TestAllowedForRole(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		role string
		want bool
	}{
		{name: "owner accepts", from: StatusPending, to: StatusConfirmed, role: auth.RoleRestaurantOwner, want: true},
		{name: "owner starts cooking", from: StatusConfirmed, to: StatusPreparing, role: auth.RoleRestaurantOwner, want: true},
		{name: "owner marks ready", from: StatusPreparing, to: StatusReadyForPickup, role: auth.RoleRestaurantOwner, want: true},
		{name: "partner cannot accept", from: StatusPending, to: StatusConfirmed, role: auth.RoleDeliveryPartner, want: false},
		{name: "customer cannot accept", from: StatusPending, to: StatusConfirmed, role: auth.RoleCustomer, want: false},
		{name: "partner picks up", from: StatusReadyForPickup, to: StatusPickedUp, role: auth.RoleDeliveryPartner, want: true},
		{name: "partner delivers", from: StatusPickedUp, to: StatusDelivered, role: auth.RoleDeliveryPartner, want: true},
		{name: "owner cannot pick up", from: StatusReadyForPickup, to: StatusPickedUp, role: auth.RoleRestaurantOwner, want: false},
		{name: "customer cancels while preparing", from: StatusPreparing, to: StatusCancelled, role: auth.RoleCustomer, want: true},
		{name: "customer cancels after pickup", from: StatusPickedUp, to: StatusCancelled, role: auth.RoleCustomer, want: true},
		{name: "owner cancels before pickup", from: StatusReadyForPickup, to: StatusCancelled, role: auth.RoleRestaurantOwner, want: true},
		{name: "owner cannot cancel after pickup", from: StatusPickedUp, to: StatusCancelled, role: auth.RoleRestaurantOwner, want: false},
		{name: "partner cannot cancel", from: StatusPreparing, to: StatusCancelled, role: auth.RoleDeliveryPartner, want: false},
		{name: "admin does anything legal", from: StatusPreparing, to: StatusReadyForPickup, role: auth.RoleAdmin, want: true},
		{name: "admin refunds cancelled", from: StatusCancelled, to: StatusRefunded, role: auth.RoleAdmin, want: true},
		{name: "customer cannot refund", from: StatusCancelled, to: StatusRefunded, role: auth.RoleCustomer, want: false},
		{name: "admin bound by machine", from: StatusPreparing, to: StatusPickedUp, role: auth.RoleAdmin, want: false},
		{name: "cancel from terminal denied", from: StatusDelivered, to: StatusCancelled, role: auth.RoleCustomer, want: false},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			got := AllowedForRole(testCase.from, testCase.to, testCase.role)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{From: StatusPending, To: StatusReadyForPickup}
	assert.Contains(t, err.Error(), "pending")
	assert.Contains(t, err.Error(), "ready_for_pickup")
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusRefunded.Valid())
	assert.False(t, Status("shipped").Valid())
}
