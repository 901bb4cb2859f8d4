package logkey

// Shared keys for structured log attributes so every package logs the same
// field names.
const (
	TraceID      = "TRACE ID"
	ERROR        = "ERROR"
	UserID       = "UserID"
	RestaurantID = "RestaurantID"
	OrderID      = "OrderID"
	FoodItemID   = "FoodItemID"
)
