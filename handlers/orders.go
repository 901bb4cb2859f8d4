package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"unitedkarts/internal/auth"
	"unitedkarts/internal/cart"
	"unitedkarts/internal/catalog"
	"unitedkarts/internal/coupons"
	"unitedkarts/internal/orders"
	"unitedkarts/internal/pricing"
	"unitedkarts/internal/stores/kafka"
	"unitedkarts/internal/users"
	"unitedkarts/pkg/ctxmanage"
	"unitedkarts/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/refund"
)

// Checkout snapshots the active cart into an order. An Idempotency-Key header
// makes retries safe: the same key always returns the originally created
// order.
func (h *Handler) Checkout(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var idempotencyKey *string
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		if _, err := uuid.Parse(key); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key must be a UUID"})
			return
		}
		idempotencyKey = &key
	}

	var request struct {
		DeliveryAddressID   string `json:"delivery_address_id" validate:"required"`
		PaymentMethod       string `json:"payment_method" validate:"required,oneof=cash card upi wallet"`
		SpecialInstructions string `json:"special_instructions" validate:"max=500"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	ctx := c.Request.Context()

	if idempotencyKey != nil {
		existing, err := h.o.GetByIdempotencyKey(ctx, *idempotencyKey)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"order": existing})
			return
		}
		if !errors.Is(err, orders.ErrNotFound) {
			slog.Error("error checking idempotency key", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
			return
		}
	}

	summary, err := h.cConf.GetActive(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, cart.ErrNoActiveCart) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "No active cart to check out"})
			return
		}
		slog.Error("error fetching cart", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
		return
	}
	if len(summary.Lines) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}

	if _, err := h.u.GetAddress(ctx, claims.Subject, request.DeliveryAddressID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Delivery address not found"})
			return
		}
		slog.Error("error fetching address", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
		return
	}

	restaurant, err := h.cat.GetRestaurantByID(ctx, summary.RestaurantID)
	if err != nil {
		slog.Error("error fetching restaurant", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.RestaurantID, summary.RestaurantID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
		return
	}
	if restaurant.Status != catalog.RestaurantActive || !restaurant.IsOpen {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Restaurant is not accepting orders right now"})
		return
	}
	if summary.Subtotal() < restaurant.MinOrderAmount {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Order is below the restaurant minimum"})
		return
	}

	// The stored coupon is revalidated here; pricing never trusts a stale
	// application. A code whose row vanished is a rejection, not a silent
	// no-discount order.
	var coupon *coupons.Coupon
	if summary.CouponCode != nil {
		coupon, err = h.cp.GetByCode(ctx, *summary.CouponCode)
		if err != nil {
			if errors.Is(err, coupons.ErrNotFound) {
				invalid := &coupons.InvalidCouponError{Code: *summary.CouponCode, Reason: coupons.ReasonNotFound}
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": invalid.Error(), "reason": invalid.Reason})
				return
			}
			slog.Error("error fetching coupon", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
			return
		}
	}

	deliveryFee := h.pricing.DeliveryFeeFor(restaurant.DeliveryFee)
	breakdown, err := pricing.Quote(summary.PricingLines(), deliveryFee, h.pricing.TaxRate, coupon, time.Now())
	if err != nil {
		var invalid *coupons.InvalidCouponError
		if errors.As(err, &invalid) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": invalid.Error(), "reason": invalid.Reason})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]orders.NewItem, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		items = append(items, orders.NewItem{
			FoodItemID:          line.FoodItemID,
			VariantID:           line.VariantID,
			Quantity:            line.Quantity,
			UnitPrice:           line.UnitPrice,
			SpecialInstructions: line.SpecialInstructions,
		})
	}

	var couponCode *string
	if coupon != nil {
		couponCode = &coupon.Code
	}

	params := orders.CreateOrderParams{
		ID:                  uuid.NewString(),
		OrderNumber:         newOrderNumber(),
		IdempotencyKey:      idempotencyKey,
		CustomerID:          claims.Subject,
		RestaurantID:        summary.RestaurantID,
		DeliveryAddressID:   request.DeliveryAddressID,
		CartID:              summary.CartID,
		Items:               items,
		Breakdown:           breakdown,
		CouponCode:          couponCode,
		PaymentMethod:       request.PaymentMethod,
		SpecialInstructions: request.SpecialInstructions,
	}

	order, err := h.o.CreateOrder(ctx, params)
	if err != nil {
		if errors.Is(err, orders.ErrEmptyCart) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
			return
		}
		slog.Error("error creating order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
		return
	}

	h.produceOrderPlaced(traceId, order)

	response := gin.H{"order": order}
	if order.PaymentMethod != orders.MethodCash {
		checkoutURL, err := h.createCheckoutSession(ctx, order)
		if err != nil {
			// Payment can be retried against the pending order; the
			// checkout itself already committed.
			slog.Error("error creating stripe checkout session", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		} else {
			response["payment_url"] = checkoutURL
		}
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handler) ListOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 || limit > 100 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
		return
	}

	ctx := c.Request.Context()
	var list []orders.Order
	switch {
	case claims.HasRole(auth.RoleRestaurantOwner) || claims.HasRole(auth.RoleAdmin):
		restaurantID := c.Query("restaurant_id")
		if restaurantID != "" {
			if !h.ownsRestaurant(c, restaurantID) {
				return
			}
			list, err = h.o.ListForRestaurant(ctx, restaurantID, limit, offset)
			break
		}
		if claims.HasRole(auth.RoleAdmin) {
			customerID := c.Query("customer_id")
			if customerID == "" {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "restaurant_id or customer_id required"})
				return
			}
			list, err = h.o.ListForCustomer(ctx, customerID, limit, offset)
			break
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "restaurant_id required"})
		return
	case claims.HasRole(auth.RoleDeliveryPartner):
		list, err = h.o.ListForPartner(ctx, claims.Subject, limit, offset)
	default:
		list, err = h.o.ListForCustomer(ctx, claims.Subject, limit, offset)
	}
	if err != nil {
		slog.Error("error listing orders", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) GetOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order, err := h.o.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error fetching order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	if !h.canAccessOrder(c, claims, order) {
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus applies one lifecycle transition. The caller's role must
// be allowed to trigger the move and the caller must be tied to the order.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var request struct {
		Status    string   `json:"status" validate:"required"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Notes     *string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}
	to := orders.Status(request.Status)
	if !to.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unknown order status"})
		return
	}

	ctx := c.Request.Context()
	order, err := h.o.GetOrder(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error fetching order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	if !h.canAccessOrder(c, claims, order) {
		return
	}
	allowed := false
	for _, role := range claims.Roles {
		if orders.AllowedForRole(order.OrderStatus, to, role) {
			allowed = true
			break
		}
	}
	if !allowed {
		if !order.OrderStatus.CanTransitionTo(to) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": fmt.Sprintf("cannot move order from %q to %q", order.OrderStatus, to),
			})
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Your role cannot apply this transition"})
		return
	}

	updated, err := h.o.UpdateStatus(ctx, order.ID, to, claims.Subject, request.Latitude, request.Longitude, request.Notes)
	if err != nil {
		h.abortOrderError(c, err, "Failed to update order status")
		return
	}

	h.produceStatusChanged(traceId, order.OrderStatus, updated, claims.Subject)
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": updated})
}

func (h *Handler) CancelOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var request struct {
		Reason string `json:"reason" validate:"required,max=500"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Cancellation reason is required"})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	ctx := c.Request.Context()
	order, err := h.o.GetOrder(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error fetching order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	if !h.canAccessOrder(c, claims, order) {
		return
	}
	allowed := false
	for _, role := range claims.Roles {
		if orders.AllowedForRole(order.OrderStatus, orders.StatusCancelled, role) {
			allowed = true
			break
		}
	}
	if !allowed {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Order can no longer be cancelled"})
		return
	}

	cancelled, err := h.o.Cancel(ctx, order.ID, claims.Subject, request.Reason)
	if err != nil {
		if errors.Is(err, orders.ErrReasonRequired) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Cancellation reason is required"})
			return
		}
		h.abortOrderError(c, err, "Failed to cancel order")
		return
	}

	h.produceStatusChanged(traceId, order.OrderStatus, cancelled, claims.Subject)
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled", "order": cancelled})
}

func (h *Handler) AssignDeliveryPartner(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var request struct {
		DeliveryPartnerID string `json:"delivery_partner_id" validate:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	ctx := c.Request.Context()
	order, err := h.o.GetOrder(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error fetching order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}
	if !claims.HasRole(auth.RoleAdmin) && !h.ownsRestaurant(c, order.RestaurantID) {
		return
	}

	partner, err := h.u.GetUserByID(ctx, request.DeliveryPartnerID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Delivery partner not found"})
			return
		}
		slog.Error("error fetching delivery partner", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign delivery partner"})
		return
	}
	isPartner := false
	for _, role := range partner.Roles {
		if role == auth.RoleDeliveryPartner {
			isPartner = true
			break
		}
	}
	if !isPartner {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "User is not a delivery partner"})
		return
	}

	if err := h.o.AssignDeliveryPartner(ctx, order.ID, partner.ID); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Order can no longer be assigned"})
			return
		}
		slog.Error("error assigning delivery partner", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign delivery partner"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Delivery partner assigned"})
}

// RefundOrder moves a cancelled, paid order to refunded and releases the
// Stripe payment off the request path.
func (h *Handler) RefundOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order, err := h.o.MarkRefunded(c.Request.Context(), c.Param("id"), claims.Subject)
	if err != nil {
		if errors.Is(err, orders.ErrNotRefundable) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Order payment was never captured"})
			return
		}
		h.abortOrderError(c, err, "Failed to refund order")
		return
	}

	if order.PaymentID != nil && os.Getenv("STRIPE_TEST_KEY") != "" {
		paymentID := *order.PaymentID
		go func() {
			stripe.Key = os.Getenv("STRIPE_TEST_KEY")
			_, err := refund.New(&stripe.RefundParams{PaymentIntent: stripe.String(paymentID)})
			if err != nil {
				slog.Error("error issuing stripe refund", slog.String(logkey.TraceID, traceId),
					slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
			}
		}()
	}

	h.produceStatusChanged(traceId, orders.StatusCancelled, order, claims.Subject)
	c.JSON(http.StatusOK, gin.H{"message": "Order refunded", "order": order})
}

// canAccessOrder aborts with 403 unless the caller is the customer, the
// assigned delivery partner, the restaurant's owner, or an admin. Returns
// false when it aborted.
func (h *Handler) canAccessOrder(c *gin.Context, claims auth.Claims, order orders.Order) bool {
	if claims.HasRole(auth.RoleAdmin) {
		return true
	}
	if order.CustomerID == claims.Subject {
		return true
	}
	if order.DeliveryPartnerID != nil && *order.DeliveryPartnerID == claims.Subject {
		return true
	}
	if claims.HasRole(auth.RoleRestaurantOwner) {
		restaurant, err := h.cat.GetRestaurantByID(c.Request.Context(), order.RestaurantID)
		if err == nil && restaurant.OwnerID == claims.Subject {
			return true
		}
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	return false
}

func (h *Handler) abortOrderError(c *gin.Context, err error, fallback string) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	var invalid *orders.InvalidTransitionError
	switch {
	case errors.Is(err, orders.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.As(err, &invalid):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": invalid.Error()})
	default:
		slog.Error("order operation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func (h *Handler) produceOrderPlaced(traceId string, order orders.Order) {
	if h.k == nil {
		return
	}
	event := kafka.OrderPlacedEvent{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerID:   order.CustomerID,
		RestaurantID: order.RestaurantID,
		TotalAmount:  order.TotalAmount,
		CreatedAt:    order.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("error marshaling order placed event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		return
	}
	go func() {
		if err := h.k.ProduceMessage(kafka.TopicOrderPlaced, []byte(order.ID), payload); err != nil {
			slog.Error("error producing order placed event", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		}
	}()
}

func (h *Handler) produceStatusChanged(traceId string, from orders.Status, order orders.Order, changedBy string) {
	if h.k == nil {
		return
	}
	event := kafka.OrderStatusChangedEvent{
		OrderID:   order.ID,
		From:      string(from),
		To:        string(order.OrderStatus),
		ChangedBy: changedBy,
		CreatedAt: time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("error marshaling status changed event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		return
	}
	go func() {
		if err := h.k.ProduceMessage(kafka.TopicOrderStatusChanged, []byte(order.ID), payload); err != nil {
			slog.Error("error producing status changed event", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		}
	}()
}

// createCheckoutSession builds a Stripe Checkout session for the order total.
// The order id travels in the payment intent metadata so the webhook can tie
// the captured payment back.
func (h *Handler) createCheckoutSession(ctx context.Context, order orders.Order) (string, error) {
	stripe.Key = os.Getenv("STRIPE_TEST_KEY")
	if stripe.Key == "" {
		return "", fmt.Errorf("STRIPE_TEST_KEY is not set")
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(order.TotalAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Order " + order.OrderNumber),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"order_id": order.ID,
				"user_id":  order.CustomerID,
			},
		},
		SuccessURL: stripe.String(os.Getenv("STRIPE_SUCCESS_URL")),
		CancelURL:  stripe.String(os.Getenv("STRIPE_CANCEL_URL")),
	}

	if user, err := h.u.GetUserByID(ctx, order.CustomerID); err == nil && user.StripeCustomerID != "" {
		params.Customer = stripe.String(user.StripeCustomerID)
	}

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}
	return s.URL, nil
}

func newOrderNumber() string {
	return fmt.Sprintf("UK-%d-%s", time.Now().Unix(), strings.ToUpper(uuid.NewString()[:6]))
}
