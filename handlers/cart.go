package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"unitedkarts/internal/cart"
	"unitedkarts/internal/catalog"
	"unitedkarts/internal/coupons"
	"unitedkarts/internal/pricing"
	"unitedkarts/pkg/ctxmanage"
	"unitedkarts/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AddToCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var request struct {
		FoodItemID          string  `json:"food_item_id" validate:"required"`
		VariantID           *string `json:"variant_id"`
		Quantity            int     `json:"quantity" validate:"required,min=1"`
		SpecialInstructions string  `json:"special_instructions" validate:"max=500"`
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

	item, err := h.cat.GetFoodItem(c.Request.Context(), request.FoodItemID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Food item not found"})
			return
		}
		slog.Error("error in retrieving food item", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch food item"})
		return
	}
	if item.Status != catalog.ItemAvailable {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Food item is not available"})
		return
	}

	var variantAdjustment int64
	if request.VariantID != nil {
		found := false
		for _, v := range item.Variants {
			if v.ID == *request.VariantID {
				variantAdjustment = v.PriceAdjustment
				found = true
				break
			}
		}
		if !found {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Variant does not belong to this food item"})
			return
		}
	}

	unitPrice := pricing.UnitPrice(item.Price, item.DiscountPrice, variantAdjustment)
	err = h.cConf.AddItem(c.Request.Context(), claims.Subject, item.RestaurantID,
		item.ID, request.VariantID, request.Quantity, unitPrice, request.SpecialInstructions)
	if err != nil {
		if errors.Is(err, cart.ErrDifferentRestaurant) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "Your cart has items from a different restaurant. Clear it before ordering here.",
			})
			return
		}
		slog.Error("error adding item to cart", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to cart"})
		return
	}

	h.respondWithCart(c, claims.Subject)
}

func (h *Handler) GetCart(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	h.respondWithCart(c, claims.Subject)
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	lineID, err := strconv.Atoi(c.Param("lineID"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid cart line id"})
		return
	}

	var request struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}

	// Quantity at or below zero removes the line.
	if err := h.cConf.UpdateQuantity(c.Request.Context(), claims.Subject, lineID, request.Quantity); err != nil {
		h.abortCartError(c, err, "Failed to update cart item")
		return
	}
	h.respondWithCart(c, claims.Subject)
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	lineID, err := strconv.Atoi(c.Param("lineID"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid cart line id"})
		return
	}

	if err := h.cConf.RemoveItem(c.Request.Context(), claims.Subject, lineID); err != nil {
		h.abortCartError(c, err, "Failed to remove cart item")
		return
	}
	h.respondWithCart(c, claims.Subject)
}

func (h *Handler) ApplyCoupon(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var request struct {
		Code string `json:"code" validate:"required,max=50"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	summary, err := h.cConf.GetActive(c.Request.Context(), claims.Subject)
	if err != nil {
		h.abortCartError(c, err, "Failed to fetch cart")
		return
	}

	coupon, err := h.cp.GetByCode(c.Request.Context(), request.Code)
	if err != nil {
		if errors.Is(err, coupons.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Coupon not found"})
			return
		}
		slog.Error("error fetching coupon", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch coupon"})
		return
	}

	if err := coupons.Validate(coupon, summary.Subtotal(), time.Now()); err != nil {
		var invalid *coupons.InvalidCouponError
		if errors.As(err, &invalid) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": invalid.Error(), "reason": invalid.Reason})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.cConf.SetCoupon(c.Request.Context(), claims.Subject, &coupon.Code); err != nil {
		h.abortCartError(c, err, "Failed to apply coupon")
		return
	}
	h.respondWithCart(c, claims.Subject)
}

func (h *Handler) RemoveCoupon(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.cConf.SetCoupon(c.Request.Context(), claims.Subject, nil); err != nil {
		h.abortCartError(c, err, "Failed to remove coupon")
		return
	}
	h.respondWithCart(c, claims.Subject)
}

func (h *Handler) ClearCart(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.cConf.Clear(c.Request.Context(), claims.Subject); err != nil {
		h.abortCartError(c, err, "Failed to clear cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// respondWithCart writes the active cart with a freshly computed breakdown.
// Totals are never read from storage.
func (h *Handler) respondWithCart(c *gin.Context, userID string) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	summary, err := h.cConf.GetActive(c.Request.Context(), userID)
	if err != nil {
		h.abortCartError(c, err, "Failed to fetch cart")
		return
	}

	restaurant, err := h.cat.GetRestaurantByID(c.Request.Context(), summary.RestaurantID)
	if err != nil {
		slog.Error("error fetching cart restaurant", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.RestaurantID, summary.RestaurantID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
		return
	}

	var coupon *coupons.Coupon
	couponCode := summary.CouponCode
	if couponCode != nil {
		coupon, err = h.cp.GetByCode(c.Request.Context(), *couponCode)
		if err != nil && !errors.Is(err, coupons.ErrNotFound) {
			slog.Error("error fetching applied coupon", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
	}

	deliveryFee := h.pricing.DeliveryFeeFor(restaurant.DeliveryFee)
	breakdown, err := pricing.Quote(summary.PricingLines(), deliveryFee, h.pricing.TaxRate, coupon, time.Now())
	if err != nil {
		// The stored code no longer validates; show the quote without it.
		slog.Info("applied coupon no longer valid", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		couponCode = nil
	}

	c.JSON(http.StatusOK, cart.Response{
		RestaurantID: summary.RestaurantID,
		Items:        summary.Lines,
		CouponCode:   couponCode,
		Pricing:      breakdown,
	})
}

func (h *Handler) abortCartError(c *gin.Context, err error, fallback string) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	switch {
	case errors.Is(err, cart.ErrNoActiveCart):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No active cart"})
	case errors.Is(err, cart.ErrLineNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Cart line not found"})
	default:
		slog.Error("cart operation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
