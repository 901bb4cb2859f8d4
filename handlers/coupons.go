package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"unitedkarts/internal/coupons"
	"unitedkarts/pkg/ctxmanage"
	"unitedkarts/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateCoupon(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var newCoupon coupons.NewCoupon
	if err := c.ShouldBindJSON(&newCoupon); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(newCoupon); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}
	if !newCoupon.ValidUntil.After(newCoupon.ValidFrom) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "valid_until must be after valid_from"})
		return
	}

	coupon, err := h.cp.Insert(c.Request.Context(), newCoupon)
	if err != nil {
		slog.Error("error inserting coupon", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Coupon Creation Failed"})
		return
	}
	c.JSON(http.StatusOK, coupon)
}

func (h *Handler) ListCoupons(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	activeOnly := c.DefaultQuery("active", "false") == "true"

	list, err := h.cp.List(c.Request.Context(), activeOnly)
	if err != nil {
		slog.Error("error listing coupons", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch coupons"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupons": list})
}

func (h *Handler) DeactivateCoupon(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	if err := h.cp.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, coupons.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Coupon not found"})
			return
		}
		slog.Error("error deactivating coupon", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate coupon"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Coupon deactivated"})
}
