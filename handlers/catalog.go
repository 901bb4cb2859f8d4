package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"unitedkarts/internal/catalog"
	"unitedkarts/pkg/ctxmanage"
	"unitedkarts/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListRestaurants(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	filters := catalog.ListFilters{
		Name:        c.Query("name"),
		CuisineType: c.Query("cuisine"),
		City:        c.Query("city"),
	}
	limit := c.DefaultQuery("limit", "10")
	offset := c.DefaultQuery("offset", "0")
	sort := c.DefaultQuery("sort", "name")
	order := c.DefaultQuery("order", "asc")

	limitInt, err := strconv.Atoi(limit)
	if err != nil || limitInt <= 0 {
		slog.Error("invalid limit parameter", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}
	offsetInt, err := strconv.Atoi(offset)
	if err != nil || offsetInt < 0 {
		slog.Error("invalid offset parameter", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
		return
	}

	restaurants, err := h.cat.ListRestaurants(c.Request.Context(), filters, limitInt, offsetInt, sort, order)
	if err != nil {
		slog.Error("error in fetching restaurants", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch restaurants"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurants": restaurants})
}

func (h *Handler) GetRestaurant(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	restaurantID := c.Param("id")

	restaurant, err := h.cat.GetRestaurantByID(c.Request.Context(), restaurantID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			slog.Error("restaurant not found", slog.String(logkey.TraceID, traceId), slog.String(logkey.RestaurantID, restaurantID))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
			return
		}
		slog.Error("error in retrieving restaurant", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch restaurant"})
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

// GetMenu serves from the Redis cache when it can; a miss reads the database
// and fills the cache.
func (h *Handler) GetMenu(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	restaurantID := c.Param("id")
	ctx := c.Request.Context()

	if h.menus != nil {
		payload, err := h.menus.Get(ctx, h.menus.MenuKey(restaurantID))
		if err != nil {
			slog.Error("menu cache read failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		} else if payload != nil {
			c.Data(http.StatusOK, "application/json", payload)
			return
		}
	}

	menu, err := h.cat.GetMenu(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
			return
		}
		slog.Error("error in retrieving menu", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch menu"})
		return
	}

	if h.menus != nil {
		if payload, err := json.Marshal(menu); err == nil {
			if err := h.menus.Set(ctx, h.menus.MenuKey(restaurantID), payload); err != nil {
				slog.Error("menu cache write failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			}
		}
	}
	c.JSON(http.StatusOK, menu)
}

func (h *Handler) ListCategories(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	categories, err := h.cat.ListCategories(c.Request.Context())
	if err != nil {
		slog.Error("error in fetching categories", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) CreateRestaurant(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var newRestaurant catalog.NewRestaurant
	if err := c.ShouldBindJSON(&newRestaurant); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(newRestaurant); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	restaurant, err := h.cat.InsertRestaurant(c.Request.Context(), claims.Subject, newRestaurant)
	if err != nil {
		slog.Error("error in inserting the restaurant", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Restaurant Creation Failed"})
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (h *Handler) UpdateRestaurant(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	restaurantID := c.Param("id")

	if !h.ownsRestaurant(c, restaurantID) {
		return
	}

	var update catalog.NewRestaurant
	if err := c.ShouldBindJSON(&update); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}
	if err := h.validate.Struct(update); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	restaurant, err := h.cat.UpdateRestaurant(c.Request.Context(), restaurantID, update)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
			return
		}
		slog.Error("error in updating the restaurant", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Restaurant update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated successfully", "restaurant": restaurant})
}

func (h *Handler) CreateFoodItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	restaurantID := c.Param("id")

	if !h.ownsRestaurant(c, restaurantID) {
		return
	}

	var newItem catalog.NewFoodItem
	if err := c.ShouldBindJSON(&newItem); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(newItem); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	item, err := h.cat.InsertFoodItem(c.Request.Context(), restaurantID, newItem)
	if err != nil {
		if errors.Is(err, catalog.ErrVariantDefault) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("error in inserting the food item", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Food Item Creation Failed"})
		return
	}

	h.invalidateMenu(c, restaurantID)
	c.JSON(http.StatusOK, item)
}

func (h *Handler) UpdateFoodItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	itemID := c.Param("id")

	current, err := h.cat.GetFoodItem(c.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Food item not found"})
			return
		}
		slog.Error("error in retrieving food item", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch food item"})
		return
	}
	if !h.ownsRestaurant(c, current.RestaurantID) {
		return
	}

	var update catalog.NewFoodItem
	if err := c.ShouldBindJSON(&update); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}
	if err := h.validate.Struct(update); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	item, err := h.cat.UpdateFoodItem(c.Request.Context(), itemID, update)
	if err != nil {
		if errors.Is(err, catalog.ErrVariantDefault) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("error in updating the food item", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Food item update failed"})
		return
	}

	h.invalidateMenu(c, current.RestaurantID)
	c.JSON(http.StatusOK, gin.H{"message": "Food item updated successfully", "item": item})
}

// SetFoodItemStatus flips an item's availability without touching the rest of
// the listing.
func (h *Handler) SetFoodItemStatus(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	itemID := c.Param("id")

	var request struct {
		Status string `json:"status" validate:"required,oneof=available unavailable out_of_stock"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	current, err := h.cat.GetFoodItem(c.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Food item not found"})
			return
		}
		slog.Error("error in retrieving food item", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch food item"})
		return
	}
	if !h.ownsRestaurant(c, current.RestaurantID) {
		return
	}

	if err := h.cat.SetFoodItemStatus(c.Request.Context(), itemID, request.Status); err != nil {
		slog.Error("error updating food item status", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.FoodItemID, itemID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update food item status"})
		return
	}

	h.invalidateMenu(c, current.RestaurantID)
	c.JSON(http.StatusOK, gin.H{"message": "Food item status updated"})
}

func (h *Handler) DeleteFoodItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	itemID := c.Param("id")

	current, err := h.cat.GetFoodItem(c.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Food item not found"})
			return
		}
		slog.Error("error in retrieving food item", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch food item"})
		return
	}
	if !h.ownsRestaurant(c, current.RestaurantID) {
		return
	}

	if err := h.cat.DeleteFoodItem(c.Request.Context(), itemID); err != nil {
		slog.Error("error in deleting the food item", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Food item deletion failed"})
		return
	}

	h.invalidateMenu(c, current.RestaurantID)
	c.JSON(http.StatusOK, gin.H{"message": "Food item successfully deleted"})
}

// ownsRestaurant aborts with 403 unless the caller owns the restaurant
// (admins pass). Returns false when it aborted.
func (h *Handler) ownsRestaurant(c *gin.Context, restaurantID string) bool {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := currentClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return false
	}
	if claims.HasRole("admin") {
		return true
	}

	restaurant, err := h.cat.GetRestaurantByID(c.Request.Context(), restaurantID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
			return false
		}
		slog.Error("error in retrieving restaurant", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch restaurant"})
		return false
	}
	if restaurant.OwnerID != claims.Subject {
		slog.Error("restaurant not owned by caller", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.RestaurantID, restaurantID), slog.String(logkey.UserID, claims.Subject))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return false
	}
	return true
}

func (h *Handler) invalidateMenu(c *gin.Context, restaurantID string) {
	if h.menus == nil {
		return
	}
	if err := h.menus.Invalidate(c.Request.Context(), h.menus.MenuKey(restaurantID)); err != nil {
		traceId := ctxmanage.GetTraceIdOfRequest(c)
		slog.Error("menu cache invalidation failed", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.RestaurantID, restaurantID), slog.String(logkey.ERROR, err.Error()))
	}
}
