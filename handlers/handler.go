package handlers

import (
	"fmt"
	"net/http"
	"os"

	"unitedkarts/internal/auth"
	"unitedkarts/internal/cart"
	"unitedkarts/internal/catalog"
	"unitedkarts/internal/coupons"
	"unitedkarts/internal/orders"
	"unitedkarts/internal/pricing"
	"unitedkarts/internal/stores/cache"
	"unitedkarts/internal/stores/kafka"
	"unitedkarts/internal/users"
	"unitedkarts/middleware"
	"unitedkarts/pkg/ctxmanage"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	validate *validator.Validate
	authKeys *auth.Keys
	u        *users.Conf
	cat      *catalog.Conf
	cConf    cart.Conf
	o        *orders.Conf
	cp       *coupons.Conf
	k        *kafka.Conf
	menus    *cache.RedisCache
	pricing  pricing.Config
}

func NewHandler(a *auth.Keys, u *users.Conf, cat *catalog.Conf, cConf cart.Conf,
	o *orders.Conf, cp *coupons.Conf, k *kafka.Conf, menus *cache.RedisCache,
	pricingConf pricing.Config) *Handler {
	return &Handler{
		validate: validator.New(),
		authKeys: a,
		u:        u,
		cat:      cat,
		cConf:    cConf,
		o:        o,
		cp:       cp,
		k:        k,
		menus:    menus,
		pricing:  pricingConf,
	}
}

func API(endpointPrefix string, a *auth.Keys, u *users.Conf, cat *catalog.Conf,
	cConf cart.Conf, o *orders.Conf, cp *coupons.Conf, k *kafka.Conf,
	menus *cache.RedisCache, pricingConf pricing.Config) *gin.Engine {

	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	m, err := middleware.NewMid(a)
	if err != nil {
		panic(err)
	}

	h := NewHandler(a, u, cat, cConf, o, cp, k, menus, pricingConf)

	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", healthCheck)

	v1 := r.Group(endpointPrefix)
	{
		v1.POST("/auth/signup", h.Signup)
		v1.POST("/auth/login", h.Login)

		v1.GET("/restaurants", h.ListRestaurants)
		v1.GET("/restaurants/:id", h.GetRestaurant)
		v1.GET("/restaurants/:id/menu", h.GetMenu)
		v1.GET("/categories", h.ListCategories)

		v1.POST("/orders/webhook", h.Webhook)

		v1.Use(m.Authentication())

		v1.POST("/addresses", h.CreateAddress)
		v1.GET("/addresses", h.ListAddresses)

		v1.POST("/restaurants", m.Authorize(h.CreateRestaurant, auth.RoleRestaurantOwner))
		v1.PUT("/restaurants/:id", m.Authorize(h.UpdateRestaurant, auth.RoleRestaurantOwner))
		v1.POST("/restaurants/:id/items", m.Authorize(h.CreateFoodItem, auth.RoleRestaurantOwner))
		v1.PUT("/items/:id", m.Authorize(h.UpdateFoodItem, auth.RoleRestaurantOwner))
		v1.PATCH("/items/:id/status", m.Authorize(h.SetFoodItemStatus, auth.RoleRestaurantOwner))
		v1.DELETE("/items/:id", m.Authorize(h.DeleteFoodItem, auth.RoleRestaurantOwner))

		v1.POST("/cart/items", m.Authorize(h.AddToCart, auth.RoleCustomer))
		v1.GET("/cart", m.Authorize(h.GetCart, auth.RoleCustomer))
		v1.PATCH("/cart/items/:lineID", m.Authorize(h.UpdateCartItem, auth.RoleCustomer))
		v1.DELETE("/cart/items/:lineID", m.Authorize(h.RemoveCartItem, auth.RoleCustomer))
		v1.POST("/cart/coupon", m.Authorize(h.ApplyCoupon, auth.RoleCustomer))
		v1.DELETE("/cart/coupon", m.Authorize(h.RemoveCoupon, auth.RoleCustomer))
		v1.DELETE("/cart", m.Authorize(h.ClearCart, auth.RoleCustomer))

		v1.POST("/orders/checkout", m.Authorize(h.Checkout, auth.RoleCustomer))
		v1.GET("/orders", h.ListOrders)
		v1.GET("/orders/:id", h.GetOrder)
		v1.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		v1.POST("/orders/:id/cancel", h.CancelOrder)
		v1.POST("/orders/:id/assign", m.Authorize(h.AssignDeliveryPartner, auth.RoleAdmin, auth.RoleRestaurantOwner))
		v1.POST("/orders/:id/refund", m.Authorize(h.RefundOrder, auth.RoleAdmin))

		v1.POST("/coupons", m.Authorize(h.CreateCoupon, auth.RoleAdmin))
		v1.GET("/coupons", m.Authorize(h.ListCoupons, auth.RoleAdmin))
		v1.DELETE("/coupons/:id", m.Authorize(h.DeactivateCoupon, auth.RoleAdmin))
	}

	return r
}

func healthCheck(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	fmt.Println("healthCheck handler ", traceId)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// currentClaims pulls the authenticated claims set by the middleware.
func currentClaims(c *gin.Context) (auth.Claims, bool) {
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	return claims, ok
}
