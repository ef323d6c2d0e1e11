package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/services"
	"storefront/internal/validation"
)

type Handler struct {
	products *services.ProductService
	orders   *services.OrderService
	admin    *services.AdminService
	checkout *checkout.Orchestrator
	carts    *cart.Manager
	feed     http.Handler
	cartTTL  time.Duration
}

type Deps struct {
	Products *services.ProductService
	Orders   *services.OrderService
	Admin    *services.AdminService
	Checkout *checkout.Orchestrator
	Carts    *cart.Manager
	// Feed serves the admin order event stream; optional.
	Feed    http.Handler
	CartTTL time.Duration
}

func NewHandler(d Deps) *Handler {
	if d.CartTTL <= 0 {
		d.CartTTL = 7 * 24 * time.Hour
	}
	return &Handler{
		products: d.Products,
		orders:   d.Orders,
		admin:    d.Admin,
		checkout: d.Checkout,
		carts:    d.Carts,
		feed:     d.Feed,
		cartTTL:  d.CartTTL,
	}
}

var registerValidation sync.Once

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	registerValidation.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validation.Register(v)
		}
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/products", h.ListProducts)
	r.POST("/products", h.CreateProduct)
	r.GET("/products/:id", h.GetProduct)
	r.PUT("/products/:id", h.UpdateProduct)
	r.DELETE("/products/:id", h.DeleteProduct)

	r.POST("/orders", h.CreateOrder)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id", h.GetOrder)
	r.PUT("/orders/:id", h.UpdateOrderStatus)

	carts := r.Group("/cart", CartSession(h.cartTTL))
	carts.GET("", h.GetCart)
	carts.DELETE("", h.ClearCart)
	carts.POST("/items", h.AddCartItem)
	carts.PUT("/items/:productId", h.UpdateCartItem)
	carts.DELETE("/items/:productId", h.RemoveCartItem)
	carts.DELETE("/session", h.EndCartSession)

	co := r.Group("/checkout", CartSession(h.cartTTL))
	co.GET("/quote", h.Quote)
	co.POST("", h.Checkout)

	admin := r.Group("/admin")
	admin.GET("/dashboard", h.Dashboard)
	admin.GET("/products/export", h.ExportProducts)
	if h.feed != nil {
		admin.GET("/orders/ws", gin.WrapH(h.feed))
	}
}

func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}
