// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoestore-backend/internal/config"
	"github.com/your-org/shoestore-backend/internal/domain/cart"
	"github.com/your-org/shoestore-backend/internal/domain/inventory"
	"github.com/your-org/shoestore-backend/internal/domain/order"
	"github.com/your-org/shoestore-backend/internal/domain/pricing"
	"github.com/your-org/shoestore-backend/internal/domain/product"
	"github.com/your-org/shoestore-backend/internal/domain/promotion"
	"github.com/your-org/shoestore-backend/internal/interfaces/http/handlers"
	"github.com/your-org/shoestore-backend/internal/interfaces/http/middleware"
	"github.com/your-org/shoestore-backend/internal/pkg/notify"
	"gorm.io/gorm"
)

// SetupRoutes wires the domain services together and registers every route
// group under the given router group.
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log *logrus.Logger) {
	notifier := notify.NewRedisSink(redisClient, log)

	catalogService := product.NewService(db, cfg)
	cartService := cart.NewService(db, cfg, catalogService)
	promotionService := promotion.NewService(db, cfg, notifier)

	orderStore := order.NewGormStore(db)
	pricingEngine := pricing.NewEngine(promotionService, orderStore)
	inventoryEngine := inventory.NewEngine(catalogService, notifier, log)

	orderService := order.NewService(orderStore, catalogService, inventoryEngine,
		pricingEngine, promotionService, cartService, notifier, cfg, log)

	productHandler := handlers.NewProductHandler(catalogService, cfg)
	cartHandler := handlers.NewCartHandler(cartService, cfg)
	orderHandler := handlers.NewOrderHandler(orderService, cfg)
	promotionHandler := handlers.NewPromotionHandler(promotionService, cfg)

	setupProductRoutes(rg, productHandler)
	setupCartRoutes(rg, cartHandler)
	setupOrderRoutes(rg, orderHandler)
	setupPromotionRoutes(rg, promotionHandler)
	setupAdminRoutes(rg, productHandler, orderHandler, promotionHandler)
}

// setupProductRoutes sets up the public catalog routes
func setupProductRoutes(rg *gin.RouterGroup, h *handlers.ProductHandler) {
	products := rg.Group("/products")
	{
		products.GET("", h.GetProducts)
		products.GET("/:id", h.GetProduct)
		products.GET("/slug/:slug", h.GetProductBySlug)
	}
}

// setupCartRoutes sets up the cart routes; every cart route needs a caller
func setupCartRoutes(rg *gin.RouterGroup, h *handlers.CartHandler) {
	carts := rg.Group("/cart")
	carts.Use(middleware.RequireUser())
	{
		carts.GET("", h.GetCart)
		carts.DELETE("", h.ClearCart)
		carts.POST("/items", h.AddToCart)
		carts.PUT("/items/:id", h.UpdateCartItem)
		carts.DELETE("/items/:id", h.RemoveCartItem)
	}
}

// setupOrderRoutes sets up the customer-facing order routes
func setupOrderRoutes(rg *gin.RouterGroup, h *handlers.OrderHandler) {
	orders := rg.Group("/orders")
	orders.Use(middleware.RequireUser())
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.GetOrders)
		orders.GET("/:id", h.GetOrder)
		orders.POST("/:id/cancel", h.CancelOrder)
	}
}

// setupPromotionRoutes sets up the public promotion routes
func setupPromotionRoutes(rg *gin.RouterGroup, h *handlers.PromotionHandler) {
	rg.GET("/flash-sales", h.GetActiveFlashSales)
	rg.GET("/coupons/:code", h.GetCoupon)
}

// setupAdminRoutes sets up the back-office routes. Role enforcement happens at
// the gateway; this service only needs to know who is acting.
func setupAdminRoutes(rg *gin.RouterGroup, products *handlers.ProductHandler,
	orders *handlers.OrderHandler, promotions *handlers.PromotionHandler) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RequireUser())
	{
		admin.POST("/products", products.CreateProduct)
		admin.POST("/products/:id/variants", products.AddVariant)
		admin.DELETE("/products/:id", products.DeactivateProduct)
		admin.PUT("/variants/:id/stock", products.UpdateVariantStock)

		admin.PUT("/orders/:id/status", orders.UpdateOrderStatus)
		admin.POST("/orders/:id/refunds", orders.RecordRefund)

		admin.POST("/coupons", promotions.CreateCoupon)
		admin.POST("/flash-sales", promotions.CreateFlashSale)
		admin.GET("/flash-sales/:id", promotions.GetFlashSale)
		admin.POST("/promotions/sweep", promotions.SweepPromotions)
	}
}
