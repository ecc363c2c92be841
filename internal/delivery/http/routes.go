package http

import (
	"github.com/gin-gonic/gin"

	"github.com/precosal/backend/config"
	"github.com/precosal/backend/internal/auth"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, tokens *auth.TokenManager) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")

	// The public market list feeds the unauthenticated landing page.
	api.GET("/supermarkets/public", handler.ListMarkets)

	authed := api.Group("")
	authed.Use(AuthMiddleware(tokens))
	{
		authed.POST("/realtime-search", handler.RealtimeSearch)

		markets := authed.Group("/supermarkets", RequirePage("markets"))
		{
			markets.GET("", handler.ListMarkets)
			markets.POST("", handler.CreateMarket)
			markets.PUT("/:id", handler.UpdateMarket)
			markets.DELETE("/:id", handler.DeleteMarket)
		}

		baskets := authed.Group("/baskets")
		{
			baskets.GET("", handler.ListBaskets)
			baskets.POST("", handler.CreateBasket)
			baskets.PUT("/:id", handler.UpdateBasket)
			baskets.DELETE("/:id", handler.DeleteBasket)
			baskets.POST("/:id/items", handler.AddBasketItem)
			baskets.PUT("/:id/items/:barcode", handler.UpdateBasketItem)
			baskets.DELETE("/:id/items/:barcode", handler.RemoveBasketItem)
			baskets.DELETE("/:id/items", handler.ClearBasketItems)
			baskets.POST("/:id/compare", handler.CompareBasket)
		}

		dashboard := authed.Group("/dashboard", RequirePage("dashboard"))
		{
			dashboard.GET("/summary", handler.DashboardSummary)
			dashboard.GET("/top-products", handler.DashboardTopProducts)
			dashboard.GET("/price-trends", handler.DashboardPriceTrends)
			dashboard.GET("/categories", handler.DashboardCategories)
		}

		collections := authed.Group("/collections", RequirePage("collections"))
		{
			collections.POST("/start", handler.StartCollection)
			collections.GET("/status", handler.CollectionStatus)
		}
	}

	return router
}
