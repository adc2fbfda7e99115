package routers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"canteen/handlers"
	"canteen/logger"
	"canteen/middleware"
	"canteen/placement"
	"canteen/store"
)

type Dependencies struct {
	Engine *placement.Engine
	// Catalog serves the food item endpoints, usually the Redis cache in
	// front of the store.
	Catalog      store.CatalogReader
	Store        store.Store
	Logger       *logger.Logger
	AllowOrigins []string
}

func SetupRouters(deps Dependencies) *gin.Engine {
	//建立Gin路由器
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.RequestLoggerMiddleware(deps.Logger),
	)

	allowOrigins := deps.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Location", "Retry-After", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	_ = router.SetTrustedProxies(nil)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Canteen Management API!"})
	})
	router.GET("/healthz", func(c *gin.Context) {
		if err := deps.Store.Ping(c.Request.Context()); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		//查詢餐點列表
		api.GET("/food_items", func(context *gin.Context) {
			handlers.GetFoodItemListHandler(context, deps.Catalog)
		})
		//查詢餐點詳細資料
		api.GET("/food_items/:food_id", func(context *gin.Context) {
			handlers.GetFoodItemDataHandler(context, deps.Catalog)
		})
		//送出訂單
		api.POST("/orders/create", func(context *gin.Context) {
			handlers.CreateOrderHandler(context, deps.Engine)
		})
		//查詢訂單列表
		api.GET("/orders", func(context *gin.Context) {
			handlers.GetOrderListHandler(context, deps.Engine)
		})
		//查詢訂單詳細資訊
		api.GET("/orders/:order_id", func(context *gin.Context) {
			handlers.GetOrderDataHandler(context, deps.Engine)
		})
	}

	return router
}
