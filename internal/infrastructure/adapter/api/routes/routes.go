package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coreport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/api/handler"
	"github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/api/middleware"
)

// SetupRoutes configures all the routes for the API
func SetupRoutes(
	router *gin.Engine,
	transactionHandler *handler.TransactionHandler,
	valueHandler *handler.ValueHandler,
) {
	valueRoutes := router.Group("/values")
	{
		valueRoutes.POST("", valueHandler.Create)
		valueRoutes.GET("", valueHandler.GetByCode)
		valueRoutes.GET("/:valueId", valueHandler.Get)
		valueRoutes.PATCH("/:valueId", valueHandler.Patch)
	}

	contactRoutes := router.Group("/contacts")
	{
		contactRoutes.GET("/:contactId/values", valueHandler.ListByContact)
		contactRoutes.POST("/:contactId/values/attach", transactionHandler.Attach)
	}

	transactionRoutes := router.Group("/transactions")
	{
		transactionRoutes.POST("/checkout", transactionHandler.Checkout)
		transactionRoutes.POST("/credit", transactionHandler.Credit)
		transactionRoutes.POST("/debit", transactionHandler.Debit)
		transactionRoutes.POST("/transfer", transactionHandler.Transfer)
		transactionRoutes.GET("/:transactionId", transactionHandler.Get)
		transactionRoutes.POST("/:transactionId/reverse", transactionHandler.Reverse)
		transactionRoutes.POST("/:transactionId/capture", transactionHandler.Capture)
		transactionRoutes.POST("/:transactionId/void", transactionHandler.Void)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// SetupMiddlewares configures global middlewares for the API
func SetupMiddlewares(router *gin.Engine, logger coreport.Logger) {
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Logger(logger))
}
