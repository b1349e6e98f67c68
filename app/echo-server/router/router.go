package router

import (
	"flexiprice/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupProductRoutes(api *echo.Group, handler *rest.ProductHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	products := api.Group("/products")

	products.GET("", handler.GetAllProducts)
	products.GET("/:id", handler.GetProductByID)
	products.GET("/:id/price-history", handler.PriceHistory)
	products.POST("", handler.CreateProduct, authRequired, adminOnly)
	products.PUT("/:id", handler.UpdateProduct, authRequired, adminOnly)
	products.DELETE("/:id", handler.DeleteProduct, authRequired, adminOnly)
}

func SetupBatchRoutes(api *echo.Group, handler *rest.BatchHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	batches := api.Group("/inventory/batches")

	batches.GET("", handler.GetAllBatches)
	batches.GET("/:id", handler.GetBatchByID)
	batches.POST("", handler.CreateBatch, authRequired)
	batches.PUT("/:id/quantity", handler.UpdateBatchQuantity, authRequired)
	batches.DELETE("/:id", handler.DeleteBatch, authRequired, adminOnly)
}

func SetupDiscountRoutes(api *echo.Group, handler *rest.PricingHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	discounts := api.Group("/discounts")

	discounts.GET("/preview/:batch_id", handler.Preview)
	discounts.GET("/active/:batch_id", handler.ActiveDiscount)
	discounts.GET("/history/:batch_id", handler.DiscountHistory)

	discounts.POST("/compute/:batch_id", handler.Compute, authRequired)
	discounts.POST("/recompute-all", handler.RecomputeAll, authRequired, adminOnly)
	discounts.GET("/tasks/:task_id", handler.TaskStatus, authRequired)
	discounts.GET("/scheduler", handler.SchedulerStatus, authRequired, adminOnly)
}

func SetupExperimentRoutes(api *echo.Group, handler *rest.ExperimentHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	experiments := api.Group("/experiments", authRequired)

	experiments.POST("/assign", handler.Assign)
	experiments.POST("/assign-all", handler.BulkAssign, adminOnly)
	experiments.POST("/metrics", handler.RecordMetric)
	experiments.GET("/summary", handler.Summary)
}

func SetupAdminRoutes(api *echo.Group, handler *rest.AdminHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	admin := api.Group("/admin", authRequired, adminOnly)

	admin.POST("/rules/reload", handler.ReloadRules)
	admin.POST("/ml/recommend", handler.Recommend)
}
