package router

import (
	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/spendwise/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	healthHandler := handler.NewHealthHandler(deps)
	r.GET("/health", healthHandler.Health)

	reportHandler := handler.NewReportHandler(deps)

	transactions := r.Group("/transactions", UserMiddleware(deps.Logger))
	{
		reports := transactions.Group("/report")
		{
			// POST /transactions/report - Enqueue statement generation
			reports.POST("", reportHandler.TriggerReport)

			// GET /transactions/report/list - List the caller's statements
			reports.GET("/list", reportHandler.ListReports)

			// GET /transactions/report/:filename - Download one statement
			reports.GET("/:filename", reportHandler.DownloadReport)
		}
	}

	return r
}
