package api

import (
	v1 "github.com/flexprice/staffdesk/internal/api/v1"
	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/rest/middleware"
	"github.com/flexprice/staffdesk/internal/sentry"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health   *v1.HealthHandler
	Backend  *v1.BackendHandler
	Employee *v1.EmployeeHandler
	Export   *v1.ExportHandler
	Image    *v1.ImageHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, sentrySvc *sentry.Service, logger *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(sentrySvc, logger),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	v1Group.Use(middleware.SessionIDMiddleware, middleware.SentryScopeMiddleware)
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	backends := router.Group("/backends")
	{
		backends.GET("", handlers.Backend.ListBackends)
		backends.PUT("/active", handlers.Backend.SwitchBackend)
		backends.POST("/active/setup", handlers.Backend.SetupBackend)
	}

	employees := router.Group("/employees")
	{
		employees.GET("", handlers.Employee.ListEmployees)
		employees.GET("/search", handlers.Employee.SearchEmployees)
		employees.GET("/export.csv", handlers.Export.ExportCSV)
		employees.POST("/export/sheet", handlers.Export.ExportSheet)
		employees.POST("", handlers.Employee.CreateEmployee)
		employees.GET("/:id", handlers.Employee.GetEmployee)
		employees.PATCH("/:id", handlers.Employee.UpdateEmployee)
		employees.DELETE("/:id", handlers.Employee.DeleteEmployee)
	}

	images := router.Group("/images")
	{
		images.POST("", handlers.Image.UploadImage)
		images.GET("/:id", handlers.Image.GetImageURL)
		images.DELETE("/:id", handlers.Image.DeleteImage)
	}
}
