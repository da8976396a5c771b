package router

import (
	"github.com/gin-gonic/gin"

	"docslice/internal/handler"
	"docslice/internal/middleware"
	"docslice/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	authSvc service.AuthService,
	authH *handler.AuthHandler,
	sessionH *handler.SessionHandler,
	segmentH *handler.SegmentHandler,
	exportH *handler.ExportHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.Refresh)

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc))

	sessions := protected.Group("/sessions")
	sessions.POST("", sessionH.Create)
	sessions.GET("", sessionH.List)
	sessions.GET("/:id", sessionH.Get)
	sessions.DELETE("/:id", sessionH.Delete)
	sessions.PUT("/:id/context", sessionH.SetContext)
	sessions.POST("/:id/bundle", sessionH.UploadBundle)
	sessions.POST("/:id/master", sessionH.UploadMaster)
	sessions.POST("/:id/analyze", sessionH.Analyze)
	sessions.POST("/:id/undo", sessionH.Undo)
	sessions.POST("/:id/redo", sessionH.Redo)
	sessions.POST("/:id/reset", sessionH.Reset)
	sessions.POST("/:id/finalize", sessionH.Finalize)
	sessions.GET("/:id/audit", sessionH.Audit)

	segments := sessions.Group("/:id/segments")
	segments.PATCH("/:segmentID", segmentH.SetField)
	segments.DELETE("/:segmentID", segmentH.Delete)
	segments.POST("/:segmentID/select", segmentH.ToggleSelect)
	segments.POST("/select-all", segmentH.SelectAll)
	segments.POST("/bulk-tag", segmentH.BulkTag)
	segments.POST("/bulk-category", segmentH.BulkCategory)
	segments.GET("/:segmentID/artifact", segmentH.Artifact)

	export := sessions.Group("/:id/export")
	export.GET("/manifest.csv", exportH.ManifestCSV)
	export.GET("/report.xlsx", exportH.ReportXLSX)
	export.POST("/upload", exportH.Upload)

	return r
}
