package api

import (
	"log/slog"
	"net/http"

	"alcyxob/attachment-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteDeps are the collaborators of the HTTP surface.
type RouteDeps struct {
	JWTSecret         string
	CORSOrigins       []string
	AttachmentService service.AttachmentService
	Logger            *slog.Logger
	Registerer        prometheus.Registerer
	Gatherer          prometheus.Gatherer
}

func SetupRoutes(router *gin.Engine, deps RouteDeps) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	attachmentHandler := NewAttachmentHandler(deps.AttachmentService, deps.Logger)
	authMiddleware := AuthMiddleware(deps.JWTSecret)

	router.Use(RequestLogger(deps.Logger), NewHTTPMetrics(deps.Registerer).Middleware())
	if len(deps.CORSOrigins) > 0 {
		router.Use(CORSMiddleware(deps.CORSOrigins))
	}

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		// --- Attachment Routes ---
		files := protected.Group("/entities/:ownerId/files")
		{
			files.POST("", attachmentHandler.CreateFile)
			files.GET("", attachmentHandler.ListFiles)

			// Static segments are registered before :fileId
			files.POST("/credentials", attachmentHandler.GetCredentials)
			files.POST("/upload-url", attachmentHandler.RequestUploadURL)

			files.GET("/:fileId", attachmentHandler.GetFile)
			files.GET("/:fileId/download", attachmentHandler.DownloadFile)
			files.DELETE("/:fileId", attachmentHandler.DeleteFile)
		}
	}
}
