package router

import (
	"github.com/gin-gonic/gin"
	"github.com/jmpark/tinydesk-backend/config"
	"github.com/jmpark/tinydesk-backend/internal/app/controller"
	"github.com/jmpark/tinydesk-backend/internal/middleware"
)

type Router struct {
	videoController   *controller.VideoController
	trackerController *controller.TrackerController
	config            *config.Config
}

func NewRouter(
	videoController *controller.VideoController,
	trackerController *controller.TrackerController,
	cfg *config.Config,
) *Router {
	return &Router{
		videoController:   videoController,
		trackerController: trackerController,
		config:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "TinyDesk Tracker API is running",
		})
	})

	api := router.Group("/api")
	{
		api.GET("/top", r.videoController.GetTop)
		api.GET("/data", r.videoController.GetData)
		api.GET("/status", r.videoController.GetStatus)
		api.GET("/history/:videoId", r.videoController.GetHistory)
		api.GET("/ranking-history", r.videoController.GetRankingHistory)
		api.GET("/analytics", r.videoController.GetAnalytics)
		api.GET("/export", r.videoController.Export)

		api.POST("/update", r.trackerController.TriggerUpdate)
		api.POST("/videos/:videoId", r.trackerController.AddVideo)
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := ""
		for _, o := range allowedOrigins {
			if o == "*" || o == origin {
				allowed = o
				break
			}
		}
		if allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
