package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teamboard/backend/internal/handler"
	"teamboard/backend/internal/middleware"
	"teamboard/backend/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	timerHandler *handler.TimerHandler,
	analyticsHandler *handler.AnalyticsHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	timer := api.Group("/timer")
	timer.Use(middleware.Auth(authService))
	timer.POST("/start", timerHandler.Start)
	timer.POST("/pause", timerHandler.Pause)
	timer.POST("/resume", timerHandler.Resume)
	timer.POST("/stop", timerHandler.Stop)
	timer.POST("/day-end", timerHandler.DayEnd)
	timer.GET("/active", timerHandler.Active)

	entries := api.Group("/entries")
	entries.Use(middleware.Auth(authService))
	entries.GET("", timerHandler.ListEntries)
	entries.POST("", timerHandler.LogManual)
	entries.PATCH("/:id", timerHandler.UpdateEntry)
	entries.DELETE("/:id", timerHandler.DeleteEntry)

	analytics := api.Group("/analytics")
	analytics.Use(middleware.Auth(authService))
	analytics.GET("/summary", analyticsHandler.Summary)

	return engine
}
