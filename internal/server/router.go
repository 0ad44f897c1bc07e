package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/storyforge-backend/internal/handlers"
	"github.com/yungbote/storyforge-backend/internal/logger"
	"github.com/yungbote/storyforge-backend/internal/middleware"
)

type RouterConfig struct {
	Log              *logger.Logger
	StorybookHandler *handlers.StorybookHandler
	AudiobookHandler *handlers.AudiobookHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("storyforge-backend"))
	if cfg.Log != nil {
		router.Use(middleware.AttachRequestContext(cfg.Log))
	}

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	storybook := router.Group("/storybook")
	{
		storybook.POST("/session/start", cfg.StorybookHandler.StartSession)
		storybook.POST("/create-and-finalize", cfg.StorybookHandler.CreateAndFinalize)
		storybook.GET("/session/:id/state", cfg.StorybookHandler.GetState)
		storybook.PUT("/session/:id/scene/:index", cfg.StorybookHandler.UpdateSceneText)
		storybook.POST("/session/:id/scene/:index/regenerate", cfg.StorybookHandler.RegenerateSceneImage)
		storybook.PUT("/session/:id/details", cfg.StorybookHandler.UpdateDetails)
		storybook.PUT("/session/:id/styles", cfg.StorybookHandler.UpdateStyles)
		storybook.GET("/session/:id/preview", cfg.StorybookHandler.Preview)
		storybook.GET("/session/:id/download", cfg.StorybookHandler.Download)
	}

	if cfg.AudiobookHandler != nil {
		router.POST("/audiobook/convert", cfg.AudiobookHandler.Convert)
	}

	return router
}

func allowedOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if raw == "" {
		return []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
