package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/premium-allocation/internal/api/handlers"
	"github.com/andresuchdata/premium-allocation/internal/api/middleware"
	"github.com/andresuchdata/premium-allocation/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	PremiumService *service.PremiumService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.PremiumService != nil {
		premiumHandler := handlers.NewPremiumHandler(services.PremiumService)
		apiGroup.GET("/summary", premiumHandler.GetSummary)
		apiGroup.GET("/regions", premiumHandler.GetRegions)

		sessionGroup := apiGroup.Group("/sessions")
		{
			sessionGroup.POST("", premiumHandler.CreateSession)
			sessionGroup.GET("/:id", premiumHandler.GetSession)
			sessionGroup.DELETE("/:id", premiumHandler.DeleteSession)
			sessionGroup.PUT("/:id/policy", premiumHandler.SetPolicy)
			sessionGroup.PUT("/:id/target", premiumHandler.SetTarget)
			sessionGroup.PATCH("/:id/allocation", premiumHandler.EditAllocation)
			sessionGroup.GET("/:id/metrics", premiumHandler.GetMetrics)
			sessionGroup.POST("/:id/simulations", premiumHandler.Simulate)
			sessionGroup.POST("/:id/simulations/batch", premiumHandler.SimulateBatch)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
