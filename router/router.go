// api/router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bastionhq/bastion/api/controller"
	"github.com/bastionhq/bastion/api/middleware"
)

func SetupRouter(
	checkController *controller.CheckController,
	healthController *controller.HealthController,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	// Probes bypass identity and rate limiting.
	healthController.RegisterRoutes(router)

	api := router.Group("/api/v1")
	api.Use(middleware.Identity())
	if rateLimitRequests > 0 {
		api.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))
	}

	checkController.RegisterRoutes(api)

	return router
}
