// api/controller/health_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bastionhq/bastion/api/service"
)

// HealthController answers liveness probes. The process is alive even
// when the permission oracle is not: the fallback path keeps serving.
type HealthController struct {
	authzService service.IAuthorizationService
}

func NewHealthController(authzService service.IAuthorizationService) *HealthController {
	return &HealthController{authzService: authzService}
}

func (hc *HealthController) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", hc.Health)
}

func (hc *HealthController) Health(c *gin.Context) {
	stats := hc.authzService.Stats(c.Request.Context())
	status := http.StatusOK
	if !hc.authzService.Healthy(c.Request.Context()) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":        "ok",
		"breaker_state": stats.BreakerState,
		"cache_size":    stats.CacheSize,
	})
}
