// api/controller/check_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	bastion_errors "github.com/bastionhq/bastion/api/errors"
	"github.com/bastionhq/bastion/api/model"
	"github.com/bastionhq/bastion/api/service"
	"github.com/bastionhq/bastion/api/util"
	helper_util "github.com/bastionhq/bastion/api/util/helper"
)

type CheckController struct {
	authzService service.IAuthorizationService
}

func NewCheckController(authzService service.IAuthorizationService) *CheckController {
	return &CheckController{
		authzService: authzService,
	}
}

// RegisterRoutes registers the API routes
func (cc *CheckController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/check", cc.Check)
	r.POST("/check/batch", cc.BatchCheck)
	r.POST("/invalidate", cc.Invalidate)
	r.GET("/stats", cc.Stats)
	r.GET("/audit", cc.QueryAudit)
}

// Check endpoint
func (cc *CheckController) Check(c *gin.Context) {
	var req model.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid check data", bastion_errors.ErrInvalidCheckData)
		return
	}

	response, err := cc.authzService.Check(c.Request.Context(), req)
	if err != nil {
		switch err {
		case bastion_errors.ErrInvalidCheckData:
			util.RespondWithError(c, http.StatusBadRequest, "Invalid check data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to evaluate check", bastion_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, response)
}

// BatchCheck endpoint
func (cc *CheckController) BatchCheck(c *gin.Context) {
	var req model.BatchCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid batch check data", bastion_errors.ErrInvalidCheckData)
		return
	}

	responses, err := cc.authzService.BatchCheck(c.Request.Context(), req)
	if err != nil {
		switch err {
		case bastion_errors.ErrInvalidCheckData:
			util.RespondWithError(c, http.StatusBadRequest, "Invalid batch check data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to evaluate batch", bastion_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": responses})
}

// Invalidate endpoint
func (cc *CheckController) Invalidate(c *gin.Context) {
	var req model.InvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid invalidate data", bastion_errors.ErrInvalidCheckData)
		return
	}
	requestedBy, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", bastion_errors.ErrUnauthorized)
		return
	}

	if err := cc.authzService.Invalidate(c.Request.Context(), req, requestedBy); err != nil {
		switch err {
		case bastion_errors.ErrInvalidCheckData:
			util.RespondWithError(c, http.StatusBadRequest, "Invalid invalidate data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to invalidate", bastion_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "invalidated", "subject": req.Subject})
}

// Stats endpoint
func (cc *CheckController) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, cc.authzService.Stats(c.Request.Context()))
}

// QueryAudit endpoint
func (cc *CheckController) QueryAudit(c *gin.Context) {
	from, err := helper_util.ParseTimeOrDefault(c.Query("from"), time.Now().Add(-24*time.Hour))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid from timestamp", bastion_errors.ErrInvalidAuditQuery)
		return
	}
	to, err := helper_util.ParseTimeOrDefault(c.Query("to"), time.Now())
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid to timestamp", bastion_errors.ErrInvalidAuditQuery)
		return
	}

	entries, err := cc.authzService.QueryAudit(c.Request.Context(), from, to, c.Query("user_id"), c.Query("resource"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit trail", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
