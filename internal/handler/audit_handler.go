package handler

import (
	"net/http"

	"forgeline/internal/middleware"
	"forgeline/internal/service"
	"forgeline/pkg/pagination"
	"forgeline/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	audit := router.Group("/api")
	{
		audit.GET("/audit", middleware.RequirePermission("audit.read"), h.List)
	}
}

// List retrieves paginated audit entries
// @Summary      List audit log
// @Description  Retrieves a paginated audit trail, optionally filtered by action
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 50)"
// @Param        action  query     string  false  "Filter by action"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	action := c.Query("action")

	entries, total, err := h.auditService.List(c.Request.Context(), params.Page, params.Limit, action)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}
