package handler

import (
	"net/http"

	"forgeline/internal/middleware"
	"forgeline/internal/service"
	"forgeline/pkg/pagination"
	"forgeline/pkg/response"

	"github.com/gin-gonic/gin"
)

type MaterialHandler struct {
	materialService service.MaterialService
}

func NewMaterialHandler(materialService service.MaterialService) *MaterialHandler {
	return &MaterialHandler{materialService: materialService}
}

func (h *MaterialHandler) RegisterRoutes(router *gin.RouterGroup) {
	material := router.Group("/api")
	{
		material.POST("/lots", middleware.RequirePermission("material.write"), h.ReceiveLot)
		material.GET("/lots", middleware.RequirePermission("material.read"), h.ListLots)
		material.GET("/lots/:id/available", middleware.RequirePermission("material.read"), h.AvailableQty)
		material.GET("/lots/:id/issues", middleware.RequirePermission("material.read"), h.ListIssues)
		material.POST("/issues", middleware.RequirePermission("material.write"), h.IssueMaterial)
	}
}

// ReceiveLot books a new raw material lot into stock
// @Summary      Receive material lot
// @Description  Books a raw material lot into stock with heat number traceability
// @Tags         material
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ReceiveLotRequest  true  "Receive Lot Payload"
// @Success      201      {object}  response.Response{data=service.LotResponse}
// @Failure      400      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/lots [post]
func (h *MaterialHandler) ReceiveLot(c *gin.Context) {
	var req service.ReceiveLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	lot, err := h.materialService.ReceiveLot(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, lot))
}

// ListLots retrieves paginated material lots
// @Summary      List material lots
// @Description  Retrieves a paginated list of material lots, optionally filtered by status
// @Tags         material
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        status  query     string  false  "Filter by lot status"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/lots [get]
func (h *MaterialHandler) ListLots(c *gin.Context) {
	params := pagination.Parse(c)
	status := c.Query("status")

	lots, total, err := h.materialService.ListLots(c.Request.Context(), params.Page, params.Limit, status)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"lots":  lots,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// AvailableQty reports the remaining issuable quantity of a lot
// @Summary      Available lot quantity
// @Description  Computes net weight minus issued weight for a lot
// @Tags         material
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Lot ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Router       /api/lots/{id}/available [get]
func (h *MaterialHandler) AvailableQty(c *gin.Context) {
	available, err := h.materialService.AvailableQty(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"available": available.String(),
	}))
}

// ListIssues retrieves all issues drawn from a lot
// @Summary      List lot issues
// @Description  Retrieves all material issues recorded against a lot
// @Tags         material
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Lot ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Router       /api/lots/{id}/issues [get]
func (h *MaterialHandler) ListIssues(c *gin.Context) {
	issues, err := h.materialService.ListIssues(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, issues))
}

// IssueMaterial draws quantity from a lot against a work order
// @Summary      Issue material
// @Description  Issues lot quantity to a work order; fails if the lot lacks stock
// @Tags         material
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.IssueMaterialRequest  true  "Issue Material Payload"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/issues [post]
func (h *MaterialHandler) IssueMaterial(c *gin.Context) {
	var req service.IssueMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	if err := h.materialService.Issue(c.Request.Context(), userID, req); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "material issued"}))
}
