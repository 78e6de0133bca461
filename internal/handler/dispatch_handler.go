package handler

import (
	"net/http"

	"forgeline/internal/middleware"
	"forgeline/internal/service"
	"forgeline/pkg/response"

	"github.com/gin-gonic/gin"
)

type DispatchHandler struct {
	dispatchService service.DispatchService
}

func NewDispatchHandler(dispatchService service.DispatchService) *DispatchHandler {
	return &DispatchHandler{dispatchService: dispatchService}
}

func (h *DispatchHandler) RegisterRoutes(router *gin.RouterGroup) {
	dispatch := router.Group("/api")
	{
		dispatch.POST("/dispatch", middleware.RequirePermission("dispatch.write"), h.Allocate)
		dispatch.GET("/workorders/:id/dispatch", middleware.RequirePermission("dispatch.read"), h.ListAllocations)
	}
}

// Allocate books an outbound shipment against packed, QC-approved quantity
// @Summary      Allocate dispatch
// @Description  Allocates batch quantity to a shipment; replaying the same external_ref returns the original allocation
// @Tags         dispatch
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AllocateDispatchRequest  true  "Allocate Dispatch Payload"
// @Success      201      {object}  response.Response{data=service.AllocationResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/dispatch [post]
func (h *DispatchHandler) Allocate(c *gin.Context) {
	var req service.AllocateDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	allocation, err := h.dispatchService.Allocate(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, allocation))
}

// ListAllocations retrieves all allocations of a work order
// @Summary      List dispatch allocations
// @Description  Retrieves every dispatch allocation of a work order in chronological order
// @Tags         dispatch
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=[]service.AllocationResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/workorders/{id}/dispatch [get]
func (h *DispatchHandler) ListAllocations(c *gin.Context) {
	allocations, err := h.dispatchService.ListAllocations(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, allocations))
}
