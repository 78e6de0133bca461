package handler

import (
	"net/http"

	"forgeline/internal/middleware"
	"forgeline/internal/service"
	"forgeline/pkg/pagination"
	"forgeline/pkg/response"

	"github.com/gin-gonic/gin"
)

type WorkOrderHandler struct {
	workOrderService service.WorkOrderService
}

func NewWorkOrderHandler(workOrderService service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{workOrderService: workOrderService}
}

func (h *WorkOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	wo := router.Group("/api")
	{
		wo.POST("/salesorders", middleware.RequirePermission("sales.write"), h.CreateSalesOrder)
		wo.GET("/salesorders", middleware.RequirePermission("sales.read"), h.ListSalesOrders)
		wo.GET("/salesorders/:id", middleware.RequirePermission("sales.read"), h.GetSalesOrder)
		wo.POST("/salesorders/lines/:id/approve", middleware.RequirePermission("sales.approve"), h.ApproveLine)

		wo.GET("/workorders", middleware.RequirePermission("workorder.read"), h.List)
		wo.GET("/workorders/:id", middleware.RequirePermission("workorder.read"), h.Get)
		wo.GET("/workorders/:id/progress", middleware.RequirePermission("workorder.read"), h.Progress)
		wo.GET("/workorders/:id/transitions", middleware.RequirePermission("workorder.read"), h.ListTransitions)
		wo.POST("/workorders/transition", middleware.RequirePermission("workorder.write"), h.Transition)
		wo.POST("/workorders/:id/shortclose", middleware.RequirePermission("workorder.shortclose"), h.ShortClose)
	}
}

type shortCloseRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateSalesOrder books a new sales order with its lines
// @Summary      Create sales order
// @Description  Books a sales order; each line is approved separately into a work order
// @Tags         salesorder
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSalesOrderRequest  true  "Create Sales Order Payload"
// @Success      201      {object}  response.Response{data=model.SalesOrder}
// @Failure      400      {object}  response.Response
// @Router       /api/salesorders [post]
func (h *WorkOrderHandler) CreateSalesOrder(c *gin.Context) {
	var req service.CreateSalesOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	order, err := h.workOrderService.CreateSalesOrder(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListSalesOrders retrieves paginated sales orders
// @Summary      List sales orders
// @Description  Retrieves a paginated list of sales orders with their lines
// @Tags         salesorder
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/salesorders [get]
func (h *WorkOrderHandler) ListSalesOrders(c *gin.Context) {
	params := pagination.Parse(c)

	orders, total, err := h.workOrderService.ListSalesOrders(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"sales_orders": orders,
		"total":        total,
		"page":         params.Page,
		"limit":        params.Limit,
	}))
}

// GetSalesOrder retrieves one sales order with its lines
// @Summary      Get sales order
// @Description  Retrieves a sales order by ID including its lines
// @Tags         salesorder
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sales Order ID"
// @Success      200  {object}  response.Response{data=model.SalesOrder}
// @Failure      404  {object}  response.Response
// @Router       /api/salesorders/{id} [get]
func (h *WorkOrderHandler) GetSalesOrder(c *gin.Context) {
	order, err := h.workOrderService.GetSalesOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ApproveLine approves a sales order line into a work order
// @Summary      Approve sales order line
// @Description  Approves one line exactly once and creates its work order
// @Tags         salesorder
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sales Order Line ID"
// @Success      201  {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/salesorders/lines/{id}/approve [post]
func (h *WorkOrderHandler) ApproveLine(c *gin.Context) {
	userID := c.GetString("userID")

	wo, err := h.workOrderService.ApproveLine(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, wo))
}

// List retrieves paginated work orders
// @Summary      List work orders
// @Description  Retrieves a paginated list of work orders, optionally filtered by status
// @Tags         workorder
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        status  query     string  false  "Filter by status"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/workorders [get]
func (h *WorkOrderHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	status := c.Query("status")

	orders, total, err := h.workOrderService.List(c.Request.Context(), params.Page, params.Limit, status)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"work_orders": orders,
		"total":       total,
		"page":        params.Page,
		"limit":       params.Limit,
	}))
}

// Get retrieves one work order
// @Summary      Get work order
// @Description  Retrieves a work order by ID
// @Tags         workorder
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/workorders/{id} [get]
func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.workOrderService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

// Progress retrieves the roll-up of a work order and its batches
// @Summary      Work order progress
// @Description  Retrieves order counters, per-batch state and completion percentages
// @Tags         workorder
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.ProgressResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/workorders/{id}/progress [get]
func (h *WorkOrderHandler) Progress(c *gin.Context) {
	progress, err := h.workOrderService.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, progress))
}

// ListTransitions retrieves the status transition history
// @Summary      List transitions
// @Description  Retrieves every status transition of a work order including overrides
// @Tags         workorder
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=[]model.StageTransition}
// @Failure      400  {object}  response.Response
// @Router       /api/workorders/{id}/transitions [get]
func (h *WorkOrderHandler) ListTransitions(c *gin.Context) {
	transitions, err := h.workOrderService.ListTransitions(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, transitions))
}

// Transition moves a work order to its next status
// @Summary      Transition work order
// @Description  Moves a work order forward; overrides skip blockers but require a reason and are flagged in the audit trail
// @Tags         workorder
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TransitionRequest  true  "Transition Payload"
// @Success      200      {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/workorders/transition [post]
func (h *WorkOrderHandler) Transition(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	wo, err := h.workOrderService.Transition(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

// ShortClose completes a work order below the ordered quantity
// @Summary      Short-close work order
// @Description  Completes an order below its ordered quantity with an attributed reason
// @Tags         workorder
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "Work Order ID"
// @Param        payload  body      shortCloseRequest  true  "Short Close Reason"
// @Success      200      {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/workorders/{id}/shortclose [post]
func (h *WorkOrderHandler) ShortClose(c *gin.Context) {
	var req shortCloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	wo, err := h.workOrderService.ShortClose(c.Request.Context(), userID, c.Param("id"), req.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}
