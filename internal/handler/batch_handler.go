package handler

import (
	"net/http"
	"os"
	"strconv"

	"forgeline/internal/middleware"
	"forgeline/internal/service"
	"forgeline/pkg/response"

	"github.com/gin-gonic/gin"
)

// defaultGapDays reads BATCH_GAP_DAYS, falling back to 3.
func defaultGapDays() string {
	if v := os.Getenv("BATCH_GAP_DAYS"); v != "" {
		return v
	}
	return "3"
}

type BatchHandler struct {
	batchService service.BatchService
}

func NewBatchHandler(batchService service.BatchService) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

func (h *BatchHandler) RegisterRoutes(router *gin.RouterGroup) {
	batch := router.Group("/api")
	{
		batch.POST("/workorders/:id/batches", middleware.RequirePermission("production.write"), h.GetOrCreateBatch)
		batch.GET("/workorders/:id/batches", middleware.RequirePermission("production.read"), h.ListBatches)
		batch.POST("/batches/:id/production", middleware.RequirePermission("production.write"), h.RecordProduction)
		batch.POST("/batches/:id/complete", middleware.RequirePermission("production.write"), h.MarkProductionComplete)
		batch.POST("/batches/:id/packing", middleware.RequirePermission("production.write"), h.RecordPacking)
		batch.POST("/batches/:id/stage", middleware.RequirePermission("production.write"), h.AdvanceStage)
	}
}

type recordProductionRequest struct {
	QtyOK    int `json:"qty_ok"`
	QtyScrap int `json:"qty_scrap"`
}

type completeBatchRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type recordPackingRequest struct {
	Qty int `json:"qty" binding:"required"`
}

type advanceStageRequest struct {
	Stage string `json:"stage" binding:"required"`
}

// GetOrCreateBatch returns the active batch or opens a new one
// @Summary      Get or create batch
// @Description  Returns the active batch for a work order, or opens a new one chained to its predecessor after a production gap
// @Tags         batch
// @Security     BearerAuth
// @Produce      json
// @Param        id                  path      string  true   "Work Order ID"
// @Param        gap_threshold_days  query     int     false  "Gap threshold in days (default 3)"
// @Success      200  {object}  response.Response{data=service.BatchResponse}
// @Failure      400  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/workorders/{id}/batches [post]
func (h *BatchHandler) GetOrCreateBatch(c *gin.Context) {
	gapDays, _ := strconv.Atoi(c.DefaultQuery("gap_threshold_days", defaultGapDays()))
	userID := c.GetString("userID")

	batch, err := h.batchService.GetOrCreateBatch(c.Request.Context(), userID, c.Param("id"), gapDays)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}

// ListBatches retrieves all batches of a work order
// @Summary      List batches
// @Description  Retrieves every batch of a work order in sequence order
// @Tags         batch
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=[]service.BatchResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/workorders/{id}/batches [get]
func (h *BatchHandler) ListBatches(c *gin.Context) {
	batches, err := h.batchService.ListBatches(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, batches))
}

// RecordProduction books produced and scrapped pieces onto a batch
// @Summary      Record production
// @Description  Books OK and scrap quantities onto a batch and rolls them up into the work order
// @Tags         batch
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Batch ID"
// @Param        payload  body      recordProductionRequest  true  "Production Quantities"
// @Success      200      {object}  response.Response{data=service.BatchResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/batches/{id}/production [post]
func (h *BatchHandler) RecordProduction(c *gin.Context) {
	var req recordProductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	batch, err := h.batchService.RecordProduction(c.Request.Context(), userID, c.Param("id"), req.QtyOK, req.QtyScrap)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}

// MarkProductionComplete seals production on a batch
// @Summary      Mark production complete
// @Description  Seals production on a batch with a reason; further production bookings are rejected
// @Tags         batch
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Batch ID"
// @Param        payload  body      completeBatchRequest  true  "Completion Reason"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/batches/{id}/complete [post]
func (h *BatchHandler) MarkProductionComplete(c *gin.Context) {
	var req completeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	if err := h.batchService.MarkProductionComplete(c.Request.Context(), userID, c.Param("id"), req.Reason); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "production complete"}))
}

// RecordPacking books packed pieces onto a batch
// @Summary      Record packing
// @Description  Books packed quantity onto a QC-approved batch
// @Tags         batch
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Batch ID"
// @Param        payload  body      recordPackingRequest  true  "Packing Quantity"
// @Success      200      {object}  response.Response{data=service.BatchResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/batches/{id}/packing [post]
func (h *BatchHandler) RecordPacking(c *gin.Context) {
	var req recordPackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	batch, err := h.batchService.RecordPacking(c.Request.Context(), userID, c.Param("id"), req.Qty)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}

// AdvanceStage moves a batch forward through its stage sequence
// @Summary      Advance batch stage
// @Description  Moves a batch to a later stage; quality gates are checked and all unmet conditions returned
// @Tags         batch
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Batch ID"
// @Param        payload  body      advanceStageRequest  true  "Target Stage"
// @Success      200      {object}  response.Response{data=service.BatchResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/batches/{id}/stage [post]
func (h *BatchHandler) AdvanceStage(c *gin.Context) {
	var req advanceStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	batch, err := h.batchService.AdvanceStage(c.Request.Context(), userID, c.Param("id"), req.Stage)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}
