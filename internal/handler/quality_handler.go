package handler

import (
	"net/http"

	"forgeline/internal/middleware"
	"forgeline/internal/service"
	"forgeline/pkg/response"

	"github.com/gin-gonic/gin"
)

type QualityHandler struct {
	qualityService service.QualityService
}

func NewQualityHandler(qualityService service.QualityService) *QualityHandler {
	return &QualityHandler{qualityService: qualityService}
}

func (h *QualityHandler) RegisterRoutes(router *gin.RouterGroup) {
	quality := router.Group("/api")
	{
		quality.POST("/qc", middleware.RequirePermission("quality.write"), h.RecordResult)
		quality.GET("/workorders/:id/qc", middleware.RequirePermission("quality.read"), h.ListRecords)
	}
}

// RecordResult files a QC inspection record
// @Summary      Record QC result
// @Description  Files an inspection record; pass/fail is computed from the measurements unless waived or forced
// @Tags         quality
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordQCRequest  true  "Record QC Payload"
// @Success      201      {object}  response.Response{data=service.QCRecordResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/qc [post]
func (h *QualityHandler) RecordResult(c *gin.Context) {
	var req service.RecordQCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	record, err := h.qualityService.RecordResult(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, record))
}

// ListRecords retrieves all QC records of a work order
// @Summary      List QC records
// @Description  Retrieves every inspection record filed against a work order, newest first
// @Tags         quality
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=[]service.QCRecordResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/workorders/{id}/qc [get]
func (h *QualityHandler) ListRecords(c *gin.Context) {
	records, err := h.qualityService.ListRecords(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, records))
}
