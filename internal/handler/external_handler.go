package handler

import (
	"net/http"
	"time"

	"forgeline/internal/middleware"
	"forgeline/internal/service"
	"forgeline/pkg/response"

	"github.com/gin-gonic/gin"
)

type ExternalHandler struct {
	externalService service.ExternalService
}

func NewExternalHandler(externalService service.ExternalService) *ExternalHandler {
	return &ExternalHandler{externalService: externalService}
}

func (h *ExternalHandler) RegisterRoutes(router *gin.RouterGroup) {
	external := router.Group("/api")
	{
		external.POST("/partners", middleware.RequirePermission("external.write"), h.CreatePartner)
		external.GET("/partners", middleware.RequirePermission("external.read"), h.ListPartners)
		external.POST("/external/send", middleware.RequirePermission("external.write"), h.SendOut)
		external.POST("/external/receive", middleware.RequirePermission("external.write"), h.ReceiveReturn)
		external.POST("/external/forward", middleware.RequirePermission("external.write"), h.Forward)
		external.GET("/batches/:id/external", middleware.RequirePermission("external.read"), h.ListMovements)
		external.GET("/external/overdue", middleware.RequirePermission("external.read"), h.ListOverdue)
	}
}

// CreatePartner registers a sub-contract partner
// @Summary      Create partner
// @Description  Registers an external processing partner
// @Tags         external
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePartnerRequest  true  "Create Partner Payload"
// @Success      201      {object}  response.Response{data=model.ExternalPartner}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/partners [post]
func (h *ExternalHandler) CreatePartner(c *gin.Context) {
	var req service.CreatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	partner, err := h.externalService.CreatePartner(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, partner))
}

// ListPartners retrieves all partners
// @Summary      List partners
// @Description  Retrieves all external processing partners ordered by name
// @Tags         external
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.ExternalPartner}
// @Failure      500  {object}  response.Response
// @Router       /api/partners [get]
func (h *ExternalHandler) ListPartners(c *gin.Context) {
	partners, err := h.externalService.ListPartners(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, partners))
}

// SendOut dispatches batch quantity to a partner for processing
// @Summary      Send out to partner
// @Description  Sends batch quantity to an external partner for a processing step
// @Tags         external
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SendOutRequest  true  "Send Out Payload"
// @Success      201      {object}  response.Response{data=service.MovementResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/external/send [post]
func (h *ExternalHandler) SendOut(c *gin.Context) {
	var req service.SendOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	movement, err := h.externalService.SendOut(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, movement))
}

// ReceiveReturn books returned and rejected quantity from a partner
// @Summary      Receive partner return
// @Description  Books returned and partner-rejected quantity against a movement; over-returns are rejected
// @Tags         external
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ReceiveReturnRequest  true  "Receive Return Payload"
// @Success      200      {object}  response.Response{data=service.MovementResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/external/receive [post]
func (h *ExternalHandler) ReceiveReturn(c *gin.Context) {
	var req service.ReceiveReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	movement, err := h.externalService.ReceiveReturn(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, movement))
}

// Forward hands outstanding quantity straight to another partner
// @Summary      Forward between partners
// @Description  Forwards a movement's outstanding quantity to the next partner without returning to the factory
// @Tags         external
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ForwardRequest  true  "Forward Payload"
// @Success      201      {object}  response.Response{data=service.MovementResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/external/forward [post]
func (h *ExternalHandler) Forward(c *gin.Context) {
	var req service.ForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	movement, err := h.externalService.Forward(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, movement))
}

// ListMovements retrieves all movements of a batch
// @Summary      List batch movements
// @Description  Retrieves every external movement of a batch in chronological order
// @Tags         external
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Batch ID"
// @Success      200  {object}  response.Response{data=[]service.MovementResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/batches/{id}/external [get]
func (h *ExternalHandler) ListMovements(c *gin.Context) {
	movements, err := h.externalService.ListMovements(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, movements))
}

// ListOverdue retrieves movements past their expected return date
// @Summary      List overdue movements
// @Description  Retrieves movements with quantity still at partners past the expected return date
// @Tags         external
// @Security     BearerAuth
// @Produce      json
// @Param        as_of  query     string  false  "Reference time (RFC3339, default now)"
// @Success      200    {object}  response.Response{data=[]service.MovementResponse}
// @Failure      400    {object}  response.Response
// @Router       /api/external/overdue [get]
func (h *ExternalHandler) ListOverdue(c *gin.Context) {
	asOf := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid as_of time: "+err.Error()))
			return
		}
		asOf = parsed
	}

	movements, err := h.externalService.ListOverdue(c.Request.Context(), asOf)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, movements))
}
