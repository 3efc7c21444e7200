package donor

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lifelink/donor-api/internal/handler"
	"github.com/lifelink/donor-api/internal/model"
	"github.com/lifelink/donor-api/internal/service/donor"
)

type Handler struct {
	service donor.Service
}

func NewHandler(service donor.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the endpoints open to anonymous donors.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/donors", h.Register)
	r.POST("/donors/:id/verify", h.VerifyEmail)
}

// RegisterAdminRoutes mounts the endpoints behind admin auth.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	donors := r.Group("/donors")
	{
		donors.GET("", h.List)
		donors.GET("/:id", h.Get)
		donors.PUT("/:id/status", h.UpdateStatus)
		donors.POST("/:id/donations", h.RecordDonation)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterDonorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	d, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(d))
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid donor ID"))
		return
	}

	if err := h.service.VerifyEmail(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to verify email"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.DonorFilters{
		Status:    c.Query("status"),
		BloodType: c.Query("blood_type"),
	}

	donors, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list donors"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(donors))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid donor ID"))
		return
	}

	d, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(d))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid donor ID"))
		return
	}

	var req model.UpdateDonorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	actor := c.GetString("adminEmail")
	if err := h.service.UpdateStatus(c.Request.Context(), actor, id, model.DonorStatus(req.Status)); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) RecordDonation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid donor ID"))
		return
	}

	var req model.RecordDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	date, err := time.Parse("2006-01-02", req.DonationDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid donation date"))
		return
	}

	actor := c.GetString("adminEmail")
	if err := h.service.RecordDonation(c.Request.Context(), actor, id, date); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
