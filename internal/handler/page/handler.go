package page

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lifelink/donor-api/internal/handler"
	"github.com/lifelink/donor-api/internal/model"
	"github.com/lifelink/donor-api/internal/service/page"
)

type Handler struct {
	service *page.Service
}

func NewHandler(service *page.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/pages/:slug", h.Get)
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	pages := r.Group("/pages")
	{
		pages.GET("", h.List)
		pages.PUT("/:slug", h.Upsert)
	}
}

func (h *Handler) Get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) List(c *gin.Context) {
	pages, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list pages"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(pages))
}

func (h *Handler) Upsert(c *gin.Context) {
	var req model.UpsertPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	p := &model.Page{
		Slug:  c.Param("slug"),
		Title: req.Title,
		Body:  req.Body,
	}

	actor := c.GetString("adminEmail")
	if err := h.service.Upsert(c.Request.Context(), actor, p); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}
