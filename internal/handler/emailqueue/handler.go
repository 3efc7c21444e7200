package emailqueue

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lifelink/donor-api/internal/handler"
	"github.com/lifelink/donor-api/internal/repository"
)

// Handler exposes the email queue to operators: inspecting job state
// and requeueing terminally failed jobs.
type Handler struct {
	queue repository.EmailQueueRepository
}

func NewHandler(queue repository.EmailQueueRepository) *Handler {
	return &Handler{queue: queue}
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	jobs := r.Group("/email-jobs")
	{
		jobs.GET("", h.List)
		jobs.GET("/:id", h.Get)
		jobs.POST("/:id/retry", h.Retry)
	}
}

func (h *Handler) List(c *gin.Context) {
	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	jobs, err := h.queue.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list email jobs"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(jobs))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid job ID"))
		return
	}

	job, err := h.queue.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(job))
}

func (h *Handler) Retry(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid job ID"))
		return
	}

	if err := h.queue.RetryFailed(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
