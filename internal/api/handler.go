package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"renos/internal/approval"
	"renos/internal/logger"
	"renos/pkg/breaker"
	"renos/pkg/errors"
)

type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

// Handler exposes the operator surface: the approval queue, pipeline
// stats and circuit breaker states.
type Handler struct {
	BaseHandler
	workflow *approval.Workflow
	breakers *breaker.Registry
}

func NewHandler(workflow *approval.Workflow, breakers *breaker.Registry, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{Logger: log},
		workflow:    workflow,
		breakers:    breakers,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		responses := v1.Group("/responses")
		{
			responses.GET("/pending", h.ListPending)
			responses.POST("/:id/approve", h.Approve)
			responses.POST("/:id/reject", h.Reject)
		}

		v1.GET("/stats", h.Stats)
		v1.GET("/breakers", h.Breakers)
	}
}

// ListPending returns held responses oldest first.
func (h *Handler) ListPending(c *gin.Context) {
	pending, err := h.workflow.ListPending(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if pending == nil {
		pending = []*approval.PendingResponse{}
	}
	c.JSON(http.StatusOK, pending)
}

type ApproveRequest struct {
	Approver string `json:"approver" binding:"required"`
}

func (h *Handler) Approve(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	resp, err := h.workflow.Approve(c.Request.Context(), c.Param("id"), req.Approver)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type RejectRequest struct {
	Note string `json:"note"`
}

func (h *Handler) Reject(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	resp, err := h.workflow.Reject(c.Request.Context(), c.Param("id"), req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Stats(c *gin.Context) {
	pending, err := h.workflow.ListPending(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pending_responses": len(pending),
		"auto_sent_today":   h.workflow.AutoSentToday(),
	})
}

func (h *Handler) Breakers(c *gin.Context) {
	states := map[string]string{}
	if h.breakers != nil {
		states = h.breakers.Snapshot()
	}
	c.JSON(http.StatusOK, states)
}
