package pendinglink

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/review"
)

// Handler serves the review queue
type Handler struct {
	service *review.Service
	logger  ectologger.Logger
}

// NewHandler creates a new pending link Handler
func NewHandler(service *review.Service, logger ectologger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register registers pending link routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.ListPendingLinks)
	g.GET("/:id", h.GetPendingLink)
	g.POST("/:id/approve", h.ApprovePendingLink)
	g.POST("/:id/reject", h.RejectPendingLink)
}

// ListPendingLinks lists links newest first, filtered by ?status= and bounded by ?limit=
func (h *Handler) ListPendingLinks(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = parsed
	}

	links, err := h.service.List(ctx, c.QueryParam("status"), limit)
	if err != nil {
		return err
	}
	if links == nil {
		links = []models.PendingLink{}
	}

	return c.JSON(http.StatusOK, links)
}

// GetPendingLink returns one pending link
func (h *Handler) GetPendingLink(c echo.Context) error {
	link, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, link)
}

// ApprovePendingLink approves a pending link. A link that is no longer pending returns 409.
func (h *Handler) ApprovePendingLink(c echo.Context) error {
	link, err := h.service.Approve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, link)
}

// RejectPendingLink rejects a pending link. A link that is no longer pending returns 409.
func (h *Handler) RejectPendingLink(c echo.Context) error {
	link, err := h.service.Reject(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, link)
}
