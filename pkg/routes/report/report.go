package report

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/models"
)

var validate = validator.New()

// Linker links one report's mentions
type Linker interface {
	LinkReport(ctx context.Context, report *models.Report) (models.LinkStats, error)
}

// Attachments lists the players already attached to a report
type Attachments interface {
	ListByReport(ctx context.Context, reportID string) ([]models.ReportPlayer, error)
}

type Handler struct {
	linker      Linker
	attachments Attachments
}

func NewHandler(linker Linker, attachments Attachments) *Handler {
	return &Handler{linker: linker, attachments: attachments}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/link", h.LinkReport)
	g.GET("/:id/players", h.ListReportPlayers)
}

// LinkReport runs the link consumer on the report in the request body
func (h *Handler) LinkReport(c echo.Context) error {
	ctx := c.Request().Context()

	var report models.Report
	if err := c.Bind(&report); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&report); err != nil {
		return err
	}

	stats, err := h.linker.LinkReport(ctx, &report)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}

// ListReportPlayers returns the report's attachments, oldest first. An unknown report has none.
func (h *Handler) ListReportPlayers(c echo.Context) error {
	links, err := h.attachments.ListByReport(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if links == nil {
		links = []models.ReportPlayer{}
	}
	return c.JSON(http.StatusOK, links)
}
