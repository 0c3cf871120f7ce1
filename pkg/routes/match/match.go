package match

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/models"
)

var validate = validator.New()

// Matcher resolves a mention
type Matcher interface {
	Match(ctx context.Context, mention models.CandidateMention) (*models.MatchResult, error)
}

// Handler serves mention resolution
type Handler struct {
	matcher Matcher
}

// NewHandler creates a new match Handler
func NewHandler(matcher Matcher) *Handler {
	return &Handler{matcher: matcher}
}

// Register registers match routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Match)
}

// Match resolves the mention in the request body
func (h *Handler) Match(c echo.Context) error {
	ctx := c.Request().Context()

	var mention models.CandidateMention
	if err := c.Bind(&mention); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&mention); err != nil {
		return err
	}

	result, err := h.matcher.Match(ctx, mention)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
