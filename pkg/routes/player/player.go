package player

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/models"
)

// Getter loads a canonical player, returning a 404 httperror when absent
type Getter interface {
	Get(ctx context.Context, id string) (*models.Player, error)
}

// Handler serves canonical players
type Handler struct {
	players Getter
}

// NewHandler creates a new player Handler
func NewHandler(players Getter) *Handler {
	return &Handler{players: players}
}

// Register registers player routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/:id", h.GetPlayer)
}

// GetPlayer returns one player
func (h *Handler) GetPlayer(c echo.Context) error {
	player, err := h.players.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, player)
}
