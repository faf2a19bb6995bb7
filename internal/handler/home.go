package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/evanhesketh/flask-cafe/internal/middleware"
	"github.com/evanhesketh/flask-cafe/internal/session"
)

// HomeHandler serves the landing page payload.
type HomeHandler struct {
	Sessions session.Store
}

// Show handles GET / with the site tagline and any pending flashes.
func (h *HomeHandler) Show(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Where Coffee Dreams Come True",
		"flashes": middleware.PopFlashes(c, h.Sessions),
	})
}
