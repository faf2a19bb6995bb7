package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/evanhesketh/flask-cafe/internal/repository"
)

// LikeHandler serves the JSON likes API.  For compatibility with the
// original surface, unauthenticated calls answer HTTP 200 with
// {"error": "Not logged in"} instead of an HTTP error status.
type LikeHandler struct {
	Likes LikeStore
}

const notLoggedInBody = "Not logged in"

type likeReq struct {
	CafeID uint64 `json:"cafe_id" form:"cafe_id"`
}

// Status handles GET /api/likes?cafe_id=N -> {"likes": bool}.
func (h *LikeHandler) Status(c echo.Context) error {
	u := currentUser(c)
	if u == nil {
		return c.JSON(http.StatusOK, echo.Map{"error": notLoggedInBody})
	}
	cafeID, err := strconv.ParseUint(c.QueryParam("cafe_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cafe_id"})
	}
	likes, err := h.Likes.Exists(c.Request().Context(), u.ID, cafeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"likes": likes})
}

// Like handles POST /api/like {"cafe_id": N} -> {"liked": N}.  The insert
// is idempotent: liking an already-liked cafe succeeds without creating a
// second edge.
func (h *LikeHandler) Like(c echo.Context) error {
	u := currentUser(c)
	if u == nil {
		return c.JSON(http.StatusOK, echo.Map{"error": notLoggedInBody})
	}
	var req likeReq
	if err := c.Bind(&req); err != nil || req.CafeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cafe_id"})
	}
	if err := h.Likes.Add(c.Request().Context(), u.ID, req.CafeID); err != nil {
		if errors.Is(err, repository.ErrCafeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": req.CafeID})
}

// Unlike handles POST /api/unlike {"cafe_id": N} -> {"unliked": N}.
// Unliking a cafe that was never liked is a no-op success, so the common
// "already unliked" race never surfaces to the client.
func (h *LikeHandler) Unlike(c echo.Context) error {
	u := currentUser(c)
	if u == nil {
		return c.JSON(http.StatusOK, echo.Map{"error": notLoggedInBody})
	}
	var req likeReq
	if err := c.Bind(&req); err != nil || req.CafeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cafe_id"})
	}
	if err := h.Likes.Remove(c.Request().Context(), u.ID, req.CafeID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"unliked": req.CafeID})
}
