package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/evanhesketh/flask-cafe/internal/middleware"
	"github.com/evanhesketh/flask-cafe/internal/repository"
	"github.com/evanhesketh/flask-cafe/internal/session"
)

// ProfileHandler serves the current user's profile pages.  All routes are
// registered behind RequireUser, so currentUser never returns nil here.
type ProfileHandler struct {
	Users    UserStore
	Likes    LikeStore
	Sessions session.Store
}

type profileEditForm struct {
	Email       string `json:"email" form:"email"`
	FirstName   string `json:"first_name" form:"first_name"`
	LastName    string `json:"last_name" form:"last_name"`
	Description string `json:"description" form:"description"`
	ImageURL    string `json:"image_url" form:"image_url"`
}

// Show handles GET /profile: the current user's detail plus the cafes
// they have liked.
func (h *ProfileHandler) Show(c echo.Context) error {
	u := currentUser(c)
	liked, err := h.Likes.ListCafesLikedBy(c.Request().Context(), u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	likedOut := make([]cafeResp, 0, len(liked))
	for _, cf := range liked {
		likedOut = append(likedOut, newCafeResp(cf))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":        u,
		"full_name":   u.GetFullName(),
		"liked_cafes": likedOut,
		"flashes":     middleware.PopFlashes(c, h.Sessions),
	})
}

// EditForm handles GET /profile/edit with the current values.
func (h *ProfileHandler) EditForm(c echo.Context) error {
	u := currentUser(c)
	return c.JSON(http.StatusOK, echo.Map{
		"csrf_token": csrfToken(c),
		"values": profileEditForm{
			Email:       u.Email,
			FirstName:   u.FirstName,
			LastName:    u.LastName,
			Description: u.Description,
			ImageURL:    u.ImageURL,
		},
		"flashes": middleware.PopFlashes(c, h.Sessions),
	})
}

// Edit handles POST /profile/edit.  The username and admin flag are not
// editable; a conflicting email rolls back and surfaces as a conflict.
func (h *ProfileHandler) Edit(c echo.Context) error {
	var form profileEditForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))

	fe := fieldErrors{}
	fe.require("first_name", form.FirstName)
	fe.require("last_name", form.LastName)
	fe.require("email", form.Email)
	if form.Email != "" && !validEmail(form.Email) {
		fe["email"] = "Must be a valid email address."
	}
	fe.optionalURL("image_url", form.ImageURL)
	if len(fe) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe, "csrf_token": csrfToken(c)})
	}

	u := *currentUser(c) // copy; only persist through the store
	u.Email = form.Email
	u.FirstName = form.FirstName
	u.LastName = form.LastName
	u.Description = form.Description
	u.ImageURL = form.ImageURL

	if err := h.Users.UpdateProfile(c.Request().Context(), &u); err != nil {
		if errors.Is(err, repository.ErrUsernameOrEmailTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username and/or email already taken"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	middleware.Flash(c, h.Sessions, "Profile edited.")
	return c.Redirect(http.StatusFound, "/profile")
}
