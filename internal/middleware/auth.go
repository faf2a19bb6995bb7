package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/evanhesketh/flask-cafe/internal/session"
	"github.com/evanhesketh/flask-cafe/internal/utils"
)

// Messages flashed when a page guard turns a visitor away.
const (
	NotLoggedInMsg = "You are not logged in."
	NotAdminMsg    = "You are not an admin."
)

// RequireUser guards page routes that need a logged-in user.  Anonymous
// visitors are redirected to the login page with a flashed message rather
// than receiving a bare 401; no partial action ever takes place.
func RequireUser(store session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if UserFrom(c) == nil {
				Flash(c, store, NotLoggedInMsg)
				return c.Redirect(http.StatusFound, "/login")
			}
			return next(c)
		}
	}
}

// RequireAdmin guards the cafe add/edit routes.  Anonymous visitors go to
// the login page; logged-in non-admins are sent back to the cafe list.
func RequireAdmin(store session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := UserFrom(c)
			if u == nil {
				Flash(c, store, NotLoggedInMsg)
				return c.Redirect(http.StatusFound, "/login")
			}
			if !u.Admin {
				Flash(c, store, NotAdminMsg)
				return c.Redirect(http.StatusFound, "/cafes")
			}
			return next(c)
		}
	}
}

// BearerAuth lets API clients authenticate with a JWT from POST /api/token
// as an alternative to the session cookie.  When the request carries a
// valid Bearer token and no session user is present, the token's subject
// is resolved and exposed under UserKey.  Invalid or absent tokens are not
// an error here: the likes API reports anonymity in its response body.
func BearerAuth(secret string, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if UserFrom(c) != nil {
				return next(c)
			}
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return next(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")
			uid, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return next(c)
			}
			if u, err := users.GetByID(c.Request().Context(), uid); err == nil {
				c.Set(UserKey, u)
			}
			return next(c)
		}
	}
}
