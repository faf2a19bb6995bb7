package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evanhesketh/flask-cafe/internal/model"
	"github.com/evanhesketh/flask-cafe/internal/repository"
	"github.com/evanhesketh/flask-cafe/internal/session"
)

// CookieName is the name of the session cookie carrying the opaque token.
const CookieName = "cafe_session"

// Context keys under which LoadSession exposes request-scoped state.
// Handlers read these via c.Get instead of relying on any ambient global.
const (
	SessionKey = "session" // *session.Session, always present after LoadSession
	UserKey    = "user"    // *model.User, present only when logged in
)

// UserLoader resolves a user id into a full user record.  It is satisfied
// by *repository.UserRepo; tests plug in fakes.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// LoadSession is the pre-dispatch hook that resolves the session cookie
// into a live session for the duration of the request.  A visitor without
// a valid cookie gets a fresh anonymous session (with its CSRF token) and
// a Set-Cookie.  When the session carries a user id, the user record is
// loaded and exposed under UserKey; a stale id (user deleted) resolves to
// anonymous rather than failing the request.
func LoadSession(store session.Store, users UserLoader, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			var s *session.Session
			if ck, err := c.Cookie(CookieName); err == nil && ck.Value != "" {
				if got, err := store.Get(ctx, ck.Value); err == nil {
					s = got
				} else if !errors.Is(err, session.ErrNotFound) {
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session store unavailable"})
				}
			}
			if s == nil {
				created, err := store.Create(ctx)
				if err != nil {
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session store unavailable"})
				}
				s = created
				c.SetCookie(&http.Cookie{
					Name:     CookieName,
					Value:    s.Token,
					Path:     "/",
					MaxAge:   int(ttl / time.Second),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Set(SessionKey, s)

			if s.UserID != 0 {
				u, err := users.GetByID(ctx, s.UserID)
				switch {
				case err == nil:
					c.Set(UserKey, u)
				case errors.Is(err, repository.ErrUserNotFound):
					// Stale session: the user was deleted after logging in.
					s.UserID = 0
					_ = store.Save(ctx, s)
				default:
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
				}
			}
			return next(c)
		}
	}
}

// SessionFrom returns the request's session.  LoadSession guarantees it is
// present on every route registered behind it.
func SessionFrom(c echo.Context) *session.Session {
	s, _ := c.Get(SessionKey).(*session.Session)
	return s
}

// UserFrom returns the logged-in user, or nil for anonymous visitors.
func UserFrom(c echo.Context) *model.User {
	u, _ := c.Get(UserKey).(*model.User)
	return u
}

// Flash queues a one-shot message on the session for the next page load.
func Flash(c echo.Context, store session.Store, msg string) {
	s := SessionFrom(c)
	if s == nil {
		return
	}
	s.Flashes = append(s.Flashes, msg)
	_ = store.Save(c.Request().Context(), s)
}

// PopFlashes drains queued flash messages, persisting the empty queue.
func PopFlashes(c echo.Context, store session.Store) []string {
	s := SessionFrom(c)
	if s == nil || len(s.Flashes) == 0 {
		return nil
	}
	out := s.Flashes
	s.Flashes = nil
	_ = store.Save(c.Request().Context(), s)
	return out
}
