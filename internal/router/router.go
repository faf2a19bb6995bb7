// Package router wires the application's HTTP routes to their handlers
// and middleware.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/evanhesketh/flask-cafe/internal/config"
	"github.com/evanhesketh/flask-cafe/internal/handler"
	"github.com/evanhesketh/flask-cafe/internal/middleware"
	"github.com/evanhesketh/flask-cafe/internal/session"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Cfg      config.Config
	Sessions session.Store
	Users    middleware.UserLoader
	Home     *handler.HomeHandler
	Auth     *handler.AuthHandler
	Cafes    *handler.CafeHandler
	Profile  *handler.ProfileHandler
	Likes    *handler.LikeHandler
	Redis    *redis.Client // nil disables rate limiting
}

// RegisterRoutes sets up the full HTTP surface.  Every route runs behind
// the session middleware so handlers always see a session (and the
// current user when logged in).  State-changing form routes additionally
// carry the CSRF guard; the cafe add/edit flow is admin-gated; the JSON
// likes API accepts either the session cookie or a bearer token.
func RegisterRoutes(e *echo.Echo, d Deps) {
	ttl := time.Duration(d.Cfg.SessionTTLHours) * time.Hour
	e.Use(middleware.LoadSession(d.Sessions, d.Users, ttl))

	csrf := middleware.CSRF()
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Redis)

	// Public pages.
	e.GET("/", d.Home.Show)
	e.GET("/healthz", handler.Health)
	e.GET("/cafes", d.Cafes.List)
	e.GET("/cafes/:id", d.Cafes.Detail)

	// Auth pages.  Signup and login are rate limited against credential
	// stuffing; logout needs a logged-in user and a CSRF token.
	e.GET("/signup", d.Auth.SignupForm)
	e.POST("/signup", d.Auth.Signup, limit, csrf)
	e.GET("/login", d.Auth.LoginForm)
	e.POST("/login", d.Auth.Login, limit, csrf)
	e.POST("/logout", d.Auth.Logout, middleware.RequireUser(d.Sessions), csrf)

	// Admin-gated cafe CRUD.
	admin := e.Group("/cafes", middleware.RequireAdmin(d.Sessions))
	admin.GET("/add", d.Cafes.AddForm)
	admin.POST("/add", d.Cafes.Add, csrf)
	admin.GET("/:id/edit", d.Cafes.EditForm)
	admin.POST("/:id/edit", d.Cafes.Edit, csrf)

	// Profile pages for the logged-in user.
	prof := e.Group("/profile", middleware.RequireUser(d.Sessions))
	prof.GET("", d.Profile.Show)
	prof.GET("/edit", d.Profile.EditForm)
	prof.POST("/edit", d.Profile.Edit, csrf)

	// JSON likes API.  BearerAuth lets token clients in; anonymity is
	// reported in the response body, not via middleware rejection.
	api := e.Group("/api", middleware.BearerAuth(d.Cfg.JWTSecret, d.Users))
	api.POST("/token", d.Auth.APIToken, limit)
	api.GET("/likes", d.Likes.Status)
	api.POST("/like", d.Likes.Like)
	api.POST("/unlike", d.Likes.Unlike)
}
