package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evanhesketh/flask-cafe/internal/config"
	"github.com/evanhesketh/flask-cafe/internal/middleware"
	"github.com/evanhesketh/flask-cafe/internal/model"
	"github.com/evanhesketh/flask-cafe/internal/repository"
	"github.com/evanhesketh/flask-cafe/internal/session"
	"github.com/evanhesketh/flask-cafe/internal/utils"
)

// AuthHandler bundles dependencies for signup, login, logout and the API
// token endpoint.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Sessions session.Store
}

func NewAuthHandler(cfg config.Config, users UserStore, sessions session.Store) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Sessions: sessions}
}

// ----- DTOs -----

type signupReq struct {
	Username    string `json:"username" form:"username"`
	Email       string `json:"email" form:"email"`
	FirstName   string `json:"first_name" form:"first_name"`
	LastName    string `json:"last_name" form:"last_name"`
	Description string `json:"description" form:"description"`
	Password    string `json:"password" form:"password"`
	ImageURL    string `json:"image_url" form:"image_url"`
}

type loginReq struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type tokenResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// SignupForm handles GET /signup with the payload a signup form needs.
func (h *AuthHandler) SignupForm(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"title":      "Sign Up",
		"csrf_token": csrfToken(c),
		"flashes":    middleware.PopFlashes(c, h.Sessions),
	})
}

// Signup handles POST /signup: validates the form, registers the user with
// a bcrypt-hashed password, logs the new user in on the same session and
// redirects to the cafe list.  A duplicate username or email is caught at
// the persistence layer and surfaced as a conflict message, never a crash.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	fe := fieldErrors{}
	fe.require("username", req.Username)
	fe.require("first_name", req.FirstName)
	fe.require("last_name", req.LastName)
	fe.require("email", req.Email)
	if req.Email != "" && !validEmail(req.Email) {
		fe["email"] = "Must be a valid email address."
	}
	if len(req.Password) < 6 {
		fe["password"] = "Must be at least 6 characters."
	}
	fe.optionalURL("image_url", req.ImageURL)
	if len(fe) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe, "csrf_token": csrfToken(c)})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	u := &model.User{
		Username:       req.Username,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		HashedPassword: hash,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUsernameOrEmailTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username and/or email already taken"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	if err := h.login(c, u); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session save failed"})
	}
	middleware.Flash(c, h.Sessions, "You are signed up and logged in.")
	return c.Redirect(http.StatusFound, "/cafes")
}

// LoginForm handles GET /login.
func (h *AuthHandler) LoginForm(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"title":      "Welcome Back!",
		"csrf_token": csrfToken(c),
		"flashes":    middleware.PopFlashes(c, h.Sessions),
	})
}

// Login handles POST /login.  An unknown username and a wrong password
// produce the same message so usernames cannot be enumerated.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, ok := h.authenticate(ctx, req.Username, req.Password)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid username and/or password"})
	}

	if err := h.login(c, u); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session save failed"})
	}
	middleware.Flash(c, h.Sessions, fmt.Sprintf("Hello, %s!", u.Username))
	return c.Redirect(http.StatusFound, "/cafes")
}

// Logout handles POST /logout: the user id is removed from the session
// (an already-anonymous session is fine) and the visitor is
// redirected to the cafe list.
func (h *AuthHandler) Logout(c echo.Context) error {
	s := middleware.SessionFrom(c)
	if s != nil && s.UserID != 0 {
		s.UserID = 0
		if err := h.Sessions.Save(c.Request().Context(), s); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session save failed"})
		}
	}
	middleware.Flash(c, h.Sessions, "You have successfully logged out.")
	return c.Redirect(http.StatusFound, "/cafes")
}

// APIToken handles POST /api/token: exchanges username/password for a
// short-lived bearer token accepted by the likes API.
func (h *AuthHandler) APIToken(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, ok := h.authenticate(ctx, strings.TrimSpace(req.Username), req.Password)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid username and/or password"})
	}
	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Admin, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{Token: tok.Token, Expires: tok.Exp})
}

// authenticate looks the user up by username and verifies the password.
// Both failure cases return the same (nil, false) so callers cannot tell
// them apart.
func (h *AuthHandler) authenticate(ctx context.Context, username, password string) (*model.User, bool) {
	u, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, false
	}
	if !utils.VerifyPassword(u.HashedPassword, password) {
		return nil, false
	}
	return u, true
}

// login writes the user id into the request's session.
func (h *AuthHandler) login(c echo.Context, u *model.User) error {
	s := middleware.SessionFrom(c)
	s.UserID = u.ID
	return h.Sessions.Save(c.Request().Context(), s)
}
