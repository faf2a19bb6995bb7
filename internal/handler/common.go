// Package handler contains the HTTP handlers for the cafe directory.
// Handlers depend on small store interfaces rather than concrete
// repositories so tests can run against in-memory fakes.
package handler

import (
	"context"
	"net/mail"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/evanhesketh/flask-cafe/internal/middleware"
	"github.com/evanhesketh/flask-cafe/internal/model"
	"github.com/evanhesketh/flask-cafe/internal/queue"
)

// UserStore persists users.  Satisfied by *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) error
}

// CafeStore persists cafes.  Satisfied by *repository.CafeRepo.
type CafeStore interface {
	Create(ctx context.Context, c *model.Cafe) error
	GetByID(ctx context.Context, id uint64) (*model.Cafe, error)
	ListByName(ctx context.Context) ([]*model.Cafe, error)
	Update(ctx context.Context, c *model.Cafe) error
}

// CityStore reads the immutable city reference data.  Satisfied by
// *repository.CityRepo.
type CityStore interface {
	Get(ctx context.Context, code string) (*model.City, error)
	ListByCode(ctx context.Context) ([]*model.City, error)
}

// LikeStore manages like edges.  Add must be idempotent and must return
// repository.ErrCafeNotFound for an unknown cafe id; Remove of an absent
// edge must succeed.  Satisfied by *repository.LikeRepo.
type LikeStore interface {
	Exists(ctx context.Context, userID, cafeID uint64) (bool, error)
	Add(ctx context.Context, userID, cafeID uint64) error
	Remove(ctx context.Context, userID, cafeID uint64) error
	ListCafesLikedBy(ctx context.Context, userID uint64) ([]*model.Cafe, error)
}

// MapFetcher retrieves and persists a static map image for an address.
// Satisfied by *snapshot.Fetcher.
type MapFetcher interface {
	FetchAndStore(ctx context.Context, id uint64, address, city, state string) error
}

// EventPublisher publishes cafe domain events.  Satisfied by
// queue.Publisher.
type EventPublisher interface {
	PublishCafeCreated(ctx context.Context, ev queue.CafeCreatedEvent) error
}

// currentUser returns the logged-in user for this request, or nil.
func currentUser(c echo.Context) *model.User { return middleware.UserFrom(c) }

// csrfToken returns the session's anti-forgery token for form payloads.
func csrfToken(c echo.Context) string {
	if s := middleware.SessionFrom(c); s != nil {
		return s.CSRFToken
	}
	return ""
}

// validAbsURL reports whether s is a well-formed absolute http(s) URL.
func validAbsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// validEmail reports whether s parses as an address.
func validEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}

// fieldErrors collects per-field validation messages for form redisplay.
type fieldErrors map[string]string

func (fe fieldErrors) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		fe[field] = "This field is required."
	}
}

func (fe fieldErrors) optionalURL(field, value string) {
	if value != "" && !validAbsURL(value) {
		fe[field] = "Must be a valid absolute URL."
	}
}
