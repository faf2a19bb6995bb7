package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evanhesketh/flask-cafe/internal/middleware"
	"github.com/evanhesketh/flask-cafe/internal/model"
	"github.com/evanhesketh/flask-cafe/internal/queue"
	"github.com/evanhesketh/flask-cafe/internal/repository"
	"github.com/evanhesketh/flask-cafe/internal/session"
)

// CafeHandler serves the public cafe pages and the admin add/edit flow.
// Maps and Events are optional: when nil the corresponding side effect is
// skipped, which is how tests and map-keyless deployments run.
type CafeHandler struct {
	Cafes    CafeStore
	Cities   CityStore
	Sessions session.Store
	Maps     MapFetcher
	Events   EventPublisher
}

type cafeResp struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Address     string `json:"address"`
	CityCode    string `json:"city_code"`
	CityState   string `json:"city_state"`
	ImageURL    string `json:"image_url"`
}

func newCafeResp(c *model.Cafe) cafeResp {
	return cafeResp{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		URL:         c.URL,
		Address:     c.Address,
		CityCode:    c.CityCode,
		CityState:   c.GetCityState(),
		ImageURL:    c.ImageURL,
	}
}

type cafeForm struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
	URL         string `json:"url" form:"url"`
	Address     string `json:"address" form:"address"`
	CityCode    string `json:"city_code" form:"city_code"`
	ImageURL    string `json:"image_url" form:"image_url"`
}

type cityChoice struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// List handles GET /cafes.  The listing is public and always ordered by
// name regardless of insertion order.
func (h *CafeHandler) List(c echo.Context) error {
	cafes, err := h.Cafes.ListByName(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]cafeResp, 0, len(cafes))
	for _, cf := range cafes {
		out = append(out, newCafeResp(cf))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cafes":   out,
		"flashes": middleware.PopFlashes(c, h.Sessions),
	})
}

// Detail handles GET /cafes/:id, public, 404 for unknown ids.
func (h *CafeHandler) Detail(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
	}
	cafe, err := h.Cafes.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCafeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cafe":    newCafeResp(cafe),
		"flashes": middleware.PopFlashes(c, h.Sessions),
	})
}

// AddForm handles GET /cafes/add (admin only, enforced by the router).
// The payload carries everything the form needs: the CSRF token and the
// city choices ordered by code.
func (h *CafeHandler) AddForm(c echo.Context) error {
	choices, err := h.cityChoices(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"title":      "Add Cafe",
		"csrf_token": csrfToken(c),
		"cities":     choices,
		"flashes":    middleware.PopFlashes(c, h.Sessions),
	})
}

// Add handles POST /cafes/add.  Validation failures never partially
// persist.  On success the static map fetch and the cafe.created event
// are both fired and forgotten: neither can roll back the new cafe.
func (h *CafeHandler) Add(c echo.Context) error {
	var form cafeForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()

	city, fe := h.validateCafeForm(ctx, &form)
	if len(fe) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe, "csrf_token": csrfToken(c)})
	}

	cafe := &model.Cafe{
		Name:        form.Name,
		Description: form.Description,
		URL:         form.URL,
		Address:     form.Address,
		CityCode:    form.CityCode,
		ImageURL:    form.ImageURL,
	}
	if err := h.Cafes.Create(ctx, cafe); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create cafe"})
	}

	h.fetchMapAsync(cafe, city)
	h.publishCreatedAsync(c, cafe, city)

	middleware.Flash(c, h.Sessions, fmt.Sprintf("%s added", cafe.Name))
	return c.Redirect(http.StatusFound, fmt.Sprintf("/cafes/%d", cafe.ID))
}

// EditForm handles GET /cafes/:id/edit, returning the current values so
// the form can show them.
func (h *CafeHandler) EditForm(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
	}
	ctx := c.Request().Context()
	cafe, err := h.Cafes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCafeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	choices, err := h.cityChoices(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"title":      fmt.Sprintf("Edit %s", cafe.Name),
		"csrf_token": csrfToken(c),
		"cafe":       newCafeResp(cafe),
		"cities":     choices,
		"flashes":    middleware.PopFlashes(c, h.Sessions),
	})
}

// Edit handles POST /cafes/:id/edit: a full replace of the editable
// fields in one statement.  The map image is not re-fetched on edit.
func (h *CafeHandler) Edit(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
	}
	var form cafeForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()

	cafe, err := h.Cafes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCafeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	if _, fe := h.validateCafeForm(ctx, &form); len(fe) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe, "csrf_token": csrfToken(c)})
	}

	cafe.Name = form.Name
	cafe.Description = form.Description
	cafe.URL = form.URL
	cafe.Address = form.Address
	cafe.CityCode = form.CityCode
	cafe.ImageURL = form.ImageURL
	if err := h.Cafes.Update(ctx, cafe); err != nil {
		if errors.Is(err, repository.ErrCafeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	middleware.Flash(c, h.Sessions, fmt.Sprintf("%s edited", cafe.Name))
	return c.Redirect(http.StatusFound, fmt.Sprintf("/cafes/%d", cafe.ID))
}

// validateCafeForm checks required fields, URL shape and city existence.
// It returns the resolved city when city_code is valid so callers don't
// look it up twice.
func (h *CafeHandler) validateCafeForm(ctx context.Context, form *cafeForm) (*model.City, fieldErrors) {
	form.Name = strings.TrimSpace(form.Name)
	form.Address = strings.TrimSpace(form.Address)
	form.CityCode = strings.TrimSpace(form.CityCode)

	fe := fieldErrors{}
	fe.require("name", form.Name)
	fe.require("address", form.Address)
	fe.require("city_code", form.CityCode)
	fe.optionalURL("url", form.URL)
	fe.optionalURL("image_url", form.ImageURL)

	var city *model.City
	if form.CityCode != "" {
		got, err := h.Cities.Get(ctx, form.CityCode)
		switch {
		case err == nil:
			city = got
		case errors.Is(err, repository.ErrCityNotFound):
			fe["city_code"] = "Unknown city."
		default:
			fe["city_code"] = "Could not verify city."
		}
	}
	return city, fe
}

func (h *CafeHandler) cityChoices(ctx context.Context) ([]cityChoice, error) {
	cities, err := h.Cities.ListByCode(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]cityChoice, 0, len(cities))
	for _, ci := range cities {
		out = append(out, cityChoice{Code: ci.Code, Name: ci.Name})
	}
	return out, nil
}

// fetchMapAsync kicks off the static map download for a new cafe.  The
// fetch runs outside the request with its own deadline; failure is logged
// and never reported to the admin who created the cafe.
func (h *CafeHandler) fetchMapAsync(cafe *model.Cafe, city *model.City) {
	if h.Maps == nil {
		return
	}
	id, addr := cafe.ID, cafe.Address
	name, state := city.Name, city.State
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Maps.FetchAndStore(ctx, id, addr, name, state); err != nil {
			log.Printf("map-fetch: cafe %d: %v", id, err)
		}
	}()
}

// publishCreatedAsync emits the cafe.created event, best effort.
func (h *CafeHandler) publishCreatedAsync(c echo.Context, cafe *model.Cafe, city *model.City) {
	if h.Events == nil {
		return
	}
	ev := queue.CafeCreatedEvent{
		CafeID:    cafe.ID,
		Name:      cafe.Name,
		Address:   cafe.Address,
		CityName:  city.Name,
		State:     city.State,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if u := currentUser(c); u != nil {
		ev.CreatedBy = u.Username
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.Events.PublishCafeCreated(ctx, ev) // errors already logged by the publisher
	}()
}
