package model

import (
	"fmt"
	"time"
)

// DefaultCafeImageURL is used when a cafe is created without an image.
const DefaultCafeImageURL = "/static/images/default-cafe.jpg"

// Cafe is a row in the `cafes` table.  Name, address and city_code are
// always non-empty after creation; description and url may be empty;
// image_url falls back to DefaultCafeImageURL when the form leaves it
// blank.
type Cafe struct {
	ID          uint64    `json:"id"`          // cafes.id
	Name        string    `json:"name"`        // cafes.name
	Description string    `json:"description"` // cafes.description
	URL         string    `json:"url"`         // cafes.url
	Address     string    `json:"address"`     // cafes.address
	CityCode    string    `json:"city_code"`   // cafes.city_code (references cities.code)
	ImageURL    string    `json:"image_url"`   // cafes.image_url
	CreatedAt   time.Time `json:"-"`           // cafes.created_at
	UpdatedAt   time.Time `json:"-"`           // cafes.updated_at

	// CityName and StateCode are joined from the cities table on read
	// paths; they are not columns of the cafes table.
	CityName  string `json:"-"`
	StateCode string `json:"-"`
}

// GetCityState returns "City, ST" for display, e.g. "San Francisco, CA".
// It requires that CityName and StateCode were populated by the repository.
func (c *Cafe) GetCityState() string {
	return fmt.Sprintf("%s, %s", c.CityName, c.StateCode)
}
