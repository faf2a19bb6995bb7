// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios: a
// uniqueness conflict on signup is surfaced to the user as a form
// message, while an unknown cafe id becomes a 404 at the boundary.
package repository

import (
	"errors"
	"strings"
)

// ErrUsernameOrEmailTaken is returned when an insert or update on the
// users table violates the username or email unique key.  The store
// performs no pre-check; the constraint itself is the arbiter.
var ErrUsernameOrEmailTaken = errors.New("username and/or email already taken")

// ErrCafeNotFound is returned when a cafe id does not exist.
var ErrCafeNotFound = errors.New("cafe not found")

// ErrCityNotFound is returned when a city code does not exist.
var ErrCityNotFound = errors.New("city not found")

// ErrUserNotFound is returned when a user id or username does not exist.
var ErrUserNotFound = errors.New("user not found")

// isDuplicate reports whether err is a MySQL duplicate-key error (1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
