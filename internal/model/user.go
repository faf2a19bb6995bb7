package model

import "time"

// DefaultUserImageURL is used when a user signs up without a profile image.
const DefaultUserImageURL = "/static/images/default-pic.png"

// User represents an application user record as stored in the `users`
// table.  The hashed password is never serialized; handlers define
// separate response types when they need to expose user data.
//
// Fields:
//  ID             - primary key identifier of the user.
//  Username       - unique login name.
//  Email          - unique email address.
//  FirstName      - given name.
//  LastName       - family name.
//  Description    - optional free-form profile text.
//  ImageURL       - profile image, defaulting to DefaultUserImageURL.
//  Admin          - elevated privilege to create and edit cafes.
//  HashedPassword - bcrypt hash; plaintext is never stored.
type User struct {
	ID             uint64    `json:"id"`          // users.id
	Username       string    `json:"username"`    // users.username
	Email          string    `json:"email"`       // users.email
	FirstName      string    `json:"first_name"`  // users.first_name
	LastName       string    `json:"last_name"`   // users.last_name
	Description    string    `json:"description"` // users.description
	ImageURL       string    `json:"image_url"`   // users.image_url
	Admin          bool      `json:"admin"`       // users.admin
	HashedPassword string    `json:"-"`           // users.hashed_password
	CreatedAt      time.Time `json:"-"`           // users.created_at
	UpdatedAt      time.Time `json:"-"`           // users.updated_at
}

// GetFullName returns "First Last" for display.
func (u *User) GetFullName() string {
	return u.FirstName + " " + u.LastName
}
