package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/evanhesketh/flask-cafe/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,username,email,first_name,last_name,description,image_url,admin,hashed_password,created_at,updated_at"

// Create inserts the user and populates its ID.  u.HashedPassword must
// already hold a bcrypt hash; hashing is the credential store's job.
// Uniqueness of username and email is enforced only by the database keys
// and surfaces as ErrUsernameOrEmailTaken.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ImageURL == "" {
		u.ImageURL = model.DefaultUserImageURL
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, first_name, last_name, description, image_url, admin, hashed_password) VALUES (?,?,?,?,?,?,?,?)",
		u.Username, u.Email, u.FirstName, u.LastName, u.Description, u.ImageURL, u.Admin, u.HashedPassword)
	if err != nil {
		if isDuplicate(err) {
			return ErrUsernameOrEmailTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getWhere(ctx, "username=?", username)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getWhere(ctx, "id=?", id)
}

func (r *UserRepo) getWhere(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE "+where+" LIMIT 1", arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
			&u.Description, &u.ImageURL, &u.Admin, &u.HashedPassword,
			&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateProfile replaces the profile fields the owning user may edit.
// Username and the admin flag are deliberately not touched.  A conflicting
// email surfaces as ErrUsernameOrEmailTaken; an unknown id as
// ErrUserNotFound.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ImageURL == "" {
		u.ImageURL = model.DefaultUserImageURL
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email=?, first_name=?, last_name=?, description=?, image_url=? WHERE id=?",
		u.Email, u.FirstName, u.LastName, u.Description, u.ImageURL, u.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrUsernameOrEmailTaken
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 both for a missing row and for a no-change
		// update; distinguish with a lookup.
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}
