package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/evanhesketh/flask-cafe/internal/model"
)

// CafeRepo encapsulates all database queries related to cafes.  Read
// methods join the cities table so callers receive the city name and
// state alongside the cafe row.
type CafeRepo struct{ DB *sql.DB }

func NewCafeRepo(db *sql.DB) *CafeRepo { return &CafeRepo{DB: db} }

const cafeJoinCols = `c.id, c.name, c.description, c.url, c.address,
	c.city_code, c.image_url, c.created_at, c.updated_at, ci.name, ci.state`

// Create inserts a new cafe.  On success the cafe's ID field is populated
// with the auto-generated value and the joined city fields are filled by a
// follow-up SELECT, so callers receive a fully populated record.
func (r *CafeRepo) Create(ctx context.Context, c *model.Cafe) error {
	if c.ImageURL == "" {
		c.ImageURL = model.DefaultCafeImageURL
	}
	const qInsert = "INSERT INTO cafes (name, description, url, address, city_code, image_url) VALUES (?,?,?,?,?,?)"
	res, err := r.DB.ExecContext(ctx, qInsert,
		c.Name, c.Description, c.URL, c.Address, c.CityCode, c.ImageURL)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)

	got, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *got
	return nil
}

// GetByID fetches a cafe with its city name and state.  It returns
// ErrCafeNotFound if no row is found.
func (r *CafeRepo) GetByID(ctx context.Context, id uint64) (*model.Cafe, error) {
	const q = "SELECT " + cafeJoinCols + ` FROM cafes c
		JOIN cities ci ON ci.code = c.city_code WHERE c.id = ?`
	var c model.Cafe
	err := r.DB.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.Name, &c.Description, &c.URL, &c.Address,
		&c.CityCode, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt,
		&c.CityName, &c.StateCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCafeNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListByName returns all cafes ordered by name ascending, the order the
// public listing always uses regardless of insertion order.
func (r *CafeRepo) ListByName(ctx context.Context) ([]*model.Cafe, error) {
	const q = "SELECT " + cafeJoinCols + ` FROM cafes c
		JOIN cities ci ON ci.code = c.city_code ORDER BY c.name`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCafes(rows)
}

// Update replaces all editable fields of a cafe in a single statement so
// a partial update can never persist.  It returns ErrCafeNotFound when no
// row matches the id.
func (r *CafeRepo) Update(ctx context.Context, c *model.Cafe) error {
	if c.ImageURL == "" {
		c.ImageURL = model.DefaultCafeImageURL
	}
	const q = `UPDATE cafes
		SET name=?, description=?, url=?, address=?, city_code=?, image_url=?
		WHERE id=?`
	res, err := r.DB.ExecContext(ctx, q,
		c.Name, c.Description, c.URL, c.Address, c.CityCode, c.ImageURL, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

func scanCafes(rows *sql.Rows) ([]*model.Cafe, error) {
	var out []*model.Cafe
	for rows.Next() {
		c := new(model.Cafe)
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Description, &c.URL, &c.Address,
			&c.CityCode, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt,
			&c.CityName, &c.StateCode); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
