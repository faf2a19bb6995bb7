package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/evanhesketh/flask-cafe/internal/model"
)

// CityRepo encapsulates queries on the cities reference table.
type CityRepo struct{ DB *sql.DB }

func NewCityRepo(db *sql.DB) *CityRepo { return &CityRepo{DB: db} }

// Create inserts a city.  Cities are seeded reference data; duplicate
// codes surface the raw driver error since there is no user-facing flow
// that can race on them.
func (r *CityRepo) Create(ctx context.Context, c *model.City) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO cities (code, name, state) VALUES (?,?,?)",
		c.Code, c.Name, c.State)
	return err
}

// Get fetches a city by code.  Returns ErrCityNotFound for unknown codes.
func (r *CityRepo) Get(ctx context.Context, code string) (*model.City, error) {
	var c model.City
	err := r.DB.QueryRowContext(ctx,
		"SELECT code, name, state FROM cities WHERE code=? LIMIT 1", code).
		Scan(&c.Code, &c.Name, &c.State)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCityNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListByCode returns all cities ordered by code.  The add/edit cafe form
// uses this for its city choices.
func (r *CityRepo) ListByCode(ctx context.Context) ([]*model.City, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT code, name, state FROM cities ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.City
	for rows.Next() {
		c := new(model.City)
		if err := rows.Scan(&c.Code, &c.Name, &c.State); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
