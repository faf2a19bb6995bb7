package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/evanhesketh/flask-cafe/internal/model"
)

// LikeRepo manages the (user, cafe) like edges.  Concurrent likes on the
// same pair rely on the table's composite primary key to serialize
// conflicting inserts.
type LikeRepo struct{ DB *sql.DB }

func NewLikeRepo(db *sql.DB) *LikeRepo { return &LikeRepo{DB: db} }

// Exists reports whether the user has liked the cafe.
func (r *LikeRepo) Exists(ctx context.Context, userID, cafeID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM likes WHERE user_id=? AND cafe_id=?",
		userID, cafeID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Add inserts the like edge.  A duplicate insert is treated as "already
// liked" and succeeds, so a double-like race never creates two edges and
// never propagates a raw integrity error.  An unknown cafe id surfaces as
// ErrCafeNotFound via the foreign key.
func (r *LikeRepo) Add(ctx context.Context, userID, cafeID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO likes (user_id, cafe_id) VALUES (?,?)", userID, cafeID)
	if err != nil {
		if isDuplicate(err) {
			return nil
		}
		// 1452: foreign key constraint fails -> the cafe (or user) is gone
		if isFKViolation(err) {
			return ErrCafeNotFound
		}
		return err
	}
	return nil
}

// Remove deletes the like edge.  Removing an absent edge is a no-op:
// the common "already unliked" race resolves to success.
func (r *LikeRepo) Remove(ctx context.Context, userID, cafeID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM likes WHERE user_id=? AND cafe_id=?", userID, cafeID)
	return err
}

// ListCafesLikedBy returns the cafes a user has liked, ordered by name,
// with city fields joined for display on the profile page.
func (r *LikeRepo) ListCafesLikedBy(ctx context.Context, userID uint64) ([]*model.Cafe, error) {
	const q = "SELECT " + cafeJoinCols + ` FROM likes l
		JOIN cafes c ON c.id = l.cafe_id
		JOIN cities ci ON ci.code = c.city_code
		WHERE l.user_id = ? ORDER BY c.name`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCafes(rows)
}

// isFKViolation reports whether err is a MySQL foreign-key error (1452).
func isFKViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1452")
}
