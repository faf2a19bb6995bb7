package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// schema holds the CREATE TABLE statements executed at startup.  Cities are
// immutable reference data keyed by a short code; cafes reference them by
// foreign key.  The likes table is a pure (user_id, cafe_id) join with the
// pair as primary key so duplicate inserts fail at the store.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS cities (
		code  VARCHAR(32) NOT NULL,
		name  VARCHAR(255) NOT NULL,
		state CHAR(2) NOT NULL,
		PRIMARY KEY (code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS cafes (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name        VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		url         VARCHAR(512) NOT NULL,
		address     VARCHAR(512) NOT NULL,
		city_code   VARCHAR(32) NOT NULL,
		image_url   VARCHAR(512) NOT NULL DEFAULT '/static/images/default-cafe.jpg',
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		CONSTRAINT fk_cafes_city FOREIGN KEY (city_code) REFERENCES cities (code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		username        VARCHAR(255) NOT NULL,
		email           VARCHAR(255) NOT NULL,
		first_name      VARCHAR(255) NOT NULL,
		last_name       VARCHAR(255) NOT NULL,
		description     TEXT NOT NULL,
		image_url       VARCHAR(512) NOT NULL DEFAULT '/static/images/default-pic.png',
		admin           TINYINT(1) NOT NULL DEFAULT 0,
		hashed_password VARCHAR(255) NOT NULL,
		created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS likes (
		user_id BIGINT UNSIGNED NOT NULL,
		cafe_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (user_id, cafe_id),
		CONSTRAINT fk_likes_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_likes_cafe FOREIGN KEY (cafe_id) REFERENCES cafes (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the application tables when they do not exist yet.
// Statements are idempotent so the call is safe on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
