package main

// Seed bootstraps reference data: it ensures the schema exists, inserts
// any cities passed via SEED_CITIES ("code:Name:ST,code:Name:ST") and
// creates an admin user from SEED_ADMIN_* when one is configured.
// Existing rows are left alone, so the command is safe to re-run.

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/evanhesketh/flask-cafe/internal/config"
	"github.com/evanhesketh/flask-cafe/internal/database"
	"github.com/evanhesketh/flask-cafe/internal/model"
	"github.com/evanhesketh/flask-cafe/internal/repository"
	"github.com/evanhesketh/flask-cafe/internal/utils"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	cities := repository.NewCityRepo(db)
	for _, entry := range strings.Split(os.Getenv("SEED_CITIES"), ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) != 3 {
			continue
		}
		city := &model.City{Code: parts[0], Name: parts[1], State: parts[2]}
		if _, err := cities.Get(ctx, city.Code); err == nil {
			continue // already seeded
		}
		if err := cities.Create(ctx, city); err != nil {
			log.Fatalf("seed city %q: %v", city.Code, err)
		}
		log.Printf("seeded city %s (%s, %s)", city.Code, city.Name, city.State)
	}

	username := os.Getenv("SEED_ADMIN_USERNAME")
	if username == "" {
		return
	}
	users := repository.NewUserRepo(db)
	hash, err := utils.HashPassword(mustEnv("SEED_ADMIN_PASSWORD"), cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hash admin password: %v", err)
	}
	admin := &model.User{
		Username:       username,
		Email:          mustEnv("SEED_ADMIN_EMAIL"),
		FirstName:      "Site",
		LastName:       "Admin",
		Admin:          true,
		HashedPassword: hash,
	}
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrUsernameOrEmailTaken) {
			log.Printf("admin %q already exists", username)
			return
		}
		log.Fatalf("seed admin: %v", err)
	}
	log.Printf("seeded admin %q (id=%d)", username, admin.ID)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
