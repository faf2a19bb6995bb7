package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/evanhesketh/flask-cafe/internal/config"
	"github.com/evanhesketh/flask-cafe/internal/database"
	"github.com/evanhesketh/flask-cafe/internal/handler"
	"github.com/evanhesketh/flask-cafe/internal/queue"
	"github.com/evanhesketh/flask-cafe/internal/repository"
	"github.com/evanhesketh/flask-cafe/internal/router"
	"github.com/evanhesketh/flask-cafe/internal/session"
	"github.com/evanhesketh/flask-cafe/internal/snapshot"
)

func main() {
	_ = godotenv.Load() // read .env when present; real env always wins
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("ensure schema: %v", err)
	}
	cancel()

	// Sessions live in Redis; fall back to the in-process store when the
	// cache is unreachable so the site stays up (rate limiting is then
	// disabled as well).
	rdb := config.NewRedisClient()
	var sessions session.Store
	if rdb != nil {
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL())
	} else {
		log.Printf("redis unavailable; using in-memory sessions")
		sessions = session.NewMemoryStore(cfg.SessionTTL())
	}

	users := repository.NewUserRepo(db)
	cities := repository.NewCityRepo(db)
	cafes := repository.NewCafeRepo(db)
	likes := repository.NewLikeRepo(db)

	deps := router.Deps{
		Cfg:      cfg,
		Sessions: sessions,
		Users:    users,
		Redis:    rdb,
		Home:     &handler.HomeHandler{Sessions: sessions},
		Auth:     handler.NewAuthHandler(cfg, users, sessions),
		Cafes: &handler.CafeHandler{
			Cafes:    cafes,
			Cities:   cities,
			Sessions: sessions,
			Maps:     snapshot.NewFetcher(cfg.MapQuestKey, cfg.MapDir),
			Events:   queue.Publisher{},
		},
		Profile: &handler.ProfileHandler{Users: users, Likes: likes, Sessions: sessions},
		Likes:   &handler.LikeHandler{Likes: likes},
	}

	e := echo.New()
	router.RegisterRoutes(e, deps)

	// Background consumer mirrors cafe.created events into logs/cafes.log.
	go queue.StartCafeCreatedConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
