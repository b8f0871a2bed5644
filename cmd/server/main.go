package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/alextaweke/internet-cafe/internal/config"
	"github.com/alextaweke/internet-cafe/internal/database"
	"github.com/alextaweke/internet-cafe/internal/handler"
	"github.com/alextaweke/internet-cafe/internal/ledger"
	"github.com/alextaweke/internet-cafe/internal/queue"
	"github.com/alextaweke/internet-cafe/internal/repository"
	"github.com/alextaweke/internet-cafe/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(database.Config{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	computers := repository.NewComputerRepo(db)
	sessions := repository.NewSessionRepo(db)
	payments := repository.NewPaymentRepo(db)
	users := repository.NewUserRepo(db)
	led := ledger.New(db, computers, sessions, payments)

	// Redis is optional: without it caching and login throttling switch off
	// and the API still serves every request.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORS())

	auth := handler.NewAuthHandler(cfg, users)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, cfg.JWTSecret, rdb)
	router.RegisterAPI(e, router.Handlers{
		Computers: handler.NewComputerHandler(computers, led),
		Sessions:  handler.NewSessionHandler(sessions, led),
		Reports:   handler.NewReportHandler(sessions, payments),
	}, cfg.JWTSecret, rdb)

	if cfg.ConsumerOn {
		go func() {
			if err := queue.StartSessionConsumer(); err != nil {
				log.Printf("session consumer stopped: %v", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
