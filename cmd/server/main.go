package main // entry point of the movie rental API

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/movie-rental/internal/config"
	"github.com/iliyamo/movie-rental/internal/database"
	"github.com/iliyamo/movie-rental/internal/handler"
	"github.com/iliyamo/movie-rental/internal/middleware"
	"github.com/iliyamo/movie-rental/internal/queue"
	"github.com/iliyamo/movie-rental/internal/rental"
	"github.com/iliyamo/movie-rental/internal/repository"
	"github.com/iliyamo/movie-rental/internal/router"
	"github.com/iliyamo/movie-rental/internal/worker"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Error("migrate database", "err", err)
			os.Exit(1)
		}
	}

	// Redis is optional; without it the cache and limiter are skipped.
	var cache, limiter echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		defer rdb.Close()
		cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
		limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	} else {
		log.Warn("redis unavailable, cache and rate limit disabled")
	}

	opts := []rental.Option{rental.WithLogger(log)}
	var publisher *queue.Publisher
	if cfg.EventsEnabled {
		publisher = queue.NewPublisher(cfg.RabbitMQURL)
		defer publisher.Close()
		opts = append(opts, rental.WithPublisher(publisher))
		go func() {
			if err := queue.StartRentalConsumer(ctx, cfg.RabbitMQURL, cfg.EventsLogPath); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("rental consumer stopped", "err", err)
			}
		}()
	}
	svc := rental.NewService(repository.NewGateway(db), cfg.FeePerDayCents, opts...)

	if cfg.OverdueSweep != "" {
		var pub rental.EventPublisher
		if publisher != nil {
			pub = publisher
		}
		c, err := worker.NewSweeper(svc, pub, log).Start(cfg.OverdueSweep)
		if err != nil {
			log.Error("schedule overdue sweep", "spec", cfg.OverdueSweep, "err", err)
			os.Exit(1)
		}
		defer c.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLog(log))

	router.RegisterRoutes(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		DB:        db,
		Auth:      handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), log),
		Movies:    handler.NewMovieHandler(repository.NewMovieRepo(db), log),
		Rentals:   handler.NewRentalHandler(svc, cfg.MaxRentalDays, log),
		Cache:     cache,
		RateLimit: limiter,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
