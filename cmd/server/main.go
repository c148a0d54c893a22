package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv" // optional .env for local runs
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/wild-series/internal/config"
	"github.com/iliyamo/wild-series/internal/csrf"
	"github.com/iliyamo/wild-series/internal/database"
	"github.com/iliyamo/wild-series/internal/handler"
	"github.com/iliyamo/wild-series/internal/logging"
	"github.com/iliyamo/wild-series/internal/mailer"
	"github.com/iliyamo/wild-series/internal/metrics"
	"github.com/iliyamo/wild-series/internal/middleware"
	"github.com/iliyamo/wild-series/internal/queue"
	"github.com/iliyamo/wild-series/internal/repository"
	"github.com/iliyamo/wild-series/internal/router"
	publisher "github.com/iliyamo/wild-series/internal/service"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; the environment may be set already

	cfg, err := config.Load()
	log := logging.NewLogger("wild-series", os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	log = logging.NewLogger("wild-series", cfg.LogLevel).WithField("env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.WithError(err).Fatal("ensure schema")
	}

	// Redis is optional: without it the cache and the rate limiter are off.
	var rdb *redis.Client
	if c, err := config.NewRedisClient(); err != nil {
		log.WithError(err).Warn("redis unavailable; response cache and rate limiting disabled")
	} else {
		rdb = c
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
	authLimit := middleware.NewTokenBucket(config.LoadAuthRateLimitConfig(), rdb, log)

	smtp, err := mailer.NewSMTPClient(cfg.Mail)
	if err != nil {
		log.WithError(err).Fatal("configure smtp client")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	programs := repository.NewProgramRepo(db)
	categories := repository.NewCategoryRepo(db)
	seasons := repository.NewSeasonRepo(db)
	users := repository.NewUserRepo(db)

	catalog := &handler.CatalogHandler{
		Programs:   programs,
		Categories: categories,
		Seasons:    seasons,
		Watchlist:  users,
		Mailer:     mailer.NewNotifier(smtp, cfg.Mail, cfg.PublicBaseURL),
		Cache:      cache,
		CSRF:       csrf.New(cfg.CSRFSecret),
		Metrics:    m,
		Log:        log.WithField("component", "catalog"),
	}
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		catalog.Events = publisher.New(url, log)
		go func() {
			err := queue.StartProgramConsumer(ctx, url, envOr("PROGRAMS_LOG", "logs/programs.log"), log.WithField("component", "consumer"))
			if err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("program consumer stopped")
			}
		}()
	}
	browse := &handler.BrowseHandler{
		Programs:   programs,
		Categories: categories,
		Seasons:    seasons,
		Log:        log.WithField("component", "browse"),
	}

	e := echo.New()
	router.Setup(e, log.WithField("component", "http"), m)
	router.RegisterRoutes(e, db, m)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, log.WithField("component", "auth")), cfg.JWTSecret, authLimit)
	router.RegisterCatalog(e, catalog, cfg.JWTSecret)
	router.RegisterBrowse(e, browse, limit, cache.Middleware())

	addr := ":" + cfg.Port
	go func() {
		log.Infof("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
