package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log" // used only before the zap logger exists
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"                    // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // panic recovery
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/auth"
	"github.com/iliyamo/cinema-ticket-booking/internal/booking"
	"github.com/iliyamo/cinema-ticket-booking/internal/config" // Internal config loader
	"github.com/iliyamo/cinema-ticket-booking/internal/database"
	"github.com/iliyamo/cinema-ticket-booking/internal/handler"
	"github.com/iliyamo/cinema-ticket-booking/internal/logger"
	"github.com/iliyamo/cinema-ticket-booking/internal/middleware"
	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/pricing"
	"github.com/iliyamo/cinema-ticket-booking/internal/queue"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
	"github.com/iliyamo/cinema-ticket-booking/internal/router" // Internal router setup
	"github.com/iliyamo/cinema-ticket-booking/internal/service"
	"github.com/iliyamo/cinema-ticket-booking/internal/store/memory"
)

// stores groups the backends selected by STORE_DRIVER.
type stores struct {
	db      *sql.DB // nil for the memory driver
	catalog interface {
		booking.Catalog
		GetOrCreate(ctx context.Context, name, description, imageURL string) (*model.Movie, error)
	}
	inventory booking.Inventory
	ledger    booking.Ledger
	users     handler.UserStore
	tokens    handler.TokenStore
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("dotenv: %v", err)
	}
	cfg := config.Load() // Load environment config

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, zl)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}
	for _, name := range cfg.SeedMovies {
		if _, err := st.catalog.GetOrCreate(ctx, name, "", ""); err != nil {
			return err
		}
	}

	authn, err := auth.New(cfg.AuthStrategy, cfg.BcryptCost)
	if err != nil {
		return err
	}

	// Redis is optional: without it the cache and the rate limiter pass through.
	rc := config.LoadRedisConfig()
	var rdb *redis.Client
	if rc.Enabled {
		rdb, err = config.NewRedisClient(ctx, rc)
		if err != nil {
			zl.Warn("redis unavailable; cache and rate limit disabled", zap.Error(err))
		} else {
			defer rdb.Close()
		}
	}

	var pub booking.Publisher
	if cfg.EventsEnabled {
		pub = service.NewPublisher(cfg.AMQPURL, zl.Named("publisher"))
		consumer := queue.NewConsumer(cfg.AMQPURL, "logs", zl.Named("consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	coord := booking.NewCoordinator(st.catalog, st.inventory, st.ledger, pricing.NewEngine(), pub,
		zl.Named("booking"), booking.Options{Compensate: cfg.Compensate})

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(zl.Named("http")))
	rl := config.LoadRateLimitConfig()
	e.Use(middleware.NewTokenBucket(rl, rdb, zl.Named("ratelimit")))

	var pinger handler.Pinger
	if st.db != nil {
		pinger = st.db
	}
	router.RegisterRoutes(e, pinger) // Register application routes
	router.RegisterAuth(e, handler.NewAuthHandler(handler.TokenConfig{
		Secret:         cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
	}, st.users, st.tokens, authn, zl.Named("auth")), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewCatalogHandler(coord),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, zl.Named("cache")))
	router.RegisterBooking(e, handler.NewBookingHandler(coord, zl.Named("booking")), cfg.JWTSecret,
		middleware.NewBookingBucket(rl, rdb, zl.Named("ratelimit")))

	addr := ":" + cfg.Port // Address string with port
	errc := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}
	// let in-flight event publishes finish
	coord.Wait()
	return nil
}

func openStores(ctx context.Context, cfg config.Config, zl *zap.Logger) (*stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		zl.Info("using in-memory stores")
		return &stores{
			catalog:   memory.NewCatalog(),
			inventory: memory.NewInventory(),
			ledger:    memory.NewLedger(),
			users:     memory.NewUsers(),
			tokens:    memory.NewTokens(),
		}, nil
	}

	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &stores{
		db:        db,
		catalog:   repository.NewMovieRepo(db),
		inventory: repository.NewShowRepo(db),
		ledger:    repository.NewBookingRepo(db),
		users:     repository.NewUserRepo(db),
		tokens:    repository.NewTokenRepo(db),
	}, nil
}
