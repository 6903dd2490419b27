package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/wandernest/internal/accessclient"
	"github.com/diagnosis/wandernest/internal/dashboard"
	"github.com/diagnosis/wandernest/internal/http/handlers/tourist"
	"github.com/diagnosis/wandernest/internal/http/middleware"
	"github.com/diagnosis/wandernest/internal/repo/postgres"
	"github.com/diagnosis/wandernest/internal/session"
	"github.com/diagnosis/wandernest/pkg/config"
	"github.com/diagnosis/wandernest/pkg/database"
	"github.com/diagnosis/wandernest/pkg/events"
	"github.com/diagnosis/wandernest/pkg/logger"
	mw "github.com/diagnosis/wandernest/pkg/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", "error", err)
	}
	cfg := config.Load()
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.NeedsDatabase() {
		p, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		if err := postgres.EnsureSchema(ctx, p); err != nil {
			logger.Error("Failed to prepare database schema", "error", err)
			os.Exit(1)
		}
		pool = p
	}

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		c, err := database.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		rdb = c
	}

	var pub events.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		np, err := events.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		pub = np
	}
	defer pub.Close()

	stores, err := buildBackends(cfg, pool, rdb)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	api := accessclient.New(cfg.API.BaseURL, accessclient.Options{
		Timeout:         cfg.API.Timeout,
		BreakerFailures: cfg.API.BreakerFailures,
		BreakerOpenFor:  cfg.API.BreakerOpenFor,
	})

	renderer, err := dashboard.NewRenderer(time.Local)
	if err != nil {
		logger.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	registry := session.NewRegistry(api, stores.tokens, pub, cfg.Session.IdleTTL)
	dash := tourist.NewDashboardHandler(registry, renderer)
	booking := tourist.NewBookingHandler(api, renderer, pub)

	accessLimit := middleware.NewRateLimiter(stores.limiter, middleware.RateLimitConfig{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		Prefix:   "access:",
		SkipFunc: middleware.OnlyPOST,
	})
	bookingLimit := middleware.NewRateLimiter(stores.limiter, middleware.RateLimitConfig{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		Prefix:   "booking:",
		SkipFunc: middleware.OnlyPOST,
	})

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("portal"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.Health)
	r.Use(middleware.BrowserSession(middleware.SessionCookieConfig{
		Name:   cfg.Session.CookieName,
		Secret: cfg.Session.CookieSecret,
		Secure: cfg.Session.CookieSecure,
		TTL:    cfg.Session.CookieTTL,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/tourist/dashboard", http.StatusFound)
	})

	r.Mount("/tourist/dashboard", dash.Routes(accessLimit.Middleware()))
	r.Route("/booking", func(r chi.Router) {
		r.Use(bookingLimit.Middleware())
		r.Mount("/", booking.Routes())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Get("/tourist/dashboard/state", dash.State)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting portal", "port", cfg.Server.Port, "session_backend", cfg.Session.Backend, "rate_limit_backend", cfg.RateLimit.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return registry.Run(gctx, janitorInterval)
	})
	g.Go(func() error {
		return stores.runCleanups(gctx, janitorInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down portal...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Portal error", "error", err)
		os.Exit(1)
	}
}
