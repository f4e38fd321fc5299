package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Simplici0/costeo3d/internal/config"
	"github.com/Simplici0/costeo3d/internal/db"
	"github.com/Simplici0/costeo3d/internal/metrics"
	"github.com/Simplici0/costeo3d/internal/migrations"
	"github.com/Simplici0/costeo3d/internal/quotes"
	"github.com/Simplici0/costeo3d/internal/quoting"
	"github.com/Simplici0/costeo3d/internal/rules"
	"github.com/Simplici0/costeo3d/internal/seed"
	"github.com/Simplici0/costeo3d/internal/settings"
)

type server struct {
	auth      *authService
	db        *sql.DB
	settings  *settings.Store
	quotes    *quotes.Store
	estimator *quoting.Estimator
	limiter   *ipRateLimiter
	logger    *slog.Logger
	gatherer  prometheus.Gatherer
}

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database); err != nil {
			return err
		}
	}

	stats, err := seed.Run(ctx, database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		return err
	}
	logger.Info("startup seed finished", "inserts", stats.Inserts)

	priceRules, err := rules.Load(cfg.PriceRulesPath)
	if err != nil {
		return err
	}
	logger.Info("price rules loaded", "path", cfg.PriceRulesPath, "rules", priceRules.Len())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := newServer(database, serverOptions{
		sessionSecret: cfg.SessionSecret,
		rules:         priceRules,
		registry:      reg,
		rateLimit:     cfg.EstimateRateLimit,
		rateBurst:     cfg.EstimateRateBurst,
		logger:        logger,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", httpServer.Addr, "env", cfg.Env)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type serverOptions struct {
	sessionSecret string
	rules         *rules.Set
	registry      *prometheus.Registry
	rateLimit     float64
	rateBurst     int
	logger        *slog.Logger
}

func newServer(database *sql.DB, opts serverOptions) *server {
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	settingsStore := settings.NewStore(database)
	quoteStore := quotes.NewStore(database)

	return &server{
		auth:     newAuthService(database, opts.sessionSecret),
		db:       database,
		settings: settingsStore,
		quotes:   quoteStore,
		estimator: quoting.NewEstimator(quoting.Deps{
			Settings: settingsStore,
			Quotes:   quoteStore,
			Rules:    opts.rules,
			Metrics:  metrics.NewCollector(reg),
			Logger:   logger,
			Currency: settings.DefaultCurrency,
		}),
		limiter:  newIPRateLimiter(opts.rateLimit, opts.rateBurst),
		logger:   logger,
		gatherer: reg,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.Post("/api/estimate", s.handleEstimate)
		r.Get("/ws/estimate", s.handleEstimateSocket)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/admin/settings", s.handleGetSettings)
		r.Put("/admin/settings", s.handleUpdateSettings)
		r.Get("/admin/machines", s.handleListMachines)
		r.Post("/admin/machines", s.handleCreateMachine)
		r.Put("/admin/machines/{id}", s.handleUpdateMachine)
		r.Get("/admin/consumables", s.handleListConsumables)
		r.Post("/admin/consumables", s.handleCreateConsumable)
		r.Put("/admin/consumables/{id}", s.handleUpdateConsumable)

		r.Get("/quotes", s.handleQuotesList)
		r.Post("/quotes", s.handleQuoteCreate)
		r.Get("/quotes/{id}", s.handleQuoteDetail)
		r.Get("/quotes/{id}/text", s.handleQuoteText)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "health check failed", "error", err)
		writeProblem(w, r, http.StatusServiceUnavailable, "Servicio no disponible")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
