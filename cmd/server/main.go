package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/dynastyacademy/ledger/docs"
	"github.com/dynastyacademy/ledger/internal/audit"
	"github.com/dynastyacademy/ledger/internal/config"
	"github.com/dynastyacademy/ledger/internal/database"
	"github.com/dynastyacademy/ledger/internal/handlers"
	"github.com/dynastyacademy/ledger/internal/jobs"
	"github.com/dynastyacademy/ledger/internal/logger"
	"github.com/dynastyacademy/ledger/internal/metrics"
	"github.com/dynastyacademy/ledger/internal/repository"
	"github.com/dynastyacademy/ledger/internal/repository/memory"
	"github.com/dynastyacademy/ledger/internal/repository/postgres"
	"github.com/dynastyacademy/ledger/internal/services"
	"github.com/dynastyacademy/ledger/internal/trust"
)

// @title Dynasty Academy Ledger API
// @version 1.0
// @description Double-entry ledger and trust-based fee engine for course sales
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)

	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		accounts repository.AccountRepository
		entries  repository.EntryRepository
		health   func(context.Context) error
	)
	switch cfg.Ledger.Store {
	case "memory":
		log.Warn("using in-memory ledger store, balances are lost on restart")
		store := memory.NewStore()
		accounts, entries = store, store
	default:
		db, err := database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize database")
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(ctx, db, log); err != nil {
				log.WithError(err).Fatal("failed to run migrations")
			}
		}
		accounts = postgres.NewAccountRepository(db)
		entries = postgres.NewEntryRepository(db)
		health = pingHealth(db)
	}

	redisClient := database.NewRedis(ctx, cfg.Redis, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.NewCollector()
	trustProvider := newTrustProvider(cfg.Trust, redisClient, log)

	registry := services.NewAccountRegistry(accounts, log)
	balances := services.NewBalanceService(entries)
	fees := services.NewFeeCalculator(trustProvider, services.FeeConfig{
		TrustBasedEnabled: cfg.Fees.TrustBasedEnabled,
		FlatPercentage:    cfg.Fees.FlatPercentage,
		LookupTimeout:     cfg.Fees.TrustLookupTimeout,
	}, log, m)
	engine := services.NewTransferEngine(accounts, entries, audit.NewAuditLogger(log), m, log)
	purchases := services.NewPurchaseService(registry, fees, engine, log)

	if cfg.Integrity.Enabled {
		scheduler := jobs.NewScheduler(services.NewIntegrityChecker(entries, m, log), cfg.Integrity.Schedule, log)
		if err := scheduler.Start(ctx); err != nil {
			log.WithError(err).Fatal("failed to start scheduler")
		}
		defer scheduler.Stop()
	}

	if cfg.JWT.SecretKey == "" {
		log.Warn("jwt.secret_key is empty, dashboard endpoints will reject every request")
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		JWTSecret:      cfg.JWT.SecretKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthCheck:    health,
	}, handlers.NewLedgerHandler(registry, balances, fees, engine, purchases, log), m)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server failed")
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
		os.Exit(1)
	}
	log.Info("server stopped")
}

// newTrustProvider prefers the governance service, cached in Redis when
// available. Without a base URL every instructor scores 0.
func newTrustProvider(cfg config.TrustConfig, rdb *redis.Client, log logrus.FieldLogger) trust.Provider {
	if cfg.BaseURL == "" {
		log.Warn("trust.base_url not set, all instructors score 0")
		return trust.NewStaticProvider(nil)
	}
	httpProvider := trust.NewHTTPProvider(cfg.BaseURL, cfg.APIKey, cfg.HTTPTimeout)
	return trust.NewCachedProvider(httpProvider, rdb, cfg.CacheTTL, log)
}

func pingHealth(db *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}
}
