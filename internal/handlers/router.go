package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/dynastyacademy/ledger/docs"
	"github.com/dynastyacademy/ledger/internal/metrics"
	mW "github.com/dynastyacademy/ledger/internal/middleware"
)

// RouterConfig carries the HTTP settings NewRouter needs.
type RouterConfig struct {
	JWTSecret      string
	AllowedOrigins []string
	RequestTimeout time.Duration
	// HealthCheck reports store reachability on /health. Nil means always healthy.
	HealthCheck func(ctx context.Context) error
}

// NewRouter builds the chi router with middleware, docs and API routes.
func NewRouter(cfg RouterConfig, ledger *LedgerHandler, m *metrics.Collector) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(mW.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(timeout))
	r.Use(mW.HTTPMetrics(m))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mW.RequestIDHeader},
		ExposedHeaders:   []string{mW.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", m.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Payment provider callbacks are verified upstream.
		r.Post("/webhooks/purchases", ledger.RecordPurchase)

		r.Group(func(r chi.Router) {
			r.Use(mW.Auth(cfg.JWTSecret))

			r.Get("/accounts/{accountId}/balance", ledger.GetBalance)
			r.Get("/accounts/{accountId}/entries", ledger.GetEntries)
			r.Get("/instructors/{instructorId}/fee-quote", ledger.FeeQuote)
			r.Get("/fees/potential", ledger.EarningsPotential)
			r.Get("/fees/boost", ledger.EarningsBoost)
			r.Post("/transfers/{refId}/reverse", ledger.ReverseTransfer)
		})
	})

	return r
}
