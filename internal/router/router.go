package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"roulette-bot/internal/handler"
	"roulette-bot/internal/middleware"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	AdminHandler     *handler.AdminHandler
	InventoryHandler *handler.InventoryHandler
	GrantLogHandler  *handler.GrantLogHandler
	WebhookHandler   *handler.WebhookHandler
	Metrics          http.Handler
	AdminKey         string
	Logger           zerolog.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.NewRecovery(cfg.Logger))
	r.Use(middleware.NewLogging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", middleware.AdminKeyHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// PUBLIC routes
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
		r.Get("/api/v1/health", cfg.Handler.Health)
		r.Get("/api/v1/ready", cfg.Handler.Ready)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	if cfg.WebhookHandler != nil {
		r.Post("/telegram/webhook/{secret}", cfg.WebhookHandler.Receive)
	}

	// ADMIN routes
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.NewAdminAuth(cfg.AdminKey))

		if cfg.AdminHandler != nil {
			r.Get("/stats", cfg.AdminHandler.GetStats)
			r.Post("/ledger/verify", cfg.AdminHandler.VerifyLedger)
		}
		if cfg.InventoryHandler != nil {
			r.Get("/inventory/{user_id}", cfg.InventoryHandler.GetInventory)
		}
		if cfg.GrantLogHandler != nil {
			r.Get("/inventory/{user_id}/grants", cfg.GrantLogHandler.GetGrants)
		}
	})

	return r
}
