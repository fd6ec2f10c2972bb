package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"roulette-bot/internal/animation"
	"roulette-bot/internal/bot"
	"roulette-bot/internal/cache"
	"roulette-bot/internal/catalog"
	"roulette-bot/internal/config"
	"roulette-bot/internal/handler"
	"roulette-bot/internal/journal"
	"roulette-bot/internal/metrics"
	"roulette-bot/internal/repository"
	"roulette-bot/internal/router"
	"roulette-bot/internal/service"
)

// animationStripLength is how many tiles the decorative strip holds before it loops.
const animationStripLength = 60

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and its HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			commonRun(cfg.App.Name, cfg.App.Debug)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Info().
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Str("mode", cfg.Telegram.Mode).
		Msg("starting roulette bot")

	cat, err := catalog.Load(cfg.Catalog.Path, cfg.Catalog.ImageDir)
	if err != nil {
		return err
	}
	log.Info().Int("items", cat.Len()).Str("path", cfg.Catalog.Path).Msg("catalog loaded")

	sampler, err := service.NewSampler(cat.Items(), nil)
	if err != nil {
		return err
	}

	baseLedger, err := repository.Open(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer baseLedger.Close()
	log.Info().Str("db_type", cfg.Ledger.Type).Msg("ledger opened")

	ledger, listingCache, err := withCache(baseLedger, cfg.Cache)
	if err != nil {
		return err
	}
	if listingCache != nil {
		defer listingCache.Close()
	}

	m := metrics.New()
	gate := service.NewGate()
	spin := service.NewSpinService(sampler, gate, service.NewCaptcha(nil), ledger, service.SpinConfig{
		ChallengeInterval: cfg.Spin.ChallengeInterval,
		CountChallenged:   cfg.Spin.CountChallenged,
	}, log.Logger)
	spin.SetMetrics(m)

	// The journal outlives the update handlers so late grants still get written.
	journalDone := make(chan struct{})
	journalCtx, stopJournal := context.WithCancel(context.Background())
	if cfg.Spin.JournalPath != "" {
		w := journal.NewWriter(journal.New(cfg.Spin.JournalPath), cfg.Spin.JournalQueue, log.Logger)
		spin.SetJournal(w)
		go func() {
			defer close(journalDone)
			w.Run(journalCtx)
		}()
	} else {
		close(journalDone)
	}
	defer func() {
		stopJournal()
		<-journalDone
	}()
	inventory := service.NewInventoryService(ledger, cat)

	anim, err := animation.Render(sampler.Sequence(animationStripLength), animation.DefaultOptions(cfg.Spin.AnimationSeconds))
	if err != nil {
		return fmt.Errorf("render roulette animation: %w", err)
	}
	log.Info().Int("bytes", len(anim.Data)).Int("frames", anim.Frames).Msg("roulette animation rendered")

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("authorized on telegram")

	b := bot.New(api, spin, inventory, anim, bot.Config{
		RevealDelay:    cfg.Spin.RevealDelay,
		SupportContact: cfg.Spin.SupportContact,
	}, log.Logger)

	auditor := service.NewLedgerAuditor(ledger, service.AuditConfig{
		Interval: cfg.Ledger.AuditInterval,
		Repair:   cfg.Ledger.AuditRepair,
	}, log.Logger)

	health := handler.New(cfg.App.Name, cfg.App.Version, ledger)
	if listingCache != nil {
		health.SetCache(listingCache)
	}

	routes := router.Config{
		Handler:          health,
		AdminHandler:     handler.NewAdminHandler(ledger, gate, auditor, cfg.Ledger.Type, cfg.Cache.Type, log.Logger),
		InventoryHandler: handler.NewInventoryHandler(inventory),
		GrantLogHandler:  handler.NewGrantLogHandler(ledger),
		Metrics:          m.Handler(),
		AdminKey:         cfg.Server.AdminKey,
		Logger:           log.Logger,
	}
	if cfg.Telegram.IsWebhook() {
		routes.WebhookHandler = handler.NewWebhookHandler(cfg.Telegram.WebhookSecret, b, log.Logger)
	}

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router.New(routes),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Telegram.IsWebhook() {
		if err := registerWebhook(api, cfg.Telegram); err != nil {
			return err
		}
	} else if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn().Err(err).Msg("failed to clear webhook before polling")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("address", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		auditor.Run(gctx)
		return nil
	})

	if !cfg.Telegram.IsWebhook() {
		g.Go(func() error {
			return b.RunPolling(gctx, api, cfg.Telegram.PollTimeout)
		})
	}

	err = g.Wait()
	log.Info().Msg("roulette bot stopped")
	return err
}

// withCache wraps inner with the configured listing cache. The returned cache
// is nil when caching is off.
func withCache(inner repository.Ledger, cfg config.CacheConfig) (repository.Ledger, cache.Cache, error) {
	var c cache.Cache
	switch cfg.Type {
	case "none", "":
		return inner, nil, nil
	case "memory":
		c = cache.NewMemoryCache(time.Minute)
	case "redis":
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.RedisAddress(),
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		c = rc
	default:
		return nil, nil, fmt.Errorf("unknown CACHE_TYPE %q", cfg.Type)
	}
	log.Info().Str("cache_type", cfg.Type).Dur("ttl", cfg.TTL).Msg("inventory listing cache enabled")

	return repository.NewCachedLedger(inner, c, cfg.TTL, log.Logger), c, nil
}

func registerWebhook(api *tgbotapi.BotAPI, cfg config.TelegramConfig) error {
	wh, err := tgbotapi.NewWebhook(webhookURL(cfg))
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}
	log.Info().Msg("webhook registered")
	return nil
}

func webhookURL(cfg config.TelegramConfig) string {
	return strings.TrimRight(cfg.WebhookURL, "/") + "/telegram/webhook/" + cfg.WebhookSecret
}
