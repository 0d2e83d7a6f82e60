package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/seedslabs/gratibot-backend/api/controllers"
	"github.com/seedslabs/gratibot-backend/api/routes"
	"github.com/seedslabs/gratibot-backend/internal/conversation"
	"github.com/seedslabs/gratibot-backend/internal/directory"
	"github.com/seedslabs/gratibot-backend/internal/dispatch"
	"github.com/seedslabs/gratibot-backend/internal/gratitude"
	"github.com/seedslabs/gratibot-backend/internal/locale"
	"github.com/seedslabs/gratibot-backend/internal/registration"
	"github.com/seedslabs/gratibot-backend/pkg/config"
	"github.com/seedslabs/gratibot-backend/pkg/db"
	"github.com/seedslabs/gratibot-backend/pkg/esr"
	"github.com/seedslabs/gratibot-backend/pkg/instance"
	"github.com/seedslabs/gratibot-backend/pkg/logger"
	"github.com/seedslabs/gratibot-backend/pkg/metrics"
	"github.com/seedslabs/gratibot-backend/pkg/migrate"
	"github.com/seedslabs/gratibot-backend/pkg/redis"
	"github.com/seedslabs/gratibot-backend/pkg/telegram"
)

const shutdownGrace = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "bot"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "bot",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	// Schema upkeep runs on every boot, before the webhook goes live.
	engine := migrate.NewEngine(dbClient, logg)
	results, err := engine.Run(context.Background())
	if err != nil {
		logg.Error(context.Background(), "schema upkeep failed", err)
		os.Exit(1)
	}
	for _, res := range results {
		if res.Skipped {
			continue
		}
		ctx := logg.WithFields(context.Background(), map[string]any{
			"step":    res.Step,
			"ordinal": res.Ordinal,
		})
		if stepErr := res.Err(); stepErr != nil {
			logg.Warn(logg.WithField(ctx, "outcome", stepErr.Error()), "schema step finished with tolerated failures")
		} else {
			logg.Info(ctx, "schema step applied")
		}
	}

	var conversations conversation.Store
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		conversations = conversation.NewRedisStore(redisClient, cfg.Dispatch.ScratchTTL)
	} else {
		logg.Warn(context.Background(), "redis not configured, conversation state is process local")
		conversations = conversation.NewMemoryStore(cfg.Dispatch.ScratchTTL)
	}

	botClient, err := telegram.NewClient(cfg.Bot.Token, telegram.WithBaseURL(cfg.Bot.APIBaseURL))
	if err != nil {
		logg.Error(context.Background(), "failed to build bot client", err)
		os.Exit(1)
	}

	signer, err := esr.NewClient(cfg.Signing.Account, cfg.Signing.Actor,
		esr.WithBaseURL(cfg.Signing.BaseURL),
		esr.WithTimeout(cfg.Signing.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to build signing client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	botMetrics := metrics.NewBotMetrics(registry)

	repo := directory.NewRepository(dbClient)
	dispatcher := dispatch.New(dispatch.Params{
		Logger:        logg,
		Metrics:       botMetrics,
		Sender:        botClient,
		Locales:       locale.NewResolver(repo, logg),
		Registration:  registration.NewService(repo, conversations, botClient, logg),
		Gratitude:     gratitude.NewService(repo, signer, botClient, logg, botMetrics, cfg.Bot.Username, cfg.Signing.Timeout),
		Directory:     repo,
		Conversations: conversations,
		DBClient:      dbClient,
		BotUsername:   cfg.Bot.Username,
		DefaultLocale: cfg.Bot.DefaultLocale,
	})

	var redisPinger controllers.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}
	router := routes.NewRouter(routes.Params{
		Config:     cfg,
		Logger:     logg,
		Dispatcher: dispatcher,
		DB:         dbClient,
		Redis:      redisPinger,
		Registry:   registry,
	})

	if url := cfg.Bot.WebhookURL(); url != "" {
		if err := botClient.SetWebhook(context.Background(), url, cfg.Bot.WebhookSecret); err != nil {
			logg.Error(context.Background(), "failed to register webhook", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(context.Background(), "webhook_url", url), "webhook registered")
	} else {
		logg.Warn(context.Background(), "no webhook host configured, skipping webhook registration")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "bot server started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "bot server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if cfg.Bot.WebhookURL() != "" {
			if err := botClient.DeleteWebhook(shutdownCtx); err != nil {
				logg.Warn(ctx, "failed to unregister webhook on shutdown")
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
