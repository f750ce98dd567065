package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hookrelay/internal/bridge"
	"hookrelay/internal/config"
	"hookrelay/internal/dispatch"
	"hookrelay/internal/events"
	"hookrelay/internal/httpclient"
	"hookrelay/internal/logging"
	"hookrelay/internal/queue/nats"
	"hookrelay/internal/resolve"
	"hookrelay/internal/retry"
	"hookrelay/internal/server"
	"hookrelay/internal/store/postgres"
	"hookrelay/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, continuing with environment variables")
	}

	cfg, err := config.Load(os.Getenv("HOOKRELAY_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logging.Init(cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	serviceStore := postgres.NewServiceStore(db)
	resolver := resolve.New(serviceStore)
	serviceStore.WithInvalidator(resolver)

	publisher, err := nats.New(ctx, cfg.NATSURL)
	if err != nil {
		slog.Error("failed to connect to NATS", slog.Any("error", err))
		os.Exit(1)
	}
	defer publisher.Close()

	consumer, err := publisher.DispatchConsumer(ctx)
	if err != nil {
		slog.Error("failed to create dispatch consumer", slog.Any("error", err))
		os.Exit(1)
	}

	hub := events.NewHub()
	dispatcher := dispatch.NewDispatcher(resolver, httpclient.New(cfg.Timeout())).
		WithOutcomeStore(postgres.NewOutcomeStore(db)).
		WithAudit(events.MultiSink{hub, events.NewQueueSink(publisher)})

	dispatchWorker := worker.NewDispatchWorker(dispatcher, consumer, publisher, retry.DefaultPolicy())
	go func() {
		if err := dispatchWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("dispatch worker stopped", slog.Any("error", err))
		}
	}()

	eventBridge := bridge.New(publisher, cfg.Events, cfg.Enabled)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(eventBridge, serviceStore, hub).Router(),
	}

	go func() {
		slog.Info("hookrelayd listening",
			slog.String("code", "SYS_STARTUP"),
			slog.String("addr", cfg.ListenAddr),
			slog.Bool("enabled", cfg.Enabled),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down", slog.String("code", "SYS_SHUTDOWN"))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server forced to shut down", slog.Any("error", err))
	}
}
