package main

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"budgetboard/internal/advisor"
	"budgetboard/internal/amqp"
	"budgetboard/internal/cache"
	"budgetboard/internal/charts"
	"budgetboard/internal/config"
	apphttp "budgetboard/internal/http"
	"budgetboard/internal/log"
	"budgetboard/internal/metrics"
	"budgetboard/internal/plugin"
	"budgetboard/internal/state"
	"budgetboard/internal/storage"
	"budgetboard/internal/view"
	appweb "budgetboard/web"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	model, err := repo.LoadModel(context.Background())
	if err != nil {
		logger.Error("Failed to load stored model", "error", err)
		os.Exit(1)
	}

	// AMQP publishing is optional; without a broker, mutations stay local.
	storeOpts := []state.Option{state.WithPersister(repo)}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		storeOpts = append(storeOpts, state.WithPublisher(amqpClient))
		logger.Info("AMQP change publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	store := state.New(model, storeOpts...)
	store.Subscribe(func(revision uint64) {
		metrics.ModelUpdates.WithLabelValues("ok").Inc()
		metrics.ModelRevision.Set(float64(revision))
	})

	engine := advisor.New(advisor.Config{
		PillarCapCents:     cfg.PillarCapCents,
		PillarTaxFactor:    cfg.PillarTaxFactor,
		MinSavingsRate:     cfg.MinSavingsRate,
		ComfortSavingsRate: cfg.ComfortSavingsRate,
	})

	tmpl, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", "error", err)
		os.Exit(1)
	}

	renderer := charts.NewConfigRenderer()
	chartManager := charts.NewManager(renderer, charts.WithRetry(cfg.ChartRetryDelay, cfg.ChartMaxRetries))
	dispatcher := view.NewDispatcher(store, engine, chartManager, tmpl,
		view.WithFragmentCache(cache.NewLRU[string](cfg.FragmentCacheSize, cfg.FragmentCacheTTL)))

	goals := plugin.NewGoals(store, logger.WithComponent(log.ComponentPlugin))
	if err := goals.Attach(dispatcher); err != nil {
		logger.Error("Failed to attach goals plugin", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, store, dispatcher, goals, engine, renderer)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budgetboard server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
