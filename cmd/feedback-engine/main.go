package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/akiharsha/ai-assistant-chatbot/internal/api"
	"github.com/akiharsha/ai-assistant-chatbot/internal/cache"
	"github.com/akiharsha/ai-assistant-chatbot/internal/config"
	"github.com/akiharsha/ai-assistant-chatbot/internal/engine"
	"github.com/akiharsha/ai-assistant-chatbot/internal/metrics"
	"github.com/akiharsha/ai-assistant-chatbot/internal/patterns"
	"github.com/akiharsha/ai-assistant-chatbot/internal/services"
	"github.com/akiharsha/ai-assistant-chatbot/internal/store"
	"github.com/akiharsha/ai-assistant-chatbot/internal/utils"
)

func main() {
	var (
		configPath string
		seedSample bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&seedSample, "seed-sample", false, "Store the demonstration feedback when the store is empty")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting feedback engine",
		slog.String("grpc_address", cfg.Server.GRPCAddress),
		slog.String("http_address", cfg.Server.HTTPAddress),
		slog.String("store", cfg.Store.Backend),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := store.OpenBackend(ctx, cfg.Store.Backend, cfg.Store.Path, cfg.Store.DSN, logger)
	if err != nil {
		logger.Error("failed to open feedback store", slog.Any("error", err))
		os.Exit(1)
	}
	feedbackStore := store.Open(ctx, backend, logger)
	defer feedbackStore.Close()
	logger.Info("feedback store loaded", slog.String("backend", backend.Name()), slog.Int("records", feedbackStore.Len()))

	var cacheProvider cache.Provider = cache.NoopProvider{}
	provider, err := cache.New(cfg.Cache.Backend, cache.RedisConfig{
		Addr:         cfg.Cache.Addr,
		Username:     cfg.Cache.Username,
		Password:     cfg.Cache.Password,
		DB:           cfg.Cache.DB,
		DialTimeout:  cfg.Cache.DialTimeout,
		ReadTimeout:  cfg.Cache.ReadTimeout,
		WriteTimeout: cfg.Cache.WriteTimeout,
		MaxRetries:   cfg.Cache.MaxRetries,
		TLS:          cfg.Cache.TLS,
	})
	if err != nil {
		logger.Warn("report cache unavailable", slog.String("backend", cfg.Cache.Backend), slog.Any("error", err))
	} else {
		cacheProvider = provider
	}
	defer cacheProvider.Close()

	ruleEngine, err := engine.NewRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		logger.Error("failed to load rule pack", slog.Any("error", err))
		os.Exit(1)
	}

	serviceOpts := services.Options{
		Threshold:     cfg.Analytics.Threshold,
		TopDimensions: cfg.Analytics.TopDimensions,
		TopIssues:     cfg.Analytics.TopIssues,
		RecentWindow:  cfg.Analytics.RecentWindow,
		ReportTTL:     cfg.Cache.ReportTTL,
	}.WithDefaults()
	builder := engine.NewReportBuilder(logger, append(serviceOpts.ReportOptions(),
		engine.WithRules(ruleEngine),
		engine.WithMiner(patterns.NewMiner(logger, services.IssueMetricsSink())),
	)...)

	feedbackService := services.NewFeedbackService(logger, feedbackStore, builder, cacheProvider, serviceOpts)

	if seedSample && feedbackStore.Len() == 0 {
		created, err := feedbackService.SeedSample(ctx)
		if err != nil {
			logger.Warn("sample feedback not fully stored", slog.Int("stored", len(created)), slog.Any("error", err))
		} else {
			logger.Info("sample feedback stored", slog.Int("records", len(created)))
		}
	}

	if cfg.Store.Watch {
		go func() {
			if err := store.Watch(ctx, feedbackStore, cfg.Store.WatchDebounce, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("store watcher exited", slog.Any("error", err))
			}
		}()
	}

	server, err := api.NewServer(cfg.Server, api.NewGRPCHandler(feedbackService, logger))
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var httpServer *http.Server
	if cfg.Server.HTTPAddress != "" {
		httpServer = &http.Server{
			Addr:         cfg.Server.HTTPAddress,
			Handler:      api.NewRouter(feedbackService, logger, nil),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("http server listening", slog.String("address", cfg.Server.HTTPAddress))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("grpc server listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("http server shutdown", slog.Any("error", err))
		}
	}

	logger.Info("feedback engine stopped")
}
