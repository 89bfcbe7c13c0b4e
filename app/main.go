package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/crowd-list/app/airtable"
	"github.com/lysyi3m/crowd-list/app/api"
	"github.com/lysyi3m/crowd-list/app/cfg"
	"github.com/lysyi3m/crowd-list/app/database"
	"github.com/lysyi3m/crowd-list/app/feed"
	"github.com/lysyi3m/crowd-list/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	logCloser := cfg.SetupLogger(appCfg)
	defer logCloser.Close()

	if err := run(appCfg); err != nil {
		slog.Error("Crowd List stopped with error", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Crowd List", "version", appCfg.Version, "backend", appCfg.Backend)

	repo, reader, closeBackend, err := openBackend(appCfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	configCache := feed.NewConfigCache(appCfg.WatchesDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load watch configurations: %w", err)
	}
	if _, err := configCache.GetConfig(feed.DefaultConfigName); err != nil {
		defaultWatch := &feed.Config{
			Name:   feed.DefaultConfigName,
			URL:    appCfg.FeedURL,
			Marker: appCfg.FormMarker,
			Settings: feed.ConfigSettings{
				Enabled: true,
				Timeout: int(appCfg.RunTimeout / time.Second),
			},
		}
		if err := configCache.AddConfig(defaultWatch); err != nil {
			return fmt.Errorf("failed to register default watch: %w", err)
		}
	}
	slog.Info("Watch configurations loaded", "count", configCache.GetConfigCount())

	edgarClient := feed.NewClient(&http.Client{}, appCfg.UserAgent, appCfg.RequestsPerSecond, appCfg.RequestTimeout)

	opts := []tasks.PipelineOption{
		tasks.WithRunLock(tasks.NewRunLock(appCfg.LockFile)),
		tasks.WithExtractWorkers(appCfg.ExtractWorkers),
	}
	if appCfg.EnrichSummaries {
		// Issuer websites are not EDGAR; they get their own unthrottled client.
		siteClient := feed.NewClient(&http.Client{}, appCfg.UserAgent, 0, appCfg.RequestTimeout)
		opts = append(opts, tasks.WithEnricher(feed.NewSummarizer(siteClient, feed.NewContentExtractor())))
	}

	pipeline := tasks.NewPipeline(
		feed.NewFetcher(edgarClient, feed.NewParser()),
		feed.NewFilterer(),
		feed.NewLocator(appCfg.ArchiveRoot),
		feed.NewDocumentExtractor(edgarClient),
		repo,
		opts...,
	)

	if appCfg.Once {
		return runOnce(appCfg, configCache, pipeline)
	}

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(configCache, pipeline, time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(configCache, reader, pipeline, feed.DefaultConfigName, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: appCfg.RunTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case serveErr = <-serverErrChan:
		slog.Error("Server error", "error", serveErr)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}

func runOnce(appCfg *cfg.Cfg, configCache *feed.ConfigCache, pipeline *tasks.Pipeline) error {
	watchConfig, err := configCache.GetConfig(feed.DefaultConfigName)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, appCfg.RunTimeout)
	defer cancel()

	task := tasks.NewIngestFilingsTask(watchConfig, pipeline)
	task.Start()
	result, runErr := task.Run(ctx)

	if result != nil {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}

	return runErr
}

// openBackend returns the configured storage backend. reader is nil when the
// backend cannot list its records.
func openBackend(appCfg *cfg.Cfg) (database.OfferingRepository, database.OfferingReader, func(), error) {
	switch appCfg.Backend {
	case cfg.BackendPostgres:
		version, dirty, err := database.RunPostgresMigrations(appCfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("Database migrations applied", "version", version, "dirty", dirty)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool, err := database.NewPool(ctx, appCfg.DatabaseURL, 4)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := database.NewPostgresOfferingRepository(pool)
		return repo, repo, pool.Close, nil

	case cfg.BackendAirtable:
		apiKey, err := airtable.ResolveAPIKey(appCfg.AirtableAPIKey, appCfg.AirtableBaseID)
		if err != nil {
			return nil, nil, nil, err
		}
		client, err := airtable.NewClient(airtable.Config{
			APIKey:         apiKey,
			BaseID:         appCfg.AirtableBaseID,
			Table:          appCfg.AirtableTable,
			DeadlineField:  appCfg.AirtableDeadlineField,
			DeadlineLayout: appCfg.AirtableDeadlineFmt,
			HTTPClient:     &http.Client{Timeout: appCfg.RequestTimeout},
		})
		if err != nil {
			return nil, nil, nil, err
		}
		slog.Info("Using Airtable backend", "base", appCfg.AirtableBaseID, "table", appCfg.AirtableTable)
		return client, nil, func() {}, nil

	default:
		db, err := database.NewConnection(appCfg.DBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("Database migrations applied", "version", version, "dirty", dirty)

		repo := database.NewOfferingRepository(db)
		return repo, repo, func() { db.Close() }, nil
	}
}
