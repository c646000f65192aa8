package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/garnizeh/crackedclub/api"
	dbfs "github.com/garnizeh/crackedclub/db"
	"github.com/garnizeh/crackedclub/internal/application"
	"github.com/garnizeh/crackedclub/internal/config"
	"github.com/garnizeh/crackedclub/internal/db"
	"github.com/garnizeh/crackedclub/internal/jobs"
	"github.com/garnizeh/crackedclub/internal/metrics"
	"github.com/garnizeh/crackedclub/internal/repository/sqlite"
	"github.com/garnizeh/crackedclub/internal/schema"
	"github.com/garnizeh/crackedclub/internal/screen"
	"github.com/garnizeh/crackedclub/internal/session"
	"github.com/garnizeh/crackedclub/internal/submission"
	"github.com/garnizeh/crackedclub/internal/toast"
	"github.com/garnizeh/crackedclub/internal/waitlist"
	"github.com/garnizeh/crackedclub/pkg/ollama"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	submission.SetLogger(logger)
	screen.SetLogger(logger)
	ollama.SetLogger(logger)

	logger.Info("starting crackedclub server", slog.String("version", version), slog.String("build_time", buildTime), slog.String("mode", cfg.Submission.Mode))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", slog.Any("err", err))
		os.Exit(1)
	}
	logger.Info("server exited")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	conn, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("close db", slog.Any("err", err))
		}
	}()
	if err := db.Migrate(ctx, conn, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	repo := sqlite.New(conn, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var (
		joinSub application.Submitter = submission.LogSubmitter{Delay: cfg.Submission.Delay}
		wlSub   waitlist.Submitter    = submission.LogSubmitter{Delay: cfg.Submission.Delay}
	)

	if cfg.Submission.Mode == config.ModeQueue {
		qs, closeQueue, err := startQueue(ctx, cfg, repo, m, logger)
		if err != nil {
			return err
		}
		defer closeQueue()

		joinSub = qs
		wlSub = &submission.WaitlistStore{Repo: repo}
	}

	rules := application.DefaultRules()
	rules.RequireTwitter = !cfg.Join.TwitterOptional
	factory := func(q *toast.Queue) (*application.Controller, *waitlist.Controller) {
		join := application.NewController(joinSub, q, application.WithRules(rules), application.WithLogger(logger))
		return join, waitlist.NewController(wlSub, q, logger)
	}

	store := session.NewStore(factory, cfg.Session.TTL, logger, session.WithMaxSessions(cfg.Session.MaxSessions))
	store.Start(cfg.Session.SweepInterval)
	defer store.Stop()
	m.TrackSessions(store.Len)

	handler := api.SetupRoutes(cfg, version, buildTime, api.Deps{
		Sessions: store,
		Factory:  factory,
		Apps:     repo,
		Waitlist: repo,
		DB:       conn.GetConn(),
		Metrics:  m,
		Gatherer: reg,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout + cfg.Submission.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// startQueue wires the durable submission channel: schema contracts, the
// webhook deliverer, optional screening and the worker pool. The returned
// func stops the workers.
func startQueue(ctx context.Context, cfg *config.Config, repo *sqlite.SQLiteRepo, m *metrics.Metrics, logger *slog.Logger) (*submission.QueueSubmitter, func(), error) {
	loader, err := schema.NewLoader(ctx, repo)
	if err != nil {
		return nil, nil, fmt.Errorf("load schemas: %w", err)
	}
	if _, ok := loader.GetSchema(cfg.Submission.SchemaVersion); !ok {
		return nil, nil, fmt.Errorf("payload schema %q not found", cfg.Submission.SchemaVersion)
	}

	deliverer := &submission.Deliverer{
		Apps:        repo,
		Jobs:        repo,
		WebhookURL:  cfg.Submission.WebhookURL,
		Client:      &http.Client{Timeout: cfg.Submission.WebhookTimeout},
		Timeout:     cfg.Submission.WebhookTimeout,
		Screen:      cfg.Screening.Enabled(),
		MaxAttempts: cfg.Submission.MaxAttempts,
	}
	handlers := map[string]jobs.Handler{
		jobs.TypeDeliverApplication: deliverer.Handle,
	}
	if cfg.Submission.WebhookURL == "" {
		logger.Warn("no webhook configured; applications are stored and marked delivered")
	}

	var llm *ollama.Client
	if cfg.Screening.Enabled() {
		llm, err = ollama.NewDefaultClient(cfg.Ollama)
		if err != nil {
			return nil, nil, fmt.Errorf("ollama client: %w", err)
		}
		if err := llm.Health(ctx); err != nil {
			logger.Warn("ollama not reachable; screening jobs will retry", slog.Any("err", err))
		}
		screener, err := screen.NewScreener(ctx, screen.Config{
			Model:           cfg.Screening.Model,
			TemplateVersion: cfg.Screening.TemplateVersion,
			SchemaVersion:   cfg.Screening.SchemaVersion,
			Timeout:         cfg.Screening.Timeout,
		}, llm, repo, repo, loader)
		if err != nil {
			_ = llm.Close()
			return nil, nil, fmt.Errorf("screener: %w", err)
		}
		handlers[jobs.TypeScreenApplication] = screener.Handle
	}

	pool := jobs.NewWorkerPool(repo, handlers, logger, cfg.Submission.Workers,
		jobs.WithMetrics(m),
		jobs.WithOnDeadLetter(deliverer.OnDeadLetter),
	)
	pool.Start(ctx)

	qs := &submission.QueueSubmitter{
		Schemas:       loader,
		Apps:          repo,
		Jobs:          repo,
		SchemaVersion: cfg.Submission.SchemaVersion,
		MaxAttempts:   cfg.Submission.MaxAttempts,
	}
	closeFn := func() {
		pool.Stop()
		if llm != nil {
			if err := llm.Close(); err != nil {
				logger.Error("close ollama client", slog.Any("err", err))
			}
		}
	}
	return qs, closeFn, nil
}
