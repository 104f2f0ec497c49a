// Update-data-scraper watches Indian exam-board announcement pages.
//
// It scrapes the configured sites on an interval, reconciles what it finds
// against the canonical snapshot, and delivers anything new to a webhook.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/run"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite"

	"github.com/hemantkumar8006/update-data-scraper/internal/api"
	"github.com/hemantkumar8006/update-data-scraper/internal/delivery"
	"github.com/hemantkumar8006/update-data-scraper/internal/migrations"
	"github.com/hemantkumar8006/update-data-scraper/internal/scheduler"
	"github.com/hemantkumar8006/update-data-scraper/internal/scrape"
	"github.com/hemantkumar8006/update-data-scraper/internal/snapshot"
	"github.com/hemantkumar8006/update-data-scraper/internal/sqlite"
	"github.com/hemantkumar8006/update-data-scraper/logger"
)

type config struct {
	Database    string `env:"DATABASE, required"`
	DataDir     string `env:"DATA_DIR, default=data"`
	SitesConfig string `env:"SITES_CONFIG, default=sites.yaml"`

	Port       int    `env:"PORT, default=8000"`
	CorsHeader string `env:"CORS_HEADER, default=*"`

	WebhookURL    string `env:"WEBHOOK_URL, default=http://localhost:5001/api/notifications/webhook"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	ScrapeInterval time.Duration `env:"SCRAPE_INTERVAL, default=30m"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	// Determine which logger format to use
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, nil)
	if cfg.LoggerFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	l := slog.New(logger.NewContextHandler(handler))
	slog.SetDefault(l)

	// Start the application
	if err := runApp(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func runApp(ctx context.Context, cfg config) error {
	slog.Info("running", "port", cfg.Port, "interval", cfg.ScrapeInterval)

	// Connect to the sqlite db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_txlock=immediate&_journal_mode=WAL&_busy_timeout=5000", cfg.Database))
	if err != nil {
		return fmt.Errorf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Retry until the database file is actually reachable
	if err := retry.Fibonacci(ctx, 1*time.Second, func(ctx context.Context) error {
		if err := dbx.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("error reaching database: %s", err)
	}

	// Migrate, always
	if err := migrations.Run(dbx); err != nil {
		return fmt.Errorf("error migrating: %s", err)
	}

	store := sqlite.New(dbx)

	snaps, err := snapshot.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("error preparing data dir: %s", err)
	}

	sitesCfg, err := scrape.LoadConfig(cfg.SitesConfig)
	if err != nil {
		return fmt.Errorf("error loading sites config: %s", err)
	}
	scrapers, err := scrape.Build(sitesCfg)
	if err != nil {
		return fmt.Errorf("error building scrapers: %s", err)
	}

	webhook := delivery.NewWebhook(cfg.WebhookURL, cfg.WebhookSecret)
	queue, err := delivery.NewQueue(filepath.Join(cfg.DataDir, "notification_queue.json"), webhook, delivery.Config{})
	if err != nil {
		return fmt.Errorf("error restoring notification queue: %s", err)
	}

	sched := scheduler.New(scrapers, store, snaps, queue, scheduler.Config{
		Interval: cfg.ScrapeInterval,
	})

	srvr := api.NewServer(api.ServerConfig{
		Port:       cfg.Port,
		CorsHeader: cfg.CorsHeader,
	}, store, snaps, queue, sched, webhook)

	var g run.Group
	g.Add(func() error {
		if err := srvr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening: %s", err)
		}
		return nil
	}, func(error) {
		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srvr.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
	})

	schedCtx, schedCancel := context.WithCancel(ctx)
	g.Add(func() error {
		return sched.Run(schedCtx)
	}, func(error) {
		schedCancel()
	})

	queueCtx, queueCancel := context.WithCancel(ctx)
	g.Add(func() error {
		return queue.Run(queueCtx)
	}, func(error) {
		queueCancel()
	})

	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err = g.Run()
	sigErr := &run.SignalError{}
	if errors.As(err, sigErr) {
		slog.Info("shutting down", "signal", sigErr.Signal)
		return nil
	}

	return err
}
