// Package scheduler drives the periodic scrape cycle and the background
// database maintenance tasks.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
	"github.com/hemantkumar8006/update-data-scraper/internal/reconcile"
	"github.com/hemantkumar8006/update-data-scraper/internal/snapshot"
	"github.com/hemantkumar8006/update-data-scraper/logger"
)

const (
	DefaultInterval  = 30 * time.Minute
	DefaultPoll      = time.Minute
	DefaultRetention = 30 * 24 * time.Hour

	dailyEvery  = 24 * time.Hour
	weeklyEvery = 7 * 24 * time.Hour
)

type Config struct {
	// How often a full scrape cycle runs.
	Interval time.Duration
	// How often the loop wakes up to check whether a cycle is due.
	Poll time.Duration
	// How long updates and scrape logs are kept.
	Retention time.Duration
}

// Notifier receives the delta records produced by a cycle, one batch per
// category.
type Notifier interface {
	EnqueueBatch(cat examupdates.Category, records []examupdates.FormattedRecord) ([]string, error)
}

// Status is a point-in-time view of the scheduler for the status endpoint.
type Status struct {
	Running      bool       `json:"running"`
	LastCycle    *time.Time `json:"last_cycle,omitempty"`
	NextCycle    *time.Time `json:"next_cycle,omitempty"`
	LastNew      int        `json:"last_new_items"`
	LastUpdated  int        `json:"last_updated_items"`
	LastInserted int        `json:"last_inserted_rows"`
}

type Scheduler struct {
	scrapers  []examupdates.Scraper
	store     examupdates.RecordStore
	snapshots *snapshot.Store
	notifier  Notifier
	cfg       Config

	trigger chan struct{}

	mu          sync.Mutex
	running     bool
	lastCycle   *time.Time
	nextCycle   time.Time
	lastDaily   time.Time
	lastWeekly  time.Time
	lastResult  reconcile.Result
	lastSaveRes examupdates.SaveResult
}

// New builds a scheduler. The notifier may be nil when no webhook is
// configured; deltas are still persisted, just not delivered.
func New(scrapers []examupdates.Scraper, store examupdates.RecordStore, snapshots *snapshot.Store, notifier Notifier, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Poll <= 0 {
		cfg.Poll = DefaultPoll
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	now := time.Now()

	return &Scheduler{
		scrapers:   scrapers,
		store:      store,
		snapshots:  snapshots,
		notifier:   notifier,
		cfg:        cfg,
		trigger:    make(chan struct{}, 1),
		lastDaily:  now,
		lastWeekly: now,
	}
}

// Run executes one cycle immediately, then polls until the context is
// canceled. An in-flight cycle always finishes before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "scheduler starting", "interval", s.cfg.Interval, "sources", len(s.scrapers))

	s.cycle(ctx)

	ticker := time.NewTicker(s.cfg.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "scheduler stopping")
			return nil
		case <-s.trigger:
			s.cycle(ctx)
		case <-ticker.C:
			if time.Now().After(s.next()) {
				s.cycle(ctx)
			}
			s.maintenance(ctx)
		}
	}
}

// Trigger requests a cycle outside the regular cadence. It never blocks:
// if a trigger is already pending the call is a no-op.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:      s.running,
		LastCycle:    s.lastCycle,
		LastNew:      s.lastResult.NewItems,
		LastUpdated:  s.lastResult.UpdatedItems,
		LastInserted: s.lastSaveRes.Inserted,
	}
	if !s.nextCycle.IsZero() {
		next := s.nextCycle
		st.NextCycle = &next
	}

	return st
}

func (s *Scheduler) next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextCycle
}

// cycle scrapes every source concurrently, reconciles the combined batch
// against the canonical snapshot, persists everything, and hands the delta
// to the notifier. A failing source is logged and skipped; it never aborts
// the cycle.
func (s *Scheduler) cycle(ctx context.Context) {
	started := time.Now()
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	slog.InfoContext(ctx, "scrape cycle starting")

	var (
		batchMu sync.Mutex
		batch   []examupdates.Record
	)
	g, gCtx := errgroup.WithContext(ctx)
	for _, sc := range s.scrapers {
		sc := sc
		g.Go(func() error {
			sctx := logger.Ctx(gCtx, slog.String("source", sc.Name()))
			began := time.Now()
			records, err := sc.Scrape(sctx)

			entry := examupdates.ScrapeLog{
				Source:   sc.Name(),
				Duration: time.Since(began).Seconds(),
			}
			if err != nil {
				msg := err.Error()
				entry.Status = "error"
				entry.ErrorMessage = &msg
				slog.ErrorContext(sctx, "source scrape failed", "error", err)
			} else {
				entry.Status = "success"
				entry.UpdatesFound = len(records)
				batchMu.Lock()
				batch = append(batch, records...)
				batchMu.Unlock()
			}
			if err := s.store.LogScrape(sctx, entry); err != nil {
				slog.ErrorContext(sctx, "error logging scrape attempt", "error", err)
			}

			return nil
		})
	}
	g.Wait() //nolint:errcheck

	res := reconcile.Reconcile(s.snapshots.LoadCanonical(), batch, time.Now().UTC())

	saveRes, err := s.store.SaveUpdates(ctx, batch)
	if err != nil {
		slog.ErrorContext(ctx, "error saving updates", "error", err)
	}
	if err := s.snapshots.SaveCanonical(res.Snapshot); err != nil {
		slog.ErrorContext(ctx, "error writing canonical snapshot", "error", err)
	}
	if err := s.snapshots.SaveDelta(res.Delta); err != nil {
		slog.ErrorContext(ctx, "error writing delta snapshot", "error", err)
	}

	if s.notifier != nil {
		for _, cat := range examupdates.Categories() {
			records := res.Delta.List(cat)
			if len(records) == 0 {
				continue
			}
			if _, err := s.notifier.EnqueueBatch(cat, records); err != nil {
				slog.ErrorContext(ctx, "error enqueueing notifications", "category", cat, "error", err)
			}
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.running = false
	s.lastCycle = &now
	s.nextCycle = now.Add(s.cfg.Interval)
	s.lastResult = res
	s.lastSaveRes = saveRes
	s.mu.Unlock()

	slog.InfoContext(ctx, "scrape cycle finished",
		"scraped", len(batch),
		"new", res.NewItems,
		"updated", res.UpdatedItems,
		"inserted", saveRes.Inserted,
		"duration", time.Since(started).Round(time.Millisecond),
	)
}

// maintenance runs the daily cleanup and the weekly optimization when due.
// Failures are logged and retried on the next due tick, never fatal.
func (s *Scheduler) maintenance(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	daily := now.Sub(s.lastDaily) >= dailyEvery
	weekly := now.Sub(s.lastWeekly) >= weeklyEvery
	s.mu.Unlock()

	if daily {
		updates, logs, err := s.store.CleanupOldData(ctx, s.cfg.Retention)
		if err != nil {
			slog.ErrorContext(ctx, "error cleaning up old data", "error", err)
		} else {
			slog.InfoContext(ctx, "cleaned up old data", "updates", updates, "logs", logs)
			if err := s.store.IntegrityCheck(ctx); err != nil {
				slog.ErrorContext(ctx, "integrity check failed", "error", err)
			}
			s.mu.Lock()
			s.lastDaily = now
			s.mu.Unlock()
		}
	}

	if weekly {
		if err := s.store.Optimize(ctx); err != nil {
			slog.ErrorContext(ctx, "error optimizing database", "error", err)
		} else {
			slog.InfoContext(ctx, "database optimized")
			s.mu.Lock()
			s.lastWeekly = now
			s.mu.Unlock()
		}
	}
}
