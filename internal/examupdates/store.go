package examupdates

import (
	"context"
	"time"
)

type (
	// ScrapeLog is one row of the per-source scraping attempt log.
	ScrapeLog struct {
		ID           int64      `db:"id" json:"id"`
		Source       string     `db:"source" json:"source"`
		Status       string     `db:"status" json:"status"`
		UpdatesFound int        `db:"updates_found" json:"updates_found"`
		ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
		Duration     float64    `db:"duration_seconds" json:"duration_seconds"`
		ScrapedAt    *time.Time `db:"scraped_at" json:"scraped_at,omitempty"`
	}

	// SaveResult reports what SaveUpdates did with a batch.
	SaveResult struct {
		Inserted int
		Updated  int
	}

	// SourceStats aggregates scrape attempts for one source over a window.
	SourceStats struct {
		Source             string  `db:"source" json:"source"`
		TotalAttempts      int     `db:"total_attempts" json:"total_attempts"`
		SuccessfulAttempts int     `db:"successful_attempts" json:"successful_attempts"`
		TotalUpdates       int     `db:"total_updates" json:"total_updates"`
		AvgDuration        float64 `db:"avg_duration" json:"avg_duration"`
	}

	// StoreStats is the rollup served by the status endpoint.
	StoreStats struct {
		TotalUpdates      int            `json:"total_updates"`
		UpdatesBySource   map[string]int `json:"updates_by_source"`
		UpdatesByExamType map[string]int `json:"updates_by_exam_type"`
		Recent24h         int            `json:"recent_updates_24h"`
	}

	// RecordStore is the durable table of canonical records keyed by content
	// hash. A second arrival of a known hash overwrites in place, it never
	// appends a duplicate.
	RecordStore interface {
		SaveUpdates(ctx context.Context, records []Record) (SaveResult, error)
		RecentUpdates(ctx context.Context, window time.Duration, limit int) ([]Record, error)
		UpdatesBySource(ctx context.Context, source string, limit int) ([]Record, error)
		UpdatesByExamType(ctx context.Context, examType string, limit int) ([]Record, error)
		LogScrape(ctx context.Context, entry ScrapeLog) error
		ScrapeStats(ctx context.Context, window time.Duration) ([]SourceStats, error)
		CleanupOldData(ctx context.Context, retention time.Duration) (updates int64, logs int64, err error)
		IntegrityCheck(ctx context.Context) error
		Optimize(ctx context.Context) error
		Stats(ctx context.Context) (StoreStats, error)
	}
)
