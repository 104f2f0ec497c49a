package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

// scraping_log timestamps come from CURRENT_TIMESTAMP, which sqlite
// renders in this layout rather than RFC 3339.
const sqliteTimestamp = "2006-01-02 15:04:05"

func (s Store) LogScrape(ctx context.Context, entry examupdates.ScrapeLog) error {
	const q = `INSERT INTO scraping_log (source, status, updates_found, error_message, duration_seconds)
	VALUES (:source, :status, :updates_found, :error_message, :duration_seconds);`

	if _, err := s.db.NamedExecContext(ctx, q, entry); err != nil {
		return fmt.Errorf("error inserting scrape log: %s", err)
	}

	return nil
}

// ScrapeStats aggregates attempts per source over the window.
func (s Store) ScrapeStats(ctx context.Context, window time.Duration) ([]examupdates.SourceStats, error) {
	cutoff := time.Now().UTC().Add(-window).Format(sqliteTimestamp)

	const q = `SELECT
		source,
		COUNT(*) AS total_attempts,
		SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END) AS successful_attempts,
		COALESCE(SUM(updates_found), 0) AS total_updates,
		COALESCE(AVG(duration_seconds), 0) AS avg_duration
	FROM scraping_log
	WHERE scraped_at >= ?
	GROUP BY source
	ORDER BY source;`

	stats := []examupdates.SourceStats{}
	if err := s.db.SelectContext(ctx, &stats, q, cutoff); err != nil {
		return nil, fmt.Errorf("error fetching scrape stats: %s", err)
	}

	return stats, nil
}
