package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

// CleanupOldData removes updates and log rows older than the retention
// window and reports how many of each were deleted.
func (s Store) CleanupOldData(ctx context.Context, retention time.Duration) (int64, int64, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `DELETE FROM updates WHERE scraped_at < ?;`, now.Add(-retention).Format(time.RFC3339))
	if err != nil {
		return 0, 0, fmt.Errorf("error deleting old updates: %s", err)
	}
	updates, err := res.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("error counting deleted updates: %s", err)
	}

	res, err = s.db.ExecContext(ctx, `DELETE FROM scraping_log WHERE scraped_at < ?;`, now.Add(-retention).Format(sqliteTimestamp))
	if err != nil {
		return updates, 0, fmt.Errorf("error deleting old scrape logs: %s", err)
	}
	logs, err := res.RowsAffected()
	if err != nil {
		return updates, 0, fmt.Errorf("error counting deleted scrape logs: %s", err)
	}

	return updates, logs, nil
}

func (s Store) IntegrityCheck(ctx context.Context) error {
	var result string
	if err := s.db.GetContext(ctx, &result, `PRAGMA quick_check;`); err != nil {
		return fmt.Errorf("error running integrity check: %s", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// Optimize reclaims space and refreshes the query planner statistics.
// VACUUM cannot run inside a transaction, so both statements go straight
// to the connection.
func (s Store) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM;`); err != nil {
		return fmt.Errorf("error vacuuming: %s", err)
	}
	if _, err := s.db.ExecContext(ctx, `ANALYZE;`); err != nil {
		return fmt.Errorf("error analyzing: %s", err)
	}

	return nil
}

func (s Store) Stats(ctx context.Context) (examupdates.StoreStats, error) {
	stats := examupdates.StoreStats{
		UpdatesBySource:   map[string]int{},
		UpdatesByExamType: map[string]int{},
	}

	if err := s.db.GetContext(ctx, &stats.TotalUpdates, `SELECT COUNT(*) FROM updates;`); err != nil {
		return examupdates.StoreStats{}, fmt.Errorf("error counting updates: %s", err)
	}

	type bucket struct {
		Key   string `db:"key"`
		Count int    `db:"count"`
	}

	var bySource []bucket
	if err := s.db.SelectContext(ctx, &bySource, `SELECT source AS key, COUNT(*) AS count FROM updates GROUP BY source;`); err != nil {
		return examupdates.StoreStats{}, fmt.Errorf("error grouping by source: %s", err)
	}
	for _, b := range bySource {
		stats.UpdatesBySource[b.Key] = b.Count
	}

	var byExamType []bucket
	if err := s.db.SelectContext(ctx, &byExamType, `SELECT exam_type AS key, COUNT(*) AS count FROM updates GROUP BY exam_type;`); err != nil {
		return examupdates.StoreStats{}, fmt.Errorf("error grouping by exam type: %s", err)
	}
	for _, b := range byExamType {
		stats.UpdatesByExamType[b.Key] = b.Count
	}

	cutoff := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	if err := s.db.GetContext(ctx, &stats.Recent24h, `SELECT COUNT(*) FROM updates WHERE scraped_at >= ?;`, cutoff); err != nil {
		return examupdates.StoreStats{}, fmt.Errorf("error counting recent updates: %s", err)
	}

	return stats, nil
}
