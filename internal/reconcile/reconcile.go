// Package reconcile merges a batch of freshly scraped records into the
// canonical snapshot and computes the cycle's delta of genuinely new items.
package reconcile

import (
	"log/slog"
	"sort"
	"time"

	"github.com/hemantkumar8006/update-data-scraper/internal/classify"
	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

// Result carries the updated canonical snapshot, the cycle-local delta, and
// the batch counters.
type Result struct {
	Snapshot examupdates.Snapshot
	Delta    examupdates.Delta

	NewItems     int
	UpdatedItems int
}

// Reconcile processes a batch of raw records in arrival order against the
// current canonical snapshot.
//
// A record whose hash is unknown is appended to its category in both the
// canonical snapshot and the delta. A record whose hash is already known
// replaces the existing entry in place and never reaches the delta: a
// re-scrape can legitimately carry a corrected title for a known hash and
// must not duplicate it. Records with no content hash or no title are
// dropped without aborting the batch.
func Reconcile(snapshot examupdates.Snapshot, batch []examupdates.Record, now time.Time) Result {
	var (
		delta  = examupdates.NewDelta()
		known  = snapshot.Hashes()
		result = Result{}
	)

	for _, record := range batch {
		if record.ContentHash == "" {
			// Hash derivation upstream is a precondition, not an error.
			continue
		}
		if record.Title == "" {
			slog.Warn("dropping record with missing title", "source", record.Source, "hash", record.ContentHash)
			continue
		}

		var (
			category  = classify.Classify(record)
			formatted = record.Format()
		)

		if _, ok := known[record.ContentHash]; !ok {
			snapshot.Append(category, formatted)
			delta.Append(category, formatted)
			known[record.ContentHash] = struct{}{}
			result.NewItems++
			continue
		}

		replaceByHash(&snapshot.CategoryLists, category, formatted)
		result.UpdatedItems++
	}

	for _, category := range examupdates.Categories() {
		sortNewestFirst(snapshot.List(category))
		sortNewestFirst(delta.List(category))
	}

	snapshot.TotalNotification = snapshot.Total()
	snapshot.LastUpdated = &now
	snapshot.LastScrape = &now

	delta.TotalNewNotifications = delta.Total()
	delta.LastUpdated = &now
	delta.ScrapeTimestamp = &now

	result.Snapshot = snapshot
	result.Delta = delta

	return result
}

func replaceByHash(lists *examupdates.CategoryLists, category examupdates.Category, record examupdates.FormattedRecord) {
	entries := lists.List(category)
	for i := range entries {
		if entries[i].ContentHash == record.ContentHash {
			entries[i] = record
			return
		}
	}

	// The hash is known but filed under another category, which happens when
	// a source rename changes classification. Keep the original filing
	// rather than duplicating across categories.
	for _, other := range examupdates.Categories() {
		if other == category {
			continue
		}
		entries := lists.List(other)
		for i := range entries {
			if entries[i].ContentHash == record.ContentHash {
				entries[i] = record
				return
			}
		}
	}
}

// ISO-8601 scraped_at strings order lexicographically, newest first after
// the sort.
func sortNewestFirst(records []examupdates.FormattedRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ScrapedAt > records[j].ScrapedAt
	})
}
