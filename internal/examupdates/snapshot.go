package examupdates

import "time"

type (
	// CategoryLists holds one ordered record list per category. The category
	// set is closed at compile time; callers wanting a different taxonomy
	// wrap the classifier instead of extending this.
	CategoryLists struct {
		JEE         []FormattedRecord `json:"jee"`
		GATE        []FormattedRecord `json:"gate"`
		JEEAdvanced []FormattedRecord `json:"jee_adv"`
		UPSC        []FormattedRecord `json:"upsc"`
	}

	// Snapshot is the full materialized view of all known records. It is
	// rewritten in full every reconciliation cycle.
	Snapshot struct {
		CategoryLists

		TotalNotification int        `json:"total_notification"`
		LastUpdated       *time.Time `json:"last_updated"`
		LastScrape        *time.Time `json:"last_scrape"`
	}

	// Delta holds only the records newly discovered in the most recent
	// cycle. It is cleared at the start of every cycle and is never
	// cumulative.
	Delta struct {
		CategoryLists

		TotalNewNotifications int        `json:"total_new_notifications"`
		LastUpdated           *time.Time `json:"last_updated"`
		ScrapeTimestamp       *time.Time `json:"scrape_timestamp"`
	}
)

// List returns the record list for a category.
func (c CategoryLists) List(cat Category) []FormattedRecord {
	switch cat {
	case CategoryJEEAdvanced:
		return c.JEEAdvanced
	case CategoryGATE:
		return c.GATE
	case CategoryUPSC:
		return c.UPSC
	default:
		return c.JEE
	}
}

// SetList replaces the record list for a category.
func (c *CategoryLists) SetList(cat Category, records []FormattedRecord) {
	switch cat {
	case CategoryJEEAdvanced:
		c.JEEAdvanced = records
	case CategoryGATE:
		c.GATE = records
	case CategoryUPSC:
		c.UPSC = records
	default:
		c.JEE = records
	}
}

// Append adds a record to the end of a category's list.
func (c *CategoryLists) Append(cat Category, record FormattedRecord) {
	c.SetList(cat, append(c.List(cat), record))
}

// Total sums the category list lengths.
func (c CategoryLists) Total() int {
	total := 0
	for _, cat := range Categories() {
		total += len(c.List(cat))
	}

	return total
}

// Hashes collects every content hash present across all categories.
func (c CategoryLists) Hashes() map[string]struct{} {
	hashes := make(map[string]struct{})
	for _, cat := range Categories() {
		for _, record := range c.List(cat) {
			if record.ContentHash != "" {
				hashes[record.ContentHash] = struct{}{}
			}
		}
	}

	return hashes
}

func emptyLists() CategoryLists {
	return CategoryLists{
		JEE:         []FormattedRecord{},
		GATE:        []FormattedRecord{},
		JEEAdvanced: []FormattedRecord{},
		UPSC:        []FormattedRecord{},
	}
}

// NewSnapshot returns a well-formed empty snapshot: all categories present
// with empty lists and null timestamps.
func NewSnapshot() Snapshot {
	return Snapshot{CategoryLists: emptyLists()}
}

// NewDelta returns a well-formed empty delta.
func NewDelta() Delta {
	return Delta{CategoryLists: emptyLists()}
}
