package examupdates

type (
	// Record is a single scraped announcement as it comes off a scraper.
	Record struct {
		ID             string   `json:"id" db:"id"`
		Title          string   `json:"title" db:"title"`
		ContentSummary string   `json:"content_summary" db:"content_summary"`
		Source         string   `json:"source" db:"source"`
		ExamType       string   `json:"exam_type" db:"exam_type"`
		URL            string   `json:"url" db:"url"`
		Date           string   `json:"date" db:"date"`
		ScrapedAt      string   `json:"scraped_at" db:"scraped_at"`
		ContentHash    string   `json:"content_hash" db:"content_hash"`
		Priority       Priority `json:"priority" db:"priority"`
	}

	// FormattedRecord is the field-normalized shape written to the snapshot
	// files and served to the frontend.
	FormattedRecord struct {
		ID             string   `json:"id"`
		Title          string   `json:"title"`
		ContentSummary string   `json:"content_summary"`
		Source         string   `json:"source"`
		URL            string   `json:"url"`
		Date           string   `json:"date"`
		ScrapedAt      string   `json:"scraped_at"`
		Priority       Priority `json:"priority"`
		ContentHash    string   `json:"content_hash"`
	}
)

// Format normalizes a raw record for frontend consumption, defaulting the
// priority to medium when the scraper left it unset.
func (r Record) Format() FormattedRecord {
	p := r.Priority
	if p == "" {
		p = PriorityMedium
	}

	return FormattedRecord{
		ID:             r.ID,
		Title:          r.Title,
		ContentSummary: r.ContentSummary,
		Source:         r.Source,
		URL:            r.URL,
		Date:           r.Date,
		ScrapedAt:      r.ScrapedAt,
		Priority:       p,
		ContentHash:    r.ContentHash,
	}
}
