package scrape

import (
	"context"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

type (
	// GenericScraper relies entirely on the configured selectors.
	GenericScraper struct{ base }

	// NTAScraper covers the NTA JEE Main portal, which scatters the same
	// announcements across a few list blocks.
	NTAScraper struct{ base }

	// JEEAdvancedScraper covers the JEE Advanced site.
	JEEAdvancedScraper struct{ base }

	// GATEScraper covers the yearly GATE organizing institute's site.
	GATEScraper struct{ base }

	// UPSCScraper covers the UPSC "what's new" listing.
	UPSCScraper struct{ base }
)

func (s *GenericScraper) Scrape(ctx context.Context) ([]examupdates.Record, error) {
	doc, err := s.fetchDocument(ctx, s.site.URL)
	if err != nil {
		return nil, err
	}

	return dedupe(s.extract(doc)), nil
}

var ntaKeywords = []string{
	"admit card", "hall ticket", "application", "result", "exam date",
	"registration", "notification", "important", "schedule", "answer key",
	"counselling", "allotment", "cutoff", "merit list", "rank list",
}

func (s *NTAScraper) Scrape(ctx context.Context) ([]examupdates.Record, error) {
	doc, err := s.fetchDocument(ctx, s.site.URL)
	if err != nil {
		return nil, err
	}

	records := s.extract(doc)
	records = append(records, s.sweep(doc, ".notification-list a, .latest-news a, .updates a", ntaKeywords, 15)...)
	records = append(records, s.sweep(doc, ".announcement a, .notice a, .alert a", ntaKeywords, 15)...)

	return dedupe(records), nil
}

var jeeAdvKeywords = []string{
	"jee advanced", "admit card", "registration", "result", "answer key",
	"notification", "schedule", "important", "mock test", "information brochure",
}

func (s *JEEAdvancedScraper) Scrape(ctx context.Context) ([]examupdates.Record, error) {
	doc, err := s.fetchDocument(ctx, s.site.URL)
	if err != nil {
		return nil, err
	}

	records := s.extract(doc)
	records = append(records, s.sweep(doc, ".announcements a, .news-item a, #announcements li a", jeeAdvKeywords, 15)...)

	return dedupe(records), nil
}

var gateKeywords = []string{
	"gate", "admit card", "application", "result", "answer key", "score card",
	"notification", "important dates", "schedule", "response sheet",
}

func (s *GATEScraper) Scrape(ctx context.Context) ([]examupdates.Record, error) {
	doc, err := s.fetchDocument(ctx, s.site.URL)
	if err != nil {
		return nil, err
	}

	records := s.extract(doc)
	records = append(records, s.sweep(doc, ".important-dates a, .news a, .announcements a", gateKeywords, 15)...)

	return dedupe(records), nil
}

var upscKeywords = []string{
	"civil services", "admit card", "result", "notification", "interview",
	"examination", "recruitment", "marks", "written result", "final result",
}

func (s *UPSCScraper) Scrape(ctx context.Context) ([]examupdates.Record, error) {
	doc, err := s.fetchDocument(ctx, s.site.URL)
	if err != nil {
		return nil, err
	}

	records := s.extract(doc)
	records = append(records, s.sweep(doc, ".whats-new a, .latest-updates a, ul.list-group a", upscKeywords, 20)...)

	return dedupe(records), nil
}
