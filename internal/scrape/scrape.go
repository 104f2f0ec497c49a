// Package scrape fetches announcement pages and extracts raw update records.
//
// Scrapers are looked up by key in a static registry populated at startup;
// each one shares the fetch-and-extract base and layers site-specific
// selector sweeps on top.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sethvargo/go-retry"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	requestTimeout = 30 * time.Second
	fetchRetries   = 2
)

var stripPolicy = bluemonday.StrictPolicy()

// base carries the shared fetch and extraction machinery for one site.
type base struct {
	site   Site
	client *http.Client
}

func newBase(site Site) base {
	return base{
		site:   site,
		client: &http.Client{Timeout: requestTimeout},
	}
}

func (b base) Name() string { return b.site.Name }

// fetchDocument gets the site's page with retry and exponential backoff.
func (b base) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document

	backoff := retry.WithMaxRetries(fetchRetries, retry.NewExponential(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return fmt.Errorf("error building request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

		resp, err := b.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("error fetching %s: %w", pageURL, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return retry.RetryableError(fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, pageURL))
		}

		d, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return fmt.Errorf("error parsing %s: %w", pageURL, err)
		}
		doc = d

		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// extract walks the configured container selectors and builds a record per
// matching element that passes the relevance filter.
func (b base) extract(doc *goquery.Document) []examupdates.Record {
	records := []examupdates.Record{}
	for _, container := range eachSelection(doc, b.site.Selectors.Container) {
		title := sanitize(firstText(container, b.site.Selectors.Title))
		if title == "" {
			continue
		}
		if !b.relevant(title) {
			continue
		}

		href, _ := firstAttr(container, b.site.Selectors.Link, "href")
		records = append(records, b.record(title, firstText(container, b.site.Selectors.Date), href))
	}

	return records
}

// sweep collects records from a flat list of anchor elements, the shape most
// of these sites use for their "latest news" blocks.
func (b base) sweep(doc *goquery.Document, selector string, keywords []string, limit int) []examupdates.Record {
	records := []examupdates.Record{}
	doc.Find(selector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if limit > 0 && len(records) >= limit {
			return false
		}

		title := sanitize(sel.Text())
		if title == "" || !containsAny(title, keywords) {
			return true
		}

		href, _ := sel.Attr("href")
		records = append(records, b.record(title, "", href))

		return true
	})

	return records
}

func (b base) record(title, date, href string) examupdates.Record {
	priority := b.site.Priority
	if priority == "" {
		priority = classifyImportance(title)
	}
	if date == "" {
		date = extractDate(title)
	}

	return examupdates.Record{
		Title:          title,
		ContentSummary: title,
		Source:         b.site.Name,
		ExamType:       b.site.ExamType,
		URL:            b.resolveURL(href),
		Date:           sanitize(date),
		ScrapedAt:      time.Now().UTC().Format(time.RFC3339),
		ContentHash:    examupdates.ContentHash(title),
		Priority:       priority,
	}
}

func (b base) relevant(title string) bool {
	if len(b.site.Keywords) == 0 {
		return true
	}

	return containsAny(title, b.site.Keywords)
}

func (b base) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return href
	}

	site, err := url.Parse(b.site.URL)
	if err != nil {
		return href
	}

	return site.ResolveReference(ref).String()
}

// dedupe drops records repeating a hash already seen in this scrape; the
// same announcement often appears in more than one block on a page.
func dedupe(records []examupdates.Record) []examupdates.Record {
	var (
		seen = map[string]struct{}{}
		out  = records[:0]
	)
	for _, record := range records {
		if _, ok := seen[record.ContentHash]; ok {
			continue
		}
		seen[record.ContentHash] = struct{}{}
		out = append(out, record)
	}

	return out
}

// eachSelection tries every selector in a comma-separated list and returns
// the union of matches.
func eachSelection(doc *goquery.Document, selectorList string) []*goquery.Selection {
	selections := []*goquery.Selection{}
	for _, selector := range splitSelectors(selectorList) {
		doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
			selections = append(selections, sel)
		})
	}

	return selections
}

func firstText(container *goquery.Selection, selectorList string) string {
	for _, selector := range splitSelectors(selectorList) {
		if sel := container.Find(selector).First(); sel.Length() > 0 {
			return sel.Text()
		}
	}

	return ""
}

func firstAttr(container *goquery.Selection, selectorList, attr string) (string, bool) {
	for _, selector := range splitSelectors(selectorList) {
		if sel := container.Find(selector).First(); sel.Length() > 0 {
			return sel.Attr(attr)
		}
	}

	// The container itself may be the anchor.
	return container.Attr(attr)
}

func splitSelectors(list string) []string {
	selectors := []string{}
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			selectors = append(selectors, s)
		}
	}

	return selectors
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}

	return false
}

// Removes all html tags and collapses whitespace, and limits the length so
// there's not a massive chunk of text being carried around.
func sanitize(s string) string {
	s = stripPolicy.Sanitize(s)
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 2048 {
		s = s[:2048]
	}

	return s
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{4}\b`),
	regexp.MustCompile(`\b\d{4}[-/]\d{1,2}[-/]\d{1,2}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\w*\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\w*\s+\d{1,2},?\s+\d{4}\b`),
}

// extractDate pulls the first date-looking substring out of free text. Dates
// stay free-form strings; nothing downstream parses them strictly.
func extractDate(text string) string {
	for _, pattern := range datePatterns {
		if m := pattern.FindString(text); m != "" {
			return m
		}
	}

	return ""
}

var (
	highImportanceKeywords = []string{
		"admit card", "hall ticket", "exam date", "result", "last date",
		"deadline", "important notice", "cancelled", "postponed", "rescheduled", "urgent",
	}
	mediumImportanceKeywords = []string{
		"application", "registration", "notification", "update",
		"information", "announcement", "guidelines", "schedule",
	}
)

// classifyImportance scores a title by urgency keywords when the site config
// does not pin a priority.
func classifyImportance(text string) examupdates.Priority {
	lower := strings.ToLower(text)

	high, medium := 0, 0
	for _, kw := range highImportanceKeywords {
		if strings.Contains(lower, kw) {
			high++
		}
	}
	for _, kw := range mediumImportanceKeywords {
		if strings.Contains(lower, kw) {
			medium++
		}
	}

	switch {
	case high >= 2:
		return examupdates.PriorityHigh
	case high >= 1 || medium >= 2:
		return examupdates.PriorityMedium
	default:
		return examupdates.PriorityLow
	}
}
