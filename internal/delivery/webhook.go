package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hemantkumar8006/update-data-scraper/internal/classify"
	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

// Webhook posts normalized notification payloads to a single configured
// endpoint authenticated by a shared secret header.
type Webhook struct {
	url    string
	secret string
	client *http.Client
}

func NewWebhook(url, secret string) *Webhook {
	return &Webhook{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type (
	webhookPayload struct {
		Title            string          `json:"title"`
		Content          string          `json:"content"`
		NotificationType string          `json:"notificationType"`
		Metadata         webhookMetadata `json:"metadata"`
	}

	webhookMetadata struct {
		ExamName string               `json:"examName"`
		ExamDate string               `json:"examDate"`
		ExamTime string               `json:"examTime"`
		Location string               `json:"location"`
		Priority examupdates.Priority `json:"priority"`
		Source   string               `json:"source"`
		URL      string               `json:"url"`
	}
)

// Send delivers one record to the webhook. The category names the exam in
// the payload; when empty it is derived from the record's source. Any
// non-200 status or transport failure is an error; a 200 with an
// unparseable body still counts as delivered.
func (w *Webhook) Send(ctx context.Context, cat examupdates.Category, record examupdates.FormattedRecord) error {
	byts, err := json.Marshal(buildPayload(cat, record))
	if err != nil {
		return fmt.Errorf("error encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(byts))
	if err != nil {
		return fmt.Errorf("error building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", w.secret)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("error posting webhook: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

// SendTest posts a throwaway notification so operators can verify
// connectivity end to end.
func (w *Webhook) SendTest(ctx context.Context) error {
	now := time.Now()
	return w.Send(ctx, "", examupdates.FormattedRecord{
		Title:          "Test Notification",
		ContentSummary: "This is a test notification from the exam update scraper.",
		Source:         "exam_scraper_test",
		Priority:       examupdates.PriorityLow,
		Date:           now.Format("2006-01-02"),
		ScrapedAt:      now.Format(time.RFC3339),
		URL:            "https://example.com",
	})
}

var examNames = map[examupdates.Category]string{
	examupdates.CategoryJEE:         "JEE Main",
	examupdates.CategoryJEEAdvanced: "JEE Advanced",
	examupdates.CategoryGATE:        "GATE",
	examupdates.CategoryUPSC:        "UPSC Civil Services",
}

func buildPayload(cat examupdates.Category, record examupdates.FormattedRecord) webhookPayload {
	content := record.ContentSummary
	if content == "" {
		content = record.Title
	}

	category := cat
	if _, ok := examNames[category]; !ok {
		category = classify.Text(record.Source, record.Title)
	}
	priority := record.Priority
	if priority == "" {
		priority = examupdates.PriorityMedium
	}

	return webhookPayload{
		Title:            record.Title,
		Content:          content,
		NotificationType: "exam_updates",
		Metadata: webhookMetadata{
			ExamName: examNames[category],
			ExamDate: record.Date,
			ExamTime: extractExamTime(record.Title + " " + record.ContentSummary),
			Location: deriveLocation(record.Title + " " + record.ContentSummary),
			Priority: priority,
			Source:   record.Source,
			URL:      record.URL,
		},
	}
}

var timeOfDayRe = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(AM|PM)\b`)

// Best-effort extraction of a time of day from the announcement text.
func extractExamTime(text string) string {
	if m := timeOfDayRe.FindString(text); m != "" {
		return strings.ToUpper(strings.Join(strings.Fields(m), " "))
	}

	return "10:00 AM"
}

// Best-effort location derivation. Most announcements are about online
// processes, so that is the fallback.
func deriveLocation(text string) string {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "exam centre") || strings.Contains(lower, "exam center") || strings.Contains(lower, "pen and paper") {
		return "Exam Centre"
	}

	return "Online"
}
