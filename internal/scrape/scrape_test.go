package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

const ntaTestPage = `<!DOCTYPE html>
<html>
<body>
  <div class="notification-list">
    <a href="/notice/result-2025.pdf">JEE Main Result 2025 Declared</a>
    <a href="/notice/canteen.pdf">Canteen menu updated</a>
  </div>
  <div class="latest-news">
    <a href="https://example.com/admit-card">Admit Card released, exam date 15/04/2025</a>
    <a href="/notice/result-2025.pdf">JEE Main Result 2025 Declared</a>
  </div>
</body>
</html>`

func testSite(url string) Site {
	return Site{
		Name:     "NTA JEE Main",
		URL:      url,
		Scraper:  "nta",
		ExamType: "jee",
	}
}

func TestNTAScraper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(ntaTestPage))
	}))
	defer srv.Close()

	s := &NTAScraper{newBase(testSite(srv.URL))}
	records, err := s.Scrape(context.Background())
	require.NoError(t, err)

	// The canteen item fails the relevance filter and the duplicated result
	// link collapses into one record.
	require.Len(t, records, 2)

	byTitle := map[string]examupdates.Record{}
	for _, r := range records {
		byTitle[r.Title] = r
	}

	result, ok := byTitle["JEE Main Result 2025 Declared"]
	require.True(t, ok)
	assert.Equal(t, "NTA JEE Main", result.Source)
	assert.Equal(t, "jee", result.ExamType)
	assert.Equal(t, srv.URL+"/notice/result-2025.pdf", result.URL)
	assert.Equal(t, examupdates.ContentHash(result.Title), result.ContentHash)
	assert.NotEmpty(t, result.ScrapedAt)

	admit, ok := byTitle["Admit Card released, exam date 15/04/2025"]
	require.True(t, ok)
	// Absolute hrefs pass through untouched.
	assert.Equal(t, "https://example.com/admit-card", admit.URL)
	assert.Equal(t, "15/04/2025", admit.Date)
	// Two high-urgency keyword hits push the priority up.
	assert.Equal(t, examupdates.PriorityHigh, admit.Priority)
}

func TestGenericScraper_ConfiguredSelectors(t *testing.T) {
	const page = `<html><body>
	  <div class="card"><h3>GATE 2026 Registration Opens</h3><span class="when">1 Sep 2025</span><a href="/reg">apply</a></div>
	  <div class="card"><h3></h3></div>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	s := &GenericScraper{newBase(Site{
		Name:     "IIT GATE",
		URL:      srv.URL,
		Scraper:  "generic",
		ExamType: "gate",
		Priority: examupdates.PriorityMedium,
		Selectors: Selectors{
			Container: ".card",
			Title:     "h3, .title",
			Date:      ".when",
			Link:      "a",
		},
	})}

	records, err := s.Scrape(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "GATE 2026 Registration Opens", records[0].Title)
	assert.Equal(t, "1 Sep 2025", records[0].Date)
	assert.Equal(t, srv.URL+"/reg", records[0].URL)
	assert.Equal(t, examupdates.PriorityMedium, records[0].Priority)
}

func TestFetchDocument_RetriesThenFails(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := &GenericScraper{newBase(testSite(srv.URL))}
	_, err := s.Scrape(context.Background())
	require.Error(t, err)
	assert.Equal(t, fetchRetries+1, hits)
}

func TestLoadConfig(t *testing.T) {
	const doc = `
sites:
  - name: NTA JEE Main
    url: https://jeemain.nta.nic.in
    scraper: nta
    exam_type: jee
    priority: high
  - name: Old Portal
    url: https://old.example.com
    scraper: generic
    enabled: false
`
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sites, 2)
	assert.True(t, cfg.Sites[0].IsEnabled())
	assert.Equal(t, examupdates.PriorityHigh, cfg.Sites[0].Priority)
	assert.False(t, cfg.Sites[1].IsEnabled())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", "sites:\n  - url: https://x\n    scraper: nta\n"},
		{"missing url", "sites:\n  - name: x\n    scraper: nta\n"},
		{"missing scraper", "sites:\n  - name: x\n    url: https://x\n"},
		{"bad yaml", "sites: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sites.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0o644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestBuild(t *testing.T) {
	enabled := false
	cfg := Config{Sites: []Site{
		{Name: "a", URL: "https://a", Scraper: "nta"},
		{Name: "b", URL: "https://b", Scraper: "generic", Enabled: &enabled},
		{Name: "c", URL: "https://c", Scraper: "upsc"},
	}}

	scrapers, err := Build(cfg)
	require.NoError(t, err)
	require.Len(t, scrapers, 2)
	assert.Equal(t, "a", scrapers[0].Name())
	assert.Equal(t, "c", scrapers[1].Name())
}

func TestBuild_UnknownScraper(t *testing.T) {
	_, err := Build(Config{Sites: []Site{{Name: "x", URL: "https://x", Scraper: "mystery"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scraper")
}

func TestClassifyImportance(t *testing.T) {
	tests := []struct {
		text     string
		expected examupdates.Priority
	}{
		{"Admit card released, check exam date", examupdates.PriorityHigh},
		{"Result declared", examupdates.PriorityMedium},
		{"Registration and application process update", examupdates.PriorityMedium},
		{"Campus photo gallery", examupdates.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyImportance(tt.text))
		})
	}
}
