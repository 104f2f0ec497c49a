package scrape

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

type (
	// Config is the sites.yaml document listing every scrape target.
	Config struct {
		Sites []Site `yaml:"sites"`
	}

	// Site configures one scrape target. Scraper names a key in the static
	// registry; there is no dynamic loading.
	Site struct {
		Name      string               `yaml:"name"`
		URL       string               `yaml:"url"`
		Scraper   string               `yaml:"scraper"`
		Enabled   *bool                `yaml:"enabled"`
		Priority  examupdates.Priority `yaml:"priority"`
		ExamType  string               `yaml:"exam_type"`
		Keywords  []string             `yaml:"keywords"`
		Selectors Selectors            `yaml:"selectors"`
	}

	// Selectors are comma-separated CSS selector lists tried in order.
	Selectors struct {
		Container string `yaml:"container"`
		Title     string `yaml:"title"`
		Date      string `yaml:"date"`
		Link      string `yaml:"link"`
	}
)

// IsEnabled defaults to true when the field is omitted.
func (s Site) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LoadConfig reads and validates the sites file.
func LoadConfig(path string) (Config, error) {
	byts, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading sites config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(byts, &cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing sites config: %w", err)
	}

	for i, site := range cfg.Sites {
		if site.Name == "" {
			return Config{}, fmt.Errorf("site %d: name is required", i)
		}
		if site.URL == "" {
			return Config{}, fmt.Errorf("site %q: url is required", site.Name)
		}
		if site.Scraper == "" {
			return Config{}, fmt.Errorf("site %q: scraper is required", site.Name)
		}
	}

	return cfg, nil
}
