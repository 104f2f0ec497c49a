package scrape

import (
	"fmt"
	"log/slog"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

// builders is the static scraper registry: an explicit map from config key
// to constructor, no reflection.
var builders = map[string]func(Site) examupdates.Scraper{
	"nta":          func(site Site) examupdates.Scraper { return &NTAScraper{newBase(site)} },
	"jee_advanced": func(site Site) examupdates.Scraper { return &JEEAdvancedScraper{newBase(site)} },
	"gate":         func(site Site) examupdates.Scraper { return &GATEScraper{newBase(site)} },
	"upsc":         func(site Site) examupdates.Scraper { return &UPSCScraper{newBase(site)} },
	"generic":      func(site Site) examupdates.Scraper { return &GenericScraper{newBase(site)} },
}

// Build instantiates a scraper per enabled site. An unknown scraper key is a
// configuration error, not something to paper over at runtime.
func Build(cfg Config) ([]examupdates.Scraper, error) {
	scrapers := []examupdates.Scraper{}
	for _, site := range cfg.Sites {
		if !site.IsEnabled() {
			slog.Info("skipping disabled site", "site", site.Name)
			continue
		}

		builder, ok := builders[site.Scraper]
		if !ok {
			return nil, fmt.Errorf("site %q: unknown scraper %q", site.Name, site.Scraper)
		}
		scrapers = append(scrapers, builder(site))
	}

	return scrapers, nil
}
