// Package examupdates holds the domain types shared by the scrapers, the
// reconciler, the stores, and the delivery queue.
package examupdates

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
)

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")
)

// Category is one of the fixed exam groupings a record is filed under.
type Category string

const (
	CategoryJEEAdvanced Category = "jee_adv"
	CategoryGATE        Category = "gate"
	CategoryUPSC        Category = "upsc"
	CategoryJEE         Category = "jee"
)

// Categories lists every category in classification priority order: the
// advanced variant must be checked before its parent exam.
func Categories() []Category {
	return []Category{CategoryJEEAdvanced, CategoryGATE, CategoryUPSC, CategoryJEE}
}

// Priority signals how urgent a scraped update is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ContentHash fingerprints a title for dedup purposes. Two records with the
// same hash are the same logical item.
func ContentHash(title string) string {
	sum := md5.Sum([]byte(title))
	return hex.EncodeToString(sum[:])
}

// Scraper produces raw records for a single site. Implementations may fail;
// the scheduler isolates a failing source without aborting the cycle.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context) ([]Record, error)
}
