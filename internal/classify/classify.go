// Package classify maps raw records to exam categories by keyword matching.
package classify

import (
	"strings"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

// One rule per category, evaluated in order. JEE Advanced must come before
// plain JEE or "JEE Advanced Board" would be misfiled under jee.
var rules = []struct {
	category examupdates.Category
	keywords []string
}{
	{examupdates.CategoryJEEAdvanced, []string{"jee advanced", "jeeadv"}},
	{examupdates.CategoryGATE, []string{"gate"}},
	{examupdates.CategoryUPSC, []string{"upsc"}},
	{examupdates.CategoryJEE, []string{"jee"}},
}

// Classify determines the category for a record by case-insensitive keyword
// containment over its source and exam type, defaulting to jee when nothing
// matches.
func Classify(r examupdates.Record) examupdates.Category {
	return Text(r.Source, r.ExamType)
}

// Text classifies free-form fields by the same keyword rules.
func Text(fields ...string) examupdates.Category {
	lowered := make([]string, len(fields))
	for i, f := range fields {
		lowered[i] = strings.ToLower(f)
	}

	for _, rule := range rules {
		for _, kw := range rule.keywords {
			for _, f := range lowered {
				if strings.Contains(f, kw) {
					return rule.category
				}
			}
		}
	}

	return examupdates.CategoryJEE
}
