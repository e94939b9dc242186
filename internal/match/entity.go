package match

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/visibility-cli/internal/model"
)

var (
	urlPattern = regexp.MustCompile(`https?://\S+`)

	// Runs of 1-4 capitalized words (accented capitals included). The
	// capitalization-run heuristic trades recall for precision: it rejects
	// generic connective phrases while still catching multi-word business
	// names. Residual noise is absorbed downstream by fuzzy matching and
	// frequency thresholds, not here.
	companyPattern = regexp.MustCompile(`(?:[A-ZÀÁÂÃÄÅÆÇÈÉÊËÌÍÎÏÐÑÒÓÔÕÖØÙÚÛÜÝ][a-zàáâãäåæçèéêëìíîïðñòóôõöøùúûüý]+\s?){1,4}`)
)

// ExtractEntities scans free text for URL and company-name candidates.
// URLs come first, then capitalized runs longer than 3 characters;
// duplicates are removed case-insensitively keeping first-seen order.
// Empty input yields an empty slice.
func ExtractEntities(text string) []model.Entity {
	if text == "" {
		return []model.Entity{}
	}

	var found []model.Entity
	for _, u := range urlPattern.FindAllString(text, -1) {
		d := DomainOf(u)
		if d == "" {
			continue
		}
		found = append(found, model.Entity{Type: model.EntityURL, Value: u, Domain: d})
	}
	for _, m := range companyPattern.FindAllString(text, -1) {
		name := strings.TrimSpace(m)
		if utf8.RuneCountInString(name) > 3 {
			found = append(found, model.Entity{Type: model.EntityCompany, Value: name})
		}
	}

	seen := make(map[string]bool, len(found))
	out := make([]model.Entity, 0, len(found))
	for _, e := range found {
		key := strings.ToLower(e.Value)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
