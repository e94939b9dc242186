package match

import (
	"strings"

	"github.com/sells-group/visibility-cli/internal/model"
)

// CompetitorsFrom filters extracted entities down to competitor
// candidates: anything whose normalized value contains the target's
// normalized name, or whose raw value contains the target's domain token,
// is the target itself and is dropped. Order is preserved and duplicates
// are allowed; deduplication happens at aggregation time.
func CompetitorsFrom(entities []model.Entity, targetName, targetWebsite string) []string {
	normTarget := Normalize(targetName)
	token := domainToken(targetWebsite)

	out := make([]string, 0, len(entities))
	for _, e := range entities {
		if normTarget != "" && strings.Contains(Normalize(e.Value), normTarget) {
			continue
		}
		if token != "" && strings.Contains(strings.ToLower(e.Value), token) {
			continue
		}
		out = append(out, e.Value)
	}
	return out
}

// DedupeFold removes case-insensitive duplicates keeping first-seen
// order, truncating to limit when limit > 0.
func DedupeFold(values []string, limit int) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
