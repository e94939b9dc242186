package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// EntityType classifies an extracted entity.
type EntityType string

const (
	EntityURL     EntityType = "url"
	EntityCompany EntityType = "company"
)

// Entity is one candidate business reference found in a provider answer.
type Entity struct {
	Type   EntityType `json:"type"`
	Value  string     `json:"value"`
	Domain string     `json:"domain,omitempty"`
}

// TestRun is the immutable evidence record for one (prospect, provider,
// batch) triple. Queries, RawAnswers and MentionPerQuery are parallel
// arrays of the same fixed length; a new batch always appends new rows,
// nothing is ever rewritten.
type TestRun struct {
	ID                  string     `json:"id"`
	CampaignID          string     `json:"campaign_id"`
	ProspectID          string     `json:"prospect_id"`
	Provider            string     `json:"provider"`
	Queries             []string   `json:"queries"`
	RawAnswers          []string   `json:"raw_answers"`
	ExtractedEntities   [][]Entity `json:"extracted_entities"`
	MentionedTarget     bool       `json:"mentioned_target"`
	MentionPerQuery     []bool     `json:"mention_per_query"`
	CompetitorsEntities []string   `json:"competitors_entities"`
	Notes               string     `json:"notes,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// Validate enforces the parallel-array and mention invariants.
func (r *TestRun) Validate() error {
	n := len(r.Queries)
	if len(r.RawAnswers) != n || len(r.MentionPerQuery) != n {
		return eris.Errorf("model: test run %s has mismatched arrays: %d queries, %d answers, %d mention flags",
			r.ID, n, len(r.RawAnswers), len(r.MentionPerQuery))
	}
	any := false
	for _, m := range r.MentionPerQuery {
		if m {
			any = true
			break
		}
	}
	if r.MentionedTarget != any {
		return eris.Errorf("model: test run %s mentioned_target=%v disagrees with per-query flags", r.ID, r.MentionedTarget)
	}
	return nil
}
