package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// ProspectStatus is the pipeline position of a prospect. The pipeline is
// linear; transitions outside the table below are bugs, not data.
type ProspectStatus string

const (
	StatusScanned     ProspectStatus = "SCANNED"
	StatusScheduled   ProspectStatus = "SCHEDULED"
	StatusTesting     ProspectStatus = "TESTING"
	StatusTested      ProspectStatus = "TESTED"
	StatusScored      ProspectStatus = "SCORED"
	StatusReadyAssets ProspectStatus = "READY_ASSETS"
	StatusReadyToSend ProspectStatus = "READY_TO_SEND"
	StatusSentManual  ProspectStatus = "SENT_MANUAL" // terminal
)

// ErrIllegalTransition is returned for any status change not present in
// the transition table. Callers must treat it as fatal to the attempted
// operation.
var ErrIllegalTransition = eris.New("model: illegal prospect status transition")

var transitions = map[ProspectStatus][]ProspectStatus{
	StatusScanned:     {StatusScheduled},
	StatusScheduled:   {StatusTesting},
	StatusTesting:     {StatusTested},
	StatusTested:      {StatusScored},
	StatusScored:      {StatusReadyAssets},
	StatusReadyAssets: {StatusReadyToSend},
	StatusReadyToSend: {StatusSentManual},
	StatusSentManual:  {},
}

// CanTransition reports whether moving from current to target is legal.
func CanTransition(current, target ProspectStatus) bool {
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// Prospect is one target business inside a campaign.
type Prospect struct {
	ID                 string         `json:"id"`
	CampaignID         string         `json:"campaign_id"`
	Name               string         `json:"name"`
	City               string         `json:"city"`
	Profession         string         `json:"profession"`
	Website            string         `json:"website,omitempty"`
	Phone              string         `json:"phone,omitempty"`
	ReviewsCount       int            `json:"reviews_count"`
	AdsActive          bool           `json:"ads_active"`
	Status             ProspectStatus `json:"status"`
	EligibilityFlag    bool           `json:"eligibility_flag"`
	IAVisibilityScore  *float64       `json:"ia_visibility_score,omitempty"`
	ScoreJustification string         `json:"score_justification,omitempty"`
	CompetitorsCited   []string       `json:"competitors_cited"`
	CreatedAt          time.Time      `json:"created_at"`
}

// ProspectScore is the persisted output of one scoring pass.
type ProspectScore struct {
	Eligible      bool
	Score         float64
	Justification string
	Competitors   []string
}
