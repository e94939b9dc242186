package store

import (
	"context"

	"github.com/sells-group/visibility-cli/internal/model"
)

// ProspectFilter specifies criteria for listing prospects.
type ProspectFilter struct {
	CampaignID string               `json:"campaign_id,omitempty"`
	Status     model.ProspectStatus `json:"status,omitempty"`
	Limit      int                  `json:"limit,omitempty"`
	Offset     int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the visibility pipeline.
type Store interface {
	// Campaigns
	CreateCampaign(ctx context.Context, campaign model.Campaign) (*model.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)

	// Prospects
	CreateProspect(ctx context.Context, prospect model.Prospect) (*model.Prospect, error)
	CreateProspects(ctx context.Context, prospects []model.Prospect) (int64, error)
	GetProspect(ctx context.Context, id string) (*model.Prospect, error)
	ListProspects(ctx context.Context, filter ProspectFilter) ([]model.Prospect, error)
	// TransitionProspect moves a prospect from one status to the next. It
	// validates the transition against the status table and applies it
	// with a compare-and-set so concurrent batches cannot double-apply.
	// A prospect already at the target status is treated as done.
	TransitionProspect(ctx context.Context, id string, from, to model.ProspectStatus) error
	UpdateProspectScore(ctx context.Context, id string, score model.ProspectScore) error

	// Test runs
	CreateTestRun(ctx context.Context, run model.TestRun) (*model.TestRun, error)
	ListTestRuns(ctx context.Context, prospectID string) ([]model.TestRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
