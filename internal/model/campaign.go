package model

import "time"

// CampaignMode selects how far the pipeline runs automatically.
type CampaignMode string

const (
	ModeDryRun    CampaignMode = "DRY_RUN"
	ModeAutoTest  CampaignMode = "AUTO_TEST"
	ModeSendReady CampaignMode = "SEND_READY"
)

// Campaign groups prospects for one profession/city pair.
type Campaign struct {
	ID           string       `json:"id"`
	Profession   string       `json:"profession"`
	City         string       `json:"city"`
	MaxProspects int          `json:"max_prospects"`
	Mode         CampaignMode `json:"mode"`
	CreatedAt    time.Time    `json:"created_at"`
}
