// Package scoring turns a prospect's accumulated test runs into an
// eligibility verdict and a 0-10 lead score with a justification a
// salesperson can read as-is.
package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/queries"
	"github.com/sells-group/visibility-cli/internal/store"
)

// providerCount is the size of the registered provider family. The
// justification denominators display it.
const providerCount = 3

// stableCompetitorLimit caps the persisted competitor list.
const stableCompetitorLimit = 5

// Engine scores prospects from their historical test runs.
type Engine struct {
	store store.Store
	cfg   config.ScoringConfig
}

// NewEngine creates a scoring engine.
func NewEngine(st store.Store, cfg config.ScoringConfig) *Engine {
	return &Engine{store: st, cfg: cfg}
}

// Evaluation is the pure outcome of scoring one prospect. Identical
// inputs always produce identical evaluations.
type Evaluation struct {
	Eligible           bool
	Score              float64
	Justification      string
	Competitors        []string
	InvisibleProviders int
	InvisibleSlots     int
}

// Evaluate aggregates every run of a prospect. A provider counts as
// invisible only when none of its runs mentioned the target; a query
// slot counts as invisible only when it has at least one recorded flag
// and every flag is false. Zero runs is never invisible.
func (e *Engine) Evaluate(p model.Prospect, runs []model.TestRun) Evaluation {
	if len(runs) == 0 {
		return Evaluation{Justification: "Aucun run"}
	}

	providerMentioned := map[string]bool{}
	for _, r := range runs {
		if _, ok := providerMentioned[r.Provider]; !ok {
			providerMentioned[r.Provider] = false
		}
		if r.MentionedTarget {
			providerMentioned[r.Provider] = true
		}
	}
	invisProviders := 0
	for _, mentioned := range providerMentioned {
		if !mentioned {
			invisProviders++
		}
	}

	var slotSeen, slotMentioned [queries.Count]bool
	for _, r := range runs {
		for qi, m := range r.MentionPerQuery {
			if qi >= queries.Count {
				break
			}
			slotSeen[qi] = true
			if m {
				slotMentioned[qi] = true
			}
		}
	}
	invisSlots := 0
	for qi := 0; qi < queries.Count; qi++ {
		if slotSeen[qi] && !slotMentioned[qi] {
			invisSlots++
		}
	}

	stable := e.stableCompetitors(runs)
	// The justification reports every stabilized competitor; only the
	// persisted list is capped.
	cited := stable
	if len(cited) > stableCompetitorLimit {
		cited = cited[:stableCompetitorLimit]
	}

	eligible := invisProviders >= e.cfg.MinInvisibleProviders && invisSlots >= e.cfg.MinInvisibleQueries

	gateJust := fmt.Sprintf("Modèles invisibles %d/%d %s | Requêtes invisibles %d/%d %s | Concurrents stables %d",
		invisProviders, providerCount, checkmark(invisProviders >= e.cfg.MinInvisibleProviders),
		invisSlots, queries.Count, checkmark(invisSlots >= e.cfg.MinInvisibleQueries),
		len(stable),
	)

	score := 0.0
	var parts []string
	if eligible {
		score += 4
		parts = append(parts, "+4 Invisibilité robuste")
	}
	if len(stable) > 0 {
		score += 2
		named := stable
		if len(named) > 2 {
			named = named[:2]
		}
		parts = append(parts, "+2 Concurrents: "+strings.Join(named, ", "))
	}
	if p.AdsActive {
		score++
		parts = append(parts, "+1 Google Ads actif")
	}
	if p.ReviewsCount >= e.cfg.ReviewsThreshold {
		score++
		parts = append(parts, fmt.Sprintf("+1 %d avis", p.ReviewsCount))
	}
	if p.Website != "" {
		score++
		parts = append(parts, "+1 Site web présent")
	}

	verdict := "NON"
	if eligible {
		verdict = "OUI"
	}
	scoreJust := fmt.Sprintf("Score %.1f/10 — EMAIL_OK: %s\n", score, verdict) + strings.Join(parts, "\n")

	return Evaluation{
		Eligible:           eligible,
		Score:              score,
		Justification:      gateJust + "\n\n" + scoreJust,
		Competitors:        cited,
		InvisibleProviders: invisProviders,
		InvisibleSlots:     invisSlots,
	}
}

// stableCompetitors counts case-insensitive competitor occurrences
// across all runs and keeps those seen at least MinCompetitorRuns times,
// ordered by frequency with ties resolved by first appearance.
func (e *Engine) stableCompetitors(runs []model.TestRun) []string {
	counts := map[string]int{}
	var order []string
	for _, r := range runs {
		for _, c := range r.CompetitorsEntities {
			key := strings.ToLower(c)
			if counts[key] == 0 {
				order = append(order, key)
			}
			counts[key]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	var stable []string
	for _, name := range order {
		if counts[name] >= e.cfg.MinCompetitorRuns {
			stable = append(stable, name)
		}
	}
	return stable
}

func checkmark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

// Result summarizes a scoring pass.
type Result struct {
	Total    int `json:"total"`
	Scored   int `json:"scored"`
	Eligible int `json:"eligible"`
}

// RunScoring scores the selected prospects of a campaign. Without an
// explicit subset it sweeps both TESTED and already SCORED prospects,
// so enrichment that landed after the first pass is picked up.
// Prospects with no runs are skipped, never marked scored.
func (e *Engine) RunScoring(ctx context.Context, campaignID string, prospectIDs []string) (*Result, error) {
	prospects, err := e.prospectsForScoring(ctx, campaignID, prospectIDs)
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(prospects)}
	for _, p := range prospects {
		runs, err := e.store.ListTestRuns(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			zap.L().Debug("no runs for prospect, skipping", zap.String("prospect", p.Name))
			continue
		}

		ev := e.Evaluate(p, runs)
		err = e.store.UpdateProspectScore(ctx, p.ID, model.ProspectScore{
			Eligible:      ev.Eligible,
			Score:         ev.Score,
			Justification: ev.Justification,
			Competitors:   ev.Competitors,
		})
		if err != nil {
			return nil, err
		}
		if p.Status == model.StatusTested {
			if err := e.store.TransitionProspect(ctx, p.ID, model.StatusTested, model.StatusScored); err != nil {
				return nil, err
			}
		}

		result.Scored++
		if ev.Eligible {
			result.Eligible++
		}
		zap.L().Info("prospect scored",
			zap.String("prospect", p.Name),
			zap.Float64("score", ev.Score),
			zap.Bool("eligible", ev.Eligible),
		)
	}
	return result, nil
}

func (e *Engine) prospectsForScoring(ctx context.Context, campaignID string, ids []string) ([]model.Prospect, error) {
	if len(ids) > 0 {
		prospects := make([]model.Prospect, 0, len(ids))
		for _, id := range ids {
			p, err := e.store.GetProspect(ctx, id)
			if err != nil {
				return nil, err
			}
			prospects = append(prospects, *p)
		}
		return prospects, nil
	}

	tested, err := e.store.ListProspects(ctx, store.ProspectFilter{
		CampaignID: campaignID,
		Status:     model.StatusTested,
	})
	if err != nil {
		return nil, err
	}
	scored, err := e.store.ListProspects(ctx, store.ProspectFilter{
		CampaignID: campaignID,
		Status:     model.StatusScored,
	})
	if err != nil {
		return nil, err
	}
	return append(tested, scored...), nil
}

// ScoreReport is the read model served to the outreach tooling.
type ScoreReport struct {
	ProspectID    string               `json:"prospect_id"`
	Name          string               `json:"name"`
	Score         *float64             `json:"score"`
	Eligible      bool                 `json:"eligible"`
	Competitors   []string             `json:"competitors"`
	Justification string               `json:"justification"`
	Status        model.ProspectStatus `json:"status"`
}

// GetScore returns the persisted score of a prospect.
func (e *Engine) GetScore(ctx context.Context, prospectID string) (*ScoreReport, error) {
	p, err := e.store.GetProspect(ctx, prospectID)
	if err != nil {
		return nil, err
	}
	return &ScoreReport{
		ProspectID:    p.ID,
		Name:          p.Name,
		Score:         p.IAVisibilityScore,
		Eligible:      p.EligibilityFlag,
		Competitors:   p.CompetitorsCited,
		Justification: p.ScoreJustification,
		Status:        p.Status,
	}, nil
}
