// Package runner executes visibility test batches: for each prospect it
// poses the campaign queries to every active provider and persists one
// test run per provider.
package runner

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/visibility-cli/internal/match"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/provider"
	"github.com/sells-group/visibility-cli/internal/queries"
	"github.com/sells-group/visibility-cli/internal/store"
)

// ErrNoActiveProviders is returned when a real (non dry-run) batch is
// requested but no provider has credentials.
var ErrNoActiveProviders = eris.New("runner: no providers configured")

// competitorLimit caps the competitors persisted per test run.
const competitorLimit = 20

// Runner drives test batches against the provider registry.
type Runner struct {
	store       store.Store
	registry    *provider.Registry
	queries     *queries.Registry
	limiter     *rate.Limiter
	concurrency int
}

// New creates a Runner. providerRPS throttles real provider calls
// across all prospects; concurrency bounds prospects in flight.
func New(st store.Store, reg *provider.Registry, qr *queries.Registry, providerRPS float64, concurrency int) *Runner {
	if providerRPS <= 0 {
		providerRPS = 2
	}
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Runner{
		store:       st,
		registry:    reg,
		queries:     qr,
		limiter:     rate.NewLimiter(rate.Limit(providerRPS), 1),
		concurrency: concurrency,
	}
}

// RunOptions narrows a campaign batch.
type RunOptions struct {
	// ProspectIDs restricts the batch to specific prospects. Empty means
	// every SCHEDULED prospect in the campaign.
	ProspectIDs []string
	// DryRun forces dry-run behavior regardless of campaign mode.
	DryRun bool
}

// ProspectError records one isolated prospect failure inside a batch.
type ProspectError struct {
	ProspectID string `json:"prospect_id"`
	Name       string `json:"name"`
	Error      string `json:"error"`
}

// BatchResult summarizes a campaign batch.
type BatchResult struct {
	Total       int             `json:"total"`
	Processed   int             `json:"processed"`
	RunsCreated int             `json:"runs_created"`
	Errors      []ProspectError `json:"errors,omitempty"`
}

// RunCampaign tests every selected prospect of the campaign. Individual
// prospect failures are recorded and do not abort the batch.
func (r *Runner) RunCampaign(ctx context.Context, campaignID string, opts RunOptions) (*BatchResult, error) {
	campaign, err := r.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	dryRun := opts.DryRun || campaign.Mode == model.ModeDryRun
	if !dryRun && len(r.registry.Active()) == 0 {
		return nil, ErrNoActiveProviders
	}

	prospects, err := r.prospectsForRun(ctx, campaign, opts.ProspectIDs)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Total: len(prospects)}
	if len(prospects) == 0 {
		zap.L().Info("no scheduled prospects", zap.String("campaign", campaignID))
		return result, nil
	}

	zap.L().Info("running test batch",
		zap.String("campaign", campaignID),
		zap.Int("prospects", len(prospects)),
		zap.Bool("dry_run", dryRun),
		zap.Int("concurrency", r.concurrency),
	)

	var processed, runsCreated atomic.Int64
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, p := range prospects {
		g.Go(func() error {
			log := zap.L().With(zap.String("prospect", p.Name))

			created, err := r.runProspect(gctx, campaign, p, dryRun)
			runsCreated.Add(int64(created))
			if err != nil {
				log.Error("prospect test failed", zap.Error(err))
				mu.Lock()
				result.Errors = append(result.Errors, ProspectError{
					ProspectID: p.ID,
					Name:       p.Name,
					Error:      err.Error(),
				})
				mu.Unlock()
				return nil // don't abort batch on individual failure
			}

			processed.Add(1)
			log.Info("prospect tested", zap.Int("runs", created))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "runner: batch")
	}

	result.Processed = int(processed.Load())
	result.RunsCreated = int(runsCreated.Load())

	zap.L().Info("test batch complete",
		zap.Int("processed", result.Processed),
		zap.Int("runs_created", result.RunsCreated),
		zap.Int("failed", len(result.Errors)),
	)
	return result, nil
}

// prospectsForRun resolves explicit IDs, or lists the campaign's
// SCHEDULED prospects capped at the campaign's max.
func (r *Runner) prospectsForRun(ctx context.Context, campaign *model.Campaign, ids []string) ([]model.Prospect, error) {
	if len(ids) > 0 {
		prospects := make([]model.Prospect, 0, len(ids))
		for _, id := range ids {
			p, err := r.store.GetProspect(ctx, id)
			if err != nil {
				return nil, err
			}
			prospects = append(prospects, *p)
		}
		return prospects, nil
	}

	limit := campaign.MaxProspects
	if limit <= 0 {
		limit = 100
	}
	return r.store.ListProspects(ctx, store.ProspectFilter{
		CampaignID: campaign.ID,
		Status:     model.StatusScheduled,
		Limit:      limit,
	})
}

// runProspect executes the full query set against every provider and
// persists one test run per provider.
func (r *Runner) runProspect(ctx context.Context, campaign *model.Campaign, prospect model.Prospect, dryRun bool) (int, error) {
	qs := r.queries.For(prospect.Profession, prospect.City)

	// Re-testing a prospect past TESTED (via explicit ids) appends runs
	// without touching its status.
	inTesting := prospect.Status == model.StatusTesting
	if prospect.Status == model.StatusScheduled {
		if err := r.store.TransitionProspect(ctx, prospect.ID, model.StatusScheduled, model.StatusTesting); err != nil {
			return 0, err
		}
		inTesting = true
	}

	providers := r.registry.Active()
	if dryRun {
		// Dry runs simulate every registered provider so the persisted
		// evidence has the same shape as a real batch.
		providers = r.registry.All()
	}

	created := 0
	for _, p := range providers {
		run, err := r.runProvider(ctx, p, campaign, prospect, qs, dryRun)
		if err != nil {
			return created, err
		}
		if _, err := r.store.CreateTestRun(ctx, *run); err != nil {
			return created, err
		}
		created++
	}

	if inTesting {
		if err := r.store.TransitionProspect(ctx, prospect.ID, model.StatusTesting, model.StatusTested); err != nil {
			return created, err
		}
	}
	return created, nil
}

func (r *Runner) runProvider(ctx context.Context, p provider.Provider, campaign *model.Campaign, prospect model.Prospect, qs []string, dryRun bool) (*model.TestRun, error) {
	answers := make([]string, len(qs))
	entities := make([][]model.Entity, len(qs))
	mentions := make([]bool, len(qs))
	var notes []string
	var competitors []string

	mentioned := false
	for i, q := range qs {
		var answer string
		if dryRun {
			answer = provider.DryRunAnswer(q)
		} else {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "runner: rate limit wait")
			}
			var note string
			answer, note = provider.SafeInvoke(ctx, p, q, i)
			if note != "" {
				notes = append(notes, note)
			}
		}

		answers[i] = answer
		entities[i] = match.ExtractEntities(answer)
		mentions[i] = match.IsMentioned(answer, prospect.Name, prospect.Website, match.DefaultThreshold)
		if mentions[i] {
			mentioned = true
		}
		competitors = append(competitors, match.CompetitorsFrom(entities[i], prospect.Name, prospect.Website)...)
	}

	return &model.TestRun{
		CampaignID:          campaign.ID,
		ProspectID:          prospect.ID,
		Provider:            p.ID(),
		Queries:             qs,
		RawAnswers:          answers,
		ExtractedEntities:   entities,
		MentionedTarget:     mentioned,
		MentionPerQuery:     mentions,
		CompetitorsEntities: match.DedupeFold(competitors, competitorLimit),
		Notes:               strings.Join(notes, "; "),
	}, nil
}
