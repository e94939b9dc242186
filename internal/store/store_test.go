package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedCampaign(t *testing.T, s Store) *model.Campaign {
	t.Helper()
	c, err := s.CreateCampaign(context.Background(), model.Campaign{
		Profession:   "couvreur",
		City:         "Annecy",
		MaxProspects: 50,
		Mode:         model.ModeAutoTest,
	})
	require.NoError(t, err)
	return c
}

func seedProspect(t *testing.T, s Store, campaignID string, status model.ProspectStatus) *model.Prospect {
	t.Helper()
	p, err := s.CreateProspect(context.Background(), model.Prospect{
		CampaignID:   campaignID,
		Name:         "Toiture Martin",
		City:         "Annecy",
		Profession:   "couvreur",
		Website:      "https://toituremartin.fr",
		Phone:        "+33 4 50 00 00 00",
		ReviewsCount: 27,
		AdsActive:    true,
		Status:       status,
	})
	require.NoError(t, err)
	return p
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetCampaign", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := seedCampaign(t, s)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, model.ModeAutoTest, c.Mode)

		got, err := s.GetCampaign(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
		assert.Equal(t, "couvreur", got.Profession)
		assert.Equal(t, "Annecy", got.City)
		assert.Equal(t, 50, got.MaxProspects)
	})

	t.Run("CampaignDefaultsToDryRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c, err := s.CreateCampaign(ctx, model.Campaign{Profession: "plombier", City: "Lyon"})
		require.NoError(t, err)
		assert.Equal(t, model.ModeDryRun, c.Mode)
	})

	t.Run("ListCampaigns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		seedCampaign(t, s)
		_, err := s.CreateCampaign(ctx, model.Campaign{Profession: "plombier", City: "Lyon"})
		require.NoError(t, err)

		all, err := s.ListCampaigns(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("CreateAndGetProspect", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := seedCampaign(t, s)
		p := seedProspect(t, s, c.ID, model.StatusScanned)
		assert.NotEmpty(t, p.ID)

		got, err := s.GetProspect(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Toiture Martin", got.Name)
		assert.Equal(t, model.StatusScanned, got.Status)
		assert.Equal(t, 27, got.ReviewsCount)
		assert.True(t, got.AdsActive)
		assert.Nil(t, got.IAVisibilityScore)
		assert.Empty(t, got.CompetitorsCited)
	})

	t.Run("CreateProspectsBulk", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := seedCampaign(t, s)
		prospects := []model.Prospect{
			{CampaignID: c.ID, Name: "Toiture Martin", City: "Annecy", Profession: "couvreur"},
			{CampaignID: c.ID, Name: "Dupont Couverture", City: "Annecy", Profession: "couvreur"},
		}
		n, err := s.CreateProspects(ctx, prospects)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		all, err := s.ListProspects(ctx, ProspectFilter{CampaignID: c.ID})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("CreateProspectsReimportDoesNotDuplicate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := seedCampaign(t, s)
		batch := []model.Prospect{
			{CampaignID: c.ID, Name: "Toiture Martin", City: "Annecy", Profession: "couvreur", ReviewsCount: 10},
		}
		_, err := s.CreateProspects(ctx, batch)
		require.NoError(t, err)

		// Second import of the same scan with refreshed attributes.
		batch = []model.Prospect{
			{CampaignID: c.ID, Name: "Toiture Martin", City: "Annecy", Profession: "couvreur", ReviewsCount: 12},
		}
		_, err = s.CreateProspects(ctx, batch)
		require.NoError(t, err)

		all, err := s.ListProspects(ctx, ProspectFilter{CampaignID: c.ID})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, 12, all[0].ReviewsCount)
	})

	t.Run("ListProspectsByStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := seedCampaign(t, s)
		p := seedProspect(t, s, c.ID, model.StatusScanned)
		_, err := s.CreateProspect(ctx, model.Prospect{
			CampaignID: c.ID, Name: "Dupont Couverture", City: "Annecy",
			Profession: "couvreur", Status: model.StatusScheduled,
		})
		require.NoError(t, err)

		scheduled, err := s.ListProspects(ctx, ProspectFilter{CampaignID: c.ID, Status: model.StatusScheduled})
		require.NoError(t, err)
		require.Len(t, scheduled, 1)
		assert.Equal(t, "Dupont Couverture", scheduled[0].Name)

		scanned, err := s.ListProspects(ctx, ProspectFilter{Status: model.StatusScanned})
		require.NoError(t, err)
		require.Len(t, scanned, 1)
		assert.Equal(t, p.ID, scanned[0].ID)
	})

	t.Run("TransitionProspect", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := seedCampaign(t, s)
		p := seedProspect(t, s, c.ID, model.StatusScanned)

		err := s.TransitionProspect(ctx, p.ID, model.StatusScanned, model.StatusScheduled)
		require.NoError(t, err)

		got, err := s.GetProspect(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusScheduled, got.Status)
	})

	t.Run("TransitionProspectIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := seedCampaign(t, s)
		p := seedProspect(t, s, c.ID, model.StatusScanned)

		require.NoError(t, s.TransitionProspect(ctx, p.ID, model.StatusScanned, model.StatusScheduled))
		// A second identical request observes the prospect already at
		// the target status and succeeds without changing anything.
		require.NoError(t, s.TransitionProspect(ctx, p.ID, model.StatusScanned, model.StatusScheduled))

		got, err := s.GetProspect(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusScheduled, got.Status)
	})

	t.Run("TransitionProspectIllegal", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := seedCampaign(t, s)
		p := seedProspect(t, s, c.ID, model.StatusScanned)

		err := s.TransitionProspect(ctx, p.ID, model.StatusScanned, model.StatusTested)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "illegal prospect status transition")

		got, err := s.GetProspect(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusScanned, got.Status)
	})

	t.Run("TransitionProspectStaleFrom", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := seedCampaign(t, s)
		p := seedProspect(t, s, c.ID, model.StatusTesting)

		err := s.TransitionProspect(ctx, p.ID, model.StatusScanned, model.StatusScheduled)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected SCANNED")
	})

	t.Run("UpdateProspectScore", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := seedCampaign(t, s)
		p := seedProspect(t, s, c.ID, model.StatusTested)

		err := s.UpdateProspectScore(ctx, p.ID, model.ProspectScore{
			Eligible:      true,
			Score:         8,
			Justification: "Modèles invisibles 3/3 ✓",
			Competitors:   []string{"dupont couverture", "toitures bernard"},
		})
		require.NoError(t, err)

		got, err := s.GetProspect(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.EligibilityFlag)
		require.NotNil(t, got.IAVisibilityScore)
		assert.InDelta(t, 8.0, *got.IAVisibilityScore, 0.001)
		assert.Contains(t, got.ScoreJustification, "Modèles invisibles")
		assert.Equal(t, []string{"dupont couverture", "toitures bernard"}, got.CompetitorsCited)
	})

	t.Run("UpdateProspectScoreNotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.UpdateProspectScore(ctx, "nonexistent-id", model.ProspectScore{Score: 5})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("CreateAndListTestRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := seedCampaign(t, s)
		p := seedProspect(t, s, c.ID, model.StatusTesting)

		run, err := s.CreateTestRun(ctx, model.TestRun{
			CampaignID: c.ID,
			ProspectID: p.ID,
			Provider:   "openai",
			Queries:    []string{"q1", "q2"},
			RawAnswers: []string{"a1", "a2"},
			ExtractedEntities: [][]model.Entity{
				{{Type: model.EntityCompany, Value: "Dupont Couverture"}},
				{},
			},
			MentionedTarget:     true,
			MentionPerQuery:     []bool{true, false},
			CompetitorsEntities: []string{"Dupont Couverture"},
			Notes:               "",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)

		runs, err := s.ListTestRuns(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "openai", runs[0].Provider)
		assert.Equal(t, []string{"q1", "q2"}, runs[0].Queries)
		assert.Equal(t, []bool{true, false}, runs[0].MentionPerQuery)
		assert.True(t, runs[0].MentionedTarget)
		require.Len(t, runs[0].ExtractedEntities, 2)
		assert.Equal(t, "Dupont Couverture", runs[0].ExtractedEntities[0][0].Value)
	})

	t.Run("CreateTestRunRejectsMismatchedArrays", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		c := seedCampaign(t, s)
		p := seedProspect(t, s, c.ID, model.StatusTesting)

		_, err := s.CreateTestRun(ctx, model.TestRun{
			CampaignID:        c.ID,
			ProspectID:        p.ID,
			Provider:          "openai",
			Queries:           []string{"q1", "q2"},
			RawAnswers:        []string{"a1"},
			ExtractedEntities: [][]model.Entity{{}, {}},
			MentionPerQuery:   []bool{false, false},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mismatched arrays")
	})
}
