package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/model"
)

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx))
}

func TestSQLite_GetProspectNotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetProspect(context.Background(), "nonexistent-id")
	require.Error(t, err)
}

func TestSQLite_TestRunsOrderedByCreation(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	c := seedCampaign(t, s)
	p := seedProspect(t, s, c.ID, model.StatusTesting)

	for _, provider := range []string{"openai", "anthropic", "gemini"} {
		_, err := s.CreateTestRun(ctx, model.TestRun{
			CampaignID:        c.ID,
			ProspectID:        p.ID,
			Provider:          provider,
			Queries:           []string{"q"},
			RawAnswers:        []string{"a"},
			ExtractedEntities: [][]model.Entity{{}},
			MentionPerQuery:   []bool{false},
		})
		require.NoError(t, err)
	}

	runs, err := s.ListTestRuns(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "openai", runs[0].Provider)
	assert.Equal(t, "anthropic", runs[1].Provider)
	assert.Equal(t, "gemini", runs[2].Provider)
}
