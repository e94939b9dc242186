package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/provider"
	"github.com/sells-group/visibility-cli/internal/queries"
	"github.com/sells-group/visibility-cli/internal/runner"
	"github.com/sells-group/visibility-cli/internal/scoring"
	"github.com/sells-group/visibility-cli/internal/store"
)

func newTestEnv(t *testing.T) *appEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	qr, err := queries.Load()
	require.NoError(t, err)

	registry := provider.NewRegistry()
	scoringCfg := config.ScoringConfig{
		MinInvisibleProviders: 2,
		MinInvisibleQueries:   4,
		MinCompetitorRuns:     2,
		ReviewsThreshold:      20,
	}

	return &appEnv{
		Store:    st,
		Registry: registry,
		Queries:  qr,
		Runner:   runner.New(st, registry, qr, 1000, 2),
		Scoring:  scoring.NewEngine(st, scoringCfg),
	}
}

func TestRouter_Health(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_ProspectScoreNotFound(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/prospects/nonexistent/score")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_TestBatchDryRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.Store.CreateCampaign(ctx, model.Campaign{
		Profession: "couvreur",
		City:       "Annecy",
		Mode:       model.ModeDryRun,
	})
	require.NoError(t, err)
	_, err = env.Store.CreateProspect(ctx, model.Prospect{
		CampaignID: c.ID,
		Name:       "Toiture Martin",
		City:       "Annecy",
		Profession: "couvreur",
		Status:     model.StatusScheduled,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/campaigns/"+c.ID+"/test", "application/json",
		strings.NewReader(`{"dry_run": true}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_TestBatchNoProviders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.Store.CreateCampaign(ctx, model.Campaign{
		Profession: "couvreur",
		City:       "Annecy",
		Mode:       model.ModeAutoTest,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/campaigns/"+c.ID+"/test", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRouter_ScoreBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.Store.CreateCampaign(ctx, model.Campaign{Profession: "couvreur", City: "Annecy"})
	require.NoError(t, err)

	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/campaigns/"+c.ID+"/score", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
