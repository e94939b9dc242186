package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/internal/provider"
	"github.com/sells-group/visibility-cli/internal/queries"
	"github.com/sells-group/visibility-cli/internal/runner"
	"github.com/sells-group/visibility-cli/internal/scoring"
	"github.com/sells-group/visibility-cli/internal/store"
)

// appEnv holds the initialized store, provider registry, and engines
// needed by the campaign/test/score/serve commands.
type appEnv struct {
	Store    store.Store
	Registry *provider.Registry
	Queries  *queries.Registry
	Runner   *runner.Runner
	Scoring  *scoring.Engine
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp sets up the store, runs migrations, and builds the runner and
// scoring engine. Callers should defer env.Close().
func initApp(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	qr, err := queries.Load()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	registry := provider.FromConfig(cfg)

	return &appEnv{
		Store:    st,
		Registry: registry,
		Queries:  qr,
		Runner:   runner.New(st, registry, qr, cfg.Batch.ProviderRPS, cfg.Batch.MaxConcurrentProspects),
		Scoring:  scoring.NewEngine(st, cfg.Scoring),
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "visibility.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
