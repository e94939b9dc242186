package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/internal/db"
	"github.com/sells-group/visibility-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_campaign":     `INSERT INTO campaigns (id, profession, city, max_prospects, mode, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_campaign":        `SELECT id, profession, city, max_prospects, mode, created_at FROM campaigns WHERE id = $1`,
	"get_prospect":        `SELECT id, campaign_id, name, city, profession, website, phone, reviews_count, ads_active, status, eligibility_flag, ia_visibility_score, score_justification, competitors_cited, created_at FROM prospects WHERE id = $1`,
	"transition_prospect": `UPDATE prospects SET status = $1 WHERE id = $2 AND status = $3`,
	"insert_test_run":     `INSERT INTO test_runs (id, campaign_id, prospect_id, provider, queries, raw_answers, extracted_entities, mentioned_target, mention_per_query, competitors_entities, notes, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
	"list_test_runs":      `SELECT id, campaign_id, prospect_id, provider, queries, raw_answers, extracted_entities, mentioned_target, mention_per_query, competitors_entities, notes, created_at FROM test_runs WHERE prospect_id = $1 ORDER BY created_at ASC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for use by subsystems
// that need direct query access (e.g., bulk prospect import).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	profession    TEXT NOT NULL,
	city          TEXT NOT NULL,
	max_prospects INTEGER NOT NULL DEFAULT 0,
	mode          TEXT NOT NULL DEFAULT 'DRY_RUN',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS prospects (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	campaign_id         TEXT NOT NULL REFERENCES campaigns(id),
	name                TEXT NOT NULL,
	city                TEXT NOT NULL,
	profession          TEXT NOT NULL,
	website             TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	reviews_count       INTEGER NOT NULL DEFAULT 0,
	ads_active          BOOLEAN NOT NULL DEFAULT false,
	status              TEXT NOT NULL DEFAULT 'SCANNED',
	eligibility_flag    BOOLEAN NOT NULL DEFAULT false,
	ia_visibility_score DOUBLE PRECISION,
	score_justification TEXT NOT NULL DEFAULT '',
	competitors_cited   JSONB NOT NULL DEFAULT '[]',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (campaign_id, name, city)
);

CREATE TABLE IF NOT EXISTS test_runs (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	campaign_id          TEXT NOT NULL REFERENCES campaigns(id),
	prospect_id          TEXT NOT NULL REFERENCES prospects(id),
	provider             TEXT NOT NULL,
	queries              JSONB NOT NULL,
	raw_answers          JSONB NOT NULL,
	extracted_entities   JSONB NOT NULL,
	mentioned_target     BOOLEAN NOT NULL DEFAULT false,
	mention_per_query    JSONB NOT NULL,
	competitors_entities JSONB NOT NULL DEFAULT '[]',
	notes                TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_prospects_campaign_id ON prospects(campaign_id);
CREATE INDEX IF NOT EXISTS idx_prospects_status ON prospects(status);
CREATE INDEX IF NOT EXISTS idx_prospects_campaign_status ON prospects(campaign_id, status);
CREATE INDEX IF NOT EXISTS idx_test_runs_prospect_id ON test_runs(prospect_id);
CREATE INDEX IF NOT EXISTS idx_test_runs_campaign_id ON test_runs(campaign_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, campaign model.Campaign) (*model.Campaign, error) {
	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
	}
	if campaign.Mode == "" {
		campaign.Mode = model.ModeDryRun
	}
	campaign.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO campaigns (id, profession, city, max_prospects, mode, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		campaign.ID, campaign.Profession, campaign.City, campaign.MaxProspects, string(campaign.Mode), campaign.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert campaign")
	}
	return &campaign, nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	err := s.pool.QueryRow(ctx,
		`SELECT id, profession, city, max_prospects, mode, created_at FROM campaigns WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Profession, &c.City, &c.MaxProspects, &c.Mode, &c.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get campaign %s", id)
	}
	return &c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, profession, city, max_prospects, mode, created_at FROM campaigns ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(&c.ID, &c.Profession, &c.City, &c.MaxProspects, &c.Mode, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan campaign")
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, eris.Wrap(rows.Err(), "postgres: list campaigns iterate")
}

func (s *PostgresStore) CreateProspect(ctx context.Context, prospect model.Prospect) (*model.Prospect, error) {
	applyProspectDefaults(&prospect)

	competitorsJSON, err := marshalStrings(prospect.CompetitorsCited)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal competitors")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO prospects (id, campaign_id, name, city, profession, website, phone, reviews_count, ads_active, status, eligibility_flag, score_justification, competitors_cited, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		prospect.ID, prospect.CampaignID, prospect.Name, prospect.City, prospect.Profession,
		prospect.Website, prospect.Phone, prospect.ReviewsCount, prospect.AdsActive,
		string(prospect.Status), prospect.EligibilityFlag, prospect.ScoreJustification,
		competitorsJSON, prospect.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert prospect")
	}
	return &prospect, nil
}

// prospectImportColumns is the column set used for bulk prospect import.
var prospectImportColumns = []string{
	"id", "campaign_id", "name", "city", "profession",
	"website", "phone", "reviews_count", "ads_active", "status", "created_at",
}

func (s *PostgresStore) CreateProspects(ctx context.Context, prospects []model.Prospect) (int64, error) {
	if len(prospects) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(prospects))
	for i := range prospects {
		applyProspectDefaults(&prospects[i])
		p := prospects[i]
		rows = append(rows, []any{
			p.ID, p.CampaignID, p.Name, p.City, p.Profession,
			p.Website, p.Phone, p.ReviewsCount, p.AdsActive, string(p.Status), p.CreatedAt,
		})
	}

	// Re-importing the same scan must not duplicate prospects or reset
	// their pipeline status, only refresh the scanned attributes.
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "prospects",
		Columns:      prospectImportColumns,
		ConflictKeys: []string{"campaign_id", "name", "city"},
		UpdateCols:   []string{"website", "phone", "reviews_count", "ads_active"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bulk insert prospects")
	}
	return n, nil
}

func (s *PostgresStore) GetProspect(ctx context.Context, id string) (*model.Prospect, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, campaign_id, name, city, profession, website, phone, reviews_count, ads_active, status, eligibility_flag, ia_visibility_score, score_justification, competitors_cited, created_at FROM prospects WHERE id = $1`,
		id,
	)
	p, err := scanProspect(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get prospect %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListProspects(ctx context.Context, filter ProspectFilter) ([]model.Prospect, error) {
	query := `SELECT id, campaign_id, name, city, profession, website, phone, reviews_count, ads_active, status, eligibility_flag, ia_visibility_score, score_justification, competitors_cited, created_at FROM prospects WHERE true`
	args := []any{}
	argIdx := 1

	if filter.CampaignID != "" {
		query += fmt.Sprintf(` AND campaign_id = $%d`, argIdx)
		args = append(args, filter.CampaignID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list prospects")
	}
	defer rows.Close()

	var prospects []model.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan prospect")
		}
		prospects = append(prospects, *p)
	}
	return prospects, eris.Wrap(rows.Err(), "postgres: list prospects iterate")
}

func (s *PostgresStore) TransitionProspect(ctx context.Context, id string, from, to model.ProspectStatus) error {
	if !model.CanTransition(from, to) {
		return eris.Wrapf(model.ErrIllegalTransition, "postgres: %s -> %s", from, to)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE prospects SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), id, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: transition prospect %s", id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// CAS missed. Either the prospect does not exist or a concurrent
	// batch already moved it. Already at the target counts as applied.
	p, err := s.GetProspect(ctx, id)
	if err != nil {
		return err
	}
	if p.Status == to {
		return nil
	}
	return eris.Errorf("postgres: prospect %s is %s, expected %s", id, p.Status, from)
}

func (s *PostgresStore) UpdateProspectScore(ctx context.Context, id string, score model.ProspectScore) error {
	competitorsJSON, err := marshalStrings(score.Competitors)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal competitors")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE prospects SET eligibility_flag = $1, ia_visibility_score = $2, score_justification = $3, competitors_cited = $4 WHERE id = $5`,
		score.Eligible, score.Score, score.Justification, competitorsJSON, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update prospect score %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("prospect not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) CreateTestRun(ctx context.Context, run model.TestRun) (*model.TestRun, error) {
	if err := run.Validate(); err != nil {
		return nil, err
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.CreatedAt = time.Now().UTC()

	queriesJSON, err := json.Marshal(run.Queries)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal queries")
	}
	answersJSON, err := json.Marshal(run.RawAnswers)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal answers")
	}
	entitiesJSON, err := json.Marshal(run.ExtractedEntities)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal entities")
	}
	mentionsJSON, err := json.Marshal(run.MentionPerQuery)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal mentions")
	}
	competitorsJSON, err := marshalStrings(run.CompetitorsEntities)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal competitors")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO test_runs (id, campaign_id, prospect_id, provider, queries, raw_answers, extracted_entities, mentioned_target, mention_per_query, competitors_entities, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.CampaignID, run.ProspectID, run.Provider,
		queriesJSON, answersJSON, entitiesJSON, run.MentionedTarget,
		mentionsJSON, competitorsJSON, run.Notes, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert test run")
	}
	return &run, nil
}

func (s *PostgresStore) ListTestRuns(ctx context.Context, prospectID string) ([]model.TestRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, campaign_id, prospect_id, provider, queries, raw_answers, extracted_entities, mentioned_target, mention_per_query, competitors_entities, notes, created_at FROM test_runs WHERE prospect_id = $1 ORDER BY created_at ASC`,
		prospectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list test runs")
	}
	defer rows.Close()

	var runs []model.TestRun
	for rows.Next() {
		var r model.TestRun
		var queriesJSON, answersJSON, entitiesJSON, mentionsJSON, competitorsJSON []byte

		if err := rows.Scan(&r.ID, &r.CampaignID, &r.ProspectID, &r.Provider,
			&queriesJSON, &answersJSON, &entitiesJSON, &r.MentionedTarget,
			&mentionsJSON, &competitorsJSON, &r.Notes, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan test run")
		}
		if err := unmarshalTestRun(&r, queriesJSON, answersJSON, entitiesJSON, mentionsJSON, competitorsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal test run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list test runs iterate")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProspect(row rowScanner) (*model.Prospect, error) {
	var p model.Prospect
	var competitorsJSON []byte

	err := row.Scan(&p.ID, &p.CampaignID, &p.Name, &p.City, &p.Profession,
		&p.Website, &p.Phone, &p.ReviewsCount, &p.AdsActive, &p.Status,
		&p.EligibilityFlag, &p.IAVisibilityScore, &p.ScoreJustification,
		&competitorsJSON, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(competitorsJSON, &p.CompetitorsCited); err != nil {
		return nil, eris.Wrap(err, "unmarshal competitors")
	}
	return &p, nil
}

func unmarshalTestRun(r *model.TestRun, queriesJSON, answersJSON, entitiesJSON, mentionsJSON, competitorsJSON []byte) error {
	if err := json.Unmarshal(queriesJSON, &r.Queries); err != nil {
		return eris.Wrap(err, "queries")
	}
	if err := json.Unmarshal(answersJSON, &r.RawAnswers); err != nil {
		return eris.Wrap(err, "answers")
	}
	if err := json.Unmarshal(entitiesJSON, &r.ExtractedEntities); err != nil {
		return eris.Wrap(err, "entities")
	}
	if err := json.Unmarshal(mentionsJSON, &r.MentionPerQuery); err != nil {
		return eris.Wrap(err, "mentions")
	}
	if err := json.Unmarshal(competitorsJSON, &r.CompetitorsEntities); err != nil {
		return eris.Wrap(err, "competitors")
	}
	return nil
}

func applyProspectDefaults(p *model.Prospect) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = model.StatusScanned
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
}

// marshalStrings marshals a string slice, mapping nil to the empty JSON
// array so NOT NULL json columns stay well formed.
func marshalStrings(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}
