package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/visibility-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id            TEXT PRIMARY KEY,
	profession    TEXT NOT NULL,
	city          TEXT NOT NULL,
	max_prospects INTEGER NOT NULL DEFAULT 0,
	mode          TEXT NOT NULL DEFAULT 'DRY_RUN',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS prospects (
	id                  TEXT PRIMARY KEY,
	campaign_id         TEXT NOT NULL REFERENCES campaigns(id),
	name                TEXT NOT NULL,
	city                TEXT NOT NULL,
	profession          TEXT NOT NULL,
	website             TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	reviews_count       INTEGER NOT NULL DEFAULT 0,
	ads_active          INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'SCANNED',
	eligibility_flag    INTEGER NOT NULL DEFAULT 0,
	ia_visibility_score REAL,
	score_justification TEXT NOT NULL DEFAULT '',
	competitors_cited   TEXT NOT NULL DEFAULT '[]',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (campaign_id, name, city)
);

CREATE TABLE IF NOT EXISTS test_runs (
	id                   TEXT PRIMARY KEY,
	campaign_id          TEXT NOT NULL REFERENCES campaigns(id),
	prospect_id          TEXT NOT NULL REFERENCES prospects(id),
	provider             TEXT NOT NULL,
	queries              TEXT NOT NULL,
	raw_answers          TEXT NOT NULL,
	extracted_entities   TEXT NOT NULL,
	mentioned_target     INTEGER NOT NULL DEFAULT 0,
	mention_per_query    TEXT NOT NULL,
	competitors_entities TEXT NOT NULL DEFAULT '[]',
	notes                TEXT NOT NULL DEFAULT '',
	created_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_prospects_campaign_id ON prospects(campaign_id);
CREATE INDEX IF NOT EXISTS idx_prospects_status ON prospects(status);
CREATE INDEX IF NOT EXISTS idx_test_runs_prospect_id ON test_runs(prospect_id);
CREATE INDEX IF NOT EXISTS idx_test_runs_campaign_id ON test_runs(campaign_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, campaign model.Campaign) (*model.Campaign, error) {
	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
	}
	if campaign.Mode == "" {
		campaign.Mode = model.ModeDryRun
	}
	campaign.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns (id, profession, city, max_prospects, mode, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		campaign.ID, campaign.Profession, campaign.City, campaign.MaxProspects, string(campaign.Mode), campaign.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert campaign")
	}
	return &campaign, nil
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	err := s.db.QueryRowContext(ctx,
		`SELECT id, profession, city, max_prospects, mode, created_at FROM campaigns WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Profession, &c.City, &c.MaxProspects, &c.Mode, &c.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get campaign %s", id)
	}
	return &c, nil
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, profession, city, max_prospects, mode, created_at FROM campaigns ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(&c.ID, &c.Profession, &c.City, &c.MaxProspects, &c.Mode, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan campaign")
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, eris.Wrap(rows.Err(), "sqlite: list campaigns iterate")
}

func (s *SQLiteStore) CreateProspect(ctx context.Context, prospect model.Prospect) (*model.Prospect, error) {
	applyProspectDefaults(&prospect)

	competitorsJSON, err := marshalStrings(prospect.CompetitorsCited)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal competitors")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prospects (id, campaign_id, name, city, profession, website, phone, reviews_count, ads_active, status, eligibility_flag, score_justification, competitors_cited, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		prospect.ID, prospect.CampaignID, prospect.Name, prospect.City, prospect.Profession,
		prospect.Website, prospect.Phone, prospect.ReviewsCount, prospect.AdsActive,
		string(prospect.Status), prospect.EligibilityFlag, prospect.ScoreJustification,
		string(competitorsJSON), prospect.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert prospect")
	}
	return &prospect, nil
}

func (s *SQLiteStore) CreateProspects(ctx context.Context, prospects []model.Prospect) (int64, error) {
	if len(prospects) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO prospects (id, campaign_id, name, city, profession, website, phone, reviews_count, ads_active, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (campaign_id, name, city) DO UPDATE SET
		   website = excluded.website, phone = excluded.phone,
		   reviews_count = excluded.reviews_count, ads_active = excluded.ads_active`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare prospect insert")
	}
	defer stmt.Close()

	var n int64
	for i := range prospects {
		applyProspectDefaults(&prospects[i])
		p := prospects[i]
		res, err := stmt.ExecContext(ctx,
			p.ID, p.CampaignID, p.Name, p.City, p.Profession,
			p.Website, p.Phone, p.ReviewsCount, p.AdsActive, string(p.Status), p.CreatedAt,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert prospect %s", p.Name)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit prospects")
	}
	return n, nil
}

func (s *SQLiteStore) GetProspect(ctx context.Context, id string) (*model.Prospect, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, campaign_id, name, city, profession, website, phone, reviews_count, ads_active, status, eligibility_flag, ia_visibility_score, score_justification, competitors_cited, created_at FROM prospects WHERE id = ?`,
		id,
	)
	p, err := scanProspect(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get prospect %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListProspects(ctx context.Context, filter ProspectFilter) ([]model.Prospect, error) {
	query := `SELECT id, campaign_id, name, city, profession, website, phone, reviews_count, ads_active, status, eligibility_flag, ia_visibility_score, score_justification, competitors_cited, created_at FROM prospects WHERE 1=1`
	var args []any

	if filter.CampaignID != "" {
		query += ` AND campaign_id = ?`
		args = append(args, filter.CampaignID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list prospects")
	}
	defer rows.Close()

	var prospects []model.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prospect")
		}
		prospects = append(prospects, *p)
	}
	return prospects, eris.Wrap(rows.Err(), "sqlite: list prospects iterate")
}

func (s *SQLiteStore) TransitionProspect(ctx context.Context, id string, from, to model.ProspectStatus) error {
	if !model.CanTransition(from, to) {
		return eris.Wrapf(model.ErrIllegalTransition, "sqlite: %s -> %s", from, to)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE prospects SET status = ? WHERE id = ? AND status = ?`,
		string(to), id, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: transition prospect %s", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if affected > 0 {
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
	return eris.Errorf("sqlite: prospect %s is %s, expected %s", id, p.Status, from)
}

func (s *SQLiteStore) UpdateProspectScore(ctx context.Context, id string, score model.ProspectScore) error {
	competitorsJSON, err := marshalStrings(score.Competitors)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal competitors")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE prospects SET eligibility_flag = ?, ia_visibility_score = ?, score_justification = ?, competitors_cited = ? WHERE id = ?`,
		score.Eligible, score.Score, score.Justification, string(competitorsJSON), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update prospect score %s", id)
	}
	return checkRowsAffected(res, "prospect", id)
}

func (s *SQLiteStore) CreateTestRun(ctx context.Context, run model.TestRun) (*model.TestRun, error) {
	if err := run.Validate(); err != nil {
		return nil, err
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.CreatedAt = time.Now().UTC()

	queriesJSON, err := json.Marshal(run.Queries)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal queries")
	}
	answersJSON, err := json.Marshal(run.RawAnswers)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal answers")
	}
	entitiesJSON, err := json.Marshal(run.ExtractedEntities)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal entities")
	}
	mentionsJSON, err := json.Marshal(run.MentionPerQuery)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal mentions")
	}
	competitorsJSON, err := marshalStrings(run.CompetitorsEntities)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal competitors")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO test_runs (id, campaign_id, prospect_id, provider, queries, raw_answers, extracted_entities, mentioned_target, mention_per_query, competitors_entities, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CampaignID, run.ProspectID, run.Provider,
		string(queriesJSON), string(answersJSON), string(entitiesJSON), run.MentionedTarget,
		string(mentionsJSON), string(competitorsJSON), run.Notes, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert test run")
	}
	return &run, nil
}

func (s *SQLiteStore) ListTestRuns(ctx context.Context, prospectID string) ([]model.TestRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, campaign_id, prospect_id, provider, queries, raw_answers, extracted_entities, mentioned_target, mention_per_query, competitors_entities, notes, created_at FROM test_runs WHERE prospect_id = ? ORDER BY created_at ASC`,
		prospectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list test runs")
	}
	defer rows.Close()

	var runs []model.TestRun
	for rows.Next() {
		var r model.TestRun
		var queriesJSON, answersJSON, entitiesJSON, mentionsJSON, competitorsJSON []byte

		if err := rows.Scan(&r.ID, &r.CampaignID, &r.ProspectID, &r.Provider,
			&queriesJSON, &answersJSON, &entitiesJSON, &r.MentionedTarget,
			&mentionsJSON, &competitorsJSON, &r.Notes, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan test run")
		}
		if err := unmarshalTestRun(&r, queriesJSON, answersJSON, entitiesJSON, mentionsJSON, competitorsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal test run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list test runs iterate")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if affected == 0 {
		return eris.Errorf("%s not found: %s", kind, id)
	}
	return nil
}
