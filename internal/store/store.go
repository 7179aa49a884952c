package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS user_profile (
	id                 INTEGER PRIMARY KEY CHECK (id = 1),
	full_name          TEXT NOT NULL DEFAULT '',
	age                INTEGER NOT NULL DEFAULT 0,
	gender             TEXT NOT NULL DEFAULT '',
	ethnicity          TEXT NOT NULL DEFAULT '',
	nationality        TEXT NOT NULL DEFAULT '',
	current_country    TEXT NOT NULL,
	current_city       TEXT NOT NULL DEFAULT '',
	home_latitude      REAL NOT NULL DEFAULT 0,
	home_longitude     REAL NOT NULL DEFAULT 0,
	vehicle_type       TEXT NOT NULL DEFAULT '',
	vehicle_make       TEXT NOT NULL DEFAULT '',
	vehicle_model      TEXT NOT NULL DEFAULT '',
	immigration_status TEXT NOT NULL DEFAULT '',
	values_text        TEXT NOT NULL DEFAULT '',
	health_approach    TEXT NOT NULL DEFAULT '',
	skills             TEXT NOT NULL DEFAULT '',
	updated_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS country_profiles (
	country_code   TEXT PRIMARY KEY,
	country_name   TEXT NOT NULL,
	latitude       REAL NOT NULL DEFAULT 0,
	longitude      REAL NOT NULL DEFAULT 0,
	overall_score  INTEGER NOT NULL DEFAULT 0,
	physical       INTEGER NOT NULL DEFAULT 0,
	political      INTEGER NOT NULL DEFAULT 0,
	economic       INTEGER NOT NULL DEFAULT 0,
	digital        INTEGER NOT NULL DEFAULT 0,
	health         INTEGER NOT NULL DEFAULT 0,
	social         INTEGER NOT NULL DEFAULT 0,
	mobility       INTEGER NOT NULL DEFAULT 0,
	infrastructure INTEGER NOT NULL DEFAULT 0,
	genocide_stage INTEGER NOT NULL DEFAULT 0,
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS crime_hotspots (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	location_name      TEXT NOT NULL,
	latitude           REAL NOT NULL,
	longitude          REAL NOT NULL,
	radius_meters      INTEGER NOT NULL,
	crime_type         TEXT NOT NULL,
	severity           INTEGER NOT NULL,
	time_pattern       TEXT,
	precinct           TEXT,
	incident_count_90d INTEGER NOT NULL DEFAULT 0,
	country_code       TEXT NOT NULL,
	active             INTEGER NOT NULL DEFAULT 1,
	updated_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assessments (
	assessment_id  TEXT PRIMARY KEY,
	country_code   TEXT NOT NULL,
	brief_id       TEXT,
	overall_score  INTEGER NOT NULL,
	tier           TEXT NOT NULL,
	physical       INTEGER NOT NULL,
	political      INTEGER NOT NULL,
	economic       INTEGER NOT NULL,
	digital        INTEGER NOT NULL,
	health         INTEGER NOT NULL,
	social         INTEGER NOT NULL,
	mobility       INTEGER NOT NULL,
	infrastructure INTEGER NOT NULL,
	genocide_stage INTEGER NOT NULL,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_scores (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	assessment_id TEXT NOT NULL,
	country_code  TEXT NOT NULL,
	domain        TEXT NOT NULL,
	score         INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (assessment_id) REFERENCES assessments(assessment_id)
);

CREATE TABLE IF NOT EXISTS executive_briefs (
	brief_id     TEXT PRIMARY KEY,
	brief_type   TEXT NOT NULL,
	threat_level TEXT NOT NULL,
	content      TEXT NOT NULL,
	partial      INTEGER NOT NULL DEFAULT 0,
	trigger_type TEXT NOT NULL,
	watchlist    TEXT,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS watchlist (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	country_code   TEXT NOT NULL,
	country_name   TEXT NOT NULL,
	city           TEXT,
	state_province TEXT,
	reason         TEXT
);

CREATE TABLE IF NOT EXISTS personal_alerts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	description TEXT NOT NULL,
	active      INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	brief_id      TEXT,
	trigger_type  TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	score_source  TEXT NOT NULL,
	country_code  TEXT,
	overall_score INTEGER,
	tier          TEXT,
	reason        TEXT,
	detail_json   TEXT,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_hotspots_country ON crime_hotspots(country_code, active);
CREATE INDEX IF NOT EXISTS idx_daily_scores_country ON daily_scores(country_code, created_at);
`

// #endregion schema

// #region store-struct
// Store persists everything the sentinel knows in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for the scan log writer.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
