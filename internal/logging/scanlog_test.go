package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE scan_log (
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
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-scan-tests
func TestLogScan_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := ScanEntry{
		BriefID:      "b1",
		TriggerType:  "scheduled",
		Outcome:      OutcomeComplete,
		ScoreSource:  SourceStream,
		CountryCode:  "ZA",
		Scored:       true,
		OverallScore: 81,
		Tier:         "RED",
		DetailJSON:   `{"tool_invocations":3}`,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogScan(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var outcome, tier string
	var overall int
	db.QueryRow("SELECT outcome, tier, overall_score FROM scan_log").Scan(&outcome, &tier, &overall)
	if outcome != OutcomeComplete || tier != "RED" || overall != 81 {
		t.Errorf("unexpected row: %s %s %d", outcome, tier, overall)
	}
}

func TestLogScan_UnscoredLeavesNulls(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	err := LogScan(db, ScanEntry{TriggerType: "manual", Outcome: OutcomeFailed, ScoreSource: SourceNone, Reason: "not configured"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var overall sql.NullInt64
	var briefID, tier sql.NullString
	var createdAtStr string
	db.QueryRow("SELECT brief_id, overall_score, tier, created_at FROM scan_log").Scan(&briefID, &overall, &tier, &createdAtStr)
	if overall.Valid {
		t.Error("expected NULL overall_score when unscored")
	}
	if briefID.Valid || tier.Valid {
		t.Error("expected NULL brief_id and tier for empty strings")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogScan_Error(t *testing.T) {
	db := setupDB(t)
	db.Close()

	if err := LogScan(db, ScanEntry{TriggerType: "manual", Outcome: OutcomeFailed, ScoreSource: SourceNone}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

func TestScanLog_Recent(t *testing.T) {
	db := setupDB(t)
	defer db.Close()
	l := NewScanLog(db)

	for i, outcome := range []string{OutcomeComplete, OutcomePartial} {
		if err := l.LogScan(ScanEntry{BriefID: "b", TriggerType: "manual", Outcome: outcome, ScoreSource: SourceStream, Scored: i == 0, OverallScore: 40}); err != nil {
			t.Fatalf("LogScan: %v", err)
		}
	}

	got, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Outcome != OutcomePartial || got[0].Scored {
		t.Errorf("expected newest partial unscored entry first, got %+v", got[0])
	}
	if !got[1].Scored || got[1].OverallScore != 40 {
		t.Errorf("unexpected older entry: %+v", got[1])
	}
}

// #endregion log-scan-tests

// #region null-if-empty-tests
func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("expected nil for empty string")
	}
	if nullIfEmpty("hello") != "hello" {
		t.Error("expected passthrough for non-empty string")
	}
}

// #endregion null-if-empty-tests
