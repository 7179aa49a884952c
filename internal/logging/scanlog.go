package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-scan
// LogScan writes one brief run to the scan_log table.
func LogScan(db *sql.DB, entry ScanEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	var overall interface{}
	if entry.Scored {
		overall = entry.OverallScore
	}

	_, err := db.Exec(
		`INSERT INTO scan_log (brief_id, trigger_type, outcome, score_source, country_code, overall_score, tier, reason, detail_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.BriefID),
		entry.TriggerType,
		entry.Outcome,
		entry.ScoreSource,
		nullIfEmpty(entry.CountryCode),
		overall,
		nullIfEmpty(entry.Tier),
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.DetailJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log scan: %w", err)
	}
	return nil
}

// #endregion log-scan

// #region scan-log
// ScanLog binds LogScan to a database handle.
type ScanLog struct {
	db *sql.DB
}

func NewScanLog(db *sql.DB) *ScanLog {
	return &ScanLog{db: db}
}

func (l *ScanLog) LogScan(entry ScanEntry) error {
	return LogScan(l.db, entry)
}

// Recent returns the newest scan entries first.
func (l *ScanLog) Recent(limit int) ([]ScanEntry, error) {
	rows, err := l.db.Query(
		`SELECT brief_id, trigger_type, outcome, score_source, country_code, overall_score, tier, reason, detail_json, created_at
		 FROM scan_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent scans: %w", err)
	}
	defer rows.Close()

	var out []ScanEntry
	for rows.Next() {
		var e ScanEntry
		var briefID, country, tier, reason, detail sql.NullString
		var overall sql.NullInt64
		var created string
		if err := rows.Scan(&briefID, &e.TriggerType, &e.Outcome, &e.ScoreSource, &country, &overall, &tier, &reason, &detail, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.BriefID, e.CountryCode, e.Tier, e.Reason, e.DetailJSON = briefID.String, country.String, tier.String, reason.String, detail.String
		e.Scored = overall.Valid
		e.OverallScore = int(overall.Int64)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion scan-log

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
