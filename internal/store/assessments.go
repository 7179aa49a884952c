package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// #region save-assessment
// SaveAssessment records an aggregation run, its per-domain history rows, and
// the country's new current scores in one transaction.
func (s *Store) SaveAssessment(rec AssessmentRecord) (AssessmentRecord, error) {
	if rec.CountryCode == "" {
		return AssessmentRecord{}, fmt.Errorf("save assessment: country code is required")
	}
	if rec.AssessmentID == "" {
		rec.AssessmentID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Scores = rec.Scores.Clamped()
	ts := rec.CreatedAt.Format(time.RFC3339Nano)
	sc := rec.Scores

	tx, err := s.db.Begin()
	if err != nil {
		return AssessmentRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO assessments (assessment_id, country_code, brief_id, overall_score, tier,
		        physical, political, economic, digital, health, social, mobility, infrastructure,
		        genocide_stage, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AssessmentID, rec.CountryCode, nullIfEmpty(rec.BriefID), rec.OverallScore, rec.Tier,
		sc.Physical, sc.Political, sc.Economic, sc.Digital, sc.Health, sc.Social, sc.Mobility,
		sc.Infrastructure, sc.GenocideStage, ts,
	)
	if err != nil {
		return AssessmentRecord{}, fmt.Errorf("insert assessment: %w", err)
	}

	keys := append(append([]threat.Domain(nil), threat.Domains...), threat.KeyGenocideStage)
	for _, d := range keys {
		_, err = tx.Exec(
			`INSERT INTO daily_scores (assessment_id, country_code, domain, score, created_at) VALUES (?, ?, ?, ?, ?)`,
			rec.AssessmentID, rec.CountryCode, string(d), sc.Get(d), ts,
		)
		if err != nil {
			return AssessmentRecord{}, fmt.Errorf("insert daily score %s: %w", d, err)
		}
	}

	if err := upsertCountry(tx, CountryProfile{
		Code:         rec.CountryCode,
		OverallScore: rec.OverallScore,
		Scores:       sc,
		UpdatedAt:    rec.CreatedAt,
	}); err != nil {
		return AssessmentRecord{}, err
	}

	if err := tx.Commit(); err != nil {
		return AssessmentRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion save-assessment

// #region list-assessments
// ListAssessments returns the most recent assessments, newest first. An empty
// country returns all countries.
func (s *Store) ListAssessments(country string, limit int) ([]AssessmentRecord, error) {
	q := `SELECT assessment_id, country_code, brief_id, overall_score, tier,
	             physical, political, economic, digital, health, social, mobility, infrastructure,
	             genocide_stage, created_at
	      FROM assessments`
	var args []any
	if country != "" {
		q += ` WHERE country_code = ?`
		args = append(args, country)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var out []AssessmentRecord
	for rows.Next() {
		var r AssessmentRecord
		var briefID sql.NullString
		var created string
		sc := &r.Scores
		if err := rows.Scan(&r.AssessmentID, &r.CountryCode, &briefID, &r.OverallScore, &r.Tier,
			&sc.Physical, &sc.Political, &sc.Economic, &sc.Digital, &sc.Health, &sc.Social,
			&sc.Mobility, &sc.Infrastructure, &sc.GenocideStage, &created); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		r.BriefID = briefID.String
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DailyScores returns per-domain history rows for a country, newest first.
func (s *Store) DailyScores(country string, limit int) ([]DailyScore, error) {
	rows, err := s.db.Query(
		`SELECT assessment_id, country_code, domain, score, created_at
		 FROM daily_scores WHERE country_code = ? ORDER BY created_at DESC, id LIMIT ?`,
		country, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("daily scores: %w", err)
	}
	defer rows.Close()

	var out []DailyScore
	for rows.Next() {
		var d DailyScore
		var created string
		if err := rows.Scan(&d.AssessmentID, &d.CountryCode, &d.Domain, &d.Score, &created); err != nil {
			return nil, fmt.Errorf("scan daily score: %w", err)
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, d)
	}
	return out, rows.Err()
}

// #endregion list-assessments
