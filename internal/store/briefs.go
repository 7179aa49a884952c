package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #region briefs
const briefColumns = `brief_id, brief_type, threat_level, content, partial, trigger_type, watchlist, created_at`

// SaveBrief stores a brief and returns it with id and timestamp filled in.
func (s *Store) SaveBrief(b Brief) (Brief, error) {
	if b.BriefID == "" {
		b.BriefID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO executive_briefs (`+briefColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BriefID, b.BriefType, b.ThreatLevel, b.Content, boolInt(b.Partial), b.TriggerType,
		nullIfEmpty(b.Watchlist), b.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Brief{}, fmt.Errorf("save brief: %w", err)
	}
	return b, nil
}

func scanBrief(row interface{ Scan(...any) error }) (Brief, error) {
	var b Brief
	var partial int
	var watchlist sql.NullString
	var created string
	if err := row.Scan(&b.BriefID, &b.BriefType, &b.ThreatLevel, &b.Content, &partial, &b.TriggerType, &watchlist, &created); err != nil {
		return Brief{}, err
	}
	b.Partial = partial == 1
	b.Watchlist = watchlist.String
	b.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return b, nil
}

// LatestBrief returns the newest brief of the given type; empty matches any.
func (s *Store) LatestBrief(briefType string) (Brief, error) {
	q := `SELECT ` + briefColumns + ` FROM executive_briefs`
	var args []any
	if briefType != "" {
		q += ` WHERE brief_type = ?`
		args = append(args, briefType)
	}
	q += ` ORDER BY created_at DESC LIMIT 1`

	b, err := scanBrief(s.db.QueryRow(q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Brief{}, fmt.Errorf("latest brief: %w", ErrNotFound)
	}
	if err != nil {
		return Brief{}, fmt.Errorf("latest brief: %w", err)
	}
	return b, nil
}

// GetBrief returns one brief by id.
func (s *Store) GetBrief(id string) (Brief, error) {
	b, err := scanBrief(s.db.QueryRow(`SELECT `+briefColumns+` FROM executive_briefs WHERE brief_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Brief{}, fmt.Errorf("get brief %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Brief{}, fmt.Errorf("get brief %s: %w", id, err)
	}
	return b, nil
}

// ListBriefs returns the newest briefs first.
func (s *Store) ListBriefs(limit int) ([]Brief, error) {
	rows, err := s.db.Query(`SELECT `+briefColumns+` FROM executive_briefs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list briefs: %w", err)
	}
	defer rows.Close()

	var out []Brief
	for rows.Next() {
		b, err := scanBrief(rows)
		if err != nil {
			return nil, fmt.Errorf("scan brief: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// #endregion briefs
