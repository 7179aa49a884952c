package store

import (
	"database/sql"
	"fmt"
	"time"
)

// #region hotspots
const hotspotColumns = `id, location_name, latitude, longitude, radius_meters, crime_type, severity,
	time_pattern, precinct, incident_count_90d, country_code, active, updated_at`

// GetActiveIncidents returns active hotspots. An empty country returns all.
func (s *Store) GetActiveIncidents(country string) ([]Hotspot, error) {
	q := `SELECT ` + hotspotColumns + ` FROM crime_hotspots WHERE active = 1`
	var args []any
	if country != "" {
		q += ` AND country_code = ?`
		args = append(args, country)
	}
	q += ` ORDER BY severity DESC, id`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list hotspots: %w", err)
	}
	defer rows.Close()

	var out []Hotspot
	for rows.Next() {
		var h Hotspot
		var pattern, precinct sql.NullString
		var active int
		var updated string
		if err := rows.Scan(&h.ID, &h.Name, &h.Latitude, &h.Longitude, &h.RadiusMeters, &h.CrimeType, &h.Severity,
			&pattern, &precinct, &h.IncidentCount90d, &h.CountryCode, &active, &updated); err != nil {
			return nil, fmt.Errorf("scan hotspot: %w", err)
		}
		h.TimePattern, h.Precinct = pattern.String, precinct.String
		h.Active = active == 1
		h.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, h)
	}
	return out, rows.Err()
}

// AddHotspot inserts a hotspot and returns its id.
func (s *Store) AddHotspot(h Hotspot) (int64, error) {
	return insertHotspot(s.db, h)
}

func insertHotspot(db execer, h Hotspot) (int64, error) {
	if h.UpdatedAt.IsZero() {
		h.UpdatedAt = time.Now().UTC()
	}
	res, err := db.Exec(
		`INSERT INTO crime_hotspots (location_name, latitude, longitude, radius_meters, crime_type, severity,
		        time_pattern, precinct, incident_count_90d, country_code, active, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Name, h.Latitude, h.Longitude, h.RadiusMeters, h.CrimeType, h.Severity,
		nullIfEmpty(h.TimePattern), nullIfEmpty(h.Precinct), h.IncidentCount90d, h.CountryCode,
		boolInt(h.Active), h.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert hotspot: %w", err)
	}
	return res.LastInsertId()
}

// SetHotspotActive toggles whether a hotspot feeds the risk model.
func (s *Store) SetHotspotActive(id int64, active bool) error {
	res, err := s.db.Exec(`UPDATE crime_hotspots SET active = ?, updated_at = ? WHERE id = ?`,
		boolInt(active), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("update hotspot %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update hotspot %d: %w", id, ErrNotFound)
	}
	return nil
}

// #endregion hotspots
