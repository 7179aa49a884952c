package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// #region subject
// GetActiveSubject returns the subject profile, or ErrNotFound if none is set.
func (s *Store) GetActiveSubject() (SubjectProfile, error) {
	var p SubjectProfile
	var updated string
	err := s.db.QueryRow(
		`SELECT full_name, age, gender, ethnicity, nationality, current_country, current_city,
		        home_latitude, home_longitude, vehicle_type, vehicle_make, vehicle_model,
		        immigration_status, values_text, health_approach, skills, updated_at
		 FROM user_profile WHERE id = 1`,
	).Scan(&p.FullName, &p.Age, &p.Gender, &p.Ethnicity, &p.Nationality, &p.CurrentCountry, &p.CurrentCity,
		&p.HomeLatitude, &p.HomeLongitude, &p.VehicleType, &p.VehicleMake, &p.VehicleModel,
		&p.ImmigrationStatus, &p.Values, &p.HealthApproach, &p.Skills, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return SubjectProfile{}, fmt.Errorf("get subject: %w", ErrNotFound)
	}
	if err != nil {
		return SubjectProfile{}, fmt.Errorf("get subject: %w", err)
	}
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return p, nil
}

// SaveSubject replaces the subject profile.
func (s *Store) SaveSubject(p SubjectProfile) error {
	if p.CurrentCountry == "" {
		return fmt.Errorf("save subject: current country is required")
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO user_profile (id, full_name, age, gender, ethnicity, nationality, current_country, current_city,
		        home_latitude, home_longitude, vehicle_type, vehicle_make, vehicle_model,
		        immigration_status, values_text, health_approach, skills, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		        full_name = excluded.full_name, age = excluded.age, gender = excluded.gender,
		        ethnicity = excluded.ethnicity, nationality = excluded.nationality,
		        current_country = excluded.current_country, current_city = excluded.current_city,
		        home_latitude = excluded.home_latitude, home_longitude = excluded.home_longitude,
		        vehicle_type = excluded.vehicle_type, vehicle_make = excluded.vehicle_make,
		        vehicle_model = excluded.vehicle_model, immigration_status = excluded.immigration_status,
		        values_text = excluded.values_text, health_approach = excluded.health_approach,
		        skills = excluded.skills, updated_at = excluded.updated_at`,
		p.FullName, p.Age, p.Gender, p.Ethnicity, p.Nationality, p.CurrentCountry, p.CurrentCity,
		p.HomeLatitude, p.HomeLongitude, p.VehicleType, p.VehicleMake, p.VehicleModel,
		p.ImmigrationStatus, p.Values, p.HealthApproach, p.Skills, p.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save subject: %w", err)
	}
	return nil
}

// #endregion subject

// #region countries
const countryColumns = `country_code, country_name, latitude, longitude, overall_score,
	physical, political, economic, digital, health, social, mobility, infrastructure,
	genocide_stage, updated_at`

func scanCountry(row interface{ Scan(...any) error }) (CountryProfile, error) {
	var c CountryProfile
	var updated string
	sc := &c.Scores
	err := row.Scan(&c.Code, &c.Name, &c.Latitude, &c.Longitude, &c.OverallScore,
		&sc.Physical, &sc.Political, &sc.Economic, &sc.Digital, &sc.Health, &sc.Social,
		&sc.Mobility, &sc.Infrastructure, &sc.GenocideStage, &updated)
	if err != nil {
		return CountryProfile{}, err
	}
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return c, nil
}

// GetCountry returns one country profile.
func (s *Store) GetCountry(code string) (CountryProfile, error) {
	c, err := scanCountry(s.db.QueryRow(`SELECT `+countryColumns+` FROM country_profiles WHERE country_code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return CountryProfile{}, fmt.Errorf("get country %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return CountryProfile{}, fmt.Errorf("get country %s: %w", code, err)
	}
	return c, nil
}

// ListCountries returns every country ordered by overall score, worst first.
func (s *Store) ListCountries() ([]CountryProfile, error) {
	rows, err := s.db.Query(`SELECT ` + countryColumns + ` FROM country_profiles ORDER BY overall_score DESC, country_code`)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()

	var out []CountryProfile
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertCountry writes a country profile.
func (s *Store) UpsertCountry(c CountryProfile) error {
	return upsertCountry(s.db, c)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertCountry(db execer, c CountryProfile) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	if c.Name == "" {
		c.Name = c.Code
	}
	sc := c.Scores.Clamped()
	_, err := db.Exec(
		`INSERT INTO country_profiles (`+countryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(country_code) DO UPDATE SET
		        overall_score = excluded.overall_score,
		        physical = excluded.physical, political = excluded.political,
		        economic = excluded.economic, digital = excluded.digital,
		        health = excluded.health, social = excluded.social,
		        mobility = excluded.mobility, infrastructure = excluded.infrastructure,
		        genocide_stage = excluded.genocide_stage, updated_at = excluded.updated_at`,
		c.Code, c.Name, c.Latitude, c.Longitude, c.OverallScore,
		sc.Physical, sc.Political, sc.Economic, sc.Digital, sc.Health, sc.Social,
		sc.Mobility, sc.Infrastructure, sc.GenocideStage, c.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert country %s: %w", c.Code, err)
	}
	return nil
}

// CountryScores returns the stored score set for code, or a zero set with
// ErrNotFound.
func (s *Store) CountryScores(code string) (threat.DomainScoreSet, error) {
	c, err := s.GetCountry(code)
	if err != nil {
		return threat.DomainScoreSet{}, err
	}
	return c.Scores, nil
}

// #endregion countries

// #region watchlist
// ListWatchlist returns every watchlist entry in insertion order.
func (s *Store) ListWatchlist() ([]WatchlistItem, error) {
	rows, err := s.db.Query(`SELECT id, country_code, country_name, city, state_province, reason FROM watchlist ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	var out []WatchlistItem
	for rows.Next() {
		var w WatchlistItem
		var city, state, reason sql.NullString
		if err := rows.Scan(&w.ID, &w.CountryCode, &w.CountryName, &city, &state, &reason); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		w.City, w.StateProvince, w.Reason = city.String, state.String, reason.String
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) AddWatchlistItem(w WatchlistItem) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO watchlist (country_code, country_name, city, state_province, reason) VALUES (?, ?, ?, ?, ?)`,
		w.CountryCode, w.CountryName, nullIfEmpty(w.City), nullIfEmpty(w.StateProvince), nullIfEmpty(w.Reason),
	)
	if err != nil {
		return 0, fmt.Errorf("add watchlist item: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) RemoveWatchlistItem(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM watchlist WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove watchlist item %d: %w", id, err)
	}
	return nil
}

// #endregion watchlist

// #region alerts
// ActivePersonalAlerts returns alerts still flagged active, oldest first.
func (s *Store) ActivePersonalAlerts() ([]PersonalAlert, error) {
	rows, err := s.db.Query(`SELECT id, description, active, created_at FROM personal_alerts WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []PersonalAlert
	for rows.Next() {
		var a PersonalAlert
		var active int
		var created string
		if err := rows.Scan(&a.ID, &a.Description, &active, &created); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Active = active == 1
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) AddPersonalAlert(description string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO personal_alerts (description, active, created_at) VALUES (?, 1, ?)`,
		description, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("add alert: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) DeactivatePersonalAlert(id int64) error {
	if _, err := s.db.Exec(`UPDATE personal_alerts SET active = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deactivate alert %d: %w", id, err)
	}
	return nil
}

// #endregion alerts
