package store

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

//go:embed seed.yaml
var seedYAML []byte

// #region seed-types
// SeedData is the baseline shipped with the binary.
type SeedData struct {
	Countries []SeedCountry `yaml:"countries"`
	Hotspots  []SeedHotspot `yaml:"hotspots"`
}

type SeedCountry struct {
	Code      string                `yaml:"code"`
	Name      string                `yaml:"name"`
	Latitude  float64               `yaml:"latitude"`
	Longitude float64               `yaml:"longitude"`
	Scores    threat.DomainScoreSet `yaml:"scores"`
}

type SeedHotspot struct {
	Name             string  `yaml:"name"`
	Latitude         float64 `yaml:"latitude"`
	Longitude        float64 `yaml:"longitude"`
	RadiusMeters     int     `yaml:"radius_meters"`
	CrimeType        string  `yaml:"crime_type"`
	Severity         int     `yaml:"severity"`
	TimePattern      string  `yaml:"time_pattern"`
	Precinct         string  `yaml:"precinct"`
	IncidentCount90d int     `yaml:"incident_count_90d"`
	Country          string  `yaml:"country"`
}

// SeedResult counts rows written by Seed.
type SeedResult struct {
	Countries int
	Hotspots  int
}

// #endregion seed-types

// #region seed
// LoadSeed parses the embedded baseline.
func LoadSeed() (SeedData, error) {
	var d SeedData
	if err := yaml.Unmarshal(seedYAML, &d); err != nil {
		return SeedData{}, fmt.Errorf("parse seed: %w", err)
	}
	return d, nil
}

// Seed writes the baseline into empty tables. Tables that already hold rows
// are left alone, so Seed is safe to run on every start.
func (s *Store) Seed(score func(threat.DomainScoreSet) int) (SeedResult, error) {
	d, err := LoadSeed()
	if err != nil {
		return SeedResult{}, err
	}

	var res SeedResult
	tx, err := s.db.Begin()
	if err != nil {
		return SeedResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM country_profiles`).Scan(&n); err != nil {
		return SeedResult{}, fmt.Errorf("count countries: %w", err)
	}
	if n == 0 {
		for _, c := range d.Countries {
			overall := 0
			if score != nil {
				overall = score(c.Scores)
			}
			if err := upsertCountry(tx, CountryProfile{
				Code: c.Code, Name: c.Name, Latitude: c.Latitude, Longitude: c.Longitude,
				OverallScore: overall, Scores: c.Scores,
			}); err != nil {
				return SeedResult{}, err
			}
			res.Countries++
		}
	}

	if err := tx.QueryRow(`SELECT COUNT(*) FROM crime_hotspots`).Scan(&n); err != nil {
		return SeedResult{}, fmt.Errorf("count hotspots: %w", err)
	}
	if n == 0 {
		for _, h := range d.Hotspots {
			if _, err := insertHotspot(tx, Hotspot{
				Name: h.Name, Latitude: h.Latitude, Longitude: h.Longitude,
				RadiusMeters: h.RadiusMeters, CrimeType: h.CrimeType, Severity: h.Severity,
				TimePattern: h.TimePattern, Precinct: h.Precinct,
				IncidentCount90d: h.IncidentCount90d, CountryCode: h.Country, Active: true,
			}); err != nil {
				return SeedResult{}, err
			}
			res.Hotspots++
		}
	}

	if err := tx.Commit(); err != nil {
		return SeedResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

// #endregion seed
