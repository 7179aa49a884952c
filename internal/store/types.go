package store

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/georisk"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// #region subject
// SubjectProfile is the single person the briefs are written for.
type SubjectProfile struct {
	FullName          string
	Age               int
	Gender            string
	Ethnicity         string
	Nationality       string
	CurrentCountry    string
	CurrentCity       string
	HomeLatitude      float64
	HomeLongitude     float64
	VehicleType       string
	VehicleMake       string
	VehicleModel      string
	ImmigrationStatus string
	Values            string
	HealthApproach    string
	Skills            string
	UpdatedAt         time.Time
}

// HasLocation reports whether home coordinates are set.
func (p SubjectProfile) HasLocation() bool {
	return p.HomeLatitude != 0 || p.HomeLongitude != 0
}

// #endregion subject

// #region country
// CountryProfile is the latest known score set for one country.
type CountryProfile struct {
	Code         string
	Name         string
	Latitude     float64
	Longitude    float64
	OverallScore int
	Scores       threat.DomainScoreSet
	UpdatedAt    time.Time
}

// #endregion country

// #region hotspot
// Hotspot is a persisted crime incident cluster.
type Hotspot struct {
	ID               int64
	Name             string
	Latitude         float64
	Longitude        float64
	RadiusMeters     int
	CrimeType        string
	Severity         int
	TimePattern      string
	Precinct         string
	IncidentCount90d int
	CountryCode      string
	Active           bool
	UpdatedAt        time.Time
}

// Incident converts the row into the risk model's view.
func (h Hotspot) Incident() georisk.Incident {
	return georisk.Incident{
		Name:         h.Name,
		Latitude:     h.Latitude,
		Longitude:    h.Longitude,
		RadiusMeters: float64(h.RadiusMeters),
		Category:     h.CrimeType,
		Severity:     h.Severity,
	}
}

// Incidents converts a slice of hotspots.
func Incidents(hs []Hotspot) []georisk.Incident {
	out := make([]georisk.Incident, len(hs))
	for i, h := range hs {
		out[i] = h.Incident()
	}
	return out
}

// #endregion hotspot

// #region assessment
// AssessmentRecord is one persisted aggregation run.
type AssessmentRecord struct {
	AssessmentID string
	CountryCode  string
	BriefID      string
	Scores       threat.DomainScoreSet
	OverallScore int
	Tier         string
	CreatedAt    time.Time
}

// DailyScore is one per-domain history row.
type DailyScore struct {
	AssessmentID string
	CountryCode  string
	Domain       string
	Score        int
	CreatedAt    time.Time
}

// #endregion assessment

// #region brief
// Brief is a persisted executive brief.
type Brief struct {
	BriefID     string
	BriefType   string
	ThreatLevel string
	Content     string
	Partial     bool
	TriggerType string
	Watchlist   string
	CreatedAt   time.Time
}

// WatchlistItem is a place the subject wants covered in every brief.
type WatchlistItem struct {
	ID            int64
	CountryCode   string
	CountryName   string
	City          string
	StateProvince string
	Reason        string
}

// PersonalAlert is a free-text standing concern.
type PersonalAlert struct {
	ID          int64
	Description string
	Active      bool
	CreatedAt   time.Time
}

// #endregion brief
