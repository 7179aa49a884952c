package georisk

import (
	"math"
	"sort"
	"strings"
)

// #region types
// EarthRadiusMeters is the mean radius used for great-circle distance.
const EarthRadiusMeters = 6371000.0

// decayRadii is how many radii past the core the proximity factor reaches 0.
const decayRadii = 2.0

// Incident is a geolocated crime hotspot as the model sees it.
type Incident struct {
	Name         string
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Category     string
	Severity     int
}

// Contribution is one matching incident's share of a risk evaluation.
type Contribution struct {
	Incident       Incident
	DistanceMeters float64
	Proximity      float64
	Score          float64
}

// Config selects the incident category and the per-tag modifiers.
type Config struct {
	Category        string             `toml:"category"`
	Modifiers       map[string]float64 `toml:"vehicle_modifiers"`
	DefaultModifier float64            `toml:"default_modifier"`
}

// DefaultConfig targets vehicle hijacking.
func DefaultConfig() Config {
	return Config{
		Category: "hijacking",
		Modifiers: map[string]float64{
			"suv":       1.2,
			"4x4":       1.2,
			"luxury":    1.3,
			"sedan":     1.0,
			"hatchback": 0.9,
			"bakkie":    1.1,
			"truck":     1.1,
		},
		DefaultModifier: 1.0,
	}
}

// #endregion types

// #region model
// Model scores a location against a set of incidents. It is immutable.
type Model struct {
	category  string
	modifiers map[string]float64
	def       float64
}

func NewModel(cfg Config) *Model {
	mods := make(map[string]float64, len(cfg.Modifiers))
	for k, v := range cfg.Modifiers {
		mods[strings.ToLower(strings.TrimSpace(k))] = v
	}
	def := cfg.DefaultModifier
	if def <= 0 {
		def = 1.0
	}
	return &Model{category: strings.ToLower(cfg.Category), modifiers: mods, def: def}
}

// Matches reports whether an incident category counts for this model.
func (m *Model) Matches(category string) bool {
	return strings.Contains(strings.ToLower(category), m.category)
}

// Modifier returns the multiplier for categoryTag.
func (m *Model) Modifier(categoryTag string) float64 {
	if v, ok := m.modifiers[strings.ToLower(strings.TrimSpace(categoryTag))]; ok {
		return v
	}
	return m.def
}

// Breakdown lists every matching incident with a non-zero proximity, highest
// contribution first.
func (m *Model) Breakdown(lat, lon float64, incidents []Incident) []Contribution {
	var out []Contribution
	for _, inc := range incidents {
		if !m.Matches(inc.Category) {
			continue
		}
		d := HaversineMeters(lat, lon, inc.Latitude, inc.Longitude)
		f := ProximityFactor(d, inc.RadiusMeters)
		if f <= 0 {
			continue
		}
		sev := min(max(inc.Severity, 0), 100)
		out = append(out, Contribution{Incident: inc, DistanceMeters: d, Proximity: f, Score: float64(sev) * f})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Evaluate returns the risk in [0,100]: the strongest matching incident's
// severity times its proximity factor, times the modifier for categoryTag.
// No matching incident in range yields 0.
func (m *Model) Evaluate(lat, lon float64, categoryTag string, incidents []Incident) int {
	best := 0.0
	for _, c := range m.Breakdown(lat, lon, incidents) {
		best = math.Max(best, c.Score)
	}
	if best == 0 {
		return 0
	}
	score := int(math.Round(best * m.Modifier(categoryTag)))
	return min(max(score, 0), 100)
}

// #endregion model

// #region geometry
// HaversineMeters is the great-circle distance between two points.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// ProximityFactor is 1 inside radius, falling linearly to 0 at 3x radius.
// A NaN distance or radius gives 0.
func ProximityFactor(distance, radius float64) float64 {
	if math.IsNaN(distance) || math.IsNaN(radius) {
		return 0
	}
	if radius <= 0 {
		if distance <= 0 {
			return 1
		}
		return 0
	}
	if distance <= radius {
		return 1
	}
	f := 1 - (distance-radius)/(decayRadii*radius)
	return math.Max(0, f)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// #endregion geometry

// #region level
// Level labels a risk score.
func Level(score int) string {
	switch {
	case score < 25:
		return "LOW"
	case score < 50:
		return "MODERATE"
	case score < 75:
		return "HIGH"
	default:
		return "CRITICAL"
	}
}

// #endregion level
