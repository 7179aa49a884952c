package threat

import "fmt"

// #region domains
// Domain is a scored threat dimension. The value doubles as the key used in
// score blocks and daily score rows.
type Domain string

const (
	DomainPhysical       Domain = "physical_security"
	DomainPolitical      Domain = "political_stability"
	DomainEconomic       Domain = "economic_freedom"
	DomainDigital        Domain = "digital_sovereignty"
	DomainHealth         Domain = "health_environment"
	DomainSocial         Domain = "social_cohesion"
	DomainMobility       Domain = "mobility_exit"
	DomainInfrastructure Domain = "infrastructure"

	// KeyGenocideStage is the score block key for the genocide stage.
	KeyGenocideStage Domain = "genocide_stage"
)

// Domains lists the eight weighted domains in display order.
var Domains = []Domain{
	DomainPhysical,
	DomainPolitical,
	DomainEconomic,
	DomainDigital,
	DomainHealth,
	DomainSocial,
	DomainMobility,
	DomainInfrastructure,
}

const (
	MinScore = 0
	MaxScore = 100
	MinStage = 0
	MaxStage = 10
)

// #endregion domains

// #region score-set
// DomainScoreSet is one assessment snapshot for one subject country.
type DomainScoreSet struct {
	Physical       int `yaml:"physical" json:"physical"`
	Political      int `yaml:"political" json:"political"`
	Economic       int `yaml:"economic" json:"economic"`
	Digital        int `yaml:"digital" json:"digital"`
	Health         int `yaml:"health" json:"health"`
	Social         int `yaml:"social" json:"social"`
	Mobility       int `yaml:"mobility" json:"mobility"`
	Infrastructure int `yaml:"infrastructure" json:"infrastructure"`
	GenocideStage  int `yaml:"genocide_stage" json:"genocide_stage"`
}

// Get returns the score for d; KeyGenocideStage returns the stage.
func (s DomainScoreSet) Get(d Domain) int {
	switch d {
	case DomainPhysical:
		return s.Physical
	case DomainPolitical:
		return s.Political
	case DomainEconomic:
		return s.Economic
	case DomainDigital:
		return s.Digital
	case DomainHealth:
		return s.Health
	case DomainSocial:
		return s.Social
	case DomainMobility:
		return s.Mobility
	case DomainInfrastructure:
		return s.Infrastructure
	case KeyGenocideStage:
		return s.GenocideStage
	}
	return 0
}

// With returns a copy of s with d set to v.
func (s DomainScoreSet) With(d Domain, v int) DomainScoreSet {
	switch d {
	case DomainPhysical:
		s.Physical = v
	case DomainPolitical:
		s.Political = v
	case DomainEconomic:
		s.Economic = v
	case DomainDigital:
		s.Digital = v
	case DomainHealth:
		s.Health = v
	case DomainSocial:
		s.Social = v
	case DomainMobility:
		s.Mobility = v
	case DomainInfrastructure:
		s.Infrastructure = v
	case KeyGenocideStage:
		s.GenocideStage = v
	}
	return s
}

// Clamped pins every domain to [0,100] and the stage to [0,10].
func (s DomainScoreSet) Clamped() DomainScoreSet {
	for _, d := range Domains {
		s = s.With(d, clampInt(s.Get(d), MinScore, MaxScore))
	}
	s.GenocideStage = clampInt(s.GenocideStage, MinStage, MaxStage)
	return s
}

// #endregion score-set

// #region tier
// Tier is the four-level risk classification.
type Tier int

const (
	TierGreen Tier = iota
	TierYellow
	TierOrange
	TierRed
)

func (t Tier) String() string {
	switch t {
	case TierGreen:
		return "GREEN"
	case TierYellow:
		return "YELLOW"
	case TierOrange:
		return "ORANGE"
	case TierRed:
		return "RED"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// ParseTier is the inverse of Tier.String.
func ParseTier(s string) (Tier, error) {
	for _, t := range []Tier{TierGreen, TierYellow, TierOrange, TierRed} {
		if t.String() == s {
			return t, nil
		}
	}
	return TierGreen, fmt.Errorf("unknown tier %q", s)
}

// RiskAssessment is the derived result for one score set.
type RiskAssessment struct {
	OverallScore int
	Tier         Tier
}

// #endregion tier

// #region config
// Weights are the per-domain weights; they sum to 1.0.
type Weights struct {
	Physical       float64 `toml:"physical"`
	Political      float64 `toml:"political"`
	Economic       float64 `toml:"economic"`
	Digital        float64 `toml:"digital"`
	Health         float64 `toml:"health"`
	Social         float64 `toml:"social"`
	Mobility       float64 `toml:"mobility"`
	Infrastructure float64 `toml:"infrastructure"`
}

func DefaultWeights() Weights {
	return Weights{
		Physical:       0.20,
		Political:      0.15,
		Economic:       0.15,
		Digital:        0.10,
		Health:         0.10,
		Social:         0.10,
		Mobility:       0.10,
		Infrastructure: 0.10,
	}
}

func (w Weights) Sum() float64 {
	return w.Physical + w.Political + w.Economic + w.Digital +
		w.Health + w.Social + w.Mobility + w.Infrastructure
}

// AmplifierStep multiplies the weighted sum when the stage is at least MinStage.
type AmplifierStep struct {
	MinStage int
	Factor   float64
}

// TierBounds are the inclusive lower bounds of the three upper tiers.
type TierBounds struct {
	Yellow int
	Orange int
	Red    int
}

// Config bundles the aggregation constants.
type Config struct {
	Weights   Weights
	Amplifier []AmplifierStep
	Tiers     TierBounds
}

func DefaultConfig() Config {
	return Config{
		Weights: DefaultWeights(),
		Amplifier: []AmplifierStep{
			{MinStage: 6, Factor: 1.3},
			{MinStage: 4, Factor: 1.15},
		},
		Tiers: TierBounds{Yellow: 26, Orange: 51, Red: 76},
	}
}

// #endregion config

// #region helpers
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion helpers
