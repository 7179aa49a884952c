package threat

import (
	"fmt"
	"math"
	"sort"
)

// #region engine
// Engine aggregates domain scores into an overall score and tier. It is
// immutable after construction.
type Engine struct {
	weights   Weights
	amplifier []AmplifierStep
	tiers     TierBounds
}

// NewEngine validates cfg and returns an engine. Amplifier steps are ordered
// by descending stage so the first match wins.
func NewEngine(cfg Config) (*Engine, error) {
	if math.Abs(cfg.Weights.Sum()-1.0) > 1e-6 {
		return nil, fmt.Errorf("weights sum to %.4f, want 1.0", cfg.Weights.Sum())
	}
	if !(cfg.Tiers.Yellow < cfg.Tiers.Orange && cfg.Tiers.Orange < cfg.Tiers.Red) {
		return nil, fmt.Errorf("tier bounds not increasing: %+v", cfg.Tiers)
	}
	steps := append([]AmplifierStep(nil), cfg.Amplifier...)
	sort.Slice(steps, func(i, j int) bool { return steps[i].MinStage > steps[j].MinStage })
	return &Engine{weights: cfg.Weights, amplifier: steps, tiers: cfg.Tiers}, nil
}

// MustEngine is NewEngine for known-good configs.
func MustEngine(cfg Config) *Engine {
	e, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// WeightedSum is the unamplified weighted mean of the clamped set.
func (e *Engine) WeightedSum(s DomainScoreSet) float64 {
	s = s.Clamped()
	w := e.weights
	return float64(s.Physical)*w.Physical +
		float64(s.Political)*w.Political +
		float64(s.Economic)*w.Economic +
		float64(s.Digital)*w.Digital +
		float64(s.Health)*w.Health +
		float64(s.Social)*w.Social +
		float64(s.Mobility)*w.Mobility +
		float64(s.Infrastructure)*w.Infrastructure
}

// Amplify applies the first matching amplifier step to weighted.
func (e *Engine) Amplify(weighted float64, stage int) float64 {
	for _, step := range e.amplifier {
		if stage >= step.MinStage {
			return weighted * step.Factor
		}
	}
	return weighted
}

// OverallScore returns the amplified, rounded, clamped score in [0,100].
func (e *Engine) OverallScore(s DomainScoreSet) int {
	s = s.Clamped()
	v := e.Amplify(e.WeightedSum(s), s.GenocideStage)
	return clampInt(roundHalfAway(v), MinScore, MaxScore)
}

// Classify maps a score onto its tier.
func (e *Engine) Classify(score int) Tier {
	switch {
	case score >= e.tiers.Red:
		return TierRed
	case score >= e.tiers.Orange:
		return TierOrange
	case score >= e.tiers.Yellow:
		return TierYellow
	default:
		return TierGreen
	}
}

// Assess is OverallScore followed by Classify.
func (e *Engine) Assess(s DomainScoreSet) RiskAssessment {
	score := e.OverallScore(s)
	return RiskAssessment{OverallScore: score, Tier: e.Classify(score)}
}

// #endregion engine

// #region rounding
// roundHalfAway rounds to nearest with ties away from zero, after snapping
// off float noise below 1e-6 so that 57.49999999 lands on 57.5.
func roundHalfAway(v float64) int {
	return int(math.Round(math.Round(v*1e6) / 1e6))
}

// #endregion rounding
