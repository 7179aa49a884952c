package threat

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// #region helpers
func uniform(v, stage int) DomainScoreSet {
	return DomainScoreSet{
		Physical: v, Political: v, Economic: v, Digital: v,
		Health: v, Social: v, Mobility: v, Infrastructure: v,
		GenocideStage: stage,
	}
}

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	return e
}

// #endregion helpers

// #region engine-tests
func TestOverallScore_Amplifier(t *testing.T) {
	e := defaultEngine(t)
	assert.Equal(t, 65, e.OverallScore(uniform(50, 7)))
	assert.Equal(t, 58, e.OverallScore(uniform(50, 4)))
	assert.Equal(t, 50, e.OverallScore(uniform(50, 3)))
	assert.Equal(t, 65, e.OverallScore(uniform(50, 6)))
}

func TestOverallScore_CapsAt100(t *testing.T) {
	e := defaultEngine(t)
	assert.Equal(t, 100, e.OverallScore(uniform(90, 8)))
	assert.Equal(t, 0, e.OverallScore(uniform(0, 10)))
}

func TestOverallScore_ClampsInputs(t *testing.T) {
	e := defaultEngine(t)
	assert.Equal(t, 100, e.OverallScore(uniform(250, 0)))
	assert.Equal(t, 0, e.OverallScore(uniform(-40, 0)))
	assert.Equal(t, e.OverallScore(uniform(50, 10)), e.OverallScore(uniform(50, 99)))
}

func TestOverallScore_WeightsMatter(t *testing.T) {
	e := defaultEngine(t)
	s := DomainScoreSet{Physical: 100}
	assert.Equal(t, 20, e.OverallScore(s))
	s = DomainScoreSet{Political: 100, Economic: 100}
	assert.Equal(t, 30, e.OverallScore(s))
}

func TestClassify_Boundaries(t *testing.T) {
	e := defaultEngine(t)
	cases := map[int]Tier{
		0: TierGreen, 25: TierGreen, 26: TierYellow, 50: TierYellow,
		51: TierOrange, 75: TierOrange, 76: TierRed, 100: TierRed,
	}
	for score, want := range cases {
		assert.Equal(t, want, e.Classify(score), "score %d", score)
	}
}

func TestAssess(t *testing.T) {
	e := defaultEngine(t)
	a := e.Assess(uniform(50, 7))
	assert.Equal(t, RiskAssessment{OverallScore: 65, Tier: TierOrange}, a)
	assert.Equal(t, "ORANGE", a.Tier.String())
}

func TestNewEngine_RejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Physical = 0.5
	_, err := NewEngine(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Tiers = TierBounds{Yellow: 50, Orange: 40, Red: 76}
	_, err = NewEngine(cfg)
	assert.Error(t, err)
}

func TestNewEngine_AmplifierOrderIndependent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Amplifier = []AmplifierStep{{MinStage: 4, Factor: 1.15}, {MinStage: 6, Factor: 1.3}}
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, 65, e.OverallScore(uniform(50, 7)))
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier("RED")
	require.NoError(t, err)
	assert.Equal(t, TierRed, tier)
	_, err = ParseTier("PURPLE")
	assert.Error(t, err)
}

// #endregion engine-tests

// #region properties
func genScoreSet() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(-20, 120), gen.IntRange(-20, 120), gen.IntRange(-20, 120),
		gen.IntRange(-20, 120), gen.IntRange(-20, 120), gen.IntRange(-20, 120),
		gen.IntRange(-20, 120), gen.IntRange(-20, 120), gen.IntRange(-2, 12),
	).Map(func(v []interface{}) DomainScoreSet {
		return DomainScoreSet{
			Physical: v[0].(int), Political: v[1].(int), Economic: v[2].(int),
			Digital: v[3].(int), Health: v[4].(int), Social: v[5].(int),
			Mobility: v[6].(int), Infrastructure: v[7].(int), GenocideStage: v[8].(int),
		}
	})
}

func TestEngine_Properties(t *testing.T) {
	e := MustEngine(DefaultConfig())
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("score in [0,100] and tier agrees", prop.ForAll(
		func(s DomainScoreSet) bool {
			a := e.Assess(s)
			return a.OverallScore >= 0 && a.OverallScore <= 100 && a.Tier == e.Classify(a.OverallScore)
		},
		genScoreSet(),
	))

	properties.Property("aggregation is deterministic", prop.ForAll(
		func(s DomainScoreSet) bool {
			return e.Assess(s) == e.Assess(s)
		},
		genScoreSet(),
	))

	properties.Property("raising the stage never lowers the score", prop.ForAll(
		func(s DomainScoreSet, bump int) bool {
			higher := s
			higher.GenocideStage += bump
			return e.OverallScore(higher) >= e.OverallScore(s)
		},
		genScoreSet(),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}

// #endregion properties
