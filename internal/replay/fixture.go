package replay

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// #region fixture-types

// Fixture is one recorded transcript plus the results it must reproduce.
type Fixture struct {
	Description string                `yaml:"description"`
	Transcript  string                `yaml:"transcript"`
	BaseScores  threat.DomainScoreSet `yaml:"base_scores"`
	Expected    Expected              `yaml:"expected"`
}

// Expected lists the checked outputs. Zero-valued optional fields are not
// checked: nil slices, empty strings and nil pointers are skipped.
type Expected struct {
	Partial         bool                   `yaml:"partial"`
	Empty           bool                   `yaml:"empty"`
	TextContains    []string               `yaml:"text_contains,omitempty"`
	Percents        []int                  `yaml:"percents,omitempty"`
	Labels          []string               `yaml:"labels,omitempty"`
	FinalPhase      string                 `yaml:"final_phase,omitempty"`
	ToolInvocations *int                   `yaml:"tool_invocations,omitempty"`
	Chars           *int                   `yaml:"chars,omitempty"`
	Skipped         *int                   `yaml:"skipped,omitempty"`
	ThreatLevel     string                 `yaml:"threat_level,omitempty"`
	Scored          bool                   `yaml:"scored"`
	Scores          *threat.DomainScoreSet `yaml:"scores,omitempty"`
	OverallScore    *int                   `yaml:"overall_score,omitempty"`
	Tier            string                 `yaml:"tier,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

// ParseFixture decodes a fixture document.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Transcript == "" {
		return nil, fmt.Errorf("fixture has no transcript")
	}
	return &f, nil
}

// Encode renders f as YAML.
func (f *Fixture) Encode() ([]byte, error) {
	return yaml.Marshal(f)
}

// FromResult builds a fixture whose expectations are exactly what res
// produced, for pinning a recorded transcript.
func FromResult(description, transcript string, base threat.DomainScoreSet, res Result) *Fixture {
	f := &Fixture{
		Description: description,
		Transcript:  transcript,
		BaseScores:  base,
	}
	tools, chars, skipped := res.State.ToolInvocations, res.State.Chars, res.Skipped
	f.Expected = Expected{
		Partial:         res.Partial,
		Empty:           res.Empty,
		Percents:        res.Percents(),
		Labels:          res.Labels(),
		FinalPhase:      res.Final().Phase.String(),
		ToolInvocations: &tools,
		Chars:           &chars,
		Skipped:         &skipped,
		ThreatLevel:     res.ThreatLevel.String(),
		Scored:          res.Scored,
	}
	if res.Scored {
		scores, overall := res.Scores, res.Assessment.OverallScore
		f.Expected.Scores = &scores
		f.Expected.OverallScore = &overall
		f.Expected.Tier = res.Assessment.Tier.String()
	}
	return f
}

// #endregion fixture-loader
