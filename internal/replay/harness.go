package replay

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/progress"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/stream"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// #region types

// Options configures a replay. Nil components fall back to the defaults.
type Options struct {
	Estimator  *progress.Estimator
	Engine     *threat.Engine
	BaseScores threat.DomainScoreSet
}

// Result is everything a replay observed.
type Result struct {
	Text        string
	Partial     bool
	Empty       bool
	Err         error
	Snapshots   []progress.Snapshot
	State       stream.State
	Skipped     int
	ThreatLevel threat.Tier
	Scored      bool
	ScoreKeys   int
	Scores      threat.DomainScoreSet
	Assessment  threat.RiskAssessment
}

// Percents lists the snapshot percentages in order.
func (r Result) Percents() []int {
	out := make([]int, len(r.Snapshots))
	for i, s := range r.Snapshots {
		out[i] = s.Percent
	}
	return out
}

// Labels lists the snapshot labels in order.
func (r Result) Labels() []string {
	out := make([]string, len(r.Snapshots))
	for i, s := range r.Snapshots {
		out[i] = s.Label
	}
	return out
}

// Final is the last snapshot, or the zero snapshot when none was emitted.
func (r Result) Final() progress.Snapshot {
	if len(r.Snapshots) == 0 {
		return progress.Snapshot{}
	}
	return r.Snapshots[len(r.Snapshots)-1]
}

// Mismatch is one expectation that did not hold.
type Mismatch struct {
	Field string
	Want  string
	Got   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: want %s, got %s", m.Field, m.Want, m.Got)
}

// #endregion types

// #region run

// Run feeds a recorded transcript through the parser, decoder and estimator
// and scores the text the way a live brief would be scored: only complete
// streams with a score block are assessed.
func Run(r io.Reader, opts Options) Result {
	engine := opts.Engine
	if engine == nil {
		engine = threat.MustEngine(threat.DefaultConfig())
	}

	var res Result
	sink := progress.SinkFunc(func(s progress.Snapshot) { res.Snapshots = append(res.Snapshots, s) })
	events := stream.NewEventReader(r)
	dec, err := stream.NewDecoder(opts.Estimator, nil, sink).Decode(context.Background(), events)

	res.Text = dec.Text
	res.Partial = dec.Partial
	res.Empty = dec.Empty
	res.Err = err
	res.State = dec.State
	res.Skipped = events.Skipped()
	res.ThreatLevel = threat.HeadlineLevel(dec.Text)

	if dec.Partial || dec.Empty {
		return res
	}
	upd, ok := threat.ParseScoreBlock(dec.Text)
	res.ScoreKeys = len(upd)
	if !ok {
		return res
	}
	res.Scored = true
	res.Scores = upd.Apply(opts.BaseScores)
	res.Assessment = engine.Assess(res.Scores)
	return res
}

// RunFixture replays f and checks it.
func RunFixture(f *Fixture, opts Options) (Result, []Mismatch) {
	opts.BaseScores = f.BaseScores
	res := Run(strings.NewReader(f.Transcript), opts)
	return res, Check(f.Expected, res)
}

// #endregion run

// #region check

// Check compares res against want and returns every difference.
func Check(want Expected, res Result) []Mismatch {
	var out []Mismatch
	add := func(field string, w, g any) {
		out = append(out, Mismatch{Field: field, Want: fmt.Sprint(w), Got: fmt.Sprint(g)})
	}

	if want.Partial != res.Partial {
		add("partial", want.Partial, res.Partial)
	}
	if want.Empty != res.Empty {
		add("empty", want.Empty, res.Empty)
	}
	for _, s := range want.TextContains {
		if !strings.Contains(res.Text, s) {
			add("text", fmt.Sprintf("contains %q", s), "missing")
		}
	}
	if want.Percents != nil && !slices.Equal(want.Percents, res.Percents()) {
		add("percents", want.Percents, res.Percents())
	}
	if want.Labels != nil && !slices.Equal(want.Labels, res.Labels()) {
		add("labels", want.Labels, res.Labels())
	}
	if want.FinalPhase != "" && want.FinalPhase != res.Final().Phase.String() {
		add("final_phase", want.FinalPhase, res.Final().Phase)
	}
	if want.ToolInvocations != nil && *want.ToolInvocations != res.State.ToolInvocations {
		add("tool_invocations", *want.ToolInvocations, res.State.ToolInvocations)
	}
	if want.Chars != nil && *want.Chars != res.State.Chars {
		add("chars", *want.Chars, res.State.Chars)
	}
	if want.Skipped != nil && *want.Skipped != res.Skipped {
		add("skipped", *want.Skipped, res.Skipped)
	}
	if want.ThreatLevel != "" && want.ThreatLevel != res.ThreatLevel.String() {
		add("threat_level", want.ThreatLevel, res.ThreatLevel)
	}
	if want.Scored != res.Scored {
		add("scored", want.Scored, res.Scored)
	}
	if want.Scores != nil && *want.Scores != res.Scores {
		add("scores", *want.Scores, res.Scores)
	}
	if want.OverallScore != nil && *want.OverallScore != res.Assessment.OverallScore {
		add("overall_score", *want.OverallScore, res.Assessment.OverallScore)
	}
	if want.Tier != "" && res.Scored && want.Tier != res.Assessment.Tier.String() {
		add("tier", want.Tier, res.Assessment.Tier)
	}
	return out
}

// #endregion check
