package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/intel"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/progress"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/store"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/stream"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// #region helpers

type fakeGenerator struct {
	content string
	partial bool
	err     error
	calls   int
	lastReq intel.BriefRequest
}

func (f *fakeGenerator) GenerateBrief(_ context.Context, req intel.BriefRequest, text stream.TextSink, sink progress.Sink) (intel.Brief, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil && !errors.Is(f.err, stream.ErrPartial) {
		return intel.Brief{}, f.err
	}
	if text != nil {
		text.OnTextDelta(f.content)
	}
	final := progress.Snapshot{Phase: progress.PhaseComplete, Percent: 100}
	if f.partial {
		final.Phase = progress.PhaseInterrupted
	}
	if sink != nil {
		sink.OnProgress(final)
	}
	now := time.Now()
	return intel.Brief{
		ID:          fmt.Sprintf("brief-%d", f.calls),
		Type:        req.Type,
		Content:     f.content,
		Partial:     f.partial,
		ThreatLevel: threat.HeadlineLevel(f.content),
		Decode: stream.Result{
			Text:    f.content,
			Partial: f.partial,
			State:   stream.State{TextBlocks: 1, Chars: len(f.content)},
			Final:   final,
		},
		Started:  now.Add(-time.Second),
		Finished: now,
	}, f.err
}

func tempStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func uniform(v, stage int) threat.DomainScoreSet {
	return threat.DomainScoreSet{
		Physical: v, Political: v, Economic: v, Digital: v,
		Health: v, Social: v, Mobility: v, Infrastructure: v,
		GenocideStage: stage,
	}
}

// seeded returns a store with a subject in ZA, a home profile at uniform 50
// stage 3, and one hijacking hotspot on the subject's home.
func seeded(t *testing.T) *store.Store {
	t.Helper()
	s := tempStore(t)
	if err := s.SaveSubject(store.SubjectProfile{
		FullName:       "Test Subject",
		CurrentCountry: "ZA",
		CurrentCity:    "Johannesburg",
		HomeLatitude:   -26.2041,
		HomeLongitude:  28.0473,
		VehicleType:    "sedan",
	}); err != nil {
		t.Fatalf("SaveSubject: %v", err)
	}
	if err := s.UpsertCountry(store.CountryProfile{Code: "ZA", Name: "South Africa", OverallScore: 50, Scores: uniform(50, 3)}); err != nil {
		t.Fatalf("UpsertCountry: %v", err)
	}
	for _, h := range []store.Hotspot{
		{Name: "Home", Latitude: -26.2041, Longitude: 28.0473, RadiusMeters: 1000, CrimeType: "Hijacking", Severity: 50, CountryCode: "ZA", Active: true},
		{Name: "Mall", Latitude: -26.2041, Longitude: 28.0473, RadiusMeters: 1000, CrimeType: "Armed Robbery", Severity: 95, CountryCode: "ZA", Active: true},
	} {
		if _, err := s.AddHotspot(h); err != nil {
			t.Fatalf("AddHotspot: %v", err)
		}
	}
	return s
}

func newOrch(t *testing.T, s *store.Store, gen Generator) (*Orchestrator, *logging.ScanLog) {
	t.Helper()
	scans := logging.NewScanLog(s.DB())
	o, err := NewOrchestrator(Deps{
		Profiles:  s,
		Incidents: s,
		Scores:    s,
		Briefs:    s,
		Generator: gen,
		ScanLog:   scans,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o, scans
}

const fullScores = `OVERALL THREAT LEVEL: ORANGE

THREAT_SCORES:
physical_security: 50
political_stability: 50
economic_freedom: 50
digital_sovereignty: 50
health_environment: 50
social_cohesion: 50
mobility_exit: 50
infrastructure: 50
genocide_stage: 7
`

// #endregion

// #region run-brief-tests

func TestRunBrief_ScoresAndPersists(t *testing.T) {
	s := seeded(t)
	gen := &fakeGenerator{content: fullScores}
	o, scans := newOrch(t, s, gen)

	var streamed strings.Builder
	out, err := o.RunBrief(context.Background(), TriggerManual,
		stream.TextSinkFunc(func(d string) { streamed.WriteString(d) }), nil)
	if err != nil {
		t.Fatalf("RunBrief: %v", err)
	}
	if !out.Scored || out.Assessment.OverallScore != 65 || out.Assessment.Tier != threat.TierOrange {
		t.Fatalf("unexpected assessment: scored=%v %+v", out.Scored, out.Assessment)
	}
	if out.ScoreKeys != 9 {
		t.Errorf("expected 9 score keys, got %d", out.ScoreKeys)
	}
	if streamed.String() != fullScores {
		t.Errorf("text sink not forwarded")
	}

	c, err := s.GetCountry("ZA")
	if err != nil {
		t.Fatalf("GetCountry: %v", err)
	}
	if c.OverallScore != 65 || c.Scores.GenocideStage != 7 {
		t.Errorf("country not updated: %+v", c)
	}

	b, err := s.GetBrief(out.BriefID)
	if err != nil {
		t.Fatalf("GetBrief: %v", err)
	}
	if b.Partial || b.ThreatLevel != "ORANGE" || b.TriggerType != "manual" || b.BriefType != "daily" {
		t.Errorf("unexpected brief row: %+v", b)
	}

	hist, err := s.DailyScores("ZA", 100)
	if err != nil {
		t.Fatalf("DailyScores: %v", err)
	}
	if len(hist) != 9 {
		t.Errorf("expected 9 daily score rows, got %d", len(hist))
	}

	entries, err := scans.Recent(5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 scan entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Outcome != logging.OutcomeComplete || e.ScoreSource != logging.SourceStream || e.OverallScore != 65 || e.Tier != "ORANGE" {
		t.Errorf("unexpected scan entry: %+v", e)
	}
}

func TestRunBrief_GathersContext(t *testing.T) {
	s := seeded(t)
	if _, err := s.AddWatchlistItem(store.WatchlistItem{CountryCode: "PT", CountryName: "Portugal", City: "Lisbon"}); err != nil {
		t.Fatalf("AddWatchlistItem: %v", err)
	}
	if _, err := s.AddPersonalAlert("Road closures near home"); err != nil {
		t.Fatalf("AddPersonalAlert: %v", err)
	}
	gen := &fakeGenerator{content: fullScores}
	o, _ := newOrch(t, s, gen)

	out, err := o.RunBrief(context.Background(), TriggerQuickScan, nil, nil)
	if err != nil {
		t.Fatalf("RunBrief: %v", err)
	}
	req := gen.lastReq
	if req.Type != intel.BriefQuick {
		t.Errorf("expected quick brief, got %s", req.Type)
	}
	if req.Home == nil || req.Home.Code != "ZA" {
		t.Errorf("home country not loaded: %+v", req.Home)
	}
	if len(req.Hotspots) != 2 || len(req.Watchlist) != 1 || len(req.Alerts) != 1 {
		t.Errorf("context incomplete: hotspots=%d watchlist=%d alerts=%d", len(req.Hotspots), len(req.Watchlist), len(req.Alerts))
	}
	if req.HijackRisk != 50 || out.HijackRisk != 50 || out.HijackLevel != "HIGH" {
		t.Errorf("expected hijack risk 50/HIGH, got req=%d out=%d %s", req.HijackRisk, out.HijackRisk, out.HijackLevel)
	}
}

func TestRunBrief_PartialOverlayKeepsBase(t *testing.T) {
	s := seeded(t)
	gen := &fakeGenerator{content: "THREAT_SCORES:\nphysical_security: 90\n"}
	o, _ := newOrch(t, s, gen)

	out, err := o.RunBrief(context.Background(), TriggerScheduled, nil, nil)
	if err != nil {
		t.Fatalf("RunBrief: %v", err)
	}
	if out.Scores.Physical != 90 || out.Scores.Political != 50 || out.Scores.GenocideStage != 3 {
		t.Errorf("overlay wrong: %+v", out.Scores)
	}
	if out.Assessment.OverallScore != 58 {
		t.Errorf("expected 58, got %d", out.Assessment.OverallScore)
	}
}

func TestRunBrief_PartialStreamSkipsScoring(t *testing.T) {
	s := seeded(t)
	gen := &fakeGenerator{content: fullScores, partial: true, err: &stream.PartialError{}}
	o, scans := newOrch(t, s, gen)

	out, err := o.RunBrief(context.Background(), TriggerManual, nil, nil)
	if !errors.Is(err, stream.ErrPartial) {
		t.Fatalf("expected ErrPartial, got %v", err)
	}
	if out.Scored {
		t.Error("partial brief must not be scored")
	}
	b, err := s.GetBrief(out.BriefID)
	if err != nil {
		t.Fatalf("GetBrief: %v", err)
	}
	if !b.Partial {
		t.Error("brief should be stored as partial")
	}
	c, _ := s.GetCountry("ZA")
	if c.OverallScore != 50 {
		t.Errorf("country should be unchanged, got %d", c.OverallScore)
	}
	entries, _ := scans.Recent(1)
	if len(entries) != 1 || entries[0].Outcome != logging.OutcomePartial || entries[0].Scored {
		t.Errorf("unexpected scan entries: %+v", entries)
	}
}

func TestRunBrief_NoScoreBlock(t *testing.T) {
	s := seeded(t)
	o, scans := newOrch(t, s, &fakeGenerator{content: "All quiet. Threat level GREEN."})

	out, err := o.RunBrief(context.Background(), TriggerManual, nil, nil)
	if err != nil {
		t.Fatalf("RunBrief: %v", err)
	}
	if out.Scored {
		t.Error("expected unscored outcome")
	}
	if out.Brief.ThreatLevel != threat.TierGreen {
		t.Errorf("expected GREEN headline, got %s", out.Brief.ThreatLevel)
	}
	entries, _ := scans.Recent(1)
	if len(entries) != 1 || entries[0].ScoreSource != logging.SourceNone || entries[0].Reason != "no score block" {
		t.Errorf("unexpected scan entries: %+v", entries)
	}
}

func TestRunBrief_GeneratorFailure(t *testing.T) {
	s := seeded(t)
	o, scans := newOrch(t, s, &fakeGenerator{err: intel.ErrNotConfigured})

	_, err := o.RunBrief(context.Background(), TriggerManual, nil, nil)
	if !errors.Is(err, intel.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	briefs, _ := s.ListBriefs(10)
	if len(briefs) != 0 {
		t.Errorf("failed run must not store a brief, got %d", len(briefs))
	}
	entries, _ := scans.Recent(1)
	if len(entries) != 1 || entries[0].Outcome != logging.OutcomeFailed {
		t.Errorf("unexpected scan entries: %+v", entries)
	}
}

func TestRunBrief_WithoutSubject(t *testing.T) {
	s := tempStore(t)
	gen := &fakeGenerator{content: fullScores}
	o, _ := newOrch(t, s, gen)

	out, err := o.RunBrief(context.Background(), TriggerManual, nil, nil)
	if err != nil {
		t.Fatalf("RunBrief: %v", err)
	}
	if out.Scored {
		t.Error("no country to attach scores to")
	}
	if gen.lastReq.Home != nil || gen.lastReq.HijackRisk != 0 {
		t.Errorf("unexpected request context: %+v", gen.lastReq)
	}
}

func TestRunBrief_UnknownHomeCountryNotScored(t *testing.T) {
	s := tempStore(t)
	if err := s.SaveSubject(store.SubjectProfile{FullName: "Traveller", CurrentCountry: "NA"}); err != nil {
		t.Fatalf("SaveSubject: %v", err)
	}
	gen := &fakeGenerator{content: "THREAT_SCORES:\nphysical_security: 80\n"}
	o, scans := newOrch(t, s, gen)

	out, err := o.RunBrief(context.Background(), TriggerManual, nil, nil)
	if err != nil {
		t.Fatalf("RunBrief: %v", err)
	}
	if out.Scored {
		t.Errorf("expected unscored outcome, got overall=%d tier=%s", out.Assessment.OverallScore, out.Assessment.Tier)
	}
	if out.ScoreKeys != 1 {
		t.Errorf("expected 1 parsed key, got %d", out.ScoreKeys)
	}
	if _, err := s.GetCountry("NA"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("country profile must not be created, got err=%v", err)
	}
	recs, _ := s.ListAssessments("NA", 10)
	if len(recs) != 0 {
		t.Errorf("expected no assessments, got %d", len(recs))
	}
	entries, _ := scans.Recent(1)
	if len(entries) != 1 || entries[0].Outcome != logging.OutcomeComplete || entries[0].Scored ||
		entries[0].Reason != "no home country profile" {
		t.Errorf("unexpected scan entries: %+v", entries)
	}
}

// #endregion

// #region hijacking-risk-tests

func TestHijackingRisk(t *testing.T) {
	s := seeded(t)
	o, _ := newOrch(t, s, &fakeGenerator{})

	r, err := o.HijackingRisk(context.Background())
	if err != nil {
		t.Fatalf("HijackingRisk: %v", err)
	}
	if r.Score != 50 || r.Level != "HIGH" {
		t.Errorf("expected 50/HIGH, got %d/%s", r.Score, r.Level)
	}
	if len(r.Contributions) != 1 {
		t.Errorf("only the hijacking hotspot should contribute, got %d", len(r.Contributions))
	}
}

func TestHijackingRisk_NoLocation(t *testing.T) {
	s := tempStore(t)
	if err := s.SaveSubject(store.SubjectProfile{FullName: "Nowhere", CurrentCountry: "ZA"}); err != nil {
		t.Fatalf("SaveSubject: %v", err)
	}
	o, _ := newOrch(t, s, &fakeGenerator{})

	if _, err := o.HijackingRisk(context.Background()); !errors.Is(err, ErrNoLocation) {
		t.Fatalf("expected ErrNoLocation, got %v", err)
	}
}

func TestNewOrchestrator_RequiresGenerator(t *testing.T) {
	s := tempStore(t)
	if _, err := NewOrchestrator(Deps{Profiles: s, Incidents: s, Scores: s, Briefs: s}); err == nil {
		t.Fatal("expected error without generator")
	}
}

// #endregion
