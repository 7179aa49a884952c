package orchestrator

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goa.design/clue/log"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/georisk"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/intel"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/progress"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/store"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/stream"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/telemetry"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// #endregion

// #region orchestrator-struct

// Deps are the collaborators an Orchestrator is wired with. *store.Store
// satisfies every store interface.
type Deps struct {
	Profiles  ProfileStore
	Incidents IncidentStore
	Scores    ScoreStore
	Briefs    BriefStore
	Generator Generator
	ScanLog   ScanLogger
	Engine    *threat.Engine
	Risk      *georisk.Model
	Metrics   *telemetry.Metrics
	Now       func() time.Time
}

// Orchestrator runs one brief end to end: gather context, stream, persist,
// score.
type Orchestrator struct {
	d Deps
}

// #endregion

// #region constructor

// NewOrchestrator validates deps and fills the optional ones.
func NewOrchestrator(d Deps) (*Orchestrator, error) {
	if d.Profiles == nil || d.Incidents == nil || d.Scores == nil || d.Briefs == nil {
		return nil, errors.New("orchestrator: stores are required")
	}
	if d.Generator == nil {
		return nil, errors.New("orchestrator: generator is required")
	}
	if d.Engine == nil {
		e, err := threat.NewEngine(threat.DefaultConfig())
		if err != nil {
			return nil, err
		}
		d.Engine = e
	}
	if d.Risk == nil {
		d.Risk = georisk.NewModel(georisk.DefaultConfig())
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Orchestrator{d: d}, nil
}

// #endregion

// #region run-brief

// RunBrief generates, stores and scores one brief. A stream that ends early
// still stores the partial brief, skips scoring, and returns an error that
// matches stream.ErrPartial along with the outcome.
func (o *Orchestrator) RunBrief(ctx context.Context, trigger Trigger, text stream.TextSink, sink progress.Sink) (Outcome, error) {
	out := Outcome{Trigger: trigger}

	req, err := o.gather(ctx, trigger)
	if err != nil {
		o.logScan(ctx, out, logging.OutcomeFailed, err.Error())
		return out, err
	}
	out.CountryCode = req.Subject.CurrentCountry
	out.HijackRisk = req.HijackRisk
	out.HijackLevel = georisk.Level(req.HijackRisk)

	log.Infof(ctx, "[BRIEF] start trigger=%s type=%s country=%s hotspots=%d watchlist=%d",
		trigger, req.Type, out.CountryCode, len(req.Hotspots), len(req.Watchlist))

	b, genErr := o.d.Generator.GenerateBrief(ctx, req, text, sink)
	out.Brief = b
	if genErr != nil && !errors.Is(genErr, stream.ErrPartial) {
		log.Errorf(ctx, genErr, "[BRIEF] generation failed trigger=%s", trigger)
		o.logScan(ctx, out, logging.OutcomeFailed, genErr.Error())
		o.recordBrief(ctx, out, logging.OutcomeFailed)
		return out, fmt.Errorf("generate brief: %w", genErr)
	}

	saved, err := o.d.Briefs.SaveBrief(store.Brief{
		BriefID:     b.ID,
		BriefType:   string(b.Type),
		ThreatLevel: b.ThreatLevel.String(),
		Content:     b.Content,
		Partial:     b.Partial,
		TriggerType: string(trigger),
		Watchlist:   watchlistSummary(req.Watchlist),
		CreatedAt:   b.Finished.UTC(),
	})
	if err != nil {
		o.logScan(ctx, out, logging.OutcomeFailed, err.Error())
		return out, err
	}
	out.BriefID = saved.BriefID

	if genErr != nil {
		log.Warnf(ctx, "[BRIEF] partial brief=%s chars=%d: %v", out.BriefID, b.Decode.State.Chars, genErr)
		o.logScan(ctx, out, logging.OutcomePartial, genErr.Error())
		o.recordBrief(ctx, out, logging.OutcomePartial)
		return out, genErr
	}

	if err := o.score(ctx, &out, req.Home); err != nil {
		o.logScan(ctx, out, logging.OutcomeFailed, err.Error())
		return out, err
	}

	reason := ""
	switch {
	case out.Scored:
	case out.ScoreKeys > 0:
		reason = "no home country profile"
	default:
		reason = "no score block"
	}
	o.logScan(ctx, out, logging.OutcomeComplete, reason)
	o.recordBrief(ctx, out, logging.OutcomeComplete)

	log.Infof(ctx, "[BRIEF] done brief=%s level=%s scored=%v overall=%d tier=%s hijack=%d",
		out.BriefID, b.ThreatLevel, out.Scored, out.Assessment.OverallScore, out.Assessment.Tier, out.HijackRisk)
	return out, nil
}

// gather reads everything the prompts need. A missing subject or home country
// is not an error; the brief is written with what is known.
func (o *Orchestrator) gather(ctx context.Context, trigger Trigger) (intel.BriefRequest, error) {
	req := intel.BriefRequest{Type: trigger.BriefType(), Now: o.d.Now()}

	subject, err := o.d.Profiles.GetActiveSubject()
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Warnf(ctx, "[BRIEF] no subject profile, briefing without one")
	case err != nil:
		return req, fmt.Errorf("load subject: %w", err)
	}
	req.Subject = subject

	if code := subject.CurrentCountry; code != "" {
		home, err := o.d.Profiles.GetCountry(code)
		switch {
		case err == nil:
			req.Home = &home
		case !errors.Is(err, store.ErrNotFound):
			return req, fmt.Errorf("load home country: %w", err)
		}

		req.Hotspots, err = o.d.Incidents.GetActiveIncidents(code)
		if err != nil {
			return req, fmt.Errorf("load incidents: %w", err)
		}
	}

	if req.Watchlist, err = o.d.Profiles.ListWatchlist(); err != nil {
		return req, fmt.Errorf("load watchlist: %w", err)
	}
	if req.Alerts, err = o.d.Profiles.ActivePersonalAlerts(); err != nil {
		return req, fmt.Errorf("load alerts: %w", err)
	}

	if subject.HasLocation() {
		req.HijackRisk = o.d.Risk.Evaluate(subject.HomeLatitude, subject.HomeLongitude,
			subject.VehicleType, store.Incidents(req.Hotspots))
		o.d.Metrics.RecordRisk(ctx, georisk.Level(req.HijackRisk), req.HijackRisk)
	}
	return req, nil
}

// score overlays the brief's score block on the home country and persists
// the new assessment. No block, or no home country to attach it to, leaves
// out.Scored false.
func (o *Orchestrator) score(ctx context.Context, out *Outcome, home *store.CountryProfile) error {
	upd, ok := threat.ParseScoreBlock(out.Brief.Content)
	out.ScoreKeys = len(upd)
	if !ok {
		log.Warnf(ctx, "[BRIEF] no score block in brief=%s", out.BriefID)
		return nil
	}
	if out.CountryCode == "" {
		log.Warnf(ctx, "[BRIEF] score block found but subject has no country")
		return nil
	}
	if home == nil {
		log.Warnf(ctx, "[BRIEF] score block found but country %s has no profile; not scoring", out.CountryCode)
		return nil
	}

	out.Scores = upd.Apply(home.Scores)
	out.Assessment = o.d.Engine.Assess(out.Scores)

	if _, err := o.d.Scores.SaveAssessment(store.AssessmentRecord{
		CountryCode:  out.CountryCode,
		BriefID:      out.BriefID,
		Scores:       out.Scores,
		OverallScore: out.Assessment.OverallScore,
		Tier:         out.Assessment.Tier.String(),
		CreatedAt:    o.d.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	out.Scored = true
	o.d.Metrics.RecordAssessment(ctx, out.CountryCode, out.Assessment.Tier.String(), out.Assessment.OverallScore)
	return nil
}

// #endregion

// #region hijacking-risk

// HijackingRisk evaluates the risk model for the active subject from stored
// incidents only.
func (o *Orchestrator) HijackingRisk(ctx context.Context) (RiskReport, error) {
	subject, err := o.d.Profiles.GetActiveSubject()
	if err != nil {
		return RiskReport{}, fmt.Errorf("load subject: %w", err)
	}
	if !subject.HasLocation() {
		return RiskReport{}, ErrNoLocation
	}
	hs, err := o.d.Incidents.GetActiveIncidents(subject.CurrentCountry)
	if err != nil {
		return RiskReport{}, fmt.Errorf("load incidents: %w", err)
	}
	incidents := store.Incidents(hs)
	lat, lon := subject.HomeLatitude, subject.HomeLongitude

	score := o.d.Risk.Evaluate(lat, lon, subject.VehicleType, incidents)
	r := RiskReport{
		Score:         score,
		Level:         georisk.Level(score),
		VehicleType:   subject.VehicleType,
		Latitude:      lat,
		Longitude:     lon,
		Contributions: o.d.Risk.Breakdown(lat, lon, incidents),
	}
	o.d.Metrics.RecordRisk(ctx, r.Level, r.Score)
	log.Infof(ctx, "[RISK] hijacking score=%d level=%s incidents=%d", r.Score, r.Level, len(r.Contributions))
	return r, nil
}

// #endregion

// #region provenance

func (o *Orchestrator) logScan(ctx context.Context, out Outcome, outcome, reason string) {
	if o.d.ScanLog == nil {
		return
	}
	source := logging.SourceNone
	if out.Scored {
		source = logging.SourceStream
	}
	st := out.Brief.Decode.State
	detail, _ := json.Marshal(logging.ScanDetail{
		ToolInvocations: st.ToolInvocations,
		TextBlocks:      st.TextBlocks,
		Chars:           st.Chars,
		FinalPercent:    out.Brief.Decode.Final.Percent,
		FinalPhase:      out.Brief.Decode.Final.Phase.String(),
		DurationMS:      out.Brief.Duration().Milliseconds(),
		HijackRisk:      out.HijackRisk,
		ScoreKeys:       out.ScoreKeys,
	})
	entry := logging.ScanEntry{
		BriefID:      out.BriefID,
		TriggerType:  string(out.Trigger),
		Outcome:      outcome,
		ScoreSource:  source,
		CountryCode:  out.CountryCode,
		Scored:       out.Scored,
		OverallScore: out.Assessment.OverallScore,
		Reason:       reason,
		DetailJSON:   string(detail),
	}
	if out.Scored {
		entry.Tier = out.Assessment.Tier.String()
	}
	if err := o.d.ScanLog.LogScan(entry); err != nil {
		log.Errorf(ctx, err, "[BRIEF] failed to write scan log")
	}
}

func (o *Orchestrator) recordBrief(ctx context.Context, out Outcome, outcome string) {
	st := out.Brief.Decode.State
	o.d.Metrics.RecordBrief(ctx, telemetry.BriefRun{
		Trigger:         string(out.Trigger),
		Outcome:         outcome,
		ToolInvocations: st.ToolInvocations,
		Chars:           st.Chars,
		Duration:        out.Brief.Duration(),
	})
}

func watchlistSummary(items []store.WatchlistItem) string {
	if len(items) == 0 {
		return ""
	}
	labels := make([]string, len(items))
	for i, w := range items {
		labels[i] = intel.WatchlistLabel(w)
	}
	b, _ := json.Marshal(labels)
	return string(b)
}

// #endregion
