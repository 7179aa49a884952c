package orchestrator

// #region imports
import (
	"context"
	"errors"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/georisk"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/intel"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/progress"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/store"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/stream"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// #endregion

// #region trigger

// Trigger records why a brief was requested.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
	TriggerQuickScan Trigger = "quick_scan"
)

// BriefType maps the trigger to the prompt and budget it runs with.
func (t Trigger) BriefType() intel.BriefType {
	if t == TriggerQuickScan {
		return intel.BriefQuick
	}
	return intel.BriefDaily
}

// #endregion

// #region collaborators

// ProfileStore reads the subject and the context that goes into a brief.
type ProfileStore interface {
	GetActiveSubject() (store.SubjectProfile, error)
	GetCountry(code string) (store.CountryProfile, error)
	ListWatchlist() ([]store.WatchlistItem, error)
	ActivePersonalAlerts() ([]store.PersonalAlert, error)
}

// IncidentStore lists active incidents; "" means every country.
type IncidentStore interface {
	GetActiveIncidents(country string) ([]store.Hotspot, error)
}

// ScoreStore persists aggregation runs.
type ScoreStore interface {
	SaveAssessment(rec store.AssessmentRecord) (store.AssessmentRecord, error)
}

// BriefStore persists generated briefs.
type BriefStore interface {
	SaveBrief(b store.Brief) (store.Brief, error)
}

// Generator streams a brief from the remote service.
type Generator interface {
	GenerateBrief(ctx context.Context, req intel.BriefRequest, text stream.TextSink, sink progress.Sink) (intel.Brief, error)
}

// ScanLogger writes one provenance row per run.
type ScanLogger interface {
	LogScan(entry logging.ScanEntry) error
}

// #endregion

// #region outcome

// ErrNoLocation is returned by HijackingRisk when the subject has no home
// coordinates.
var ErrNoLocation = errors.New("subject has no home location")

// Outcome summarizes one RunBrief call.
type Outcome struct {
	BriefID     string
	Trigger     Trigger
	Brief       intel.Brief
	CountryCode string
	Scored      bool
	ScoreKeys   int
	Scores      threat.DomainScoreSet
	Assessment  threat.RiskAssessment
	HijackRisk  int
	HijackLevel string
}

// RiskReport is a hijacking risk evaluation for the active subject.
type RiskReport struct {
	Score         int
	Level         string
	VehicleType   string
	Latitude      float64
	Longitude     float64
	Contributions []georisk.Contribution
}

// #endregion
