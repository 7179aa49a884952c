package intel

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/store"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/stream"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/threat"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("intel: api key not configured")

// #region brief-type
// BriefType selects the prompt and request budget.
type BriefType string

const (
	BriefDaily BriefType = "daily"
	BriefQuick BriefType = "quick"
)

// #endregion brief-type

// #region request
// BriefRequest is everything the prompts are built from.
type BriefRequest struct {
	Type       BriefType
	Subject    store.SubjectProfile
	Home       *store.CountryProfile
	Hotspots   []store.Hotspot
	Watchlist  []store.WatchlistItem
	Alerts     []store.PersonalAlert
	HijackRisk int
	Now        time.Time
}

// #endregion request

// #region brief
// Brief is one generated brief, complete or partial.
type Brief struct {
	ID          string
	Type        BriefType
	Content     string
	Partial     bool
	ThreatLevel threat.Tier
	Decode      stream.Result
	Skipped     int
	Started     time.Time
	Finished    time.Time
}

// Duration is the wall time from request to last event.
func (b Brief) Duration() time.Duration {
	return b.Finished.Sub(b.Started)
}

// #endregion brief
