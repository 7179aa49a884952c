package logging

import "time"

// #region outcomes
const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeFailed   = "failed"

	SourceStream = "stream"
	SourceNone   = "none"
)

// #endregion outcomes

// #region scan-entry
// ScanEntry is a single row in the scan_log table.
type ScanEntry struct {
	BriefID      string
	TriggerType  string
	Outcome      string // "complete" | "partial" | "failed"
	ScoreSource  string // "stream" | "none"
	CountryCode  string
	Scored       bool
	OverallScore int
	Tier         string
	Reason       string
	DetailJSON   string
	CreatedAt    time.Time
}

// #endregion scan-entry

// #region scan-detail
// ScanDetail is serialized into scan_log.detail_json so a run can be
// compared against its transcript later.
type ScanDetail struct {
	ToolInvocations int    `json:"tool_invocations"`
	TextBlocks      int    `json:"text_blocks"`
	Chars           int    `json:"chars"`
	FinalPercent    int    `json:"final_percent"`
	FinalPhase      string `json:"final_phase"`
	DurationMS      int64  `json:"duration_ms"`
	HijackRisk      int    `json:"hijack_risk"`
	ScoreKeys       int    `json:"score_keys"`
}

// #endregion scan-detail
