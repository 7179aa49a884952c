package progress

// #region phase
// Phase is the coarse stage a brief is in.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseSearching
	PhaseAnalyzing
	PhaseInvestigating
	PhaseWriting
	PhaseComplete
	PhaseInterrupted
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseSearching:
		return "searching"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseInvestigating:
		return "investigating"
	case PhaseWriting:
		return "writing"
	case PhaseComplete:
		return "complete"
	case PhaseInterrupted:
		return "interrupted"
	default:
		return "idle"
	}
}

// #endregion phase

// #region snapshot
// Snapshot is one user-facing progress update.
type Snapshot struct {
	Phase   Phase
	Label   string
	Percent int
}

// Terminal reports whether no further snapshots follow this one.
func (s Snapshot) Terminal() bool {
	return s.Phase == PhaseComplete || s.Phase == PhaseInterrupted
}

// Sink receives snapshots in order.
type Sink interface {
	OnProgress(Snapshot)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(Snapshot)

func (f SinkFunc) OnProgress(s Snapshot) { f(s) }

// #endregion snapshot

// #region input
// Event names the decoder transition that produced an Input.
type Event int

const (
	EventNone Event = iota
	EventStart
	EventToolStart
	EventToolResult
	EventTextStart
	EventTextDelta
	EventBlockStop
	EventInvestigating
	EventMessageStop
	EventInterrupted
)

// Input is the decoder state after one transition.
type Input struct {
	Event                Event
	ToolInvocations      int
	TextBlocks           int
	InsideToolInvocation bool
	Chars                int
	PrevChars            int
	ToolName             string
	WebSearch            bool
}

// #endregion input

// #region phrases
// Phrases holds every user-facing wording. Analyzing takes the source
// ordinal as its only verb.
type Phrases struct {
	Connecting    string
	Search        []string
	Analyzing     string
	Investigating string
	Writing       string
	Write         []string
	Complete      string
	Interrupted   string
}

// DefaultPhrases returns the stock field-report wording.
func DefaultPhrases() Phrases {
	return Phrases{
		Connecting: "Establishing secure uplink...",
		Search: []string{
			"Contacting field sources",
			"Gathering intelligence",
			"Scanning classified feeds",
			"Intercepting signals",
			"Querying threat databases",
			"Cross-referencing assets",
			"Probing secure channels",
			"Acquiring open-source intel",
			"Tapping regional networks",
			"Extracting data",
		},
		Analyzing:     "Analyzing source %d findings...",
		Investigating: "Investigating lead...",
		Writing:       "Compiling threat assessment...",
		Write: []string{
			"Building executive brief",
			"Drafting situation report",
			"Compiling threat matrix",
			"Assembling field report",
		},
		Complete:    "Intelligence brief secured.",
		Interrupted: "Transmission interrupted. Partial brief retained.",
	}
}

// #endregion phrases
