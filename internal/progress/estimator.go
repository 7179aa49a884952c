package progress

import "fmt"

// #region curve
const (
	connectingPercent = 5
	searchBase        = 10
	searchStep        = 4
	searchCap         = 50
	analyzeBump       = 2
	writingStart      = 55
	writeBase         = 50
	writeCap          = 95
	charsPerPoint     = 80
	charsPerStep      = 500
	donePercent       = 100
)

// #endregion curve

// #region estimator
// Estimator maps decoder state to a Snapshot. It holds no per-stream state
// and may be shared across goroutines.
type Estimator struct {
	phrases Phrases
}

// NewEstimator copies p; empty phrase lists fall back to the defaults.
func NewEstimator(p Phrases) *Estimator {
	def := DefaultPhrases()
	if len(p.Search) == 0 {
		p.Search = def.Search
	}
	if len(p.Write) == 0 {
		p.Write = def.Write
	}
	p.Search = append([]string(nil), p.Search...)
	p.Write = append([]string(nil), p.Write...)
	return &Estimator{phrases: p}
}

// Estimate returns the snapshot following prev for in. Percent never drops
// below prev.Percent; when the raw curve would go backwards the new label is
// reported at the previous percent. Inputs that change nothing return prev.
func (e *Estimator) Estimate(prev Snapshot, in Input) Snapshot {
	next, ok := e.compute(prev, in)
	if !ok {
		return prev
	}
	next.Percent = clamp(next.Percent)
	if next.Percent < prev.Percent {
		next.Percent = prev.Percent
	}
	return next
}

func (e *Estimator) compute(prev Snapshot, in Input) (Snapshot, bool) {
	switch in.Event {
	case EventStart:
		return Snapshot{Phase: PhaseConnecting, Label: e.phrases.Connecting, Percent: connectingPercent}, true
	case EventToolStart:
		n := max(in.ToolInvocations, 1)
		return Snapshot{Phase: PhaseSearching, Label: e.searchLabel(n, in), Percent: searchPercent(n)}, true
	case EventToolResult:
		n := max(in.ToolInvocations, 1)
		return Snapshot{
			Phase:   PhaseAnalyzing,
			Label:   fmt.Sprintf(e.phrases.Analyzing, n),
			Percent: searchPercent(n) + analyzeBump,
		}, true
	case EventTextStart:
		if in.TextBlocks != 1 {
			return prev, false
		}
		return Snapshot{Phase: PhaseWriting, Label: e.phrases.Writing, Percent: writingStart}, true
	case EventTextDelta:
		step := in.Chars / charsPerStep
		if in.InsideToolInvocation || step == 0 || step <= in.PrevChars/charsPerStep {
			return prev, false
		}
		pct := min(writeCap, writeBase+in.Chars/charsPerPoint)
		phrase := e.phrases.Write[step%len(e.phrases.Write)]
		return Snapshot{Phase: PhaseWriting, Label: fmt.Sprintf("%s... (~%d%%)", phrase, pct), Percent: pct}, true
	case EventInvestigating:
		return Snapshot{Phase: PhaseInvestigating, Label: e.phrases.Investigating, Percent: prev.Percent}, true
	case EventMessageStop:
		return Snapshot{Phase: PhaseComplete, Label: e.phrases.Complete, Percent: donePercent}, true
	case EventInterrupted:
		return Snapshot{Phase: PhaseInterrupted, Label: e.phrases.Interrupted, Percent: donePercent}, true
	default:
		return prev, false
	}
}

func (e *Estimator) searchLabel(n int, in Input) string {
	phrase := e.phrases.Search[(n-1)%len(e.phrases.Search)]
	if !in.WebSearch && in.ToolName != "" {
		return fmt.Sprintf("%s... (%s)", phrase, in.ToolName)
	}
	return fmt.Sprintf("%s... (source %d)", phrase, n)
}

// #endregion estimator

// #region helpers
func searchPercent(n int) int {
	return min(searchCap, searchBase+searchStep*n)
}

func clamp(p int) int {
	switch {
	case p < 0:
		return 0
	case p > donePercent:
		return donePercent
	}
	return p
}

// #endregion helpers
