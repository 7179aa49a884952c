package stream

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/progress"
)

// #region constants
// NoContent is returned as the text of a stream that carried no text deltas.
const NoContent = "No response content."

// QueryMarker in a partial tool input means the model is composing a search.
const QueryMarker = "query"

// WebSearchTool is the server-side tool name the labels special-case.
const WebSearchTool = "web_search"

// #endregion constants

// #region errors
// ErrPartial marks a stream that ended before message_stop.
var ErrPartial = errors.New("stream ended before message_stop")

// PartialError carries the transport error, if any, behind a partial result.
type PartialError struct {
	Cause error
}

func (e *PartialError) Error() string {
	if e.Cause == nil {
		return ErrPartial.Error()
	}
	return ErrPartial.Error() + ": " + e.Cause.Error()
}

func (e *PartialError) Is(target error) bool { return target == ErrPartial }
func (e *PartialError) Unwrap() error { return e.Cause }

// #endregion errors

// #region source
// Source yields events in arrival order.
type Source interface {
	Next() bool
	Event() StreamEvent
	Err() error
}

type terminator interface {
	Terminated() bool
}

// TextSink receives text deltas as they arrive.
type TextSink interface {
	OnTextDelta(string)
}

// TextSinkFunc adapts a plain function to TextSink.
type TextSinkFunc func(string)

func (f TextSinkFunc) OnTextDelta(s string) { f(s) }

// #endregion source

// #region state
// State is the running tally for one stream.
type State struct {
	ToolInvocations      int
	TextBlocks           int
	InsideToolInvocation bool
	Chars                int
	LastTool             string
}

// Result is what Decode hands back once the stream ends.
type Result struct {
	Text    string
	Empty   bool
	Partial bool
	State   State
	Final   progress.Snapshot
}

// #endregion state

// #region decoder
// Decoder turns events into accumulated text plus progress snapshots. A
// Decoder may run many streams; each Decode call gets its own state.
type Decoder struct {
	estimator *progress.Estimator
	text      TextSink
	progress  progress.Sink
}

// NewDecoder builds a decoder. Nil sinks are allowed.
func NewDecoder(est *progress.Estimator, text TextSink, sink progress.Sink) *Decoder {
	if est == nil {
		est = progress.NewEstimator(progress.DefaultPhrases())
	}
	return &Decoder{estimator: est, text: text, progress: sink}
}

// Decode consumes src until message_stop, the done sentinel, end of input, or
// cancellation. Anything short of a clean end returns the text so far with
// Partial set and a *PartialError.
func (d *Decoder) Decode(ctx context.Context, src Source) (Result, error) {
	r := &run{dec: d}
	r.emit(progress.EventStart, 0)

	for {
		if err := ctx.Err(); err != nil {
			return r.finish(false, err)
		}
		if !src.Next() {
			break
		}
		if stop := r.apply(src.Event()); stop {
			return r.finish(true, nil)
		}
	}

	if err := src.Err(); err != nil {
		return r.finish(false, err)
	}
	if t, ok := src.(terminator); ok && t.Terminated() {
		return r.finish(true, nil)
	}
	if err := ctx.Err(); err != nil {
		return r.finish(false, err)
	}
	return r.finish(false, nil)
}

// #endregion decoder

// #region run
type run struct {
	dec     *Decoder
	state   State
	text    strings.Builder
	last    progress.Snapshot
	emitted bool
}

func (r *run) apply(ev StreamEvent) bool {
	switch ev.Kind {
	case KindBlockStart:
		switch ev.BlockType {
		case BlockToolUse:
			r.state.ToolInvocations++
			r.state.InsideToolInvocation = true
			r.state.LastTool = ev.ToolName
			r.emit(progress.EventToolStart, 0)
		case BlockToolResult:
			r.state.InsideToolInvocation = false
			r.emit(progress.EventToolResult, 0)
		case BlockText:
			r.state.InsideToolInvocation = false
			r.state.TextBlocks++
			r.emit(progress.EventTextStart, 0)
		}
	case KindBlockDelta:
		if ev.DeltaText != "" {
			prev := r.state.Chars
			r.text.WriteString(ev.DeltaText)
			r.state.Chars += utf8.RuneCountInString(ev.DeltaText)
			if r.dec.text != nil {
				r.dec.text.OnTextDelta(ev.DeltaText)
			}
			r.emit(progress.EventTextDelta, prev)
		}
		if strings.Contains(ev.PartialToolInput, QueryMarker) {
			r.emit(progress.EventInvestigating, 0)
		}
	case KindBlockStop:
		r.state.InsideToolInvocation = false
		r.emit(progress.EventBlockStop, 0)
	case KindMessageStop:
		return true
	}
	return false
}

func (r *run) emit(ev progress.Event, prevChars int) {
	in := progress.Input{
		Event:                ev,
		ToolInvocations:      r.state.ToolInvocations,
		TextBlocks:           r.state.TextBlocks,
		InsideToolInvocation: r.state.InsideToolInvocation,
		Chars:                r.state.Chars,
		PrevChars:            prevChars,
		ToolName:             r.state.LastTool,
		WebSearch:            r.state.LastTool == "" || r.state.LastTool == WebSearchTool,
	}
	next := r.dec.estimator.Estimate(r.last, in)
	if r.emitted && next == r.last {
		return
	}
	r.last = next
	r.emitted = true
	if r.dec.progress != nil {
		r.dec.progress.OnProgress(next)
	}
}

func (r *run) finish(clean bool, cause error) (Result, error) {
	if clean {
		r.emit(progress.EventMessageStop, 0)
	} else {
		r.emit(progress.EventInterrupted, 0)
	}
	res := Result{
		Text:    r.text.String(),
		Partial: !clean,
		State:   r.state,
		Final:   r.last,
	}
	if res.Text == "" {
		res.Text = NoContent
		res.Empty = true
	}
	if !clean {
		return res, &PartialError{Cause: cause}
	}
	return res, nil
}

// #endregion run
