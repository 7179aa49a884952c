package stream

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/progress"
)

// #region helpers
type recorder struct {
	deltas    []string
	snapshots []progress.Snapshot
}

func (r *recorder) OnTextDelta(s string) { r.deltas = append(r.deltas, s) }
func (r *recorder) OnProgress(s progress.Snapshot) { r.snapshots = append(r.snapshots, s) }
func (r *recorder) percents() []int {
	out := make([]int, len(r.snapshots))
	for i, s := range r.snapshots {
		out[i] = s.Percent
	}
	return out
}

func newDecoder(rec *recorder) *Decoder {
	return NewDecoder(progress.NewEstimator(progress.DefaultPhrases()), rec, rec)
}

func toolStart(name string) StreamEvent {
	return StreamEvent{Kind: KindBlockStart, BlockType: BlockToolUse, ToolName: name}
}

var (
	toolResult  = StreamEvent{Kind: KindBlockStart, BlockType: BlockToolResult}
	textStart   = StreamEvent{Kind: KindBlockStart, BlockType: BlockText}
	blockStop   = StreamEvent{Kind: KindBlockStop}
	messageStop = StreamEvent{Kind: KindMessageStop}
)

func delta(s string) StreamEvent {
	return StreamEvent{Kind: KindBlockDelta, DeltaText: s}
}

func sseLine(v any) string {
	b, _ := json.Marshal(v)
	return "data: " + string(b) + "\n\n"
}

// #endregion helpers

// #region decode-tests
func TestDecode_SearchThenText(t *testing.T) {
	rec := &recorder{}
	src := NewSliceSource(
		toolStart("web_search"), blockStop,
		toolResult, blockStop,
		textStart, delta("Hello"), blockStop,
		messageStop,
	)

	res, err := newDecoder(rec).Decode(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "Hello", res.Text)
	assert.False(t, res.Partial)
	assert.Equal(t, []int{5, 14, 16, 55, 100}, rec.percents())
	assert.Equal(t, "Contacting field sources... (source 1)", rec.snapshots[1].Label)
	assert.Equal(t, "Analyzing source 1 findings...", rec.snapshots[2].Label)
	assert.Equal(t, "Intelligence brief secured.", rec.snapshots[4].Label)
	assert.Equal(t, 1, res.State.ToolInvocations)
	assert.Equal(t, 1, res.State.TextBlocks)
}

func TestDecode_TextOnlyCrossesBoundaries(t *testing.T) {
	rec := &recorder{}
	chunk := strings.Repeat("x", 250)
	events := []StreamEvent{textStart}
	for i := 0; i < 8; i++ {
		events = append(events, delta(chunk))
	}
	events = append(events, blockStop, messageStop)

	res, err := newDecoder(rec).Decode(context.Background(), NewSliceSource(events...))
	require.NoError(t, err)
	assert.Equal(t, 2000, res.State.Chars)
	// 500 -> 56, 1000 -> 62, 1500 -> 68, 2000 -> 75
	assert.Equal(t, []int{5, 55, 56, 62, 68, 75, 100}, rec.percents())
	assert.Equal(t, "Drafting situation report... (~56%)", rec.snapshots[2].Label)
	assert.Equal(t, "Compiling threat matrix... (~62%)", rec.snapshots[3].Label)
	assert.Equal(t, "Building executive brief... (~75%)", rec.snapshots[5].Label)
	require.Len(t, rec.deltas, 8)
	for i, d := range rec.deltas {
		assert.Equal(t, chunk, d, "delta %d", i)
	}
}

func TestDecode_EmptyStreamYieldsSentinel(t *testing.T) {
	rec := &recorder{}
	res, err := newDecoder(rec).Decode(context.Background(), NewSliceSource(messageStop))
	require.NoError(t, err)
	assert.Equal(t, NoContent, res.Text)
	assert.True(t, res.Empty)
	assert.Empty(t, rec.deltas)
	assert.Equal(t, 100, res.Final.Percent)
}

func TestDecode_PrematureCloseIsPartial(t *testing.T) {
	rec := &recorder{}
	src := NewSliceSource(textStart, delta("Situation: "), delta("stable"))
	src.Cause = errors.New("unexpected EOF")

	res, err := newDecoder(rec).Decode(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartial)
	var pe *PartialError
	require.ErrorAs(t, err, &pe)
	assert.EqualError(t, pe.Cause, "unexpected EOF")
	assert.True(t, res.Partial)
	assert.Equal(t, "Situation: stable", res.Text)
	assert.Equal(t, progress.PhaseInterrupted, res.Final.Phase)
	assert.Equal(t, 100, res.Final.Percent)
}

func TestDecode_CleanEOFWithoutStopIsPartial(t *testing.T) {
	res, err := newDecoder(&recorder{}).Decode(context.Background(), NewSliceSource(textStart, delta("a")))
	assert.ErrorIs(t, err, ErrPartial)
	assert.True(t, res.Partial)
	assert.Equal(t, "a", res.Text)
}

func TestDecode_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newDecoder(&recorder{}).Decode(ctx, NewSliceSource(textStart, delta("never"), messageStop))
	assert.ErrorIs(t, err, ErrPartial)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Partial)
	assert.Equal(t, NoContent, res.Text)
}

func TestDecode_DeltaBeforeBlockStart(t *testing.T) {
	res, err := newDecoder(&recorder{}).Decode(context.Background(), NewSliceSource(delta("orphan"), messageStop))
	require.NoError(t, err)
	assert.Equal(t, "orphan", res.Text)
}

func TestDecode_QueryInputInvestigates(t *testing.T) {
	rec := &recorder{}
	src := NewSliceSource(
		toolStart("web_search"),
		StreamEvent{Kind: KindBlockDelta, PartialToolInput: `{"query": "Johannesburg`},
		messageStop,
	)
	_, err := newDecoder(rec).Decode(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, rec.snapshots, 4)
	assert.Equal(t, "Investigating lead...", rec.snapshots[2].Label)
	assert.Equal(t, 14, rec.snapshots[2].Percent)
}

func TestDecode_MessageStopEndsReading(t *testing.T) {
	res, err := newDecoder(&recorder{}).Decode(context.Background(), NewSliceSource(textStart, delta("a"), messageStop, delta("b")))
	require.NoError(t, err)
	assert.Equal(t, "a", res.Text)
}

func TestDecode_RawTranscript(t *testing.T) {
	raw := "event: message_start\n" +
		sseLine(map[string]any{"type": "message_start", "message": map[string]any{"id": "msg_1"}}) +
		sseLine(map[string]any{"type": "content_block_start", "index": 0, "content_block": map[string]any{"type": "text", "text": ""}}) +
		sseLine(map[string]any{"type": "content_block_delta", "index": 0, "delta": map[string]any{"type": "text_delta", "text": "Threat "}}) +
		"data: {garbage\n\n" +
		sseLine(map[string]any{"type": "content_block_delta", "index": 0, "delta": map[string]any{"type": "text_delta", "text": "level: YELLOW"}}) +
		sseLine(map[string]any{"type": "content_block_stop", "index": 0}) +
		sseLine(map[string]any{"type": "message_stop"})

	res, err := newDecoder(&recorder{}).Decode(context.Background(), NewEventReader(strings.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, "Threat level: YELLOW", res.Text)
}

func TestDecode_DoneSentinelIsClean(t *testing.T) {
	raw := sseLine(map[string]any{"type": "content_block_delta", "delta": map[string]any{"type": "text_delta", "text": "ok"}}) +
		"data: [DONE]\n"
	res, err := newDecoder(&recorder{}).Decode(context.Background(), NewEventReader(strings.NewReader(raw)))
	require.NoError(t, err)
	assert.False(t, res.Partial)
	assert.Equal(t, "ok", res.Text)
}

// #endregion decode-tests

// #region properties
func TestDecode_Properties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("sink sees each delta and text is their concatenation", prop.ForAll(
		func(chunks []string) bool {
			var raw strings.Builder
			raw.WriteString(sseLine(map[string]any{"type": "content_block_start", "content_block": map[string]any{"type": "text"}}))
			for _, c := range chunks {
				raw.WriteString(sseLine(map[string]any{"type": "content_block_delta", "delta": map[string]any{"type": "text_delta", "text": c}}))
			}
			raw.WriteString(sseLine(map[string]any{"type": "message_stop"}))

			rec := &recorder{}
			res, err := newDecoder(rec).Decode(context.Background(), NewEventReader(strings.NewReader(raw.String())))
			if err != nil {
				return false
			}
			var nonEmpty []string
			for _, c := range chunks {
				if c != "" {
					nonEmpty = append(nonEmpty, c)
				}
			}
			if !slices.Equal(rec.deltas, nonEmpty) {
				return false
			}
			want := strings.Join(chunks, "")
			if want == "" {
				return res.Text == NoContent
			}
			return res.Text == want
		},
		gen.SliceOf(gen.AnyString()),
	))

	properties.Property("percent never decreases", prop.ForAll(
		func(kinds []int, sizes []int) bool {
			var events []StreamEvent
			for i, k := range kinds {
				switch k {
				case 0:
					events = append(events, toolStart("web_search"))
				case 1:
					events = append(events, toolResult)
				case 2:
					events = append(events, textStart)
				case 3:
					n := 1
					if i < len(sizes) {
						n = sizes[i]
					}
					events = append(events, delta(strings.Repeat("y", n)))
				default:
					events = append(events, blockStop)
				}
			}
			events = append(events, messageStop)

			rec := &recorder{}
			if _, err := newDecoder(rec).Decode(context.Background(), NewSliceSource(events...)); err != nil {
				return false
			}
			p := rec.percents()
			for i := 1; i < len(p); i++ {
				if p[i] < p[i-1] {
					return false
				}
			}
			return p[len(p)-1] == 100
		},
		gen.SliceOf(gen.IntRange(0, 4)),
		gen.SliceOf(gen.IntRange(1, 900)),
	))

	properties.TestingRun(t)
}

// #endregion properties
