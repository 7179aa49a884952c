package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// #region kinds
// EventKind is the discriminator of a StreamEvent.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindBlockStart
	KindBlockDelta
	KindBlockStop
	KindMessageStop
)

func (k EventKind) String() string {
	switch k {
	case KindBlockStart:
		return "content_block_start"
	case KindBlockDelta:
		return "content_block_delta"
	case KindBlockStop:
		return "content_block_stop"
	case KindMessageStop:
		return "message_stop"
	default:
		return "unknown"
	}
}

// BlockType classifies the content block opened by a KindBlockStart event.
type BlockType int

const (
	BlockNone BlockType = iota
	BlockText
	BlockToolUse
	BlockToolResult
)

func (b BlockType) String() string {
	switch b {
	case BlockText:
		return "text"
	case BlockToolUse:
		return "tool_use"
	case BlockToolResult:
		return "tool_result"
	default:
		return "none"
	}
}

// #endregion kinds

// #region event
// StreamEvent is one decoded payload. Fields not relevant to Kind are zero.
type StreamEvent struct {
	Kind             EventKind
	BlockType        BlockType
	ToolName         string
	DeltaText        string
	PartialToolInput string
}

var errNotObject = errors.New("payload is not a JSON object")

// ParseEvent decodes one data payload. Fields with an unexpected JSON type are
// treated as absent; only payloads that are not a JSON object are rejected.
func ParseEvent(payload []byte) (StreamEvent, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return StreamEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if raw == nil {
		return StreamEvent{}, fmt.Errorf("decode event: %w", errNotObject)
	}

	var ev StreamEvent
	switch str(raw, "type") {
	case "content_block_start":
		ev.Kind = KindBlockStart
		block := obj(raw, "content_block")
		ev.BlockType = classifyBlock(str(block, "type"))
		if ev.BlockType == BlockToolUse {
			ev.ToolName = str(block, "name")
		}
	case "content_block_delta":
		ev.Kind = KindBlockDelta
		delta := obj(raw, "delta")
		switch str(delta, "type") {
		case "text_delta":
			ev.DeltaText = str(delta, "text")
		case "input_json_delta":
			ev.PartialToolInput = str(delta, "partial_json")
		default:
			ev.DeltaText = str(delta, "text")
			ev.PartialToolInput = str(delta, "partial_json")
		}
	case "content_block_stop":
		ev.Kind = KindBlockStop
	case "message_stop":
		ev.Kind = KindMessageStop
	default:
		ev.Kind = KindUnknown
	}
	return ev, nil
}

func classifyBlock(t string) BlockType {
	switch {
	case t == "text":
		return BlockText
	case t == "tool_use" || strings.HasSuffix(t, "_tool_use"):
		return BlockToolUse
	case t == "tool_result" || strings.HasSuffix(t, "_tool_result"):
		return BlockToolResult
	default:
		return BlockNone
	}
}

func obj(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// #endregion event

// #region event-reader
// EventReader yields decoded events from a raw stream. Frames whose payload
// cannot be decoded are skipped and counted.
type EventReader struct {
	frames  *FrameReader
	cur     StreamEvent
	skipped int
}

func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{frames: NewFrameReader(r)}
}

func (e *EventReader) Next() bool {
	for e.frames.Next() {
		ev, err := ParseEvent([]byte(e.frames.Frame().Payload))
		if err != nil {
			e.skipped++
			continue
		}
		e.cur = ev
		return true
	}
	return false
}

func (e *EventReader) Event() StreamEvent { return e.cur }
func (e *EventReader) Err() error { return e.frames.Err() }
func (e *EventReader) Terminated() bool { return e.frames.Terminated() }

// Skipped returns how many malformed frames were dropped so far.
func (e *EventReader) Skipped() int { return e.skipped }

// #endregion event-reader

// #region slice-source
// SliceSource replays a fixed list of events. A non-nil Cause is reported by
// Err once the list is exhausted.
type SliceSource struct {
	events []StreamEvent
	pos    int
	Cause  error
}

func NewSliceSource(events ...StreamEvent) *SliceSource {
	return &SliceSource{events: events}
}

func (s *SliceSource) Next() bool {
	if s.pos >= len(s.events) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceSource) Event() StreamEvent { return s.events[s.pos-1] }

func (s *SliceSource) Err() error {
	if s.pos >= len(s.events) {
		return s.Cause
	}
	return nil
}

// #endregion slice-source
