package stream

import (
	"bufio"
	"io"
	"strings"
)

// #region frame
const (
	// DataField is the only field prefix that carries a payload.
	DataField = "data"
	// DoneSentinel as a data payload ends the frame sequence.
	DoneSentinel = "[DONE]"

	maxLineBytes = 4 << 20
)

// Frame is one field-prefixed line lifted out of the transport.
type Frame struct {
	Field   string
	Payload string
}

// #endregion frame

// #region frame-reader
// FrameReader splits a line-oriented source into data frames. Lines with any
// other prefix (event:, id:, comments, blanks) are dropped.
type FrameReader struct {
	scn        *bufio.Scanner
	cur        Frame
	done       bool
	terminated bool
	err        error
}

// NewFrameReader wraps r. The reader is consumed lazily by Next.
func NewFrameReader(r io.Reader) *FrameReader {
	scn := bufio.NewScanner(r)
	scn.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &FrameReader{scn: scn}
}

// Next advances to the next data frame. It returns false at end of input,
// on a read error, or after the [DONE] sentinel.
func (f *FrameReader) Next() bool {
	if f.done {
		return false
	}
	for f.scn.Scan() {
		payload, ok := cutField(f.scn.Text(), DataField)
		if !ok {
			continue
		}
		if payload == DoneSentinel {
			f.done = true
			f.terminated = true
			return false
		}
		f.cur = Frame{Field: DataField, Payload: payload}
		return true
	}
	f.done = true
	f.err = f.scn.Err()
	return false
}

// Frame returns the frame loaded by the last successful Next.
func (f *FrameReader) Frame() Frame { return f.cur }

// Err returns the read error that stopped iteration, if any.
func (f *FrameReader) Err() error { return f.err }

// Terminated reports whether iteration stopped on the [DONE] sentinel.
func (f *FrameReader) Terminated() bool { return f.terminated }

// #endregion frame-reader

// #region helpers
func cutField(line, field string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	rest, ok := strings.CutPrefix(line, field+":")
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(rest, " "), true
}

// #endregion helpers
