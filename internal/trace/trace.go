// Package trace implements the tracing channel spec.md §6 names as a
// persisted format: a fixed little-endian header (event kind, thread id,
// time in microseconds, payload length) followed by raw payload bytes,
// one record per event, append-only. Ground truth:
// original_source/src/alloy/tracing/{tracer.cc,event_type.h,
// channels/file_channel.cc}.
package trace

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/rs/xid"
)

// EventKind identifies what a trace record describes.
type EventKind uint16

const (
	EventFunctionEnter EventKind = iota
	EventFunctionExit
	EventTrap
	EventMemoryRead
	EventMemoryWrite
)

// header is the fixed 24-byte record prefix: kind, thread id, time_us,
// payload length, all little-endian, matching the original's packed
// struct layout.
type header struct {
	Kind       uint16
	_          uint16 // padding, keeps ThreadID 4-byte aligned like the original
	ThreadID   uint32
	TimeMicros uint64
	PayloadLen uint32
	_          uint32 // padding to a 24-byte record
}

const headerSize = 24

// Writer appends events to an underlying stream, stamping every session
// with a collision-free sortable id (github.com/rs/xid) embedded in the
// channel's own session marker record -- written once, at Open.
type Writer struct {
	w         io.Writer
	SessionID xid.ID
}

// NewWriter wraps w and emits a session-marker record carrying a freshly
// minted xid as its payload.
func NewWriter(w io.Writer) (*Writer, error) {
	tw := &Writer{w: w, SessionID: xid.New()}
	if err := tw.WriteEventAt(EventFunctionEnter, 0, 0, tw.SessionID.Bytes()); err != nil {
		return nil, fmt.Errorf("trace: writing session marker: %w", err)
	}
	return tw, nil
}

// WriteEvent appends one record: kind, the originating thread id, and an
// opaque payload, stamped with the current time. WriteEventAt exists
// alongside it for tests that need a deterministic timestamp.
func (w *Writer) WriteEvent(kind EventKind, threadID uint32, payload []byte) error {
	return w.WriteEventAt(kind, threadID, uint64(time.Now().UnixMicro()), payload)
}

// WriteEventAt appends one record with an explicit microsecond
// timestamp, bypassing the wall clock.
func (w *Writer) WriteEventAt(kind EventKind, threadID uint32, timeMicros uint64, payload []byte) error {
	h := header{Kind: uint16(kind), ThreadID: threadID, TimeMicros: timeMicros, PayloadLen: uint32(len(payload))}
	if err := binary.Write(w.w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("trace: writing header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("trace: writing payload: %w", err)
	}
	return nil
}

// Event is one decoded trace record, used only by Reader (tests verify
// round-tripping through this package; nothing on the hot JIT path reads
// the channel back).
type Event struct {
	Kind       EventKind
	ThreadID   uint32
	TimeMicros uint64
	Payload    []byte
}

// Reader decodes the record stream a Writer produced.
type Reader struct {
	r io.Reader
}

// NewReader wraps r for sequential event decoding.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// ReadEvent decodes the next record, or returns io.EOF once the stream is
// exhausted.
func (r *Reader) ReadEvent() (Event, error) {
	var h header
	if err := binary.Read(r.r, binary.LittleEndian, &h); err != nil {
		return Event{}, err
	}
	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r.r, payload); err != nil {
			return Event{}, fmt.Errorf("trace: reading payload: %w", err)
		}
	}
	return Event{Kind: EventKind(h.Kind), ThreadID: h.ThreadID, TimeMicros: h.TimeMicros, Payload: payload}, nil
}
