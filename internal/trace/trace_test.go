package trace

import (
	"bytes"
	"io"
	"testing"
)

func TestWriterEmitsSessionMarkerThenEvents(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteEventAt(EventTrap, 7, 1234, []byte("trap payload")); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}

	r := NewReader(&buf)
	marker, err := r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent (marker): %v", err)
	}
	if len(marker.Payload) != len(w.SessionID.Bytes()) {
		t.Fatalf("expected the session marker payload to carry the session id")
	}

	ev, err := r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if ev.Kind != EventTrap || ev.ThreadID != 7 || ev.TimeMicros != 1234 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if string(ev.Payload) != "trap payload" {
		t.Fatalf("unexpected payload: %q", ev.Payload)
	}

	if _, err := r.ReadEvent(); err != io.EOF {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestWriterRoundTripsMultipleEvents(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	kinds := []EventKind{EventFunctionEnter, EventFunctionExit, EventMemoryRead, EventMemoryWrite}
	for i, k := range kinds {
		if err := w.WriteEventAt(k, uint32(i), uint64(i)*100, nil); err != nil {
			t.Fatalf("WriteEvent %d: %v", i, err)
		}
	}

	r := NewReader(&buf)
	if _, err := r.ReadEvent(); err != nil { // session marker
		t.Fatalf("ReadEvent (marker): %v", err)
	}
	for i, want := range kinds {
		ev, err := r.ReadEvent()
		if err != nil {
			t.Fatalf("ReadEvent %d: %v", i, err)
		}
		if ev.Kind != want {
			t.Fatalf("event %d: expected kind %v, got %v", i, want, ev.Kind)
		}
		if len(ev.Payload) != 0 {
			t.Fatalf("event %d: expected empty payload, got %v", i, ev.Payload)
		}
	}
}
