package engine

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/nandflash/picoflash/chip"
	"github.com/nandflash/picoflash/protocol"
)

func TestRunManualSelectionAdoptsChosenDescriptor(t *testing.T) {
	desc := testDescriptor(t, 1)
	e, _ := testEngine(desc)
	e.known = false // force the unknown-chip path this test exercises

	want, ok := chip.ByIndex(0)
	if !ok {
		t.Fatal("registry is empty")
	}
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, 0)
	sess, out := newTestSession(protocol.Frame{Cmd: protocol.CmdSelect, Payload: payload})

	if err := e.runManualSelection(sess); err != nil {
		t.Fatal(err)
	}

	if !e.known || e.current.FullName() != want.FullName() {
		t.Errorf("adopted descriptor = %+v, want %+v", e.current, want)
	}

	frames := decodeAll(t, out)
	if len(frames) < 3 {
		t.Fatalf("expected at least UNKNOWN, bracketed list and final MODEL, got %d frames", len(frames))
	}
	if string(frames[0].Payload) != unknownModel {
		t.Errorf("first frame payload = %q, want %q", frames[0].Payload, unknownModel)
	}
	if string(frames[1].Payload) != selectionBegin {
		t.Errorf("second frame payload = %q, want %q", frames[1].Payload, selectionBegin)
	}
	last := frames[len(frames)-1]
	if string(last.Payload) != want.FullName() {
		t.Errorf("final MODEL payload = %q, want %q", last.Payload, want.FullName())
	}

	var sawEnd bool
	for _, f := range frames {
		if bytes.Equal(f.Payload, []byte(selectionEnd)) {
			sawEnd = true
		}
	}
	if !sawEnd {
		t.Error("expected an END_SELECTION sentinel frame")
	}
}

func TestRunManualSelectionRejectsOutOfRangeIndexThenAccepts(t *testing.T) {
	desc := testDescriptor(t, 1)
	e, _ := testEngine(desc)
	e.known = false

	badPayload := make([]byte, 4)
	binary.LittleEndian.PutUint32(badPayload, 9999)
	goodPayload := make([]byte, 4)
	binary.LittleEndian.PutUint32(goodPayload, 0)

	sess, out := newTestSession(
		protocol.Frame{Cmd: protocol.CmdSelect, Payload: badPayload},
		protocol.Frame{Cmd: protocol.CmdSelect, Payload: goodPayload},
	)

	if err := e.runManualSelection(sess); err != nil {
		t.Fatal(err)
	}
	if !e.known {
		t.Fatal("expected a descriptor to eventually be adopted")
	}

	frames := decodeAll(t, out)
	var sawErr bool
	for _, f := range frames {
		if f.Cmd == protocol.CmdError {
			sawErr = true
		}
	}
	if !sawErr {
		t.Error("expected an ERROR frame for the out-of-range SELECT")
	}
}
