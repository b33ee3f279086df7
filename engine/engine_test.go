package engine

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	"github.com/nandflash/picoflash/bus"
	"github.com/nandflash/picoflash/chip"
	"github.com/nandflash/picoflash/config"
	"github.com/nandflash/picoflash/logging"
	"github.com/nandflash/picoflash/protocol"
)

// newTestSession builds a Session with no background pump: inbound frames
// are pre-loaded directly into the channel the pump would otherwise feed,
// and outbound frames land in an in-memory buffer. This keeps the
// operation-protocol tests single-goroutine and deterministic.
func newTestSession(inbound ...protocol.Frame) (*Session, *bytes.Buffer) {
	ch := make(chan frameOrErr, len(inbound)+1)
	for _, f := range inbound {
		ch <- frameOrErr{frame: f}
	}
	var out bytes.Buffer
	return &Session{frames: ch, w: &out}, &out
}

func decodeAll(t *testing.T, buf *bytes.Buffer) []protocol.Frame {
	t.Helper()
	var frames []protocol.Frame
	r := protocol.NewReader(bytes.NewReader(buf.Bytes()))
	for {
		f, err := r.ReadFrame()
		if err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("decoding emitted frames: %v", err)
		}
		frames = append(frames, f)
	}
	return frames
}

func testDescriptor(t *testing.T, blockCount int) chip.Descriptor {
	t.Helper()
	desc, err := chip.NewDescriptor("Test", "TestChip", []byte{0x01, 0x02}, 512, 16, 32, blockCount, chip.Timings{})
	if err != nil {
		t.Fatal(err)
	}
	return desc
}

func testEngine(desc chip.Descriptor) (*Engine, *bus.Sim) {
	sim := bus.NewSim(desc.PageSize, desc.SpareSize(), desc.PagesPerBlock, desc.BlockCount)
	driver := bus.New(sim.Control(), sim)
	log := logging.New(io.Discard, "engine-test", slog.LevelError, false)
	e := New(driver, config.Default(), log, nil)
	e.current = desc
	e.known = true
	return e, sim
}

func TestHandleReadEmitsAllPagesThenComplete(t *testing.T) {
	desc := testDescriptor(t, 1) // 32 pages total
	e, _ := testEngine(desc)
	sess, out := newTestSession()

	if err := e.handleRead(sess, nil); err != nil {
		t.Fatal(err)
	}

	frames := decodeAll(t, out)
	var dataCount, crcCount, lastPercent int
	for _, f := range frames {
		switch f.Cmd {
		case protocol.CmdRead:
			dataCount++
			if len(f.Payload) != desc.PageBytes() {
				t.Errorf("DATA payload len = %d, want %d", len(f.Payload), desc.PageBytes())
			}
		case protocol.CmdPageCRC:
			crcCount++
		case protocol.CmdProgress:
			lastPercent = int(binary.LittleEndian.Uint16(f.Payload[0:2]))
		case protocol.CmdComplete:
		default:
			t.Errorf("unexpected frame cmd %x", f.Cmd)
		}
	}
	if want := int(desc.TotalPages()); dataCount != want || crcCount != want {
		t.Errorf("dataCount=%d crcCount=%d, want %d", dataCount, crcCount, want)
	}
	if lastPercent != 100 {
		t.Errorf("final PROGRESS percent = %d, want 100", lastPercent)
	}
	if frames[len(frames)-1].Cmd != protocol.CmdComplete {
		t.Error("expected terminal COMPLETE frame")
	}
}

func TestHandleReadCancelledBeforeFirstPage(t *testing.T) {
	desc := testDescriptor(t, 4) // 128 pages, plenty of room to cancel early
	e, _ := testEngine(desc)
	sess, out := newTestSession(protocol.Frame{Cmd: protocol.CmdCancel})

	if err := e.handleRead(sess, nil); err != nil {
		t.Fatal(err)
	}

	frames := decodeAll(t, out)
	if len(frames) != 1 || frames[0].Cmd != protocol.CmdError {
		t.Fatalf("expected a single terminal ERROR frame, got %v", frames)
	}
}

func TestHandleWriteReassemblesSplitFramesAndProgramsPages(t *testing.T) {
	desc := testDescriptor(t, 1) // 32 pages
	e, sim := testEngine(desc)
	e.cfg.IncludeOOB = true

	var inbound []protocol.Frame
	for page := int64(0); page < desc.TotalPages(); page++ {
		record := make([]byte, desc.PageBytes())
		for i := range record {
			record[i] = byte(page)
		}
		mid := len(record) / 2
		inbound = append(inbound,
			protocol.Frame{Cmd: protocol.CmdWrite, Payload: record[:mid]},
			protocol.Frame{Cmd: protocol.CmdWrite, Payload: record[mid:]},
		)
	}
	sess, out := newTestSession(inbound...)

	if err := e.handleWrite(sess, nil); err != nil {
		t.Fatal(err)
	}

	frames := decodeAll(t, out)
	if frames[0].Cmd != protocol.CmdReadyForData {
		t.Fatalf("expected leading READY_FOR_DATA, got %x", frames[0].Cmd)
	}
	if frames[len(frames)-1].Cmd != protocol.CmdComplete {
		t.Fatalf("expected trailing COMPLETE, got %x", frames[len(frames)-1].Cmd)
	}

	for page := int64(0); page < desc.TotalPages(); page++ {
		rec := sim.Main[int(page)*desc.PageSize : int(page+1)*desc.PageSize]
		for _, b := range rec {
			if b != byte(page) {
				t.Fatalf("page %d main data not programmed correctly: got %x", page, b)
			}
		}
	}
}

func TestHandleWriteFillsSpareWhenOOBExcluded(t *testing.T) {
	desc := testDescriptor(t, 1)
	e, sim := testEngine(desc)
	e.cfg.IncludeOOB = false
	e.cfg.WriteFillByte = 0xAA

	var inbound []protocol.Frame
	for page := int64(0); page < desc.TotalPages(); page++ {
		inbound = append(inbound, protocol.Frame{Cmd: protocol.CmdWrite, Payload: bytes.Repeat([]byte{0x42}, desc.PageSize)})
	}
	sess, _ := newTestSession(inbound...)

	if err := e.handleWrite(sess, nil); err != nil {
		t.Fatal(err)
	}

	spare := sim.Spare[0:desc.SpareSize()]
	for _, b := range spare {
		if b != 0xAA {
			t.Errorf("spare byte = %x, want fill byte 0xAA", b)
		}
	}
}

func TestHandleEraseEmitsMonotonicProgress(t *testing.T) {
	desc := testDescriptor(t, 4)
	e, _ := testEngine(desc)
	sess, out := newTestSession()

	if err := e.handleErase(sess, nil); err != nil {
		t.Fatal(err)
	}

	frames := decodeAll(t, out)
	last := -1
	for _, f := range frames {
		if f.Cmd != protocol.CmdProgress {
			continue
		}
		percent := int(binary.LittleEndian.Uint16(f.Payload[0:2]))
		if percent < last {
			t.Errorf("PROGRESS percent regressed: %d after %d", percent, last)
		}
		last = percent
	}
	if last != 100 {
		t.Errorf("final erase PROGRESS percent = %d, want 100", last)
	}
	if frames[len(frames)-1].Cmd != protocol.CmdComplete {
		t.Error("expected terminal COMPLETE frame")
	}
}
