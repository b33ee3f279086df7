package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestParseLegacyLineKnownTokens(t *testing.T) {
	cases := []struct {
		line string
		kind LegacyKind
	}{
		{"PROGRESS:37", LegacyProgress},
		{"MODEL:Samsung K9F1G08U0A", LegacyModel},
		{"OPERATION_COMPLETE", LegacyComplete},
		{"OPERATION_FAILED", LegacyFailed},
		{"READY_FOR_DATA", LegacyReadyForData},
		{"POWER_WARNING:low rail", LegacyPowerWarning},
		{"some informational banner text", LegacyUnknown},
	}
	for _, c := range cases {
		ev := ParseLegacyLine(c.line)
		if ev.Kind != c.kind {
			t.Errorf("ParseLegacyLine(%q).Kind = %v, want %v", c.line, ev.Kind, c.kind)
		}
	}
}

func TestFormatLegacyLineRoundTrip(t *testing.T) {
	ev := LegacyEvent{Kind: LegacyProgress, Percent: 37}
	line := FormatLegacyLine(ev)
	if line != "PROGRESS:37" {
		t.Errorf("got %q, want PROGRESS:37", line)
	}
	reparsed := ParseLegacyLine(line)
	if reparsed.Kind != LegacyProgress || reparsed.Percent != 37 {
		t.Errorf("round trip mismatch: %+v", reparsed)
	}
}

func TestDetectBinaryBothModes(t *testing.T) {
	binStream := Frame{Cmd: CmdStatus}.Encode()
	br := bufio.NewReader(bytes.NewReader(binStream))
	isBinary, err := DetectBinary(br)
	if err != nil {
		t.Fatal(err)
	}
	if !isBinary {
		t.Error("expected binary mode for a PF-prefixed stream")
	}

	asciiStream := []byte("MODEL:UNKNOWN\n")
	br2 := bufio.NewReader(bytes.NewReader(asciiStream))
	isBinary, err = DetectBinary(br2)
	if err != nil {
		t.Fatal(err)
	}
	if isBinary {
		t.Error("expected legacy mode for a non-PF-prefixed stream")
	}
}

func TestNewAutoReaderBinaryMode(t *testing.T) {
	stream := Frame{Cmd: CmdModel, Payload: []byte("Samsung K9F1G08U0A")}.Encode()
	rd, err := NewAutoReader(bytes.NewReader(stream))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rd.(*Reader); !ok {
		t.Fatalf("expected *Reader for a PF-prefixed stream, got %T", rd)
	}
	f, err := rd.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if f.Cmd != CmdModel || string(f.Payload) != "Samsung K9F1G08U0A" {
		t.Errorf("got %+v", f)
	}
}

func TestNewAutoReaderLegacyModeTranslatesLines(t *testing.T) {
	stream := strings.Join([]string{
		"booting, please wait",
		"MODEL:UNKNOWN",
		"PROGRESS:50",
		"OPERATION_COMPLETE",
		"",
	}, "\n")
	rd, err := NewAutoReader(strings.NewReader(stream))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rd.(*LineReader); !ok {
		t.Fatalf("expected *LineReader for a non-PF stream, got %T", rd)
	}

	f, err := rd.ReadFrame()
	if err != nil || f.Cmd != CmdModel || string(f.Payload) != "UNKNOWN" {
		t.Fatalf("first frame: %+v %v", f, err)
	}
	f, err = rd.ReadFrame()
	if err != nil || f.Cmd != CmdProgress {
		t.Fatalf("second frame: %+v %v", f, err)
	}
	if len(f.Payload) < 2 {
		t.Fatalf("progress payload too short: %v", f.Payload)
	}
	percent := binary.LittleEndian.Uint16(f.Payload[0:2])
	if percent != 50 {
		t.Errorf("progress payload decoded to %d, want 50", percent)
	}
	f, err = rd.ReadFrame()
	if err != nil || f.Cmd != CmdComplete {
		t.Fatalf("third frame: %+v %v", f, err)
	}
}

func TestFrameToLegacyLineCoversEveryMappedCommand(t *testing.T) {
	cases := []struct {
		f    Frame
		want string
	}{
		{Frame{Cmd: CmdProgress, Payload: []byte{37, 0}}, "PROGRESS:37"},
		{Frame{Cmd: CmdModel, Payload: []byte("Samsung K9F1G08U0A")}, "MODEL:Samsung K9F1G08U0A"},
		{Frame{Cmd: CmdComplete}, "OPERATION_COMPLETE"},
		{Frame{Cmd: CmdError}, "OPERATION_FAILED"},
		{Frame{Cmd: CmdReadyForData}, "READY_FOR_DATA"},
		{Frame{Cmd: CmdPowerWarning, Payload: []byte("low rail")}, "POWER_WARNING:low rail"},
	}
	for _, c := range cases {
		got, ok := FrameToLegacyLine(c.f)
		if !ok {
			t.Errorf("FrameToLegacyLine(%+v): expected ok=true", c.f)
		}
		if got != c.want {
			t.Errorf("FrameToLegacyLine(%+v) = %q, want %q", c.f, got, c.want)
		}
	}
	if _, ok := FrameToLegacyLine(Frame{Cmd: CmdPageCRC}); ok {
		t.Error("expected no legacy equivalent for PAGE_CRC")
	}
}
