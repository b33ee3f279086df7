/*
 * picoflash - legacy ASCII line transport fallback
 *
 * Copyright 2026, picoflash contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package protocol

import (
	"bufio"
	"encoding/binary"
	"io"
	"strconv"
	"strings"
)

// LegacyKind enumerates the ASCII line tokens spec.md §4.4 names. The
// legacy fallback has no framing and no CRC; it exists for devices that
// predate the binary protocol, per the teacher's own two-mode precedent
// (telnet line-state vs binary option negotiation).
type LegacyKind int

const (
	LegacyUnknown LegacyKind = iota
	LegacyProgress
	LegacyModel
	LegacyComplete
	LegacyFailed
	LegacyReadyForData
	LegacyPowerWarning
)

// LegacyEvent is one parsed ASCII line.
type LegacyEvent struct {
	Kind     LegacyKind
	Percent  int
	Model    string
	Message  string
	Raw      string
}

// ParseLegacyLine parses one newline-stripped line into a LegacyEvent. An
// unrecognized line (including the device's informational text that may
// precede detection, spec.md §6) yields LegacyUnknown; the host tolerates
// and ignores it rather than treating it as an error.
func ParseLegacyLine(line string) LegacyEvent {
	switch {
	case strings.HasPrefix(line, "PROGRESS:"):
		n, _ := strconv.Atoi(strings.TrimPrefix(line, "PROGRESS:"))
		return LegacyEvent{Kind: LegacyProgress, Percent: n, Raw: line}
	case strings.HasPrefix(line, "MODEL:"):
		return LegacyEvent{Kind: LegacyModel, Model: strings.TrimPrefix(line, "MODEL:"), Raw: line}
	case line == "OPERATION_COMPLETE":
		return LegacyEvent{Kind: LegacyComplete, Raw: line}
	case line == "OPERATION_FAILED":
		return LegacyEvent{Kind: LegacyFailed, Raw: line}
	case line == "READY_FOR_DATA":
		return LegacyEvent{Kind: LegacyReadyForData, Raw: line}
	case strings.HasPrefix(line, "POWER_WARNING:"):
		return LegacyEvent{Kind: LegacyPowerWarning, Message: strings.TrimPrefix(line, "POWER_WARNING:"), Raw: line}
	default:
		return LegacyEvent{Kind: LegacyUnknown, Raw: line}
	}
}

// FormatLegacyLine renders the device-side equivalent of ParseLegacyLine,
// used when the session falls back to ASCII mode.
func FormatLegacyLine(ev LegacyEvent) string {
	switch ev.Kind {
	case LegacyProgress:
		return "PROGRESS:" + strconv.Itoa(ev.Percent)
	case LegacyModel:
		return "MODEL:" + ev.Model
	case LegacyComplete:
		return "OPERATION_COMPLETE"
	case LegacyFailed:
		return "OPERATION_FAILED"
	case LegacyReadyForData:
		return "READY_FOR_DATA"
	case LegacyPowerWarning:
		return "POWER_WARNING:" + ev.Message
	default:
		return ev.Raw
	}
}

// DetectBinary peeks the first two bytes of br. If they equal Magic the
// session is binary; otherwise it is the legacy ASCII fallback. It does
// not consume any bytes, so the caller can hand br to either NewReader or
// a bufio.Scanner afterward.
func DetectBinary(br *bufio.Reader) (bool, error) {
	b, err := br.Peek(2)
	if err != nil {
		return false, err
	}
	return b[0] == Magic[0] && b[1] == Magic[1], nil
}

// LineReader adapts the legacy ASCII line fallback to FrameReader, so
// callers that only know how to pull Frames off the wire (engine.Session,
// hostengine.Link) work unmodified once mode negotiation has picked the
// ASCII path. Lines the device emits before detection completes, or any
// other unrecognized text (spec.md §6), are skipped rather than surfaced.
type LineReader struct {
	sc *bufio.Scanner
}

// NewLineReader wraps an already-buffered reader for legacy line scanning.
func NewLineReader(br *bufio.Reader) *LineReader {
	return &LineReader{sc: bufio.NewScanner(br)}
}

// ReadFrame blocks until a recognized legacy line arrives and returns its
// binary-protocol equivalent, or the underlying scan error (io.EOF on a
// closed connection).
func (l *LineReader) ReadFrame() (Frame, error) {
	for {
		if !l.sc.Scan() {
			if err := l.sc.Err(); err != nil {
				return Frame{}, err
			}
			return Frame{}, io.EOF
		}
		line := strings.TrimRight(l.sc.Text(), "\r")
		if line == "" {
			continue
		}
		ev := ParseLegacyLine(line)
		if ev.Kind == LegacyUnknown {
			continue
		}
		return legacyEventToFrame(ev), nil
	}
}

// legacyEventToFrame maps a parsed ASCII line onto the Frame a binary-mode
// device would have sent for the same event, so downstream consumers don't
// need a second code path per transport mode.
func legacyEventToFrame(ev LegacyEvent) Frame {
	switch ev.Kind {
	case LegacyProgress:
		payload := make([]byte, 6)
		binary.LittleEndian.PutUint16(payload[0:2], uint16(ev.Percent))
		return Frame{Cmd: CmdProgress, Payload: payload}
	case LegacyModel:
		return Frame{Cmd: CmdModel, Payload: []byte(ev.Model)}
	case LegacyComplete:
		return Frame{Cmd: CmdComplete}
	case LegacyFailed:
		return Frame{Cmd: CmdError, Payload: []byte(ev.Message)}
	case LegacyReadyForData:
		return Frame{Cmd: CmdReadyForData}
	case LegacyPowerWarning:
		return Frame{Cmd: CmdPowerWarning, Payload: []byte(ev.Message)}
	default:
		return Frame{}
	}
}

// FrameToLegacyLine renders f as the ASCII line a legacy-mode device would
// emit for it, the reverse of legacyEventToFrame, for use once Emit-side
// negotiation has picked the ASCII fallback. ok is false for frames with no
// legacy equivalent (e.g. PAGE_CRC, which the legacy protocol never had).
func FrameToLegacyLine(f Frame) (line string, ok bool) {
	switch f.Cmd {
	case CmdProgress:
		if len(f.Payload) < 2 {
			return "", false
		}
		percent := int(binary.LittleEndian.Uint16(f.Payload[0:2]))
		return FormatLegacyLine(LegacyEvent{Kind: LegacyProgress, Percent: percent}), true
	case CmdModel:
		return FormatLegacyLine(LegacyEvent{Kind: LegacyModel, Model: string(f.Payload)}), true
	case CmdComplete:
		return FormatLegacyLine(LegacyEvent{Kind: LegacyComplete}), true
	case CmdError:
		return FormatLegacyLine(LegacyEvent{Kind: LegacyFailed}), true
	case CmdReadyForData:
		return FormatLegacyLine(LegacyEvent{Kind: LegacyReadyForData}), true
	case CmdPowerWarning:
		return FormatLegacyLine(LegacyEvent{Kind: LegacyPowerWarning, Message: string(f.Payload)}), true
	default:
		return "", false
	}
}

// NewAutoReader peeks the first two bytes of r and returns a binary Reader
// or a legacy LineReader accordingly (spec.md §4.4's mode negotiation). The
// peeked bytes are preserved in either case.
func NewAutoReader(r io.Reader) (FrameReader, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	binaryMode, err := DetectBinary(br)
	if err != nil {
		return nil, err
	}
	if binaryMode {
		return NewReaderFromBuffered(br), nil
	}
	return NewLineReader(br), nil
}
