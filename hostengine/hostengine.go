/*
 * picoflash - host engine: detection and shared session state
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

package hostengine

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/nandflash/picoflash/chip"
	"github.com/nandflash/picoflash/config"
	"github.com/nandflash/picoflash/protocol"
)

// ProgressEvent is surfaced to the caller during READ/WRITE/ERASE,
// spec.md §4.5 "surface a progress event."
type ProgressEvent struct {
	Percent int
	Index   uint32
}

// sentinel text frames the manual-selection sub-protocol uses to bracket
// its enumerated registry list; must match engine/selection.go.
const (
	selectionBegin = "BEGIN_SELECTION"
	selectionEnd   = "END_SELECTION"
	unknownModel   = "UNKNOWN"
)

// HostEngine drives one device session: detection, then one of the three
// orchestration loops, with checkpointed resume (spec.md §4.5).
type HostEngine struct {
	link           *Link
	cfg            config.Options
	log            *slog.Logger
	checkpointPath string
	onProgress     func(ProgressEvent)
	onPowerWarning func(string)
}

// New returns a HostEngine bound to link. checkpointPath names the single
// resume file beside the configuration directory (spec.md §6); an empty
// string disables checkpointing.
func New(link *Link, cfg config.Options, log *slog.Logger, checkpointPath string) *HostEngine {
	return &HostEngine{link: link, cfg: cfg, log: log, checkpointPath: checkpointPath}
}

// OnProgress registers a callback invoked for every PROGRESS frame.
func (h *HostEngine) OnProgress(fn func(ProgressEvent)) { h.onProgress = fn }

// OnPowerWarning registers a callback invoked for every POWER_WARNING frame.
func (h *HostEngine) OnPowerWarning(fn func(string)) { h.onPowerWarning = fn }

func (h *HostEngine) progress(percent uint16, index uint32) {
	if h.onProgress != nil {
		h.onProgress(ProgressEvent{Percent: int(percent), Index: index})
	}
}

func decodeProgress(payload []byte) (percent uint16, index uint32, ok bool) {
	if len(payload) < 6 {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint16(payload[0:2]), binary.LittleEndian.Uint32(payload[2:6]), true
}

// Cancel sends CANCEL; the device acknowledges by terminating the current
// operation with its terminal frame (spec.md §4.5).
func (h *HostEngine) Cancel() error {
	return h.link.Send(protocol.Frame{Cmd: protocol.CmdCancel})
}

// Pause sends PAUSE.
func (h *HostEngine) Pause() error {
	return h.link.Send(protocol.Frame{Cmd: protocol.CmdPause})
}

// Resume sends RESUME.
func (h *HostEngine) Resume() error {
	return h.link.Send(protocol.Frame{Cmd: protocol.CmdResume})
}

// Selector lets the caller choose a chip from the enumerated registry
// list during manual selection (spec.md §4.3); names are in registry
// order, and the returned index is that same order.
type Selector func(names []string) int

// Detect issues STATUS and awaits MODEL. If the device reports UNKNOWN, it
// surfaces the enumerated registry to selector and issues SELECT with the
// chosen index (spec.md §4.5).
func (h *HostEngine) Detect(selector Selector) (chip.Descriptor, error) {
	if err := h.link.Send(protocol.Frame{Cmd: protocol.CmdStatus}); err != nil {
		return chip.Descriptor{}, err
	}
	f, err := h.link.Next()
	if err != nil {
		return chip.Descriptor{}, err
	}
	if f.Cmd != protocol.CmdModel {
		return chip.Descriptor{}, fmt.Errorf("hostengine: expected MODEL, got cmd 0x%02X", f.Cmd)
	}

	name := string(f.Payload)
	if name == unknownModel {
		name, err = h.runManualSelection(selector)
		if err != nil {
			return chip.Descriptor{}, err
		}
	}
	for _, d := range chip.List() {
		if d.FullName() == name {
			return d, nil
		}
	}
	return chip.Descriptor{}, fmt.Errorf("hostengine: detected model %q is not in the registry", name)
}

func (h *HostEngine) runManualSelection(selector Selector) (string, error) {
	var names []string
	for {
		f, err := h.link.Next()
		if err != nil {
			return "", err
		}
		if f.Cmd != protocol.CmdModel {
			continue
		}
		line := string(f.Payload)
		switch line {
		case selectionBegin:
			continue
		case selectionEnd:
			idx := selector(names)
			payload := make([]byte, 4)
			binary.LittleEndian.PutUint32(payload, uint32(idx))
			if err := h.link.Send(protocol.Frame{Cmd: protocol.CmdSelect, Payload: payload}); err != nil {
				return "", err
			}
			final, err := h.link.Next()
			if err != nil {
				return "", err
			}
			return string(final.Payload), nil
		default:
			names = append(names, line)
		}
	}
}
