/*
 * picoflash - host-side READ orchestration with resumable checkpoints
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
	"io"
	"time"

	"github.com/nandflash/picoflash/chip"
	"github.com/nandflash/picoflash/ecc"
	"github.com/nandflash/picoflash/protocol"
)

// ErrDeviceError wraps an ERROR frame's payload text so callers can
// distinguish a device-reported failure from a transport error.
type ErrDeviceError struct{ Message string }

func (e *ErrDeviceError) Error() string { return "hostengine: device reported: " + e.Message }

// Read issues READ against desc and streams pages to out. The device
// always restarts at page 0 (spec.md §4.3); a loaded OpRead checkpoint is
// instead validated against the device's own per-page CRC as it is
// restated: while unresolved, incoming DATA is held rather than written.
// The first arriving PAGE_CRC for the checkpoint's LastPage resolves it -
// on a match, `LastPage * (page_size+spare_size)` leading bytes are
// discarded from the held buffer before it is flushed (spec.md §8
// scenario 3); on a mismatch, the checkpoint is discarded and the whole
// held buffer is flushed unmodified (scenario 4). Every subsequent page
// streams straight to out.
func (h *HostEngine) Read(desc chip.Descriptor, out io.Writer) error {
	recordLen := int64(desc.PageBytes())

	var resumeLastPage, resumePageCRC uint32
	resolved := true
	if h.checkpointPath != "" {
		if ck, ok := LoadCheckpoint(h.checkpointPath); ok && ck.Operation == OpRead {
			resumeLastPage, resumePageCRC = ck.LastPage, ck.PageCRC32
			resolved = false
		}
	}

	if err := h.link.Send(protocol.Frame{Cmd: protocol.CmdRead}); err != nil {
		return err
	}

	var pending []byte
	for {
		f, err := h.link.Next()
		if err != nil {
			return err
		}
		switch f.Cmd {
		case protocol.CmdRead:
			if resolved {
				if _, err := out.Write(f.Payload); err != nil {
					return err
				}
			} else {
				pending = append(pending, f.Payload...)
			}
		case protocol.CmdPageCRC:
			if len(f.Payload) < 8 {
				continue
			}
			idx := binary.LittleEndian.Uint32(f.Payload[0:4])
			want := binary.LittleEndian.Uint32(f.Payload[4:8])

			if !resolved && idx == resumeLastPage {
				discard := int64(resumeLastPage) * recordLen
				if discard > int64(len(pending)) {
					discard = int64(len(pending))
				}
				if want != resumePageCRC {
					discard = 0
					if h.checkpointPath != "" {
						ClearCheckpoint(h.checkpointPath)
					}
				}
				if _, err := out.Write(pending[discard:]); err != nil {
					return err
				}
				pending = nil
				resolved = true
			}

			if h.checkpointPath != "" {
				SaveCheckpoint(h.checkpointPath, Checkpoint{Operation: OpRead, LastPage: idx, PageCRC32: want, Timestamp: stamp()})
			}
		case protocol.CmdProgress:
			if percent, index, ok := decodeProgress(f.Payload); ok {
				h.progress(percent, index)
			}
		case protocol.CmdPowerWarning:
			if h.onPowerWarning != nil {
				h.onPowerWarning(string(f.Payload))
			}
		case protocol.CmdComplete:
			if h.checkpointPath != "" {
				ClearCheckpoint(h.checkpointPath)
			}
			return nil
		case protocol.CmdError:
			return &ErrDeviceError{Message: string(f.Payload)}
		default:
			h.log.Warn("hostengine: read: unexpected frame", "cmd", f.Cmd)
		}
	}
}

// stamp is the single call site for the checkpoint timestamp, kept
// separate from the struct literal so a future injection point (e.g. for
// deterministic tests) only needs to change one function.
func stamp() int64 { return time.Now().Unix() }

// StripOOBIfConfigured removes the spare region from a completed READ
// dump when the configuration excludes OOB from the output (spec.md §6).
func (h *HostEngine) StripOOBIfConfigured(dump []byte, desc chip.Descriptor) []byte {
	if h.cfg.IncludeOOB {
		return dump
	}
	return ecc.StripOOB(dump, desc.PageSize, desc.SpareSize())
}
