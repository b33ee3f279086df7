/*
 * picoflash - host-side ERASE orchestration with resumable checkpoints
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
	"github.com/nandflash/picoflash/chip"
	"github.com/nandflash/picoflash/protocol"
)

// Erase issues ERASE against desc and persists the furthest-seen block
// index after every PROGRESS frame (spec.md §4.3, §8 scenario 5).
func (h *HostEngine) Erase(desc chip.Descriptor) error {
	if err := h.link.Send(protocol.Frame{Cmd: protocol.CmdErase}); err != nil {
		return err
	}
	for {
		f, err := h.link.Next()
		if err != nil {
			return err
		}
		switch f.Cmd {
		case protocol.CmdProgress:
			percent, index, ok := decodeProgress(f.Payload)
			if !ok {
				continue
			}
			h.progress(percent, index)
			if h.checkpointPath != "" {
				SaveCheckpoint(h.checkpointPath, Checkpoint{Operation: OpErase, EraseBlock: index, Timestamp: stamp()})
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
			h.log.Warn("hostengine: erase: unexpected frame", "cmd", f.Cmd)
		}
	}
}
