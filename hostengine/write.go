/*
 * picoflash - host-side WRITE orchestration with resumable checkpoints
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
	"fmt"
	"hash/crc32"

	"github.com/nandflash/picoflash/chip"
	"github.com/nandflash/picoflash/protocol"
)

const defaultChunkSize = 4096

// checkpointInterval is how often bytes_sent/chunk_crc32 are persisted
// during WRITE, spec.md §4.3 "every 1 MiB."
const checkpointInterval = 1 << 20

// Write issues WRITE and streams data to the device in cfg.ChunkSize
// chunks, resuming from any loaded OpWrite checkpoint. The checkpoint is
// validated by recomputing the CRC32 of the chunk immediately preceding
// its recorded offset; a mismatch clears it and restarts from 0
// (spec.md §4.3, §8 invariant list).
func (h *HostEngine) Write(desc chip.Descriptor, data []byte) error {
	chunkSize := h.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	start := 0
	if h.checkpointPath != "" {
		if ck, ok := LoadCheckpoint(h.checkpointPath); ok && ck.Operation == OpWrite {
			s := int(ck.BytesSent)
			lo := s - chunkSize
			if lo < 0 {
				lo = 0
			}
			if s >= 0 && s <= len(data) && crc32.ChecksumIEEE(data[lo:s]) == ck.ChunkCRC32 {
				start = s
			} else {
				ClearCheckpoint(h.checkpointPath)
			}
		}
	}

	if err := h.link.Send(protocol.Frame{Cmd: protocol.CmdWrite}); err != nil {
		return err
	}
	ready, err := h.link.Next()
	if err != nil {
		return err
	}
	if ready.Cmd != protocol.CmdReadyForData {
		return fmt.Errorf("hostengine: expected READY_FOR_DATA, got cmd 0x%02X", ready.Cmd)
	}

	lastCheckpoint := start
	pos := start
	for pos < len(data) {
		end := pos + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[pos:end]
		if err := h.link.Send(protocol.Frame{Cmd: protocol.CmdWrite, Payload: chunk}); err != nil {
			return err
		}
		pos = end
		if h.checkpointPath != "" && pos-lastCheckpoint >= checkpointInterval {
			SaveCheckpoint(h.checkpointPath, Checkpoint{
				Operation: OpWrite, BytesSent: uint64(pos),
				ChunkCRC32: crc32.ChecksumIEEE(chunk), Timestamp: stamp(),
			})
			lastCheckpoint = pos
		}
	}

	for {
		f, err := h.link.Next()
		if err != nil {
			return err
		}
		switch f.Cmd {
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
			h.log.Warn("hostengine: write: unexpected frame", "cmd", f.Cmd)
		}
	}
}
