/*
 * picoflash - READ operation protocol (device side)
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

package engine

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/nandflash/picoflash/protocol"
)

// handleRead runs the READ operation protocol, spec.md §4.3. payload may
// carry a 4-byte little-endian start page; an empty payload starts at
// page 0 (the host's own resume logic discards leading bytes itself,
// spec.md §4.5, rather than asking the device to start mid-chip - this
// start-page payload exists for symmetry and manual testing).
func (e *Engine) handleRead(sess *Session, payload []byte) error {
	if !e.known {
		return e.emitError(sess, "read: no chip selected")
	}
	desc := e.current
	start := int64(0)
	if len(payload) >= 4 {
		start = int64(binary.LittleEndian.Uint32(payload[0:4]))
	}
	total := desc.TotalPages()
	span := total - start
	if span <= 0 {
		return sess.Emit(protocol.Frame{Cmd: protocol.CmdComplete})
	}

	state := NewState(KindRead)
	for page := start; page < total; page++ {
		e.pollControl(sess, state)
		if state.PollAndWait() {
			return sess.Emit(protocol.Frame{Cmd: protocol.CmdError, Payload: []byte("cancelled")})
		}

		buf, err := e.readPage(desc, page)
		if err != nil {
			return e.emitError(sess, "read_page %d: %v", page, err)
		}
		if err := sess.Emit(protocol.Frame{Cmd: protocol.CmdRead, Payload: buf}); err != nil {
			return err
		}
		if err := e.emitPageCRC(sess, uint32(page), crc32.ChecksumIEEE(buf)); err != nil {
			return err
		}
		percent := uint16(((page - start + 1) * 100) / span)
		if err := e.emitProgress(sess, percent, uint32(page)); err != nil {
			return err
		}
		if err := e.maybeSamplePower(sess, page-start); err != nil {
			return err
		}
		state.SetCursor(page)
	}
	return sess.Emit(protocol.Frame{Cmd: protocol.CmdComplete})
}
