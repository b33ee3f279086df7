/*
 * picoflash - ERASE operation protocol (device side)
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

import "github.com/nandflash/picoflash/protocol"

// handleErase runs the ERASE operation protocol, spec.md §4.3: every
// block on the chip, in order, with periodic power sampling as in READ.
func (e *Engine) handleErase(sess *Session, _ []byte) error {
	if !e.known {
		return e.emitError(sess, "erase: no chip selected")
	}
	desc := e.current
	blocks := int64(desc.BlockCount)

	state := NewState(KindErase)
	for block := int64(0); block < blocks; block++ {
		e.pollControl(sess, state)
		if state.PollAndWait() {
			return sess.Emit(protocol.Frame{Cmd: protocol.CmdError, Payload: []byte("cancelled")})
		}

		if err := e.eraseBlock(desc, block); err != nil {
			return e.emitError(sess, "erase_block %d: %v", block, err)
		}
		percent := uint16(((block + 1) * 100) / blocks)
		if err := e.emitProgress(sess, percent, uint32(block)); err != nil {
			return err
		}
		if err := e.maybeSamplePower(sess, block); err != nil {
			return err
		}
		state.SetCursor(block)
	}
	return sess.Emit(protocol.Frame{Cmd: protocol.CmdComplete})
}
