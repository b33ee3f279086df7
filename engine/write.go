/*
 * picoflash - WRITE operation protocol (device side)
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

// handleWrite runs the WRITE operation protocol, spec.md §4.3. The host
// streams payload bytes across one or more WRITE frames in chunk_size
// units (spec.md §4.5) that need not align to page boundaries; this loop
// reassembles them into exactly page_size+(spare_size if include_oob)
// bytes per page before calling programPage.
func (e *Engine) handleWrite(sess *Session, _ []byte) error {
	if !e.known {
		return e.emitError(sess, "write: no chip selected")
	}
	desc := e.current
	recordLen := desc.PageSize
	if e.cfg.IncludeOOB {
		recordLen = desc.PageBytes()
	}
	total := desc.TotalPages()

	if err := sess.Emit(protocol.Frame{Cmd: protocol.CmdReadyForData}); err != nil {
		return err
	}

	state := NewState(KindWrite)
	var acc []byte
	for page := int64(0); page < total; page++ {
		for int64(len(acc)) < int64(recordLen) {
			f, err := sess.Next()
			if err != nil {
				return err
			}
			switch f.Cmd {
			case protocol.CmdWrite:
				acc = append(acc, f.Payload...)
			case protocol.CmdCancel:
				state.Cancel()
			case protocol.CmdPause:
				state.Pause()
			case protocol.CmdResume:
				state.Resume()
			default:
				e.log.Warn("dropping unexpected frame during write", "cmd", f.Cmd)
			}
			if state.Cancelled() {
				return sess.Emit(protocol.Frame{Cmd: protocol.CmdError, Payload: []byte("cancelled")})
			}
		}

		record := acc[:recordLen]
		acc = acc[recordLen:]
		full := make([]byte, desc.PageBytes())
		if e.cfg.IncludeOOB {
			copy(full, record)
		} else {
			copy(full[:desc.PageSize], record)
			for i := desc.PageSize; i < len(full); i++ {
				full[i] = e.cfg.WriteFillByte
			}
		}

		if err := e.programPage(desc, page, full); err != nil {
			return e.emitError(sess, "program_page %d: %v", page, err)
		}
		percent := uint16(((page + 1) * 100) / total)
		if err := e.emitProgress(sess, percent, uint32(page)); err != nil {
			return err
		}
		if err := e.maybeSamplePower(sess, page); err != nil {
			return err
		}
		state.SetCursor(page)
	}
	return sess.Emit(protocol.Frame{Cmd: protocol.CmdComplete})
}
