/*
 * picoflash - chip detection and manual-selection sub-protocol
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
	"fmt"

	"github.com/nandflash/picoflash/chip"
	"github.com/nandflash/picoflash/protocol"
)

// selectionBegin/selectionEnd bracket the enumerated registry list sent
// during manual selection (spec.md §4.3: "index:name pairs bracketed by
// sentinels"). The wire has no dedicated command codes for these, so they
// are carried as MODEL frames distinguishable by their fixed text -
// documented as a deliberate encoding choice rather than a new command.
const (
	selectionBegin = "BEGIN_SELECTION"
	selectionEnd   = "END_SELECTION"
	unknownModel   = "UNKNOWN"
)

// handleStatus answers a STATUS command by reading the chip ID and
// looking it up in the registry; on a miss it runs the manual-selection
// sub-protocol instead (spec.md §4.3 "Manual selection state").
func (e *Engine) handleStatus(sess *Session) error {
	id, err := e.driver.ReadID()
	if err != nil {
		return err
	}
	if desc, ok := chip.Lookup(id); ok {
		e.current = desc
		e.known = true
		return sess.Emit(protocol.Frame{Cmd: protocol.CmdModel, Payload: []byte(desc.FullName())})
	}
	return e.runManualSelection(sess)
}

// runManualSelection emits MODEL "UNKNOWN", then the bracketed registry
// list, then blocks for a SELECT frame (payload: index_u32, LE) and
// adopts the corresponding descriptor.
func (e *Engine) runManualSelection(sess *Session) error {
	if err := sess.Emit(protocol.Frame{Cmd: protocol.CmdModel, Payload: []byte(unknownModel)}); err != nil {
		return err
	}
	if err := sess.Emit(protocol.Frame{Cmd: protocol.CmdModel, Payload: []byte(selectionBegin)}); err != nil {
		return err
	}
	for i, desc := range chip.List() {
		line := fmt.Sprintf("%d:%s", i, desc.FullName())
		if err := sess.Emit(protocol.Frame{Cmd: protocol.CmdModel, Payload: []byte(line)}); err != nil {
			return err
		}
	}
	if err := sess.Emit(protocol.Frame{Cmd: protocol.CmdModel, Payload: []byte(selectionEnd)}); err != nil {
		return err
	}

	for {
		f, err := sess.Next()
		if err != nil {
			return err
		}
		if f.Cmd != protocol.CmdSelect {
			e.log.Warn("ignoring non-SELECT frame during manual selection", "cmd", f.Cmd)
			continue
		}
		if len(f.Payload) < 4 {
			return e.emitError(sess, "malformed SELECT payload")
		}
		idx := int(binary.LittleEndian.Uint32(f.Payload[0:4]))
		desc, ok := chip.ByIndex(idx)
		if !ok {
			if err := e.emitError(sess, "SELECT index %d out of range", idx); err != nil {
				return err
			}
			continue
		}
		e.current = desc
		e.known = true
		return sess.Emit(protocol.Frame{Cmd: protocol.CmdModel, Payload: []byte(desc.FullName())})
	}
}
