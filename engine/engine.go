/*
 * picoflash - device-side operation dispatch
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
	"log/slog"

	"github.com/nandflash/picoflash/bus"
	"github.com/nandflash/picoflash/chip"
	"github.com/nandflash/picoflash/config"
	"github.com/nandflash/picoflash/protocol"
)

// PowerSampler returns the chip supply rail in volts, derived from an ADC
// reading scaled by 3 per spec.md §4.3. A real build samples an analog
// pin; tests supply a canned function.
type PowerSampler func() float64

// powerWarningThreshold is the rail voltage below which a POWER_WARNING is
// emitted, spec.md §4.3.
const powerWarningThreshold = 4.5

// powerSampleInterval is how often, in pages or blocks, power is sampled
// during READ/ERASE, spec.md §4.3.
const powerSampleInterval = 100

// Engine dispatches decoded command frames to the three NAND operations
// over a single shared Driver, spec.md §4.3: "the Transport dispatches on
// the decoded command code" (spec.md §9).
type Engine struct {
	driver  *bus.Driver
	cfg     config.Options
	log     *slog.Logger
	power   PowerSampler
	current chip.Descriptor
	known   bool
}

// New returns an Engine bound to driver. power may be nil, in which case
// POWER_WARNING is never emitted.
func New(driver *bus.Driver, cfg config.Options, log *slog.Logger, power PowerSampler) *Engine {
	return &Engine{driver: driver, cfg: cfg, log: log, power: power}
}

// Serve runs the device side of one session to completion: it loops
// reading command frames and dispatching each to the matching handler
// until the session's read pump reports a terminal error (the link
// closed). Only one operation runs at a time, per spec.md §4.1's "bus
// lines are a single shared resource... operations are strictly serial."
func (e *Engine) Serve(sess *Session) error {
	for {
		f, err := sess.Next()
		if err != nil {
			return err
		}
		switch f.Cmd {
		case protocol.CmdStatus:
			if err := e.handleStatus(sess); err != nil {
				e.log.Error("status/detect failed", "err", err)
			}
		case protocol.CmdRead:
			if err := e.handleRead(sess, f.Payload); err != nil {
				e.log.Error("read operation failed", "err", err)
			}
		case protocol.CmdWrite:
			if err := e.handleWrite(sess, f.Payload); err != nil {
				e.log.Error("write operation failed", "err", err)
			}
		case protocol.CmdErase:
			if err := e.handleErase(sess, f.Payload); err != nil {
				e.log.Error("erase operation failed", "err", err)
			}
		default:
			e.log.Warn("unexpected command while idle", "cmd", f.Cmd)
		}
	}
}

// emitError sends a textual ERROR frame.
func (e *Engine) emitError(sess *Session, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	e.log.Error(msg)
	return sess.Emit(protocol.Frame{Cmd: protocol.CmdError, Payload: []byte(msg)})
}

// emitProgress sends a PROGRESS frame: percent_u16 || index_u32, LE.
func (e *Engine) emitProgress(sess *Session, percent uint16, index uint32) error {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf[0:2], percent)
	binary.LittleEndian.PutUint32(buf[2:6], index)
	return sess.Emit(protocol.Frame{Cmd: protocol.CmdProgress, Payload: buf})
}

// emitPageCRC sends a PAGE_CRC frame: page_index_u32 || crc32_u32, LE.
func (e *Engine) emitPageCRC(sess *Session, pageIndex uint32, crc uint32) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], pageIndex)
	binary.LittleEndian.PutUint32(buf[4:8], crc)
	return sess.Emit(protocol.Frame{Cmd: protocol.CmdPageCRC, Payload: buf})
}

// maybeSamplePower emits POWER_WARNING every powerSampleInterval units if
// the sampled rail is under threshold, spec.md §4.3.
func (e *Engine) maybeSamplePower(sess *Session, unitIndex int64) error {
	if e.power == nil || unitIndex%powerSampleInterval != 0 {
		return nil
	}
	volts := e.power()
	if volts >= powerWarningThreshold {
		return nil
	}
	msg := fmt.Sprintf("supply at %.2fV, below %.2fV threshold", volts, powerWarningThreshold)
	return sess.Emit(protocol.Frame{Cmd: protocol.CmdPowerWarning, Payload: []byte(msg)})
}

// pollControl drains any pending CANCEL/PAUSE/RESUME frames into state,
// never blocking. Unrelated frames arriving mid-operation are logged and
// dropped: the host contract forbids sending anything but control frames
// while an operation is in flight (spec.md §4.4).
func (e *Engine) pollControl(sess *Session, state *State) {
	for {
		f, ok := sess.Poll()
		if !ok {
			return
		}
		switch f.Cmd {
		case protocol.CmdCancel:
			state.Cancel()
		case protocol.CmdPause:
			state.Pause()
		case protocol.CmdResume:
			state.Resume()
		default:
			e.log.Warn("dropping unexpected frame mid-operation", "cmd", f.Cmd)
		}
	}
}
