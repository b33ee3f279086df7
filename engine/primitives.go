/*
 * picoflash - bus-level NAND page/block primitives
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
	"fmt"

	"github.com/nandflash/picoflash/bus"
	"github.com/nandflash/picoflash/chip"
)

// NAND command opcodes, spec.md §4.3. These are distinct from the ID-read
// opcode bus.Driver already owns, since the engine issues them directly.
const (
	cmdReadSetup      byte = 0x00
	cmdReadConfirm    byte = 0x30
	cmdProgramSetup   byte = 0x80
	cmdProgramConfirm byte = 0x10
	cmdEraseSetup     byte = 0x60
	cmdEraseConfirm   byte = 0xD0
	cmdReadStatus     byte = 0x70

	statusFailBit byte = 0x01
)

// readPage issues the two-cycle read command around a 5(or 4)-cycle
// address and fills buf (page_size+spare_size bytes) from the bus,
// spec.md §4.3 read_page. On any failure CE# is released and buf's
// contents are unspecified.
func (e *Engine) readPage(desc chip.Descriptor, page int64) ([]byte, error) {
	d := e.driver
	if err := d.SendCommand(cmdReadSetup); err != nil {
		d.ReleaseCE()
		return nil, err
	}
	if err := d.SendAddress(desc.PageAddress(page), desc.AddressCycles()); err != nil {
		d.ReleaseCE()
		return nil, err
	}
	if err := d.SendCommand(cmdReadConfirm); err != nil {
		d.ReleaseCE()
		return nil, err
	}
	ready, err := d.WaitReady(bus.IDReadTimeout)
	if err != nil {
		d.ReleaseCE()
		return nil, err
	}
	if !ready {
		d.ReleaseCE()
		return nil, fmt.Errorf("engine: read_page %d: device not ready", page)
	}
	buf := make([]byte, desc.PageBytes())
	for i := range buf {
		b, err := d.ReadData()
		if err != nil {
			d.ReleaseCE()
			return nil, err
		}
		buf[i] = b
	}
	return buf, d.ReleaseCE()
}

// programPage issues the program command around buf (page_size+spare_size
// bytes) and confirms via a status read, spec.md §4.3 program_page.
func (e *Engine) programPage(desc chip.Descriptor, page int64, buf []byte) error {
	d := e.driver
	if err := d.SendCommand(cmdProgramSetup); err != nil {
		d.ReleaseCE()
		return err
	}
	if err := d.SendAddress(desc.PageAddress(page), desc.AddressCycles()); err != nil {
		d.ReleaseCE()
		return err
	}
	for _, b := range buf {
		if err := d.WriteData(b); err != nil {
			d.ReleaseCE()
			return err
		}
	}
	if err := d.SendCommand(cmdProgramConfirm); err != nil {
		d.ReleaseCE()
		return err
	}
	ready, err := d.WaitReady(bus.ProgramTimeout)
	if err != nil {
		d.ReleaseCE()
		return err
	}
	if !ready {
		d.ReleaseCE()
		return fmt.Errorf("engine: program_page %d: device not ready", page)
	}
	status, err := e.readStatus()
	if err != nil {
		d.ReleaseCE()
		return err
	}
	if status&statusFailBit != 0 {
		d.ReleaseCE()
		return fmt.Errorf("engine: program_page %d: status fail bit set (0x%02X)", page, status)
	}
	return d.ReleaseCE()
}

// eraseBlock issues the erase command around a 3-cycle block address and
// confirms via a status read, spec.md §4.3 erase_block.
func (e *Engine) eraseBlock(desc chip.Descriptor, block int64) error {
	d := e.driver
	if err := d.SendCommand(cmdEraseSetup); err != nil {
		d.ReleaseCE()
		return err
	}
	if err := d.SendAddress(desc.BlockPageAddress(block), 3); err != nil {
		d.ReleaseCE()
		return err
	}
	if err := d.SendCommand(cmdEraseConfirm); err != nil {
		d.ReleaseCE()
		return err
	}
	ready, err := d.WaitReady(bus.EraseTimeout)
	if err != nil {
		d.ReleaseCE()
		return err
	}
	if !ready {
		d.ReleaseCE()
		return fmt.Errorf("engine: erase_block %d: device not ready", block)
	}
	status, err := e.readStatus()
	if err != nil {
		d.ReleaseCE()
		return err
	}
	if status&statusFailBit != 0 {
		d.ReleaseCE()
		return fmt.Errorf("engine: erase_block %d: status fail bit set (0x%02X)", block, status)
	}
	return d.ReleaseCE()
}

func (e *Engine) readStatus() (byte, error) {
	if err := e.driver.SendCommand(cmdReadStatus); err != nil {
		return 0, err
	}
	return e.driver.ReadData()
}
