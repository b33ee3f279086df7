/*
 * picoflash - NAND bus driver
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

// Package bus drives the raw NAND command/address/data/control lines. It
// runs on the microcontroller side: eight bidirectional data lines, five
// control outputs (CLE, ALE, CE#, RE#, WE#) and one control input (R/B#).
package bus

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// ErrNotReady is returned by WaitReady when R/B# never goes high within
// the timeout.
var ErrNotReady = errors.New("bus: device not ready before timeout")

// Timeouts for the three operations that wait on R/B#, per spec.md §4.1.
const (
	IDReadTimeout    = 1000 * time.Millisecond
	ProgramTimeout   = 5000 * time.Millisecond
	EraseTimeout     = 10000 * time.Millisecond
	idReadAddrCycles = 1
)

// DataBus abstracts the eight bidirectional data lines. Real firmware
// implements this over a GPIO port register; Sim backs it with a byte
// channel for host-side testing.
type DataBus interface {
	SetOutput()       // switch all eight lines to output
	SetInput()        // switch all eight lines to input (with pull-ups)
	Write(b byte)     // drive b onto the lines (must be in output mode)
	Read() byte       // sample the lines (must be in input mode)
}

// PinOut is the slice of periph.io/x/conn/v3/gpio.PinOut this driver needs.
// Any real gpio.PinOut (bound via periph.io/x/host/v3) satisfies it
// structurally; Sim provides an in-memory stand-in for tests.
type PinOut interface {
	Out(l gpio.Level) error
}

// PinIn is the slice of gpio.PinIn this driver needs for R/B#.
type PinIn interface {
	Read() gpio.Level
}

// Control holds the five control outputs and the one control input. A real
// build wires these to periph.io/x/host/v3-initialized gpio.PinIO values;
// Sim provides an in-memory stand-in.
type Control struct {
	CLE PinOut
	ALE PinOut
	CE  PinOut // active low
	RE  PinOut // active low
	WE  PinOut // active low
	RB  PinIn  // ready/busy, active high when ready
}

// Driver drives one NAND chip's command/address/data protocol over Control
// and DataBus. It holds no chip geometry; callers supply address values and
// cycle counts explicitly (spec.md §4.1: "parameterized by descriptor
// values, not subclassed").
type Driver struct {
	ctl  Control
	data DataBus
}

// New returns a Driver bound to the given control lines and data bus.
func New(ctl Control, data DataBus) *Driver {
	return &Driver{ctl: ctl, data: data}
}

// Reset returns all control lines to idle: CLE=ALE=0, CE#=RE#=WE#=1.
func (d *Driver) Reset() error {
	if err := d.ctl.CLE.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.ctl.ALE.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.ctl.CE.Out(gpio.High); err != nil {
		return err
	}
	if err := d.ctl.RE.Out(gpio.High); err != nil {
		return err
	}
	if err := d.ctl.WE.Out(gpio.High); err != nil {
		return err
	}
	d.data.SetOutput()
	return nil
}

// assertCE drives CE# low; it is idempotent and left asserted across a
// logical operation (command -> address -> data -> confirm) per spec.md
// §4.1, released only by ReleaseCE.
func (d *Driver) assertCE() error {
	return d.ctl.CE.Out(gpio.Low)
}

// ReleaseCE drives CE# high, ending the current logical operation.
func (d *Driver) ReleaseCE() error {
	return d.ctl.CE.Out(gpio.High)
}

// SendCommand asserts CE#, raises CLE, pulses WE# low-to-high while cmd sits
// on the data lines, then drops CLE.
func (d *Driver) SendCommand(cmd byte) error {
	if err := d.assertCE(); err != nil {
		return err
	}
	if err := d.ctl.CLE.Out(gpio.High); err != nil {
		return err
	}
	d.data.SetOutput()
	d.data.Write(cmd)
	if err := d.pulseWE(); err != nil {
		return err
	}
	return d.ctl.CLE.Out(gpio.Low)
}

// SendAddress raises ALE, emits cycles low bytes of value (LSB first),
// pulsing WE# for each, then drops ALE. cycles is 3 for erase addresses
// and 4 or 5 for read/program addresses, per spec.md §4.1.
func (d *Driver) SendAddress(value int64, cycles int) error {
	if err := d.assertCE(); err != nil {
		return err
	}
	if err := d.ctl.ALE.Out(gpio.High); err != nil {
		return err
	}
	d.data.SetOutput()
	for i := 0; i < cycles; i++ {
		d.data.Write(byte(value >> (8 * i)))
		if err := d.pulseWE(); err != nil {
			return err
		}
	}
	return d.ctl.ALE.Out(gpio.Low)
}

// pulseWE drives WE# low then high, holding cmd/address/data steady across
// the edge. No tWP/tWC delay is inserted on any bus.
func (d *Driver) pulseWE() error {
	if err := d.ctl.WE.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.ctl.WE.Out(gpio.High); err != nil {
		return err
	}
	return nil
}

// WriteData pulses WE# while b sits on the (already-output) data lines.
func (d *Driver) WriteData(b byte) error {
	d.data.Write(b)
	return d.pulseWE()
}

// ReadData switches the data lines to input, pulses RE# low, samples the
// byte while RE# is low, raises RE#, and switches the lines back to
// output. No tRP/tREA/tRC-tREA delay is inserted on any bus.
func (d *Driver) ReadData() (byte, error) {
	d.data.SetInput()
	if err := d.ctl.RE.Out(gpio.Low); err != nil {
		return 0, err
	}
	b := d.data.Read()
	if err := d.ctl.RE.Out(gpio.High); err != nil {
		return 0, err
	}
	d.data.SetOutput()
	return b, nil
}

// WaitReady polls R/B# until it reads high (ready) or timeout elapses.
func (d *Driver) WaitReady(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		lvl := d.ctl.RB.Read()
		if lvl == gpio.High {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(50 * time.Microsecond)
	}
}

// cmdReadID is the NAND "read ID" opcode.
const cmdReadID byte = 0x90

// ReadID issues command 0x90, address 0x00, waits for ready, and reads at
// least 4 ID bytes. On timeout it returns the all-0xFF sentinel rather than
// an error, matching spec.md §4.1 ("On timeout return a sentinel").
func (d *Driver) ReadID() ([]byte, error) {
	if err := d.SendCommand(cmdReadID); err != nil {
		return nil, err
	}
	if err := d.SendAddress(0, idReadAddrCycles); err != nil {
		return nil, err
	}
	ready, err := d.WaitReady(IDReadTimeout)
	if err != nil {
		return nil, err
	}
	if !ready {
		return []byte{0xFF, 0xFF, 0xFF, 0xFF}, nil
	}
	id := make([]byte, 5)
	for i := range id {
		b, err := d.ReadData()
		if err != nil {
			return nil, err
		}
		id[i] = b
	}
	return id, nil
}
