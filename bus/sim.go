/*
 * picoflash - in-memory NAND bus simulator for tests
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

package bus

import "periph.io/x/conn/v3/gpio"

// Sim is a software NAND chip: it implements Control and DataBus by
// tracking CLE/ALE/CE#/WE#/RE# transitions the same way real silicon would,
// so engine code exercises the exact same Driver calls in tests as on
// hardware. It is not a periph.io driver; it stands in for one.
type Sim struct {
	Main          []byte // page_size * pages_per_block * block_count
	Spare         []byte // spare_size * pages_per_block * block_count
	Page          int    // page_size
	Oob           int    // spare_size
	PagesPerBlock int

	cle, ale bool
	weLevel  gpio.Level
	reLevel  gpio.Level
	dataIn   bool
	lines    byte

	addrBytes []byte
	cmdLatch  byte
	cursor    int64 // byte offset into the record stream for the active transfer
	opKind    int
	readyNow  bool
	status    byte // bit0: 0=pass, 1=fail; read back via command 0x70
	idCursor  int

	// WriteFail, when true, makes the next program confirm report failure.
	WriteFail bool
	// EraseFail, when true, makes the next erase confirm report failure.
	EraseFail bool
}

const (
	opNone = iota
	opRead
	opProgram
	opStatus
	opID
)

// NewSim allocates a simulated chip with the given geometry and fills main
// data and spare with 0xFF, the NAND "erased" state.
func NewSim(pageSize, spareSize, pagesPerBlock, blockCount int) *Sim {
	s := &Sim{
		Main:          make([]byte, pageSize*pagesPerBlock*blockCount),
		Spare:         make([]byte, spareSize*pagesPerBlock*blockCount),
		Page:          pageSize,
		Oob:           spareSize,
		PagesPerBlock: pagesPerBlock,
		weLevel:       gpio.High, // WE#/RE# idle high, so the first pulse is a real edge
		reLevel:       gpio.High,
		readyNow:      true,
	}
	for i := range s.Main {
		s.Main[i] = 0xFF
	}
	for i := range s.Spare {
		s.Spare[i] = 0xFF
	}
	return s
}

func (s *Sim) recordLen() int64 { return int64(s.Page + s.Oob) }

func (s *Sim) pageRecord(p int64) []byte {
	m := s.Main[int(p)*s.Page : int(p+1)*s.Page]
	o := s.Spare[int(p)*s.Oob : int(p+1)*s.Oob]
	out := make([]byte, 0, s.Page+s.Oob)
	out = append(out, m...)
	out = append(out, o...)
	return out
}

func (s *Sim) writePageRecord(p int64, rec []byte) {
	copy(s.Main[int(p)*s.Page:int(p+1)*s.Page], rec[:s.Page])
	copy(s.Spare[int(p)*s.Oob:int(p+1)*s.Oob], rec[s.Page:s.Page+s.Oob])
}

// SetOutput/SetInput track data-line direction; the simulated bus needs no
// electrical behavior change, only bookkeeping.
func (s *Sim) SetOutput() { s.dataIn = false }
func (s *Sim) SetInput()  { s.dataIn = true }

func (s *Sim) Write(b byte) { s.lines = b }
func (s *Sim) Read() byte   { return s.lines }

// pinOut implements PinOut for one named control line, forwarding edges to
// Sim.onEdge.
type pinOut struct {
	sim  *Sim
	name string
}

func (p pinOut) Out(l gpio.Level) error {
	p.sim.onEdge(p.name, l)
	return nil
}

type pinIn struct{ sim *Sim }

func (p pinIn) Read() gpio.Level {
	if p.sim.readyNow {
		return gpio.High
	}
	return gpio.Low
}

// Control returns a bus.Control wired to this simulated chip.
func (s *Sim) Control() Control {
	return Control{
		CLE: pinOut{s, "cle"},
		ALE: pinOut{s, "ale"},
		CE:  pinOut{s, "ce"},
		RE:  pinOut{s, "re"},
		WE:  pinOut{s, "we"},
		RB:  pinIn{s},
	}
}

func (s *Sim) onEdge(name string, l gpio.Level) {
	switch name {
	case "cle":
		s.cle = l == gpio.High
	case "ale":
		s.ale = l == gpio.High
	case "ce":
		// CE# level itself is not modeled beyond accepting the edge.
	case "re":
		prev := s.reLevel
		s.reLevel = l
		if prev == gpio.High && l == gpio.Low {
			s.serveRead()
		}
	case "we":
		prev := s.weLevel
		s.weLevel = l
		if prev == gpio.Low && l == gpio.High {
			s.latch()
		}
	}
}

func (s *Sim) latch() {
	b := s.lines
	switch {
	case s.cle:
		s.cmdLatch = b
		s.handleCommand(b)
	case s.ale:
		s.addrBytes = append(s.addrBytes, b)
		if s.opKind == opProgram {
			// Program data follows the address directly, so the write
			// cursor must point at the addressed page before it arrives.
			s.cursor = s.addrValue() / int64(s.Page) * s.recordLen()
		}
	default:
		if s.opKind == opProgram {
			page := s.cursor / s.recordLen()
			rec := s.pageRecord(page)
			rec[s.cursor%s.recordLen()] = b
			s.writePageRecord(page, rec)
			s.cursor++
		}
	}
}

func (s *Sim) addrValue() int64 {
	var v int64
	for i, b := range s.addrBytes {
		v |= int64(b) << (8 * i)
	}
	return v
}

// handleCommand implements just enough of the command set engine.go issues
// (spec.md §4.1/§4.3) to round-trip read_page/program_page/erase_block and
// read_id in tests.
func (s *Sim) handleCommand(cmd byte) {
	switch cmd {
	case 0x00: // read setup
		s.addrBytes = nil
		s.opKind = opRead
	case 0x30: // read confirm
		page := s.addrValue() / int64(s.Page)
		s.cursor = page * s.recordLen()
		s.readyNow = true
	case 0x80: // program setup
		s.addrBytes = nil
		s.opKind = opProgram
	case 0x10: // program confirm
		page := s.addrValue() / int64(s.Page)
		s.cursor = page * s.recordLen()
		if s.WriteFail {
			s.status = 0x01
			s.WriteFail = false
		} else {
			s.status = 0x00
		}
		s.readyNow = true
	case 0x60: // erase setup
		s.addrBytes = nil
		s.opKind = opNone
	case 0xD0: // erase confirm
		startPage := s.addrValue()
		if s.EraseFail {
			s.status = 0x01
			s.EraseFail = false
		} else {
			s.status = 0x00
			s.eraseBlockAt(startPage)
		}
		s.readyNow = true
	case 0x70: // read status
		s.opKind = opStatus
		s.cursor = 0
	case 0x90: // read ID
		s.addrBytes = nil
		s.opKind = opID
		s.idCursor = 0
	}
}

// eraseBlockAt erases the block whose first page is startPage, restoring
// main and spare to the all-0xFF erased state.
func (s *Sim) eraseBlockAt(startPage int64) {
	block := startPage / int64(s.PagesPerBlock)
	mStart := int(block) * s.PagesPerBlock * s.Page
	mEnd := mStart + s.PagesPerBlock*s.Page
	for i := mStart; i < mEnd; i++ {
		s.Main[i] = 0xFF
	}
	oStart := int(block) * s.PagesPerBlock * s.Oob
	oEnd := oStart + s.PagesPerBlock*s.Oob
	for i := oStart; i < oEnd; i++ {
		s.Spare[i] = 0xFF
	}
}

// serveRead puts the next byte of the pending read/status/ID transfer onto
// the data lines on an RE# falling edge.
func (s *Sim) serveRead() {
	switch s.opKind {
	case opRead:
		page := s.cursor / s.recordLen()
		rec := s.pageRecord(page)
		s.lines = rec[s.cursor%s.recordLen()]
		s.cursor++
	case opStatus:
		s.lines = s.status
	case opID:
		ids := []byte{0xEC, 0xF1, 0x00, 0x95, 0x40}
		s.lines = ids[s.idCursor%len(ids)]
		s.idCursor++
	}
}
