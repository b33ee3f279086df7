/*
 * picoflash - core configuration knobs
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

// Package config holds the knobs the core consumes (spec.md §6). Reading
// and persisting them to disk is the shell's job and out of scope here;
// this package is just the value type, constructed once and threaded
// through constructors rather than held in package-global state
// (spec.md §9).
package config

import "github.com/nandflash/picoflash/ecc"

// Options holds every knob spec.md §6 names.
type Options struct {
	IncludeOOB bool // controls WRITE payload shape and READ post-processing

	EnableECC      bool
	ECCScheme      ecc.Scheme
	ECCSectorSize  int
	ECCBytesPerSector int
	ECCOOBOffset   int

	UseBinaryProtocol bool
	ChunkSize         int
	DefaultBaudRate   int

	// WriteFillByte fills the spare region of a WRITE page when
	// include_oob is false. spec.md §9 leaves the choice open and
	// requires it be exposed as a knob; picoflash defaults to 0xFF
	// because most NAND families treat 0x00 in the spare area as a
	// false bad-block mark (spare byte 0 != 0xFF), where leaving the
	// region erased (0xFF) does not.
	WriteFillByte byte
}

// Default returns the configuration defaults, matching
// original_source/main/src/config/settings.py's AppSettings dataclass
// where the field exists here.
func Default() Options {
	return Options{
		IncludeOOB:        false,
		EnableECC:         false,
		ECCScheme:         ecc.SchemeCRC16,
		ECCSectorSize:     512,
		ECCBytesPerSector: 2,
		ECCOOBOffset:      0,
		UseBinaryProtocol: true,
		ChunkSize:         4096,
		DefaultBaudRate:   921600,
		WriteFillByte:     0xFF,
	}
}

// ECCParams adapts Options into ecc.Params for ecc.Verify.
func (o Options) ECCParams() ecc.Params {
	return ecc.Params{
		Scheme:         o.ECCScheme,
		SectorSize:     o.ECCSectorSize,
		BytesPerSector: o.ECCBytesPerSector,
		OOBOffset:      o.ECCOOBOffset,
	}
}
