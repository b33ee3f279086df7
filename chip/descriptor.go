/*
 * picoflash - NAND chip descriptor registry
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

// Package chip holds the static table of known NAND chip descriptors and
// the byte-prefix lookup used during device detection.
package chip

import "fmt"

// Timings holds advisory NAND bus timings in nanoseconds. Nothing in this
// repository reads them: bus.Driver inserts no delays between its
// command/address/data edges, so these values pace no bus cycle.
type Timings struct {
	TWC  int // write cycle time
	TRC  int // read cycle time
	TREA int // RE# access time
	TRP  int // RE#/WE# pulse width
	TWP  int // WE# pulse width
}

// Descriptor is an immutable record describing one NAND chip family. The
// registry owns a static slice of these; nothing mutates a Descriptor after
// construction.
type Descriptor struct {
	Manufacturer  string
	Name          string
	IDPrefix      []byte // 2-5 bytes, ordered, used for prefix match
	PageSize      int    // bytes of main data per page: 512, 2048 or 4096
	spareSize     int    // 0 means "derive from PageSize"
	PagesPerBlock int    // 32, 64, 128 or 256
	BlockCount    int
	Timings       Timings
}

// NewDescriptor validates and returns a Descriptor, deriving SpareSize and
// AddressCycles when not given explicitly. It mirrors the validation the
// original plugin system performed per-chip (id length, page size set).
func NewDescriptor(manufacturer, name string, idPrefix []byte, pageSize, spareSize, pagesPerBlock, blockCount int, timings Timings) (Descriptor, error) {
	if len(idPrefix) < 2 || len(idPrefix) > 5 {
		return Descriptor{}, fmt.Errorf("chip: %s/%s: id_prefix length %d out of range [2,5]", manufacturer, name, len(idPrefix))
	}
	switch pageSize {
	case 512, 2048, 4096:
	default:
		return Descriptor{}, fmt.Errorf("chip: %s/%s: unsupported page size %d", manufacturer, name, pageSize)
	}
	switch pagesPerBlock {
	case 32, 64, 128, 256:
	default:
		return Descriptor{}, fmt.Errorf("chip: %s/%s: unsupported pages_per_block %d", manufacturer, name, pagesPerBlock)
	}
	id := make([]byte, len(idPrefix))
	copy(id, idPrefix)
	return Descriptor{
		Manufacturer:  manufacturer,
		Name:          name,
		IDPrefix:      id,
		PageSize:      pageSize,
		spareSize:     spareSize,
		PagesPerBlock: pagesPerBlock,
		BlockCount:    blockCount,
		Timings:       timings,
	}, nil
}

// SpareSize returns the OOB size per page, deriving {16,64,128} from
// PageSize when the descriptor did not specify one explicitly.
func (d Descriptor) SpareSize() int {
	if d.spareSize != 0 {
		return d.spareSize
	}
	switch {
	case d.PageSize <= 512:
		return 16
	case d.PageSize <= 2048:
		return 64
	default:
		return 128
	}
}

// TotalSize returns page_size * pages_per_block * block_count.
func (d Descriptor) TotalSize() int64 {
	return int64(d.PageSize) * int64(d.PagesPerBlock) * int64(d.BlockCount)
}

// TotalPages returns the number of addressable pages across the whole chip.
func (d Descriptor) TotalPages() int64 {
	return int64(d.PagesPerBlock) * int64(d.BlockCount)
}

// AddressCycles returns 4 when the chip's total page count fits in 16 bits,
// 5 otherwise (column + page address cycles for read/program; the erase
// path always uses 3 cycles regardless of this value, per spec.md §4.1).
func (d Descriptor) AddressCycles() int {
	if d.TotalPages() <= 1<<16 {
		return 4
	}
	return 5
}

// PageBytes returns page_size + spare_size, the raw on-wire record length.
func (d Descriptor) PageBytes() int {
	return d.PageSize + d.SpareSize()
}

// FullName renders "Manufacturer Name" the way MODEL frames report it.
func (d Descriptor) FullName() string {
	return d.Manufacturer + " " + d.Name
}

// PageAddress returns the byte address of page within the chip's linear
// address space, used to build the AddressCycles()-cycle (4 or 5)
// read/program address.
func (d Descriptor) PageAddress(page int64) int64 {
	return page * int64(d.PageSize)
}

// BlockPageAddress returns the page address of the first page of block,
// used to build the 3-cycle erase address.
func (d Descriptor) BlockPageAddress(block int64) int64 {
	return block * int64(d.PagesPerBlock)
}
