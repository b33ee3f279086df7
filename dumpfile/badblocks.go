/*
 * picoflash - offline bad-block report
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

package dumpfile

import "errors"

// ErrDumpNotWholeRecords is returned when dump's length is not an exact
// multiple of (pageSize + spareSize).
var ErrDumpNotWholeRecords = errors.New("dumpfile: length is not a multiple of page_size+spare_size")

// BadBlocks derives block indices where spare byte 0 != 0xFF, spec.md §6,
// from a full-OOB dump divided into (pageSize+spareSize) page records and
// pagesPerBlock records per block. Only the first page of each block is
// consulted, matching the factory bad-block marking convention.
func BadBlocks(dump []byte, pageSize, spareSize, pagesPerBlock int) ([]int, error) {
	recLen := pageSize + spareSize
	if recLen <= 0 || pagesPerBlock <= 0 || len(dump)%recLen != 0 {
		return nil, ErrDumpNotWholeRecords
	}
	pages := len(dump) / recLen
	blocks := pages / pagesPerBlock

	var bad []int
	for b := 0; b < blocks; b++ {
		firstPage := b * pagesPerBlock
		spareStart := firstPage*recLen + pageSize
		if dump[spareStart] != 0xFF {
			bad = append(bad, b)
		}
	}
	return bad, nil
}
