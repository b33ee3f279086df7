/*
 * picoflash - ECC verification entry point and OOB strip/restore
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

package ecc

// Scheme selects which verifier Verify applies, matching the
// enable_ecc/ecc_scheme configuration knobs of spec.md §6.
type Scheme int

const (
	SchemeNone Scheme = iota
	SchemeCRC16
	SchemeHamming512x3
)

// Params bundles the ECC configuration knobs spec.md §4.6/§6 name.
type Params struct {
	Scheme         Scheme
	SectorSize     int // bytes per sector for hamming_512_3byte
	BytesPerSector int // ECC bytes stored per sector in OOB
	OOBOffset      int // offset within OOB where the first sector's ECC begins
}

// Verify checks main against the ECC/checksum stored in oob per params,
// returning the zero-based sector indices with a detected mismatch. A
// whole-page CRC16 mismatch is reported as the sentinel []int{-1}
// (spec.md §4.6). No correction is ever applied; this is detection only.
func Verify(main, oob []byte, params Params) []int {
	switch params.Scheme {
	case SchemeNone:
		return nil
	case SchemeCRC16:
		if len(oob) < params.OOBOffset+2 {
			return nil
		}
		calc := CRC16CCITT(main)
		stored := uint16(oob[params.OOBOffset]) | uint16(oob[params.OOBOffset+1])<<8
		if calc != stored {
			return []int{-1}
		}
		return nil
	case SchemeHamming512x3:
		if params.SectorSize <= 0 || params.BytesPerSector <= 0 {
			return nil
		}
		var errors []int
		sectors := len(main) / params.SectorSize
		for s := 0; s < sectors; s++ {
			d0 := s * params.SectorSize
			d1 := d0 + params.SectorSize
			e0 := params.OOBOffset + s*params.BytesPerSector
			e1 := e0 + params.BytesPerSector
			if e1 > len(oob) {
				continue
			}
			calc := Hamming512x3(main[d0:d1])
			stored := oob[e0:e1]
			if len(stored) < 3 || stored[0] != calc[0] || stored[1] != calc[1] || stored[2] != calc[2] {
				errors = append(errors, s)
			}
		}
		return errors
	default:
		return nil
	}
}

// StripOOB removes the spare region from each page-sized record of dump,
// returning a buffer of concatenated page_size chunks. If the length of
// dump is not an exact multiple of pageBytes (page_size+spare_size), dump
// is returned unchanged, per spec.md §4.6.
func StripOOB(dump []byte, pageSize, spareSize int) []byte {
	recLen := pageSize + spareSize
	if recLen <= 0 || len(dump)%recLen != 0 {
		return dump
	}
	pages := len(dump) / recLen
	out := make([]byte, 0, pages*pageSize)
	for p := 0; p < pages; p++ {
		start := p * recLen
		out = append(out, dump[start:start+pageSize]...)
	}
	return out
}

// RestoreOOB re-interleaves main-only data with externally preserved spare
// records, the inverse of StripOOB, used to round-trip a stripped dump
// when the OOB bytes were captured separately.
func RestoreOOB(mainOnly []byte, pageSize int, spares [][]byte) []byte {
	if pageSize <= 0 || len(mainOnly)%pageSize != 0 {
		return mainOnly
	}
	pages := len(mainOnly) / pageSize
	if len(spares) != pages {
		return mainOnly
	}
	out := make([]byte, 0, len(mainOnly)+len(spares)*len(spares[0]))
	for p := 0; p < pages; p++ {
		out = append(out, mainOnly[p*pageSize:(p+1)*pageSize]...)
		out = append(out, spares[p]...)
	}
	return out
}
