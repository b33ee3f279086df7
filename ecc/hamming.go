/*
 * picoflash - Hamming(512->3B) ECC scaffold
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

import "math/bits"

// parity of a byte's popcount, precomputed the way the reference
// implementation does (bit.OnesCount is the Go equivalent of Python's
// bin(i).count("1")).
func bitParity(b byte) byte {
	return byte(bits.OnesCount8(b) & 1)
}

// Hamming512x3 computes the 3-byte single-error-correcting Hamming code
// for a 512-byte sector, per the ONFI/Linux-MTD "3 ECC bytes per 512B"
// convention: accumulate row/column parities across 64 little-endian
// 32-bit words, fold to bytes, and invert so an all-0xFF (erased) sector
// yields 0xFF 0xFF 0xFF. buf shorter than 512 bytes is zero-padded; longer
// is truncated. No correction is applied (spec.md §9: detection only).
func Hamming512x3(buf []byte) [3]byte {
	b := buf
	if len(b) < 512 {
		padded := make([]byte, 512)
		copy(padded, b)
		b = padded
	} else if len(b) > 512 {
		b = b[:512]
	}

	var rp [16]uint32
	var par uint32
	for i := 0; i < 64; i++ {
		off := i * 4
		cur := uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
		par ^= cur
		if i&0x01 != 0 {
			rp[5] ^= cur
		} else {
			rp[4] ^= cur
		}
		if i&0x02 != 0 {
			rp[7] ^= cur
		} else {
			rp[6] ^= cur
		}
		if i&0x04 != 0 {
			rp[9] ^= cur
		} else {
			rp[8] ^= cur
		}
		if i&0x08 != 0 {
			rp[11] ^= cur
		} else {
			rp[10] ^= cur
		}
		if i&0x10 != 0 {
			rp[13] ^= cur
		} else {
			rp[12] ^= cur
		}
		if i&0x20 != 0 {
			rp[15] ^= cur
		} else {
			rp[14] ^= cur
		}
	}

	var rpb [16]byte
	for idx := 4; idx < 16; idx++ {
		v := rp[idx]
		v ^= v >> 16
		v ^= v >> 8
		rpb[idx] = byte(v & 0xFF)
	}

	v3 := par >> 16
	v3 ^= v3 >> 8
	rpb[3] = byte(v3 & 0xFF)

	v2 := par & 0xFFFF
	v2 ^= v2 >> 8
	rpb[2] = byte(v2 & 0xFF)

	par ^= par >> 16
	rpb[1] = byte((par >> 8) & 0xFF)
	rpb[0] = byte(par & 0xFF)
	par ^= par >> 8
	par &= 0xFF
	par8 := byte(par & 0xFF)

	c0 := (bitParity(rpb[7]) << 7) | (bitParity(rpb[6]) << 6) | (bitParity(rpb[5]) << 5) |
		(bitParity(rpb[4]) << 4) | (bitParity(rpb[3]) << 3) | (bitParity(rpb[2]) << 2) |
		(bitParity(rpb[1]) << 1) | bitParity(rpb[0])
	c1 := (bitParity(rpb[15]) << 7) | (bitParity(rpb[14]) << 6) | (bitParity(rpb[13]) << 5) |
		(bitParity(rpb[12]) << 4) | (bitParity(rpb[11]) << 3) | (bitParity(rpb[10]) << 2) |
		(bitParity(rpb[9]) << 1) | bitParity(rpb[8])
	c2 := (bitParity(par8&0xF0) << 7) | (bitParity(par8&0x0F) << 6) | (bitParity(par8&0xCC) << 5) |
		(bitParity(par8&0x33) << 4) | (bitParity(par8&0xAA) << 3) | (bitParity(par8&0x55) << 2)

	return [3]byte{c0 ^ 0xFF, c1 ^ 0xFF, c2 ^ 0xFF}
}
