/*
 * picoflash - resynchronizing frame reader
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

package protocol

import (
	"bufio"
	"io"
)

// FrameReader is satisfied by both Reader (binary mode) and LineReader
// (legacy ASCII fallback), so callers that only pull frames off the wire
// don't need to know which mode negotiation picked.
type FrameReader interface {
	ReadFrame() (Frame, error)
}

// Reader scans an io.Reader for Magic, decodes one Frame at a time, and
// resynchronizes by searching for the next Magic occurrence whenever a
// frame is malformed or its CRC fails to match (spec.md §4.4, §9). It is
// the single primitive both host and device use to pull frames off the
// wire.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r for frame decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// NewReaderFromBuffered wraps an already-buffered reader, so bytes peeked
// by DetectBinary during mode negotiation are not lost.
func NewReaderFromBuffered(br *bufio.Reader) *Reader {
	return &Reader{br: br}
}

// resyncBudget bounds how many magic-aligned bad frames ReadFrame will
// reject before giving up and surfacing an error, so a single call cannot
// spin forever against a persistently corrupt stream.
const resyncBudget = 4096

// ReadFrame blocks until one well-formed, CRC-valid frame is available or
// a read error occurs. Frames with a bad CRC are silently dropped and the
// scan resumes at the next Magic occurrence.
func (r *Reader) ReadFrame() (Frame, error) {
	for attempt := 0; attempt < resyncBudget; attempt++ {
		if err := r.syncToMagic(); err != nil {
			return Frame{}, err
		}
		hdr, err := r.br.Peek(2 + 5)
		if err != nil {
			return Frame{}, err
		}
		length := decodeLen(hdr[2:])
		total := 2 + 5 + int(length) + 4
		raw, err := r.br.Peek(total)
		if err != nil {
			if err == bufio.ErrBufferFull {
				// Length field is implausible for a corrupt/misaligned
				// frame; treat it as a bad frame and keep resyncing.
				if _, derr := r.br.Discard(2); derr != nil {
					return Frame{}, derr
				}
				continue
			}
			return Frame{}, err
		}
		frame, consumed, decErr := Decode(raw[2:])
		if decErr == nil {
			if _, err := r.br.Discard(2 + consumed); err != nil {
				return Frame{}, err
			}
			return frame, nil
		}
		// Bad frame: drop the 2 magic bytes just matched and resync from
		// the next byte, so a magic sequence embedded in garbage is still
		// found on the next pass.
		if _, err := r.br.Discard(2); err != nil {
			return Frame{}, err
		}
	}
	return Frame{}, ErrTruncated
}

func decodeLen(hdr []byte) uint32 {
	return uint32(hdr[1]) | uint32(hdr[2])<<8 | uint32(hdr[3])<<16 | uint32(hdr[4])<<24
}

// syncToMagic discards bytes until the next two-byte Magic sequence is the
// first thing in the buffer, without consuming it.
func (r *Reader) syncToMagic() error {
	for {
		b, err := r.br.Peek(2)
		if err != nil {
			return err
		}
		if b[0] == Magic[0] && b[1] == Magic[1] {
			return nil
		}
		if _, err := r.br.Discard(1); err != nil {
			return err
		}
	}
}
