/*
 * picoflash - framed host<->device wire protocol
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

// Package protocol implements the binary framed transport between host and
// device (spec.md §3, §4.4) and the IEEE CRC32 that protects it.
package protocol

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Magic is the two-byte frame delimiter; its presence at the start of a
// session also selects binary mode over the legacy ASCII line fallback.
var Magic = [2]byte{'P', 'F'}

// Command codes, spec.md §3.
const (
	CmdStatus       byte = 0x01
	CmdRead         byte = 0x02
	CmdWrite        byte = 0x03
	CmdErase        byte = 0x04
	CmdCancel       byte = 0x05
	CmdPause        byte = 0x06
	CmdResume       byte = 0x07
	CmdSelect       byte = 0x08
	CmdProgress     byte = 0x10
	CmdReadyForData byte = 0x11
	CmdComplete     byte = 0x12
	CmdError        byte = 0x13
	CmdModel        byte = 0x14
	CmdPowerWarning byte = 0x15
	CmdPageCRC      byte = 0x16
)

// ErrCRCMismatch is returned by Decode when the trailing CRC32 does not
// match the computed value over cmd||length||payload.
var ErrCRCMismatch = errors.New("protocol: frame CRC mismatch")

// ErrTruncated is returned when fewer bytes are available than the header
// declares.
var ErrTruncated = errors.New("protocol: truncated frame")

// Frame is one transport unit: magic(2) || cmd(1) || length_le(4) ||
// payload(length) || crc32_le(4). CRC32 is IEEE, computed over
// cmd || length || payload.
type Frame struct {
	Cmd     byte
	Payload []byte
}

// crc computes the IEEE CRC32 over cmd || length_le(4) || payload, exactly
// the bytes Encode places on the wire between magic and the trailing CRC.
func crc(cmd byte, payload []byte) uint32 {
	buf := make([]byte, 0, 5+len(payload))
	buf = append(buf, cmd)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, payload...)
	return crc32.ChecksumIEEE(buf)
}

// Encode serializes f to the wire format described above.
func (f Frame) Encode() []byte {
	out := make([]byte, 0, 2+1+4+len(f.Payload)+4)
	out = append(out, Magic[0], Magic[1])
	out = append(out, f.Cmd)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(f.Payload)))
	out = append(out, lenBuf[:]...)
	out = append(out, f.Payload...)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc(f.Cmd, f.Payload))
	out = append(out, crcBuf[:]...)
	return out
}

// Decode parses a single frame's bytes, NOT including the 2-byte magic
// (callers locate magic themselves; see Reader). It returns the number of
// bytes of buf consumed on success.
func Decode(buf []byte) (Frame, int, error) {
	const headerLen = 1 + 4
	if len(buf) < headerLen {
		return Frame{}, 0, ErrTruncated
	}
	cmd := buf[0]
	length := binary.LittleEndian.Uint32(buf[1:5])
	total := headerLen + int(length) + 4
	if len(buf) < total {
		return Frame{}, 0, ErrTruncated
	}
	payload := buf[headerLen : headerLen+int(length)]
	wantCRC := binary.LittleEndian.Uint32(buf[headerLen+int(length) : total])
	if crc(cmd, payload) != wantCRC {
		return Frame{}, total, ErrCRCMismatch
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return Frame{Cmd: cmd, Payload: out}, total, nil
}
