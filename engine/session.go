/*
 * picoflash - device-side wire session
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
	"io"
	"sync"
	"sync/atomic"

	"github.com/nandflash/picoflash/protocol"
)

// Session is the device side of one wire connection: a background pump
// decodes frames off r continuously so the operation loops can either
// block for the next frame (WRITE data) or poll without blocking (control
// checks between READ pages/ERASE blocks), per spec.md §4.4's "the device
// polls inbound bytes between per-page operations."
type Session struct {
	frames chan frameOrErr
	w      io.Writer
	wmu    sync.Mutex
	legacy atomic.Bool
}

type frameOrErr struct {
	frame protocol.Frame
	err   error
}

// NewSession starts the read pump over r and returns a Session that emits
// to w. The pump negotiates binary vs. legacy ASCII mode from the first
// two inbound bytes (spec.md §4.4) before decoding any frames.
func NewSession(r io.Reader, w io.Writer) *Session {
	s := &Session{frames: make(chan frameOrErr, 16), w: w}
	go s.pump(r)
	return s
}

func (s *Session) pump(r io.Reader) {
	rd, err := protocol.NewAutoReader(r)
	if err != nil {
		s.frames <- frameOrErr{protocol.Frame{}, err}
		return
	}
	if _, ok := rd.(*protocol.LineReader); ok {
		s.legacy.Store(true)
	}
	for {
		f, err := rd.ReadFrame()
		s.frames <- frameOrErr{f, err}
		if err != nil {
			return
		}
	}
}

// Emit writes f to the wire, downgrading to the legacy ASCII line for it
// when the pump negotiated the legacy fallback on this connection (spec.md
// §4.4). Safe for concurrent use alongside Poll/Next, which only ever
// touch the read side.
func (s *Session) Emit(f protocol.Frame) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.legacy.Load() {
		if line, ok := protocol.FrameToLegacyLine(f); ok {
			_, err := s.w.Write([]byte(line + "\n"))
			return err
		}
	}
	_, err := s.w.Write(f.Encode())
	return err
}

// Poll returns the next inbound frame without blocking. ok is false if
// none is pending yet.
func (s *Session) Poll() (protocol.Frame, bool) {
	select {
	case fe := <-s.frames:
		if fe.err != nil {
			return protocol.Frame{}, false
		}
		return fe.frame, true
	default:
		return protocol.Frame{}, false
	}
}

// Next blocks until the next inbound frame, or returns the pump's
// terminal read error.
func (s *Session) Next() (protocol.Frame, error) {
	fe := <-s.frames
	return fe.frame, fe.err
}
