/*
 * picoflash - host side of the framed wire link
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

package hostengine

import (
	"io"
	"sync"

	"github.com/nandflash/picoflash/protocol"
)

// Link is the host side of one device session: Send and Next are safe to
// call from different goroutines (a supervisor loop calling Next, a UI
// thread calling Send with CANCEL/PAUSE/RESUME), per spec.md §5 "the
// serial handle is owned exclusively by the supervisor" - Link is the
// single owner here, serializing writes itself.
type Link struct {
	r   protocol.FrameReader
	w   io.Writer
	wmu sync.Mutex
}

// NewLink wraps rw, which is ordinarily an open go.bug.st/serial.Port. The
// first two inbound bytes pick the wire mode (spec.md §4.4): binary
// framing if they equal protocol.Magic, the legacy ASCII line fallback
// otherwise. NewLink blocks until those two bytes arrive.
func NewLink(rw io.ReadWriter) (*Link, error) {
	r, err := protocol.NewAutoReader(rw)
	if err != nil {
		return nil, err
	}
	return &Link{r: r, w: rw}, nil
}

// Send encodes and writes f.
func (l *Link) Send(f protocol.Frame) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	_, err := l.w.Write(f.Encode())
	return err
}

// Next blocks for the next well-formed inbound frame.
func (l *Link) Next() (protocol.Frame, error) {
	return l.r.ReadFrame()
}
