/*
 * picoflash - device-side operation state machine
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

// Package engine is the device-side NAND operation engine (spec.md §4.3):
// page read, page program, block erase, and the three per-operation
// protocols that drive them from a decoded command.
package engine

import "sync"

// Kind identifies which of the three operations a State belongs to.
type Kind int

const (
	KindRead Kind = iota
	KindWrite
	KindErase
)

// State is the device-side per-operation record (spec.md §3
// OperationState): created on command arrival, destroyed on the terminal
// frame. Cancellation is cooperative: every suspension point in the
// operation loop polls or waits on this State rather than being killed
// from outside (spec.md §9 "explicit token").
type State struct {
	Kind   Kind
	Cursor int64

	mu        sync.Mutex
	cond      *sync.Cond
	paused    bool
	cancelled bool
}

// NewState creates a fresh operation state for kind.
func NewState(kind Kind) *State {
	s := &State{Kind: kind}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Pause requests the operation loop suspend at its next poll point.
func (s *State) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume releases a paused operation loop.
func (s *State) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Cancel requests the operation terminate at its next poll point. It also
// wakes a paused loop so cancellation is observed promptly rather than
// waiting for a RESUME that may never come.
func (s *State) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Cancelled reports whether Cancel has been requested.
func (s *State) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// PollAndWait is the suspension-point primitive the operation loops call
// between pages/blocks (spec.md §5 "Suspension points"). It returns true
// if the operation should terminate (cancelled), blocking first if a
// pause is in effect until Resume or Cancel is called.
func (s *State) PollAndWait() (cancel bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.paused && !s.cancelled {
		s.cond.Wait()
	}
	return s.cancelled
}

// SetCursor records progress for checkpointing/inspection; Cursor is read
// directly by callers that already hold no lock invariant with it (the
// operation loop is the sole writer).
func (s *State) SetCursor(c int64) {
	s.Cursor = c
}
